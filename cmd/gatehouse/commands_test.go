package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

// run executes the command tree with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	return filepath.Join(dir, "gatehouse.db")
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestHashPassword_OperatorEntry(t *testing.T) {
	isolate(t)

	out, err := run(t, "s3cret\n", "hash-password", "ana")
	require.NoError(t, err)

	entry := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(entry, "ana:$2"), entry)

	ops, err := auth.ParseOperators([]string{entry})
	require.NoError(t, err)
	assert.NoError(t, ops.Authenticate("ana", "s3cret"))
}

func TestHashPassword_Empty(t *testing.T) {
	isolate(t)

	_, err := run(t, "\n", "hash-password")
	assert.Error(t, err)
}

func TestTags_AddAndList(t *testing.T) {
	dbPath := isolate(t)

	out, err := run(t, "", "tags", "add", "A1B2C3D4", "Ana", "--db-path", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "registered A1B2C3D4 for Ana")

	_, err = run(t, "", "tags", "add", "0BADF00D", "Bruno", "--db-path", dbPath, "--image", "bruno.jpg")
	require.NoError(t, err)

	_, err = run(t, "", "tags", "add", "A1B2C3D4", "Carla", "--db-path", dbPath)
	assert.ErrorContains(t, err, "already registered")

	_, err = run(t, "", "tags", "add", "FFFF", "Ana", "--db-path", dbPath)
	assert.ErrorContains(t, err, "already has a tag")

	out, err = run(t, "", "tags", "list", "--db-path", dbPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "A1B2C3D4")
	assert.Contains(t, lines[1], "default.jpg")
	assert.Contains(t, lines[2], "bruno.jpg")
}

func TestTags_DBPathFromEnv(t *testing.T) {
	dbPath := isolate(t)
	t.Setenv("GATEHOUSE_DB_PATH", dbPath)

	_, err := run(t, "", "tags", "add", "A1B2C3D4", "Ana")
	require.NoError(t, err)
	assert.FileExists(t, dbPath)
}

func TestOpen(t *testing.T) {
	isolate(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.TriggerRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Secret != "open-sesame" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out, err := run(t, "", "open", "--server", srv.URL, "--secret", "open-sesame")
	require.NoError(t, err)
	assert.Contains(t, out, "command sent")

	out, err = run(t, "", "open", "--server", srv.URL, "--secret", "nope")
	assert.Error(t, err)
	assert.Contains(t, out, "authorization error")

	t.Setenv("GATEHOUSE_DOOR_SECRET", "open-sesame")
	out, err = run(t, "", "open", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "command sent")
}

func TestOpen_Unreachable(t *testing.T) {
	isolate(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := run(t, "", "open", "--server", url, "--secret", "x")
	assert.ErrorContains(t, err, "could not reach server")
}
