package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
	sqlitestore "github.com/gatehouse/gatehouse/internal/gatehouse/store/sqlite"
)

func TestTagStore_RegisterThenLookup(t *testing.T) {
	conn := openTestDB(t)
	ts := sqlitestore.NewTagStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	require.NoError(t, ts.Register(ctx, store.TagRecord{Credential: "A1B2C3D4", PrincipalName: "Ana"}))

	rec, ok, err := ts.Lookup(ctx, "A1B2C3D4")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ana", rec.PrincipalName)
	assert.Equal(t, store.DefaultImageRef, rec.ImageRef)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestTagStore_LookupIsExactMatch(t *testing.T) {
	conn := openTestDB(t)
	ts := sqlitestore.NewTagStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	require.NoError(t, ts.Register(ctx, store.TagRecord{Credential: "abcd", PrincipalName: "Ana"}))

	for _, probe := range []string{"ABCD", "abc", "abcd ", "abcde"} {
		_, ok, err := ts.Lookup(ctx, probe)
		require.NoError(t, err)
		assert.False(t, ok, "probe %q should not match", probe)
	}
}

func TestTagStore_DuplicateCredentialRejected(t *testing.T) {
	conn := openTestDB(t)
	ts := sqlitestore.NewTagStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	require.NoError(t, ts.Register(ctx, store.TagRecord{Credential: "AA11", PrincipalName: "Ana"}))
	err := ts.Register(ctx, store.TagRecord{Credential: "AA11", PrincipalName: "Bruno"})
	assert.ErrorIs(t, err, store.ErrDuplicateCredential)
}

func TestTagStore_DuplicatePrincipalRejected(t *testing.T) {
	conn := openTestDB(t)
	ts := sqlitestore.NewTagStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	require.NoError(t, ts.Register(ctx, store.TagRecord{Credential: "AA11", PrincipalName: "Ana"}))
	err := ts.Register(ctx, store.TagRecord{Credential: "BB22", PrincipalName: "Ana"})
	assert.ErrorIs(t, err, store.ErrDuplicatePrincipal)

	tags, err := ts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestTagStore_ListSortedByName(t *testing.T) {
	conn := openTestDB(t)
	ts := sqlitestore.NewTagStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	require.NoError(t, ts.Register(ctx, store.TagRecord{Credential: "02", PrincipalName: "Zoe"}))
	require.NoError(t, ts.Register(ctx, store.TagRecord{Credential: "01", PrincipalName: "Ana", ImageRef: "ana.png"}))

	tags, err := ts.List(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "Ana", tags[0].PrincipalName)
	assert.Equal(t, "ana.png", tags[0].ImageRef)
	assert.Equal(t, "Zoe", tags[1].PrincipalName)
}
