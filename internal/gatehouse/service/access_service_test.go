package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store/memory"
	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

// ── Audit recording ──────────────────────────────────────────────────────────

func TestRecordScan_RegisteredTag_Granted(t *testing.T) {
	svc, logs, notifier := newTestAccessService(map[string]string{"A1B2C3D4": "Ana"})

	before := time.Now().UTC()
	resp, err := svc.RecordScan(context.Background(), types.ScanRequest{UID: "A1B2C3D4"})
	require.NoError(t, err)
	assert.Equal(t, types.DecisionGranted, resp.AccessStatus)
	assert.Equal(t, "success", resp.Status)

	entries := logs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "A1B2C3D4", entries[0].Credential)
	assert.Equal(t, "Ana", entries[0].PrincipalName)
	assert.Equal(t, types.DecisionGranted, entries[0].Decision)
	assert.False(t, entries[0].LoggedAt.Before(before), "timestamp precedes request")
	assert.Equal(t, time.UTC, entries[0].LoggedAt.Location())

	notices := notifier.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, "Ana", notices[0].PrincipalName)
}

func TestRecordScan_UnknownTag_Denied(t *testing.T) {
	svc, logs, notifier := newTestAccessService(map[string]string{"A1B2C3D4": "Ana"})

	resp, err := svc.RecordScan(context.Background(), types.ScanRequest{UID: "AA11"})
	require.NoError(t, err)
	assert.Equal(t, types.DecisionDenied, resp.AccessStatus)

	entries := logs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Unknown", entries[0].PrincipalName)
	assert.Equal(t, types.DecisionDenied, entries[0].Decision)

	assert.Equal(t, []types.ScanNotice{{
		Credential:    "AA11",
		PrincipalName: "Unknown",
		Decision:      types.DecisionDenied,
		At:            entries[0].LoggedAt,
	}}, notifier.Notices())
}

func TestRecordScan_TrimsCredential(t *testing.T) {
	svc, logs, _ := newTestAccessService(map[string]string{"A1B2C3D4": "Ana"})

	resp, err := svc.RecordScan(context.Background(), types.ScanRequest{UID: "  A1B2C3D4\n"})
	require.NoError(t, err)
	assert.Equal(t, types.DecisionGranted, resp.AccessStatus)
	assert.Equal(t, "A1B2C3D4", logs.Entries()[0].Credential)
}

func TestRecordScan_EveryScanRecorded(t *testing.T) {
	svc, logs, notifier := newTestAccessService(map[string]string{"A1B2C3D4": "Ana"})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.RecordScan(ctx, types.ScanRequest{UID: "A1B2C3D4"})
		require.NoError(t, err)
	}

	assert.Len(t, logs.Entries(), 5)
	assert.Len(t, notifier.Notices(), 5)
}

// ── Validation and failures (nothing recorded, nothing notified) ─────────────

func TestRecordScan_BlankCredential_Rejected(t *testing.T) {
	for _, uid := range []string{"", "   ", "\t\n"} {
		svc, logs, notifier := newTestAccessService(nil)

		_, err := svc.RecordScan(context.Background(), types.ScanRequest{UID: uid})
		assert.ErrorIs(t, err, service.ErrInvalidCredential)
		assert.Empty(t, logs.Entries())
		assert.Empty(t, notifier.Notices())
	}
}

func TestRecordScan_AppendFailure_NoNotification(t *testing.T) {
	svc, logs, notifier := newTestAccessService(map[string]string{"A1B2C3D4": "Ana"})
	logs.FailAppend = errors.New("disk I/O error")

	_, err := svc.RecordScan(context.Background(), types.ScanRequest{UID: "A1B2C3D4"})
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrStorage)
	assert.Empty(t, logs.Entries())
	assert.Empty(t, notifier.Notices())
}

func TestRecordScan_DirectoryFailure_NoEntry(t *testing.T) {
	logs := memory.NewAccessLogStore()
	notifier := &recordingNotifier{}
	svc := service.NewAccessService(service.NewDecisionEngine(failingDirectory{}), logs, notifier)

	_, err := svc.RecordScan(context.Background(), types.ScanRequest{UID: "A1B2C3D4"})
	assert.ErrorIs(t, err, service.ErrStorage)
	assert.Empty(t, logs.Entries())
	assert.Empty(t, notifier.Notices())
}

func TestRecordScan_NilNotifierIsNoop(t *testing.T) {
	engine := service.NewDecisionEngine(memory.NewTagStore(nil))
	logs := memory.NewAccessLogStore()
	svc := service.NewAccessService(engine, logs, nil)

	_, err := svc.RecordScan(context.Background(), types.ScanRequest{UID: "AA11"})
	require.NoError(t, err)
	assert.Len(t, logs.Entries(), 1)
}

// ── Recent logs ──────────────────────────────────────────────────────────────

func TestRecentLogs_NewestFirstCappedAndFormatted(t *testing.T) {
	clock := newFakeClock()
	loc := time.FixedZone("BRT", -3*60*60)
	svc, _, _ := newTestAccessService(
		map[string]string{"A1B2C3D4": "Ana"},
		service.WithAccessClock(clock.Now),
		service.WithDisplayLocation(loc),
	)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		uid := fmt.Sprintf("UID-%d", i)
		if i == 6 {
			uid = "A1B2C3D4"
		}
		_, err := svc.RecordScan(ctx, types.ScanRequest{UID: uid})
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	views, err := svc.RecentLogs(ctx, 5)
	require.NoError(t, err)
	require.Len(t, views, 5)

	// Last scan was at 10:06 UTC, which is 07:06 in BRT.
	assert.Equal(t, types.LogView{
		Username:  "Ana",
		TagUID:    "A1B2C3D4",
		Timestamp: "04/05/2026 07:06:00",
		Status:    types.DecisionGranted,
	}, views[0])
	assert.Equal(t, "UID-2", views[4].TagUID)
	assert.Equal(t, types.DecisionDenied, views[4].Status)
}

func TestRecentLogs_Empty(t *testing.T) {
	svc, _, _ := newTestAccessService(nil)

	views, err := svc.RecentLogs(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, views)
}
