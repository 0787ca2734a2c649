package notify_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/gatehouse/metrics"
	"github.com/gatehouse/gatehouse/internal/gatehouse/notify"
	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []types.ScanNotice
	err   error
	block chan struct{}
	calls atomic.Int32
}

func (f *fakeSender) Send(ctx context.Context, n types.ScanNotice) error {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeSender) Sent() []types.ScanNotice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.ScanNotice(nil), f.sent...)
}

func notice(uid string) types.ScanNotice {
	return types.ScanNotice{Credential: uid, PrincipalName: "Unknown", Decision: types.DecisionDenied}
}

func TestDispatcher_DeliversQueuedNotices(t *testing.T) {
	sender := &fakeSender{}
	m := metrics.New(prometheus.NewRegistry())
	d := notify.NewDispatcher(sender, notify.Config{}, zerolog.Nop(), m)
	d.Start(context.Background())

	for _, uid := range []string{"A", "B", "C"} {
		d.Notify(notice(uid))
	}
	d.Stop()

	assert.ElementsMatch(t, []types.ScanNotice{notice("A"), notice("B"), notice("C")}, sender.Sent())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sent")))
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	sender := &fakeSender{}
	m := metrics.New(prometheus.NewRegistry())
	d := notify.NewDispatcher(sender, notify.Config{QueueSize: 2, Workers: 1}, zerolog.Nop(), m)

	// Not started yet, so nothing drains the queue.
	for _, uid := range []string{"A", "B", "C", "D"} {
		d.Notify(notice(uid))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues("dropped")))

	d.Start(context.Background())
	d.Stop()
	assert.Len(t, sender.Sent(), 2)
}

func TestDispatcher_SlowSenderDoesNotBlockNotify(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	d := notify.NewDispatcher(sender, notify.Config{QueueSize: 1, Workers: 1, Timeout: time.Minute}, zerolog.Nop(), nil)
	d.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify(notice("A"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a slow sender")
	}

	close(sender.block)
	d.Stop()
}

func TestDispatcher_SendTimeout(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	defer close(sender.block)
	m := metrics.New(prometheus.NewRegistry())
	d := notify.NewDispatcher(sender, notify.Config{Timeout: 20 * time.Millisecond}, zerolog.Nop(), m)
	d.Start(context.Background())

	d.Notify(notice("A"))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.Notifications.WithLabelValues("failed")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	d.Stop()
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	m := metrics.New(prometheus.NewRegistry())
	d := notify.NewDispatcher(sender, notify.Config{}, zerolog.Nop(), m)
	d.Start(context.Background())

	d.Notify(notice("A"))
	d.Notify(notice("B"))
	d.Stop()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
	assert.Empty(t, sender.Sent())
}

func TestDispatcher_NilSenderIsNoop(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	d := notify.NewDispatcher(nil, notify.Config{}, zerolog.Nop(), m)
	d.Start(context.Background())

	d.Notify(notice("A"))
	d.Stop()

	assert.Equal(t, 0.0, testutil.ToFloat64(m.Notifications.WithLabelValues("dropped")))
}

func TestDispatcher_NotifyAfterStopDrops(t *testing.T) {
	sender := &fakeSender{}
	m := metrics.New(prometheus.NewRegistry())
	d := notify.NewDispatcher(sender, notify.Config{}, zerolog.Nop(), m)
	d.Start(context.Background())
	d.Stop()

	d.Notify(notice("A"))

	assert.Empty(t, sender.Sent())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("dropped")))
}

func TestDispatcher_CancelledContextFlushesQueue(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	m := metrics.New(prometheus.NewRegistry())
	d := notify.NewDispatcher(sender, notify.Config{QueueSize: 8, Workers: 1, Timeout: time.Minute}, zerolog.Nop(), m)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	for _, uid := range []string{"A", "B", "C", "D", "E"} {
		d.Notify(notice(uid))
	}
	require.Eventually(t, func() bool { return sender.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	d.Notify(notice("F"))
	close(sender.block)
	d.Stop()
	d.Notify(notice("G"))

	sent := testutil.ToFloat64(m.Notifications.WithLabelValues("sent"))
	failed := testutil.ToFloat64(m.Notifications.WithLabelValues("failed"))
	dropped := testutil.ToFloat64(m.Notifications.WithLabelValues("dropped"))
	assert.Equal(t, 7.0, sent+failed+dropped, "every notice is accounted for")
	assert.Len(t, sender.Sent(), 6)
	assert.Equal(t, 1.0, dropped)
}

func TestDispatcher_StopWithoutStartCountsQueuedAsDropped(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	d := notify.NewDispatcher(&fakeSender{}, notify.Config{}, zerolog.Nop(), m)

	d.Notify(notice("A"))
	d.Notify(notice("B"))
	d.Stop()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues("dropped")))
}
