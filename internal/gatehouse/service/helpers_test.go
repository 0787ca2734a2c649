package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gatehouse/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store/memory"
	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

// recordingNotifier keeps every notice it is handed.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []types.ScanNotice
}

func (n *recordingNotifier) Notify(notice types.ScanNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) Notices() []types.ScanNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]types.ScanNotice, len(n.notices))
	copy(out, n.notices)
	return out
}

// failingDirectory fails every lookup.
type failingDirectory struct{}

func (failingDirectory) Lookup(context.Context, string) (store.TagRecord, bool, error) {
	return store.TagRecord{}, false, errors.New("directory unavailable")
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestAccessService builds an AccessService over in-memory stores and
// returns the pieces tests inspect.
func newTestAccessService(tags map[string]string, opts ...service.AccessOption) (*service.AccessService, *memory.AccessLogStore, *recordingNotifier) {
	engine := service.NewDecisionEngine(memory.NewTagStore(tags))
	logStore := memory.NewAccessLogStore()
	notifier := &recordingNotifier{}
	return service.NewAccessService(engine, logStore, notifier, opts...), logStore, notifier
}
