package memory

import (
	"context"
	"sync"
	"time"
)

// DoorCommandSlot is the process-local door command mailbox. It is not
// persisted; a restart drops any pending command.
type DoorCommandSlot struct {
	mu       sync.Mutex
	pending  bool
	issuedAt time.Time
}

func NewDoorCommandSlot() *DoorCommandSlot {
	return &DoorCommandSlot{}
}

func (s *DoorCommandSlot) Arm(_ context.Context, issuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = true
	s.issuedAt = issuedAt
	return nil
}

func (s *DoorCommandSlot) ConsumeIfFresh(_ context.Context, now time.Time, expiry time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending {
		return false, nil
	}
	// Either outcome leaves the slot empty: a fresh command is consumed, a
	// stale one is discarded.
	s.pending = false
	return now.Sub(s.issuedAt) < expiry, nil
}

// Pending reports the raw slot state without consuming it.  Test-only helper.
func (s *DoorCommandSlot) Pending() (bool, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.issuedAt
}
