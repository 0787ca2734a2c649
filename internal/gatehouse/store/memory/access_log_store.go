package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
)

// AccessLogStore is an in-memory append-only log of scan decisions.
// It is intended for use in tests and dev environments.
type AccessLogStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []store.AccessLogRecord

	// FailAppend, when set, makes Append return it without recording.
	FailAppend error
}

func NewAccessLogStore() *AccessLogStore {
	return &AccessLogStore{}
}

func (s *AccessLogStore) Append(_ context.Context, rec store.AccessLogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend != nil {
		return s.FailAppend
	}
	if rec.LoggedAt.IsZero() {
		rec.LoggedAt = time.Now().UTC()
	}
	s.nextID++
	rec.ID = s.nextID
	s.entries = append(s.entries, rec)
	return nil
}

// Recent walks the log backwards. Entries are appended with service-assigned
// timestamps, but concurrent writers can interleave, so the result is
// ordered explicitly rather than trusting insertion order.
func (s *AccessLogStore) Recent(_ context.Context, n int) ([]store.AccessLogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return nil, nil
	}

	out := make([]store.AccessLogRecord, len(s.entries))
	copy(out, s.entries)
	sortNewestFirst(out)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *AccessLogStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if e.LoggedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

// Entries returns a copy of all recorded entries in append order.  Test-only helper.
func (s *AccessLogStore) Entries() []store.AccessLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessLogRecord, len(s.entries))
	copy(out, s.entries)
	return out
}
