package store

import (
	"context"
	"time"

	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

// AccessLogRecord captures a single scan decision for the audit log.
// LoggedAt is assigned by the service and is always UTC.
type AccessLogRecord struct {
	ID            int64
	Credential    string
	PrincipalName string
	Decision      types.Decision
	LoggedAt      time.Time
}

// AccessLogStore persists scan decisions as an append-only audit log.
// Append either commits the whole record or returns an error with nothing
// visible to readers.
type AccessLogStore interface {
	Append(ctx context.Context, rec AccessLogRecord) error
	// Recent returns at most n records, newest first.
	Recent(ctx context.Context, n int) ([]AccessLogRecord, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
