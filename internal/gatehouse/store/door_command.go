package store

import (
	"context"
	"time"
)

// DoorCommandSlot holds at most one pending remote-open command.
//
// Arm overwrites any command already pending. ConsumeIfFresh reports
// whether a command armed less than expiry before now is pending and, if so,
// clears it in the same atomic step so exactly one caller observes it.
// A stale command is cleared as soon as it is seen.
type DoorCommandSlot interface {
	Arm(ctx context.Context, issuedAt time.Time) error
	ConsumeIfFresh(ctx context.Context, now time.Time, expiry time.Duration) (bool, error)
}
