package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatehouse/gatehouse/internal/gatehouse/metrics"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
)

// DefaultDoorExpiry is how long a triggered open command stays claimable.
const DefaultDoorExpiry = 10 * time.Second

var ErrUnauthorized = errors.New("invalid door secret")

type DoorConfig struct {
	// Secret shared with whoever may trigger the door. Empty rejects
	// every trigger.
	Secret string
	Expiry time.Duration
	Now    func() time.Time
}

// DoorCommands hands a single remote-open command from a trigger caller to
// the polling scanner.
type DoorCommands struct {
	slot    store.DoorCommandSlot
	secret  []byte
	expiry  time.Duration
	now     func() time.Time
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewDoorCommands(slot store.DoorCommandSlot, cfg DoorConfig, logger zerolog.Logger, m *metrics.Metrics) *DoorCommands {
	if cfg.Expiry <= 0 {
		cfg.Expiry = DefaultDoorExpiry
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &DoorCommands{
		slot:    slot,
		secret:  []byte(cfg.Secret),
		expiry:  cfg.Expiry,
		now:     cfg.Now,
		logger:  logger,
		metrics: m,
	}
}

// Trigger arms the slot when secret matches, replacing any command that is
// still pending. A mismatch leaves the slot untouched.
func (d *DoorCommands) Trigger(ctx context.Context, secret string) error {
	if len(d.secret) == 0 || subtle.ConstantTimeCompare([]byte(secret), d.secret) != 1 {
		d.metrics.IncrementTrigger(false)
		d.logger.Warn().
			Str("event", "door_trigger_rejected").
			Msg("door trigger with invalid secret")
		return ErrUnauthorized
	}

	if err := d.slot.Arm(ctx, d.now()); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	d.metrics.IncrementTrigger(true)
	d.logger.Info().
		Str("event", "door_trigger_accepted").
		Dur("expires_in", d.expiry).
		Msg("door open command armed")
	return nil
}

// PollAndConsume reports whether the door should open now. A true result is
// returned at most once per trigger.
func (d *DoorCommands) PollAndConsume(ctx context.Context) (bool, error) {
	open, err := d.slot.ConsumeIfFresh(ctx, d.now(), d.expiry)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	d.metrics.IncrementPoll(open)
	if open {
		d.logger.Info().Str("event", "door_command_consumed").Msg("door open command delivered")
	}
	return open, nil
}
