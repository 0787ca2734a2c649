// Package redis holds Redis-backed stores for deployments that run more
// than one gatehouse instance behind a load balancer.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDoorCommandKey = "gatehouse:door:command"

// DoorCommandSlot keeps the pending door command in a single Redis key whose
// value is the issue time in Unix milliseconds. Consumption uses GETDEL, so
// two instances polling at once cannot both read the same command.
type DoorCommandSlot struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

type DoorCommandOption func(*DoorCommandSlot)

// WithKey overrides the Redis key, mainly so tests can share a server.
func WithKey(key string) DoorCommandOption {
	return func(s *DoorCommandSlot) {
		if key != "" {
			s.key = key
		}
	}
}

// WithTTL bounds how long an unconsumed command occupies Redis. It should be
// at least the door expiry window; the expiry check itself happens on read.
func WithTTL(ttl time.Duration) DoorCommandOption {
	return func(s *DoorCommandSlot) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewDoorCommandSlot(client redis.Cmdable, opts ...DoorCommandOption) *DoorCommandSlot {
	s := &DoorCommandSlot{
		client: client,
		key:    defaultDoorCommandKey,
		ttl:    time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *DoorCommandSlot) Arm(ctx context.Context, issuedAt time.Time) error {
	v := strconv.FormatInt(issuedAt.UTC().UnixMilli(), 10)
	if err := s.client.Set(ctx, s.key, v, s.ttl).Err(); err != nil {
		return fmt.Errorf("arm door command: %w", err)
	}
	return nil
}

func (s *DoorCommandSlot) ConsumeIfFresh(ctx context.Context, now time.Time, expiry time.Duration) (bool, error) {
	v, err := s.client.GetDel(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume door command: %w", err)
	}

	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// Unreadable value: it has been deleted, treat as no command.
		return false, nil
	}
	return now.Sub(time.UnixMilli(ms)) < expiry, nil
}
