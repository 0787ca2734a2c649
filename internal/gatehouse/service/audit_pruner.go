package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatehouse/gatehouse/internal/gatehouse/metrics"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
)

// AuditPruner deletes audit entries older than a retention period on a fixed
// interval. A retention of 0 keeps the log forever and the pruner never runs.
type AuditPruner struct {
	store     store.AccessLogStore
	retention time.Duration
	interval  time.Duration
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

type PrunerConfig struct {
	// RetentionDays is how many days of audit history to keep. 0 disables pruning.
	RetentionDays int

	// IntervalHours is how often the pruner runs.  Defaults to 6.
	IntervalHours int
}

// NewAuditPruner creates a pruner but does not start it.
func NewAuditPruner(s store.AccessLogStore, cfg PrunerConfig, logger zerolog.Logger, m *metrics.Metrics) *AuditPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &AuditPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		metrics:   m,
		done:      make(chan struct{}),
	}
}

// Start runs one prune immediately, then repeats every interval until ctx is
// cancelled or Stop is called.
func (p *AuditPruner) Start(ctx context.Context) {
	select {
	case <-p.done:
		return
	default:
	}
	if p.retention <= 0 {
		p.logger.Info().Msg("audit pruner disabled (retention=0)")
		p.stopOnce.Do(func() { close(p.done) })
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info().
		Int("retention_days", int(p.retention.Hours()/24)).
		Int("interval_hours", int(p.interval.Hours())).
		Msg("audit pruner started")
}

// Stop signals the pruner to exit and waits for it. Repeated calls are fine;
// a pruner stopped before Start never runs.
func (p *AuditPruner) Stop() {
	if p.cancel == nil {
		p.stopOnce.Do(func() { close(p.done) })
		return
	}
	p.cancel()
	<-p.done
}

func (p *AuditPruner) loop(ctx context.Context) {
	defer p.stopOnce.Do(func() { close(p.done) })

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *AuditPruner) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error().Err(err).Msg("audit prune failed")
		return
	}
	p.metrics.AddPruned(deleted)
	if deleted > 0 {
		p.logger.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("audit prune")
	}
}
