package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatehouse/gatehouse/internal/gatehouse/metrics"
	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

const (
	DefaultQueueSize = 64
	DefaultWorkers   = 2
	DefaultTimeout   = 5 * time.Second
)

// Sender delivers one notice to an external endpoint.
type Sender interface {
	Send(ctx context.Context, n types.ScanNotice) error
}

type Config struct {
	QueueSize int
	Workers   int
	// Timeout bounds a single Send.
	Timeout time.Duration
}

// Dispatcher is a bounded queue drained by a fixed set of workers. Notify
// never blocks: when the queue is full the notice is dropped. Delivery is
// best effort and failures are only logged.
type Dispatcher struct {
	sender  Sender
	queue   chan types.ScanNotice
	workers int
	timeout time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics

	// mu guards closed so no notice is queued after the workers' final flush.
	mu       sync.RWMutex
	closed   bool
	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDispatcher builds a dispatcher for sender. A nil sender yields a
// dispatcher whose Notify does nothing.
func NewDispatcher(sender Sender, cfg Config, logger zerolog.Logger, m *metrics.Metrics) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Dispatcher{
		sender:  sender,
		queue:   make(chan types.ScanNotice, cfg.QueueSize),
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		logger:  logger,
		metrics: m,
		quit:    make(chan struct{}),
	}
}

// Start launches the workers. They run until Stop is called or ctx is
// cancelled; either way the dispatcher stops accepting notices and the
// workers flush what is already queued before exiting.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.sender == nil {
		d.logger.Info().Msg("notifications disabled (no webhook configured)")
		return
	}
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
	d.logger.Info().
		Int("workers", d.workers).
		Int("queue_size", cap(d.queue)).
		Msg("notification dispatcher started")
}

// Stop asks the workers to flush what is already queued and waits for them.
// Notices left behind because the workers were never started are counted as
// dropped.
func (d *Dispatcher) Stop() {
	d.close()
	d.wg.Wait()
	for {
		select {
		case n := <-d.queue:
			d.drop(n, "dispatcher stopped")
		default:
			return
		}
	}
}

func (d *Dispatcher) close() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.quit)
		d.mu.Unlock()
	})
}

func (d *Dispatcher) Notify(n types.ScanNotice) {
	if d.sender == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(n, "dispatcher stopped")
		return
	}
	select {
	case d.queue <- n:
	default:
		d.drop(n, "queue full")
	}
}

func (d *Dispatcher) drop(n types.ScanNotice, reason string) {
	d.metrics.IncrementNotification("dropped")
	d.logger.Warn().
		Str("tag_uid", n.Credential).
		Str("reason", reason).
		Msg("notification dropped")
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case n := <-d.queue:
			d.send(ctx, n)
		case <-ctx.Done():
			d.close()
			d.flush(ctx)
			return
		case <-d.quit:
			d.flush(ctx)
			return
		}
	}
}

func (d *Dispatcher) flush(ctx context.Context) {
	for {
		select {
		case n := <-d.queue:
			d.send(ctx, n)
		default:
			return
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, n types.ScanNotice) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, n); err != nil {
		d.metrics.IncrementNotification("failed")
		d.logger.Error().
			Err(err).
			Str("tag_uid", n.Credential).
			Str("decision", string(n.Decision)).
			Msg("notification failed")
		return
	}
	d.metrics.IncrementNotification("sent")
	d.logger.Debug().
		Str("tag_uid", n.Credential).
		Str("decision", string(n.Decision)).
		Msg("notification sent")
}
