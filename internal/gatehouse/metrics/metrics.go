package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for scans, notifications and door commands.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ScanOutcome   *prometheus.CounterVec
	ScanLatency   prometheus.Histogram
	Notifications *prometheus.CounterVec
	DoorTriggers  *prometheus.CounterVec
	DoorPolls     *prometheus.CounterVec
	AuditPruned   prometheus.Counter
}

// New registers all collectors on reg. Passing a fresh prometheus.Registry
// keeps repeated construction in tests from colliding.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ScanOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_scans_total",
			Help: "Badge scans by decision; result=error counts scans that failed before a decision was stored",
		}, []string{"result"}), // GRANTED, DENIED, error

		ScanLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatehouse_scan_duration_seconds",
			Help:    "Time from scan receipt to durable audit write",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_notifications_total",
			Help: "Notification dispatch outcomes",
		}, []string{"outcome"}), // sent, failed, dropped

		DoorTriggers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_door_triggers_total",
			Help: "Remote open requests by result",
		}, []string{"result"}), // accepted, rejected

		DoorPolls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_door_polls_total",
			Help: "Scanner polls for a pending door command",
		}, []string{"open"}),

		AuditPruned: f.NewCounter(prometheus.CounterOpts{
			Name: "gatehouse_audit_pruned_total",
			Help: "Audit log rows removed by retention",
		}),
	}
}

func (m *Metrics) IncrementScan(result string) {
	if m != nil {
		m.ScanOutcome.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveScanLatency(d time.Duration) {
	if m != nil {
		m.ScanLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementNotification(outcome string) {
	if m != nil {
		m.Notifications.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementTrigger(accepted bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.DoorTriggers.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementPoll(open bool) {
	if m == nil {
		return
	}
	label := "false"
	if open {
		label = "true"
	}
	m.DoorPolls.WithLabelValues(label).Inc()
}

func (m *Metrics) AddPruned(n int64) {
	if m != nil && n > 0 {
		m.AuditPruned.Add(float64(n))
	}
}
