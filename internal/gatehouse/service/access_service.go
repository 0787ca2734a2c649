package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatehouse/gatehouse/internal/gatehouse/metrics"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

var (
	ErrInvalidCredential = errors.New("uid is required")
	ErrStorage           = errors.New("storage failure")
)

// Notifier receives a notice for every stored scan. Implementations must
// return immediately; delivery happens elsewhere, if at all.
type Notifier interface {
	Notify(n types.ScanNotice)
}

type nopNotifier struct{}

func (nopNotifier) Notify(types.ScanNotice) {}

// AccessService turns scanner reports into audit entries and notifications.
type AccessService struct {
	engine   *DecisionEngine
	auditLog store.AccessLogStore
	notifier Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
	loc      *time.Location
}

type AccessOption func(*AccessService)

func WithAccessLogger(l zerolog.Logger) AccessOption {
	return func(s *AccessService) { s.logger = l }
}

func WithAccessMetrics(m *metrics.Metrics) AccessOption {
	return func(s *AccessService) { s.metrics = m }
}

func WithAccessClock(now func() time.Time) AccessOption {
	return func(s *AccessService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDisplayLocation sets the zone used when rendering log timestamps.
// Defaults to time.Local.
func WithDisplayLocation(loc *time.Location) AccessOption {
	return func(s *AccessService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewAccessService(engine *DecisionEngine, auditLog store.AccessLogStore, notifier Notifier, opts ...AccessOption) *AccessService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	s := &AccessService{
		engine:   engine,
		auditLog: auditLog,
		notifier: notifier,
		logger:   zerolog.Nop(),
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordScan classifies the scanned uid, appends exactly one audit entry and
// hands the decision to the notifier. The notifier is only reached after the
// entry is committed; a storage failure returns an error wrapping ErrStorage
// and nothing is notified.
func (s *AccessService) RecordScan(ctx context.Context, req types.ScanRequest) (types.ScanResponse, error) {
	start := s.now()

	uid := strings.TrimSpace(req.UID)
	if uid == "" {
		return types.ScanResponse{}, ErrInvalidCredential
	}

	principal, decision, err := s.engine.Classify(ctx, uid)
	if err != nil {
		s.metrics.IncrementScan("error")
		return types.ScanResponse{}, fmt.Errorf("%w: classify: %w", ErrStorage, err)
	}

	rec := store.AccessLogRecord{
		Credential:    uid,
		PrincipalName: principal,
		Decision:      decision,
		LoggedAt:      s.now().UTC(),
	}
	if err := s.auditLog.Append(ctx, rec); err != nil {
		s.metrics.IncrementScan("error")
		return types.ScanResponse{}, fmt.Errorf("%w: append: %w", ErrStorage, err)
	}

	s.notifier.Notify(types.ScanNotice{
		Credential:    uid,
		PrincipalName: principal,
		Decision:      decision,
		At:            rec.LoggedAt,
	})

	s.metrics.IncrementScan(string(decision))
	s.metrics.ObserveScanLatency(s.now().Sub(start))
	s.logger.Info().
		Str("tag_uid", uid).
		Str("principal", principal).
		Str("decision", string(decision)).
		Msg("scan recorded")

	return types.ScanResponse{
		Status:       "success",
		Message:      "log received",
		AccessStatus: decision,
	}, nil
}

// RecentLogs returns up to n audit entries, newest first, formatted for display.
func (s *AccessService) RecentLogs(ctx context.Context, n int) ([]types.LogView, error) {
	recs, err := s.auditLog.Recent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%w: recent: %w", ErrStorage, err)
	}

	out := make([]types.LogView, 0, len(recs))
	for _, r := range recs {
		out = append(out, types.LogView{
			Username:  r.PrincipalName,
			TagUID:    r.Credential,
			Timestamp: r.LoggedAt.In(s.loc).Format(types.LogTimestampLayout),
			Status:    r.Decision,
		})
	}
	return out, nil
}
