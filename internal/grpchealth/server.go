// Package grpchealth exposes the standard gRPC health service so
// orchestrators can probe gatehouse without speaking HTTP.
package grpchealth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health entry tracking audit storage readiness.
const ServiceName = "gatehouse.Access"

const shutdownTimeout = 5 * time.Second

// Checker reports nil while the service can take scans.
type Checker func(ctx context.Context) error

type Server struct {
	srv    *grpc.Server
	health *health.Server
	logger zerolog.Logger
}

func New(logger zerolog.Logger, opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: 10 * time.Minute,
			Time:              2 * time.Minute,
			Timeout:           20 * time.Second,
		}),
	}, opts...)

	s := &Server{
		srv:    grpc.NewServer(opts...),
		health: health.NewServer(),
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	s.SetServing(false)
	return s
}

// SetServing flips both the overall status and ServiceName.
func (s *Server) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Watch runs check every interval and mirrors the result into the health
// status until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration, check Checker) {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	last := -1
	probe := func() {
		err := check(ctx)
		ok := err == nil
		s.SetServing(ok)

		state := 0
		if ok {
			state = 1
		}
		if state != last {
			if ok {
				s.logger.Info().Msg("readiness check passing")
			} else {
				s.logger.Warn().Err(err).Msg("readiness check failing")
			}
			last = state
		}
	}

	probe()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}

// Serve blocks until ctx is cancelled, then drains in-flight RPCs and stops.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", lis.Addr().String()).Msg("gRPC health listening")
		errCh <- s.srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		s.srv.Stop()
	}
	return nil
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}
