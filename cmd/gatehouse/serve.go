package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/db"
	"github.com/gatehouse/gatehouse/internal/gatehouse/metrics"
	"github.com/gatehouse/gatehouse/internal/gatehouse/notify"
	"github.com/gatehouse/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store/memory"
	redisstore "github.com/gatehouse/gatehouse/internal/gatehouse/store/redis"
	"github.com/gatehouse/gatehouse/internal/gatehouse/store/sqlite"
	"github.com/gatehouse/gatehouse/internal/grpchealth"
	"github.com/gatehouse/gatehouse/internal/httpapi"
	"github.com/gatehouse/gatehouse/internal/logging"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(load loadFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and optional gRPC health endpoint)",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, logger, err := load(c)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}
	cmd.Flags().String("http-addr", ":8080", "HTTP listen address")
	cmd.Flags().String("grpc-addr", "", "gRPC health listen address (empty disables)")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	logger.Info().
		Str("env", cfg.Env).
		Str("db", cfg.DBPath).
		Str("door_backend", cfg.Door.Backend).
		Msg("gatehouse starting")

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		return err
	}
	defer conn.Close()

	writer := db.NewWorker(conn)
	defer writer.Close()

	if cfg.IsDev() {
		if err := db.SeedDev(ctx, conn, db.SeedDevOptions{}); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Stores
	tagStore := sqlite.NewTagStore(conn, writer)
	logStore := sqlite.NewAccessLogStore(conn, writer)

	slot, closeSlot, err := newDoorSlot(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSlot()

	// Notifications
	sender := notify.NewWebhookSender(cfg.Notify.WebhookURL, &http.Client{Timeout: cfg.Notify.Timeout})
	dispatcher := notify.NewDispatcher(sender, notify.Config{
		QueueSize: cfg.Notify.QueueSize,
		Workers:   cfg.Notify.Workers,
		Timeout:   cfg.Notify.Timeout,
	}, logging.WithComponent(logger, "notify"), m)

	// Services
	accessSvc := service.NewAccessService(service.NewDecisionEngine(tagStore), logStore, dispatcher,
		service.WithAccessLogger(logging.WithComponent(logger, "access")),
		service.WithAccessMetrics(m),
	)
	door := service.NewDoorCommands(slot, service.DoorConfig{
		Secret: cfg.Door.Secret,
		Expiry: cfg.Door.Expiry,
	}, logging.WithComponent(logger, "door"), m)
	if cfg.Door.Secret == "" {
		logger.Warn().Msg("door.secret is empty; every trigger will be rejected")
	}

	pruner := service.NewAuditPruner(logStore, service.PrunerConfig{
		RetentionDays: cfg.AuditRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logging.WithComponent(logger, "pruner"), m)

	// Operators
	ops, err := auth.ParseOperators(cfg.Operators)
	if err != nil {
		return err
	}
	if ops.Len() == 0 {
		logger.Warn().Msg("no operators configured; get_logs is unreachable")
	}
	sessions, err := auth.NewSessions(cfg.Session.Key, cfg.Session.TTL)
	if err != nil {
		return err
	}

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:        logging.WithComponent(logger, "http"),
		Addr:          cfg.HTTPAddr,
		AccessService: accessSvc,
		DoorCommands:  door,
		Operators:     ops,
		Sessions:      sessions,
		Gatherer:      reg,
		Ready:         readiness(conn),
		SecureCookies: !cfg.IsDev(),
	})

	g, gctx := errgroup.WithContext(ctx)

	// Workers outlive the shutdown signal; dispatcher.Stop drains them.
	dispatcher.Start(context.WithoutCancel(gctx))
	pruner.Start(gctx)

	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.GRPCAddr != "" {
		health := grpchealth.New(logging.WithComponent(logger, "grpc"))
		g.Go(func() error { return health.ListenAndServe(gctx, cfg.GRPCAddr) })
		g.Go(func() error {
			health.Watch(gctx, 10*time.Second, readiness(conn))
			return nil
		})
	}

	err = g.Wait()

	pruner.Stop()
	dispatcher.Stop()
	logger.Info().Msg("gatehouse stopped")
	return err
}

func readiness(conn *sql.DB) grpchealth.Checker {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return conn.PingContext(ctx)
	}
}

// newDoorSlot picks the door command backend. The returned func releases
// whatever the backend holds.
func newDoorSlot(ctx context.Context, cfg config.Config) (store.DoorCommandSlot, func(), error) {
	if cfg.Door.Backend != config.DoorBackendRedis {
		return memory.NewDoorCommandSlot(), func() {}, nil
	}

	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis.url: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	slot := redisstore.NewDoorCommandSlot(client, redisstore.WithTTL(2*cfg.Door.Expiry))
	return slot, func() { _ = client.Close() }, nil
}
