package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/gatehouse/service"
)

// recentLogLimit is how many entries get_logs returns.
const recentLogLimit = 5

type Dependencies struct {
	Logger        zerolog.Logger
	Addr          string
	AccessService *service.AccessService
	DoorCommands  *service.DoorCommands
	Operators     *auth.Operators
	Sessions      *auth.Sessions

	// Gatherer backs /metrics. Nil leaves the route unregistered.
	Gatherer prometheus.Gatherer
	// Ready is consulted by /health. Nil means always ready.
	Ready func(ctx context.Context) error
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

type Server struct {
	httpServer    *http.Server
	logger        zerolog.Logger
	accessService *service.AccessService
	doorCommands  *service.DoorCommands
	operators     *auth.Operators
	sessions      *auth.Sessions
	ready         func(ctx context.Context) error
	secureCookies bool
	now           func() time.Time
}

func NewServer(d Dependencies) *Server {
	s := &Server{
		logger:        d.Logger,
		accessService: d.AccessService,
		doorCommands:  d.DoorCommands,
		operators:     d.Operators,
		sessions:      d.Sessions,
		ready:         d.Ready,
		secureCookies: d.SecureCookies,
		now:           time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(recoverer(d.Logger))

	r.Get("/health", s.handleHealth)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		// Device endpoints.
		r.Post("/rfid_log", s.handleScan)
		r.Get("/check_door_command", s.handlePoll)

		r.Post("/trigger_door", s.handleTrigger)

		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.With(s.requireSession).Get("/get_logs", s.handleGetLogs)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
