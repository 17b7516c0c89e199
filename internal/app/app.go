// Package app wires all Minutewire subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP API until the context is cancelled, and
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithStore, WithBroadcaster, etc.). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/minutewire/minutewire/internal/config"
	"github.com/minutewire/minutewire/internal/display"
	"github.com/minutewire/minutewire/internal/health"
	"github.com/minutewire/minutewire/internal/intel"
	"github.com/minutewire/minutewire/internal/meeting"
	"github.com/minutewire/minutewire/internal/observe"
	"github.com/minutewire/minutewire/pkg/provider/stt"
	"github.com/minutewire/minutewire/pkg/provider/summarize"
	"github.com/minutewire/minutewire/pkg/store/postgres"
)

// readHeaderTimeout bounds header reads on the API server.
const readHeaderTimeout = 10 * time.Second

// shutdownGrace is how long Run waits for a clean shutdown after cancellation.
const shutdownGrace = 15 * time.Second

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	STT        stt.Provider
	Summarizer summarize.Provider
}

// MeetingStore is the persistence surface the App needs. Satisfied by
// [postgres.Store]; tests inject a mock.
type MeetingStore interface {
	SaveMeeting(ctx context.Context, export meeting.Export, report *intel.Report) error
	GetMeeting(ctx context.Context, id uuid.UUID) (meeting.Export, *intel.Report, error)
	ListMeetings(ctx context.Context, limit int) ([]postgres.MeetingSummary, error)
	Ping(ctx context.Context) error
}

// App owns all subsystem lifetimes and serves the Minutewire HTTP API.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	metrics     *observe.Metrics
	broadcaster *display.Broadcaster
	manager     *SessionManager
	store       MeetingStore
	server      *http.Server

	// ingestBusy guards the single audio ingest connection. ProcessFrame
	// must only ever be called from one goroutine.
	ingestBusy sync.Mutex

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a meeting store instead of creating one from config.
func WithStore(s MeetingStore) Option {
	return func(a *App) { a.store = s }
}

// WithBroadcaster injects a display broadcaster.
func WithBroadcaster(b *display.Broadcaster) Option {
	return func(a *App) { a.broadcaster = b }
}

// WithMetrics injects a metrics bundle instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry); providers.STT is
// required. Use Option functions to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.STT == nil {
		return nil, fmt.Errorf("app: an STT provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Metrics ───────────────────────────────────────────────────────
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 2. Meeting store ─────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 3. Display broadcaster ───────────────────────────────────────────
	if a.broadcaster == nil {
		a.broadcaster = display.NewBroadcaster()
	}

	// ── 4. Session manager ───────────────────────────────────────────────
	a.manager = NewSessionManager(SessionManagerConfig{
		Config:      cfg,
		STT:         providers.STT,
		Summarizer:  providers.Summarizer,
		Broadcaster: a.broadcaster,
		Metrics:     a.metrics,
	})

	// ── 5. HTTP server ───────────────────────────────────────────────────
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           observe.Middleware(a.metrics)(a.routes()),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return a, nil
}

// initStore connects the PostgreSQL meeting store when a DSN is configured.
// Without a DSN the app runs without persistence; stop responses still carry
// the full report.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil // injected
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Info("no storage DSN configured, meetings will not be persisted")
		return nil
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// routes builds the API ServeMux.
func (a *App) routes() *http.ServeMux {
	mux := http.NewServeMux()

	var checkers []health.Checker
	if a.store != nil {
		checkers = append(checkers, health.Checker{
			Name:  "postgres",
			Check: a.store.Ping,
		})
	}
	health.New(checkers...).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /live", a.broadcaster)
	mux.HandleFunc("GET /ingest", a.handleIngest)

	mux.HandleFunc("POST /api/session/start", a.handleSessionStart)
	mux.HandleFunc("POST /api/session/stop", a.handleSessionStop)
	mux.HandleFunc("GET /api/session", a.handleSessionInfo)
	mux.HandleFunc("GET /api/report", a.handleReport)
	mux.HandleFunc("GET /api/meetings", a.handleMeetings)
	mux.HandleFunc("GET /api/meetings/{id}", a.handleMeeting)

	return mux
}

// Handler returns the fully wired HTTP handler, including middleware.
func (a *App) Handler() http.Handler { return a.server.Handler }

// Run serves the HTTP API and blocks until ctx is cancelled or the server
// fails. On cancellation the server is drained gracefully and any active
// session is stopped and persisted.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			slog.Info("listening", "addr", a.server.Addr, "tls", true)
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			slog.Info("listening", "addr", a.server.Addr)
			err = a.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops the active session (persisting it when a store is
// configured), drains the HTTP server, and runs the closers in order. It
// respects the context deadline: if ctx expires, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		// Finish the active session first so the recording is not lost.
		if a.manager.Active() {
			if _, err := a.stopAndPersist(ctx); err != nil {
				slog.Warn("stopping active session during shutdown", "err", err)
			}
		}

		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				slog.Warn("http server shutdown error", "err", err)
			}
		}

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// stopAndPersist ends the active session, saves the meeting and its report
// when a store is configured, and returns the final report. Persistence
// failure is logged, not fatal; the recording still exists in the response.
func (a *App) stopAndPersist(ctx context.Context) (stopResult, error) {
	sess := a.manager.Current()
	if sess == nil {
		return stopResult{}, ErrNoSession
	}
	report, err := a.manager.Stop(ctx)
	if err != nil {
		return stopResult{}, err
	}

	// The session is fully stopped; its clusterer and meeting are quiescent.
	res := stopResult{Export: sess.Meeting().Export(sess.Speakers()), Report: report}
	if a.store != nil {
		if err := a.store.SaveMeeting(ctx, res.Export, report); err != nil {
			slog.Error("persisting meeting failed", "meeting_id", res.Export.ID, "err", err)
		} else {
			res.Persisted = true
		}
	}
	return res, nil
}

// stopResult is what a completed session yields: the full meeting export,
// the final intelligence report (nil when the transcript was too short),
// and whether the meeting reached the store.
type stopResult struct {
	Export    meeting.Export `json:"meeting"`
	Report    *intel.Report  `json:"report,omitempty"`
	Persisted bool           `json:"persisted"`
}
