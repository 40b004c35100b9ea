package app

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"ingestd/internal/monitor"
	"ingestd/internal/work"
	"ingestd/pkg/config"
	"ingestd/pkg/ingest"
	"ingestd/pkg/logger"
	"ingestd/pkg/scheduler"
	"ingestd/pkg/store"
)

// stopGrace bounds how long shutdown waits for in-flight batch tasks.
const stopGrace = 30 * time.Second

// App encapsulates the server components and lifecycle.
type App struct {
	cfg     *config.Config
	source  string
	version string

	store *store.Store
	sched *scheduler.Scheduler
	svc   *ingest.Service

	srv           *http.Server
	monitorCancel context.CancelFunc
}

// New validates the effective config and wires the core: record store,
// scheduler with the simulated unit of work, admission service. It does not
// start the monitor or the HTTP server; call Run to start those and block
// until shutdown.
func New(cfg *config.Config, source, version string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st := store.New()
	sim := work.NewSimulator(cfg.Work.MinLatency.Duration(), cfg.Work.MaxLatency.Duration())
	sched := scheduler.New(st, cfg.Scheduler.RateLimit.Duration(), sim.Process)
	svc := ingest.NewService(st, sched, cfg.Scheduler.MaxBatch)

	return &App{cfg: cfg, source: source, version: version, store: st, sched: sched, svc: svc}, nil
}

// Service exposes the admission service, mainly for tests.
func (a *App) Service() *ingest.Service { return a.svc }

// Run starts the monitor and the HTTP server, and blocks until ctx is
// canceled or a fatal server error occurs. On ctx cancellation it shuts the
// listener, stops the dispatch loop and waits for tracked batch tasks.
func (a *App) Run(ctx context.Context) error {
	cancelMonitor, err := monitor.Start(ctx, a.cfg.Monitor, a.store)
	if err != nil {
		return err
	}
	a.monitorCancel = cancelMonitor

	a.printBanner()

	errCh := a.startHTTP()

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

func (a *App) shutdown() {
	if a.monitorCancel != nil {
		a.monitorCancel()
	}
	a.stopHTTP()
	stopCtx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	if err := a.sched.Stop(stopCtx); err != nil {
		logger.Warn("scheduler_stop_timeout", "error", err)
		return
	}
	logger.Info("scheduler_stopped", "pending", a.sched.Pending())
}
