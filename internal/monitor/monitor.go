// Package monitor runs a cron-driven sweep that reports batches stuck in
// dispatched after a unit-of-work fault. No failure status or retry policy
// exists for such batches; the sweep only makes the gap visible in the logs
// so operators are not left guessing.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"ingestd/pkg/config"
	"ingestd/pkg/logger"
	"ingestd/pkg/store"
)

// Start launches the sweep scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.MonitorConfig, st *store.Store) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("monitor_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = config.DefaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("monitor_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid monitor cron expression: %s", cronExpr)
	}

	stuckAfter := cfg.StuckAfter.Duration()
	if stuckAfter <= 0 {
		stuckAfter = time.Minute
	}

	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, st, cronExpr, stuckAfter)
	logger.Info("monitor_started", "cron", cronExpr, "stuck_after", stuckAfter)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until it,
// sweeping once per tick.
func runScheduler(ctx context.Context, st *store.Store, cronExpr string, stuckAfter time.Duration) {
	for {
		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("monitor_next_tick_failed", "cron", cronExpr, "error", err)
			return
		}
		select {
		case <-ctx.Done():
			logger.Info("monitor_stopping")
			return
		case <-time.After(next.Sub(now)):
		}
		sweep(st, stuckAfter)
	}
}

// sweep logs every batch dispatched longer ago than stuckAfter.
func sweep(st *store.Store, stuckAfter time.Duration) {
	stuck := st.Stuck(stuckAfter)
	for _, b := range stuck {
		logger.Warn("batch_stuck_dispatched",
			"ingestion", b.IngestionID, "batch", b.BatchID, "since", b.Since.Format(time.RFC3339))
	}
	if len(stuck) > 0 {
		logger.Warn("monitor_sweep_found_stuck", "count", len(stuck), "threshold", stuckAfter)
	}
}
