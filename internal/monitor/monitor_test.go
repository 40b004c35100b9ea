package monitor

import (
	"context"
	"testing"
	"time"

	"ingestd/pkg/config"
	"ingestd/pkg/models"
	"ingestd/pkg/store"
)

func TestStartDisabled(t *testing.T) {
	cancel, err := Start(context.Background(), config.MonitorConfig{Enabled: false}, store.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel() // no-op cancel must be safe
}

func TestStartRejectsInvalidCron(t *testing.T) {
	cfg := config.MonitorConfig{Enabled: true, Cron: "not a cron"}
	if _, err := Start(context.Background(), cfg, store.New()); err == nil {
		t.Fatalf("expected error for invalid cron")
	}
}

func TestStartDefaultsCron(t *testing.T) {
	cfg := config.MonitorConfig{Enabled: true, StuckAfter: config.Duration(time.Minute)}
	cancel, err := Start(context.Background(), cfg, store.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()
}

func TestSweepReportsOnlyStuckBatches(t *testing.T) {
	st := store.New()
	ing := st.CreateIngestion(models.PriorityHigh, time.Now().UnixNano(), [][]int64{{1}, {2}})
	if err := st.SetBatchStatus(ing.ID, ing.Batches[0].ID, models.BatchDispatched); err != nil {
		t.Fatalf("flip failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	// sweep must not panic and must leave statuses untouched: it reports,
	// it never remediates
	sweep(st, 10*time.Millisecond)

	b0, _ := st.BatchStatus(ing.ID, ing.Batches[0].ID)
	if b0 != models.BatchDispatched {
		t.Fatalf("sweep mutated batch status to %s", b0)
	}
	b1, _ := st.BatchStatus(ing.ID, ing.Batches[1].ID)
	if b1 != models.BatchPending {
		t.Fatalf("sweep mutated pending batch to %s", b1)
	}
}
