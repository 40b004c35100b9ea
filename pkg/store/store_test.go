package store

import (
	"errors"
	"testing"
	"time"

	"ingestd/pkg/models"
	"ingestd/pkg/validation"
)

func TestCreateIngestionAtomic(t *testing.T) {
	s := New()
	ing := s.CreateIngestion(models.PriorityHigh, time.Now().UnixNano(), [][]int64{{1, 2, 3}, {4}})

	if ing.ID == "" {
		t.Fatalf("expected ingestion id")
	}
	if len(ing.Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(ing.Batches))
	}
	for _, b := range ing.Batches {
		if b.Status != models.BatchPending {
			t.Fatalf("expected pending batch, got %s", b.Status)
		}
		if b.ID == "" {
			t.Fatalf("expected batch id")
		}
	}

	got, err := s.GetIngestion(ing.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Priority != models.PriorityHigh {
		t.Fatalf("expected HIGH, got %s", got.Priority)
	}
}

func TestGetIngestionNotFound(t *testing.T) {
	s := New()
	if _, err := s.GetIngestion("nope"); !errors.Is(err, validation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Status("nope"); !errors.Is(err, validation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetBatchStatusMonotonic(t *testing.T) {
	s := New()
	ing := s.CreateIngestion(models.PriorityLow, time.Now().UnixNano(), [][]int64{{1}})
	bid := ing.Batches[0].ID

	if err := s.SetBatchStatus(ing.ID, bid, models.BatchDispatched); err != nil {
		t.Fatalf("dispatch flip failed: %v", err)
	}
	if err := s.SetBatchStatus(ing.ID, bid, models.BatchCompleted); err != nil {
		t.Fatalf("complete flip failed: %v", err)
	}
	// regression must be refused
	if err := s.SetBatchStatus(ing.ID, bid, models.BatchPending); err == nil {
		t.Fatalf("expected regression to be refused")
	}
	st, err := s.BatchStatus(ing.ID, bid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != models.BatchCompleted {
		t.Fatalf("expected completed, got %s", st)
	}
}

func TestStatusDerivesFromBatches(t *testing.T) {
	s := New()
	ing := s.CreateIngestion(models.PriorityMedium, time.Now().UnixNano(), [][]int64{{1, 2, 3}, {4, 5}})

	resp, err := s.Status(ing.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != models.IngestionPending {
		t.Fatalf("expected pending, got %s", resp.Status)
	}

	if err := s.SetBatchStatus(ing.ID, ing.Batches[0].ID, models.BatchDispatched); err != nil {
		t.Fatalf("flip failed: %v", err)
	}
	resp, _ = s.Status(ing.ID)
	if resp.Status != models.IngestionDispatched {
		t.Fatalf("expected dispatched, got %s", resp.Status)
	}

	_ = s.SetBatchStatus(ing.ID, ing.Batches[0].ID, models.BatchCompleted)
	_ = s.SetBatchStatus(ing.ID, ing.Batches[1].ID, models.BatchDispatched)
	_ = s.SetBatchStatus(ing.ID, ing.Batches[1].ID, models.BatchCompleted)
	resp, _ = s.Status(ing.ID)
	if resp.Status != models.IngestionCompleted {
		t.Fatalf("expected completed, got %s", resp.Status)
	}
}

func TestStatusReadIdempotent(t *testing.T) {
	s := New()
	ing := s.CreateIngestion(models.PriorityHigh, time.Now().UnixNano(), [][]int64{{7, 8}})

	first, err := s.Status(ing.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := s.Status(ing.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again.Status != first.Status || len(again.Batches) != len(first.Batches) {
			t.Fatalf("status query not idempotent: %+v vs %+v", again, first)
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := New()
	ing := s.CreateIngestion(models.PriorityHigh, time.Now().UnixNano(), [][]int64{{1}})

	snap, _ := s.GetIngestion(ing.ID)
	snap.Batches[0].Status = models.BatchCompleted
	snap.Batches[0].IDs[0] = 999

	fresh, _ := s.GetIngestion(ing.ID)
	if fresh.Batches[0].Status != models.BatchPending {
		t.Fatalf("snapshot mutation leaked into store")
	}
	if fresh.Batches[0].IDs[0] != 1 {
		t.Fatalf("snapshot id mutation leaked into store")
	}
}

func TestStuck(t *testing.T) {
	s := New()
	ing := s.CreateIngestion(models.PriorityHigh, time.Now().UnixNano(), [][]int64{{1}, {2}})

	if err := s.SetBatchStatus(ing.ID, ing.Batches[0].ID, models.BatchDispatched); err != nil {
		t.Fatalf("flip failed: %v", err)
	}
	// a freshly dispatched batch is not stuck yet
	if got := s.Stuck(time.Minute); len(got) != 0 {
		t.Fatalf("expected no stuck batches, got %d", len(got))
	}
	time.Sleep(20 * time.Millisecond)
	got := s.Stuck(10 * time.Millisecond)
	if len(got) != 1 {
		t.Fatalf("expected 1 stuck batch, got %d", len(got))
	}
	if got[0].BatchID != ing.Batches[0].ID {
		t.Fatalf("wrong stuck batch reported")
	}
}
