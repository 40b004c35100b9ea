// Package store holds ingestion and batch records in memory. Records live
// for the lifetime of the process; durability across restarts is out of
// scope for this service.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ingestd/pkg/models"
	"ingestd/pkg/validation"
)

// Store is the in-memory record store. One instance is constructed per
// process and shared by reference between the admission path, the dispatch
// loop and the completion callbacks. Every mutation is a single status flip
// taken under the store lock so concurrent readers never observe a torn
// record.
type Store struct {
	mu         sync.RWMutex
	ingestions map[string]*models.Ingestion
	// order of creation, kept for admin listing
	order []string
}

// New returns an empty Store.
func New() *Store {
	return &Store{ingestions: make(map[string]*models.Ingestion)}
}

// CreateIngestion creates an ingestion record together with all of its
// batches, atomically. Every batch starts pending. chunks must already be a
// contiguous, order-preserving partition of the admitted ids.
func (s *Store) CreateIngestion(priority models.Priority, createdTS int64, chunks [][]int64) *models.Ingestion {
	ing := &models.Ingestion{
		ID:        uuid.NewString(),
		Priority:  priority,
		CreatedTS: createdTS,
		Batches:   make([]*models.Batch, 0, len(chunks)),
	}
	for _, c := range chunks {
		ing.Batches = append(ing.Batches, &models.Batch{
			ID:     uuid.NewString(),
			IDs:    c,
			Status: models.BatchPending,
		})
	}
	s.mu.Lock()
	s.ingestions[ing.ID] = ing
	s.order = append(s.order, ing.ID)
	s.mu.Unlock()
	return ing
}

// GetIngestion returns a deep snapshot of the ingestion so callers can read
// it without holding the store lock. Returns validation.ErrNotFound for
// unknown ids.
func (s *Store) GetIngestion(id string) (*models.Ingestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ing, ok := s.ingestions[id]
	if !ok {
		return nil, validation.ErrNotFound
	}
	return snapshot(ing), nil
}

// BatchStatus returns the current status of a batch, or ErrNotFound if
// either id is unknown. Used by the dispatch loop's defensive check.
func (s *Store) BatchStatus(ingID, batchID string) (models.BatchStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := s.findBatch(ingID, batchID)
	if err != nil {
		return "", err
	}
	return b.Status, nil
}

// SetBatchStatus flips a batch to the given status. Transitions are
// monotonic: a flip that would move a batch backwards in its lifecycle is
// rejected.
func (s *Store) SetBatchStatus(ingID, batchID string, status models.BatchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.findBatch(ingID, batchID)
	if err != nil {
		return err
	}
	if status.Rank() < b.Status.Rank() {
		return fmt.Errorf("batch %s: refusing status regression %s -> %s", batchID, b.Status, status)
	}
	b.Status = status
	if status == models.BatchDispatched {
		b.DispatchedTS = time.Now().UTC().UnixNano()
	}
	return nil
}

// StuckBatch identifies a batch sitting in dispatched longer than a
// threshold. No remediation is attached; the monitor only reports these.
type StuckBatch struct {
	IngestionID string
	BatchID     string
	Since       time.Time
}

// Stuck returns batches that have been dispatched for longer than olderThan.
func (s *Store) Stuck(olderThan time.Duration) []StuckBatch {
	cutoff := time.Now().UTC().Add(-olderThan).UnixNano()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []StuckBatch
	for _, id := range s.order {
		ing := s.ingestions[id]
		for _, b := range ing.Batches {
			if b.Status == models.BatchDispatched && b.DispatchedTS > 0 && b.DispatchedTS < cutoff {
				out = append(out, StuckBatch{
					IngestionID: ing.ID,
					BatchID:     b.ID,
					Since:       time.Unix(0, b.DispatchedTS).UTC(),
				})
			}
		}
	}
	return out
}

// Status derives the ingestion's current overall status together with a
// batch snapshot. The status is recomputed from the batches on every call,
// never cached.
func (s *Store) Status(id string) (*models.StatusResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ing, ok := s.ingestions[id]
	if !ok {
		return nil, validation.ErrNotFound
	}
	resp := &models.StatusResponse{
		IngestionID: ing.ID,
		Status:      models.DeriveStatus(ing.Batches),
		Batches:     make([]models.Batch, 0, len(ing.Batches)),
	}
	for _, b := range ing.Batches {
		resp.Batches = append(resp.Batches, models.Batch{
			ID:     b.ID,
			IDs:    append([]int64(nil), b.IDs...),
			Status: b.Status,
		})
	}
	return resp, nil
}

// Len returns the number of tracked ingestions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ingestions)
}

// IDs returns ingestion ids in creation order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// findBatch locates a batch; callers hold the lock.
func (s *Store) findBatch(ingID, batchID string) (*models.Batch, error) {
	ing, ok := s.ingestions[ingID]
	if !ok {
		return nil, validation.ErrNotFound
	}
	for _, b := range ing.Batches {
		if b.ID == batchID {
			return b, nil
		}
	}
	return nil, validation.ErrNotFound
}

func snapshot(ing *models.Ingestion) *models.Ingestion {
	out := &models.Ingestion{
		ID:        ing.ID,
		Priority:  ing.Priority,
		CreatedTS: ing.CreatedTS,
		Batches:   make([]*models.Batch, 0, len(ing.Batches)),
	}
	for _, b := range ing.Batches {
		out.Batches = append(out.Batches, &models.Batch{
			ID:     b.ID,
			IDs:    append([]int64(nil), b.IDs...),
			Status: b.Status,
		})
	}
	return out
}
