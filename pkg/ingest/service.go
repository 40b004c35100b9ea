// Package ingest is the admission path: it turns a validated id list into
// an ingestion record with fixed-size batches and hands the batches to the
// scheduler queue.
package ingest

import (
	"time"

	"ingestd/pkg/logger"
	"ingestd/pkg/models"
	"ingestd/pkg/scheduler"
	"ingestd/pkg/store"
	"ingestd/pkg/telemetry"
)

// DefaultMaxBatch is the batch size used when the config leaves it unset.
const DefaultMaxBatch = 3

// Service owns admission and status queries. It is constructed once per
// process and passed by reference to the transport layer.
type Service struct {
	store    *store.Store
	sched    *scheduler.Scheduler
	maxBatch int
}

// NewService wires the admission service. maxBatch <= 0 falls back to
// DefaultMaxBatch.
func NewService(st *store.Store, sched *scheduler.Scheduler, maxBatch int) *Service {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Service{store: st, sched: sched, maxBatch: maxBatch}
}

// CreateIngestion admits a request whose input already passed validation:
// it splits ids into consecutive maxBatch-sized chunks preserving order (the
// final chunk may be shorter), creates the ingestion with every batch
// pending, and enqueues one entry per batch. The operation never partially
// succeeds; record creation is atomic.
func (s *Service) CreateIngestion(ids []int64, priority models.Priority) string {
	chunks := chunk(ids, s.maxBatch)
	ing := s.store.CreateIngestion(priority, time.Now().UTC().UnixNano(), chunks)
	s.sched.Enqueue(ing)
	telemetry.IngestionsCreated.Inc()
	logger.Info("ingestion_created",
		"ingestion", ing.ID, "priority", string(priority), "ids", len(ids), "batches", len(chunks))
	return ing.ID
}

// GetStatus returns the ingestion's current status payload. The overall
// status is recomputed from the batch statuses on every call; repeated
// queries with no intervening transition return identical results.
func (s *Service) GetStatus(id string) (*models.StatusResponse, error) {
	return s.store.Status(id)
}

// chunk splits ids into consecutive slices of at most size elements,
// preserving order. Only the last chunk may be short.
func chunk(ids []int64, size int) [][]int64 {
	out := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, append([]int64(nil), ids[start:end]...))
	}
	return out
}
