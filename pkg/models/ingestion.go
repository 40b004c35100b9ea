package models

// Priority orders ingestions in the dispatch queue. HIGH dispatches before
// MEDIUM, MEDIUM before LOW.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Rank returns the queue ordering key for the priority; lower dispatches first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// BatchStatus is the lifecycle state of a batch. Transitions are monotonic:
// pending -> dispatched -> completed, never backwards.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchDispatched BatchStatus = "dispatched"
	BatchCompleted  BatchStatus = "completed"
)

// Rank maps a status to its position in the lifecycle; used to reject
// regressing transitions.
func (s BatchStatus) Rank() int {
	switch s {
	case BatchPending:
		return 0
	case BatchDispatched:
		return 1
	case BatchCompleted:
		return 2
	}
	return -1
}

// IngestionStatus is derived from batch statuses and never stored.
type IngestionStatus string

const (
	IngestionPending    IngestionStatus = "pending"
	IngestionDispatched IngestionStatus = "dispatched"
	IngestionCompleted  IngestionStatus = "completed"
)

// Valid id range for work items.
const (
	MinID int64 = 1
	MaxID int64 = 1_000_000_007
)

// Batch groups up to the configured maximum number of ids that are
// dispatched and processed together.
type Batch struct {
	ID     string      `json:"batch_id"`
	IDs    []int64     `json:"ids"`
	Status BatchStatus `json:"status"`
	// DispatchedTS records when the batch left the queue (ns); internal,
	// used by the stuck-batch monitor.
	DispatchedTS int64 `json:"-"`
}

// Ingestion is one admitted request: its priority, creation time and the
// ordered batches its ids were split into. The overall status is always
// derived via DeriveStatus, never set directly.
type Ingestion struct {
	ID        string   `json:"ingestion_id"`
	Priority  Priority `json:"priority"`
	CreatedTS int64    `json:"created_ts"`
	Batches   []*Batch `json:"batches"`
}

// StatusResponse is the payload returned for status queries.
type StatusResponse struct {
	IngestionID string          `json:"ingestion_id"`
	Status      IngestionStatus `json:"status"`
	Batches     []Batch         `json:"batches"`
}

// DeriveStatus computes an ingestion's overall status from its batches:
// completed when every batch is completed, dispatched when at least one batch
// has been dispatched or completed, pending otherwise.
func DeriveStatus(batches []*Batch) IngestionStatus {
	if len(batches) == 0 {
		return IngestionPending
	}
	completed := 0
	started := 0
	for _, b := range batches {
		switch b.Status {
		case BatchCompleted:
			completed++
			started++
		case BatchDispatched:
			started++
		}
	}
	switch {
	case completed == len(batches):
		return IngestionCompleted
	case started > 0:
		return IngestionDispatched
	default:
		return IngestionPending
	}
}
