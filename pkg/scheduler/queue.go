package scheduler

// Entry is one pending batch waiting for dispatch. Entries exist only while
// their batch is pending; they are removed from the queue the moment the
// batch is dispatched, not when it completes.
type Entry struct {
	IngestionID string
	BatchID     string

	// rank is the priority ordering key: HIGH=0 < MEDIUM=1 < LOW=2.
	rank int
	// enqueuedTS is the owning ingestion's creation timestamp (ns); all
	// batches of one ingestion share it.
	enqueuedTS int64
	// seq breaks ties among batches sharing a timestamp, preserving the
	// original batch order within an ingestion.
	seq uint64
}

// entryHeap is a min-heap ordered by (rank, enqueuedTS, seq). Keeping the
// heap invariant on every push is equivalent to re-sorting the full pending
// queue immediately before each dequeue: the head is always the single entry
// that a fresh sort would select, so a higher-priority entry pushed after
// the loop started overtakes everything already waiting.
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].rank != h[j].rank {
		return h[i].rank < h[j].rank
	}
	if h[i].enqueuedTS != h[j].enqueuedTS {
		return h[i].enqueuedTS < h[j].enqueuedTS
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(*Entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil // avoid memory leak
	*h = old[:n-1]
	return e
}
