// Package work provides the simulated per-id unit of work: it sleeps for a
// random latency inside the configured window and reports success. The
// scheduler treats it as opaque.
package work

import (
	"context"
	"math/rand/v2"
	"time"

	"ingestd/pkg/logger"
)

// Simulator is a ProcessFunc source with a configurable latency window.
type Simulator struct {
	min time.Duration
	max time.Duration
}

// NewSimulator builds a Simulator; a non-positive window collapses to min.
func NewSimulator(min, max time.Duration) *Simulator {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return &Simulator{min: min, max: max}
}

// Process simulates handling one id. It respects ctx so shutdown does not
// hang on sleeping workers.
func (s *Simulator) Process(ctx context.Context, id int64) error {
	d := s.min
	if window := s.max - s.min; window > 0 {
		d += time.Duration(rand.Int64N(int64(window)))
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
		return ctx.Err()
	}
	logger.Debug("id_processed", "id", id, "took", d)
	return nil
}
