// Package state persists the per-data-type "last success" marker that
// bounds each run's processing window. Only the pipeline's Commit step
// writes it, and a commit never moves a marker backwards.
package state

import (
	"context"
	"time"
)

// Store reads and advances last-success markers.
type Store interface {
	// LastSuccess returns the stored marker for a data type. The second
	// return is false when no run has committed yet.
	LastSuccess(ctx context.Context, testType string) (time.Time, bool, error)
	// Commit advances the marker. A timestamp at or before the stored one
	// is ignored, keeping the marker monotonic.
	Commit(ctx context.Context, testType string, t time.Time) error
	Close() error
}
