package strategy

import "time"

// Result records the outcome of one strategy execution attempt. Immutable
// after creation.
type Result struct {
	Entity         string        `json:"entity"`
	Success        bool          `json:"success"`
	ItemsProcessed int           `json:"items_processed"`
	ItemsPersisted int           `json:"items_persisted"`
	Skipped        int           `json:"skipped,omitempty"`
	Err            string        `json:"error,omitempty"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Failed returns a failure result for entity with the error message preserved
// verbatim for diagnostics.
func Failed(entity string, elapsed time.Duration, err error) Result {
	return Result{Entity: entity, Success: false, Err: err.Error(), Elapsed: elapsed}
}
