package orchestrator

import (
	"github.com/ghvault/ghvault/internal/strategy"
)

// Report is the final aggregate of a run. It always exists: a run with zero
// requested entities produces an empty, successful report.
type Report struct {
	OverallSuccess bool              `json:"overall_success"`
	Aborted        bool              `json:"aborted,omitempty"`
	Results        []strategy.Result `json:"results"`
}

// Aggregate folds per-entity results into a report. Overall success requires
// every entity to have succeeded; failure details stay on the individual
// results, surfaced verbatim.
func Aggregate(results []strategy.Result) *Report {
	report := &Report{OverallSuccess: true, Results: results}
	for _, res := range results {
		if !res.Success {
			report.OverallSuccess = false
		}
	}
	return report
}

// Failed returns the failing results in completion order.
func (r *Report) Failed() []strategy.Result {
	var out []strategy.Result
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res)
		}
	}
	return out
}

// TotalPersisted sums persisted item counts across entities.
func (r *Report) TotalPersisted() int {
	total := 0
	for _, res := range r.Results {
		total += res.ItemsPersisted
	}
	return total
}
