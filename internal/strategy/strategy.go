// Package strategy defines the per-entity backup/restore strategies, the
// registry they are dispatched from, and the run-scoped execution context.
//
// A strategy declares its entity name and dependency set, and implements two
// three-step pipelines: collect/transform/persist for save runs and
// load/transform-for-creation/create for restore runs. Strategies are
// stateless values; all mutable run state lives in the Context, which only
// the orchestrator writes.
package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ghvault/ghvault/internal/selection"
	"github.com/ghvault/ghvault/internal/types"
)

// RawRecord is one record as carried through a pipeline: the JSON object the
// data source produced, or the normalized domain form after a transform.
type RawRecord = json.RawMessage

// DataSource yields raw records per entity. Implementations: the GitHub API
// client (save runs) and the archive reader (restore runs).
type DataSource interface {
	Fetch(ctx context.Context, entity string, sel selection.Selection) ([]RawRecord, error)
}

// PersistOutcome reports how a persist batch fared. Partial failure is a
// count gap, not an error: Persisted < Processed.
type PersistOutcome struct {
	Processed int
	Persisted int
	Message   string
}

// CreateRequest is one record prepared for creation in the destination.
// OldID carries the source-side identifier so the created counterpart can be
// recorded in the identifier remap; it is zero for entities keyed by name.
type CreateRequest struct {
	OldID   int
	Payload RawRecord
}

// CreatedRecord maps a source-side identifier to its newly created
// destination-side counterpart.
type CreatedRecord struct {
	OldID int
	NewID int
}

// DataSink consumes records: Write persists raw records during save, Create
// materializes requests in the destination during restore. Per-item create
// failures surface as missing CreatedRecords, not as errors.
type DataSink interface {
	Write(ctx context.Context, entity string, records []RawRecord) (PersistOutcome, error)
	Create(ctx context.Context, entity string, reqs []CreateRequest) ([]CreatedRecord, error)
}

// Strategy is the polymorphic unit handling one entity.
type Strategy interface {
	// Name is the unique entity identifier.
	Name() string
	// Dependencies lists entities that must fully complete before this one.
	// The set never contains Name itself.
	Dependencies() []string
	// CoupledTo names the dependency whose resolved selection bounds this
	// entity's effective selection, or "" when the entity is not coupled.
	CoupledTo() string

	// Save pipeline.
	Collect(ctx context.Context, src DataSource, sel selection.Selection) ([]RawRecord, error)
	Transform(records []RawRecord, snap *Snapshot) ([]RawRecord, error)
	Persist(ctx context.Context, sink DataSink, records []RawRecord) (PersistOutcome, error)

	// Restore pipeline. Load applies the selection to the archived records
	// the same way Collect does on save. TransformForCreation returns the
	// requests it could prepare plus the number of records skipped for
	// missing parent mappings.
	Load(ctx context.Context, src DataSource, sel selection.Selection) ([]RawRecord, error)
	TransformForCreation(records []RawRecord, snap *Snapshot) ([]CreateRequest, int, error)
	Create(ctx context.Context, sink DataSink, reqs []CreateRequest) ([]CreatedRecord, error)
}

// Registry holds the strategies registered for a run, keyed by entity name.
type Registry struct {
	order  []string
	byName map[string]Strategy
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Strategy)}
}

// Register adds a strategy. It rejects duplicate names and self-dependencies;
// cycle detection across strategies happens at run time in the resolver.
func (r *Registry) Register(s Strategy) error {
	name := s.Name()
	if name == "" {
		return fmt.Errorf("strategy has no name")
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("strategy %q already registered", name)
	}
	for _, dep := range s.Dependencies() {
		if dep == name {
			return fmt.Errorf("strategy %q declares a dependency on itself", name)
		}
	}
	r.byName[name] = s
	r.order = append(r.order, name)
	return nil
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Names returns all registered entity names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DependencyMap returns entity name → dependency names for every registered
// strategy, in the shape the resolver consumes.
func (r *Registry) DependencyMap() map[string][]string {
	out := make(map[string][]string, len(r.byName))
	for name, s := range r.byName {
		deps := s.Dependencies()
		sorted := make([]string, len(deps))
		copy(sorted, deps)
		sort.Strings(sorted)
		out[name] = sorted
	}
	return out
}

// Defaults returns a registry with all nine entity strategies registered.
func Defaults() *Registry {
	r := NewRegistry()
	for _, s := range []Strategy{
		newLabelsStrategy(),
		newMilestonesStrategy(),
		newIssuesStrategy(),
		newCommentsStrategy(types.EntityComments, types.EntityIssues),
		newSubIssuesStrategy(),
		newPullsStrategy(),
		newCommentsStrategy(types.EntityPRComments, types.EntityPullRequests),
		newReviewsStrategy(),
		newReviewCommentsStrategy(),
	} {
		if err := r.Register(s); err != nil {
			// Defaults are wired at compile time; a failure here is a bug.
			panic(err)
		}
	}
	return r
}
