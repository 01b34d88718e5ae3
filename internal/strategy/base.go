package strategy

import (
	"context"
	"fmt"

	"github.com/ghvault/ghvault/internal/selection"
)

// base carries the declarative half of a strategy plus the pipeline steps
// that look the same for every entity. Entity files embed it and implement
// Transform and TransformForCreation.
type base struct {
	name      string
	deps      []string
	coupledTo string
	// key extracts the selection identifier from a raw record: the record's
	// own number for top-level entities, the parent's number for coupled
	// ones. nil for entities that are not numerically selectable (labels).
	key func(RawRecord) int
}

func (b base) Name() string { return b.name }

func (b base) Dependencies() []string {
	out := make([]string, len(b.deps))
	copy(out, b.deps)
	return out
}

func (b base) CoupledTo() string { return b.coupledTo }

// Collect fetches the entity's records and applies the selection
// client-side. Source-side narrowing is best effort, so the filter here is
// authoritative. Idempotent for an unchanged backing store.
func (b base) Collect(ctx context.Context, src DataSource, sel selection.Selection) ([]RawRecord, error) {
	return b.fetchFiltered(ctx, src, sel)
}

func (b base) fetchFiltered(ctx context.Context, src DataSource, sel selection.Selection) ([]RawRecord, error) {
	if sel.IsEmpty() {
		return nil, nil
	}
	records, err := src.Fetch(ctx, b.name, sel)
	if err != nil {
		return nil, err
	}
	if b.key == nil || sel.Kind() == selection.KindAll {
		return records, nil
	}
	out := make([]RawRecord, 0, len(records))
	for _, rec := range records {
		if sel.Matches(b.key(rec)) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Persist writes the transformed records under the entity's name.
func (b base) Persist(ctx context.Context, sink DataSink, records []RawRecord) (PersistOutcome, error) {
	return sink.Write(ctx, b.name, records)
}

// Load reads the archived records for the entity, narrowed by the same
// selection filter Collect applies on save.
func (b base) Load(ctx context.Context, src DataSource, sel selection.Selection) ([]RawRecord, error) {
	return b.fetchFiltered(ctx, src, sel)
}

// Create ships the prepared requests to the sink.
func (b base) Create(ctx context.Context, sink DataSink, reqs []CreateRequest) ([]CreatedRecord, error) {
	return sink.Create(ctx, b.name, reqs)
}

// errNoParentMapping is the failure reported when a dependent entity could
// not prepare a single create request because its parent entity produced no
// usable identifier remap.
func errNoParentMapping(entity, parent string, total int) error {
	return fmt.Errorf("%s: no parent mapping available for any of %d records: dependency %q produced no identifier remap", entity, total, parent)
}
