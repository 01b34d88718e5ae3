package strategy

import (
	"github.com/ghvault/ghvault/internal/selection"
)

// Context is the mutable per-run state shared across waves: resolved
// selections, identifier remap tables, and accumulated results. Only the
// orchestrator writes to it, and only at wave boundaries; concurrently
// running strategies see it through read-only Snapshots taken before the
// wave is dispatched. That single-writer discipline is what lets strategy
// code run without locks.
type Context struct {
	selections map[string]selection.Selection
	remaps     map[string]map[int]int
	results    []Result
}

// NewContext returns a fresh run context.
func NewContext() *Context {
	return &Context{
		selections: make(map[string]selection.Selection),
		remaps:     make(map[string]map[int]int),
	}
}

// RecordSelection stores the effective selection an entity ran with.
// Later waves consult it when resolving coupled selections.
func (c *Context) RecordSelection(entity string, sel selection.Selection) {
	c.selections[entity] = sel
}

// ResolvedSelection returns the selection recorded for entity, if any.
func (c *Context) ResolvedSelection(entity string) (selection.Selection, bool) {
	sel, ok := c.selections[entity]
	return sel, ok
}

// RecordRemap stores the identifier remap produced by an entity's create
// step. The table is recorded even when empty: dependents distinguish "the
// entity was restored and produced nothing" from "the entity was never
// restored this run".
func (c *Context) RecordRemap(entity string, created []CreatedRecord) {
	table := make(map[int]int, len(created))
	for _, cr := range created {
		if cr.OldID != 0 {
			table[cr.OldID] = cr.NewID
		}
	}
	c.remaps[entity] = table
}

// RecordResult appends an entity result. Append-only.
func (c *Context) RecordResult(res Result) {
	c.results = append(c.results, res)
}

// Results returns the accumulated results in completion order.
func (c *Context) Results() []Result {
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}

// Snapshot captures the selections and remap tables visible at a wave
// boundary. It is never mutated after creation, so strategies may read it
// concurrently.
type Snapshot struct {
	selections map[string]selection.Selection
	remaps     map[string]map[int]int
}

// Snapshot returns a read-only copy of the context's current state.
func (c *Context) Snapshot() *Snapshot {
	snap := &Snapshot{
		selections: make(map[string]selection.Selection, len(c.selections)),
		remaps:     make(map[string]map[int]int, len(c.remaps)),
	}
	for k, v := range c.selections {
		snap.selections[k] = v
	}
	for entity, table := range c.remaps {
		cp := make(map[int]int, len(table))
		for old, dst := range table {
			cp[old] = dst
		}
		snap.remaps[entity] = cp
	}
	return snap
}

// Selection returns the resolved selection recorded for entity, if any.
func (s *Snapshot) Selection(entity string) (selection.Selection, bool) {
	sel, ok := s.selections[entity]
	return sel, ok
}

// Remap translates a source-side identifier to its destination-side
// counterpart. When no remap table exists for the entity (it was not
// restored this run), identifiers pass through unchanged: the destination is
// assumed to share the source's numbering for that entity. When a table
// exists but lacks the identifier, the second return is false and the caller
// should skip the record.
func (s *Snapshot) Remap(entity string, old int) (int, bool) {
	table, ok := s.remaps[entity]
	if !ok {
		return old, true
	}
	dst, ok := table[old]
	return dst, ok
}

// HasRemap reports whether a remap table was recorded for entity this run.
func (s *Snapshot) HasRemap(entity string) bool {
	_, ok := s.remaps[entity]
	return ok
}
