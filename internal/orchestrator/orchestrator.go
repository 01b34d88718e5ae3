// Package orchestrator drives a run: it asks the resolver for a wave order
// over the requested entities, executes each wave on a bounded worker pool,
// applies selection coupling between waves, and aggregates per-entity
// results into a report. One entity's failure never aborts the run; only
// pre-flight errors (unknown entity, selection syntax upstream, dependency
// cycle) do.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ghvault/ghvault/internal/resolver"
	"github.com/ghvault/ghvault/internal/selection"
	"github.com/ghvault/ghvault/internal/strategy"
)

// DefaultConcurrency bounds simultaneous strategies within a wave when no
// explicit pool size is configured.
const DefaultConcurrency = 4

const tracerName = "github.com/ghvault/ghvault/internal/orchestrator"

// Mode selects which strategy pipeline a run executes.
type Mode int

const (
	// ModeSave runs collect → transform → persist.
	ModeSave Mode = iota
	// ModeRestore runs load → transform-for-creation → create.
	ModeRestore
)

func (m Mode) String() string {
	if m == ModeRestore {
		return "restore"
	}
	return "save"
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency bounds the worker pool. The pool size is a throughput
// knob only; results are identical for any size >= 1.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithOnResult installs a callback invoked at each wave boundary with every
// result recorded in that wave, in wave order.
func WithOnResult(fn func(wave int, res strategy.Result)) Option {
	return func(o *Orchestrator) {
		o.onResult = fn
	}
}

// Orchestrator executes save and restore runs over a strategy registry.
type Orchestrator struct {
	reg         *strategy.Registry
	source      strategy.DataSource
	sink        strategy.DataSink
	concurrency int
	onResult    func(int, strategy.Result)
}

// New builds an orchestrator. The source and sink pairing defines the run
// direction: API→archive for save, archive→API for restore.
func New(reg *strategy.Registry, source strategy.DataSource, sink strategy.DataSink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reg:         reg,
		source:      source,
		sink:        sink,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExecuteSave runs the save pipeline for the requested entities.
// selections maps entity name → explicitly requested selection; entities
// absent from the map default to everything, then coupling narrows them.
func (o *Orchestrator) ExecuteSave(ctx context.Context, requested []string, selections map[string]selection.Selection) (*Report, error) {
	return o.execute(ctx, ModeSave, requested, selections)
}

// ExecuteRestore runs the restore pipeline, recording each entity's created
// identifiers so later waves can translate parent references.
func (o *Orchestrator) ExecuteRestore(ctx context.Context, requested []string, selections map[string]selection.Selection) (*Report, error) {
	return o.execute(ctx, ModeRestore, requested, selections)
}

func (o *Orchestrator) execute(ctx context.Context, mode Mode, requested []string, selections map[string]selection.Selection) (*Report, error) {
	// Pre-flight: every requested entity must have a strategy, and the
	// dependency graph over the requested set must be acyclic. No entity
	// executes when either check fails.
	for _, name := range requested {
		if _, ok := o.reg.Get(name); !ok {
			return nil, fmt.Errorf("no strategy registered for entity %q", name)
		}
	}
	waves, err := resolver.Waves(o.reg.DependencyMap(), requested)
	if err != nil {
		return nil, err
	}

	tracer := otel.Tracer(tracerName)
	ctx, runSpan := tracer.Start(ctx, "ghvault.run")
	runSpan.SetAttributes(
		attribute.String("run.mode", mode.String()),
		attribute.Int("run.entities", len(requested)),
		attribute.Int("run.waves", len(waves)),
	)
	defer runSpan.End()

	runCtx := strategy.NewContext()
	aborted := false

	for wi, wave := range waves {
		// Cancellation stops new waves; work already dispatched finishes
		// and its results are still recorded.
		if ctx.Err() != nil {
			aborted = true
			break
		}

		resolved := make(map[string]selection.Selection, len(wave))
		for _, name := range wave {
			strat, _ := o.reg.Get(name)
			resolved[name] = effectiveSelection(strat, selections, runCtx)
		}
		snap := runCtx.Snapshot()

		results := make([]strategy.Result, len(wave))
		created := make([][]strategy.CreatedRecord, len(wave))

		var g errgroup.Group
		g.SetLimit(o.concurrency)
		for i, name := range wave {
			strat, _ := o.reg.Get(name)
			g.Go(func() error {
				sctx, span := tracer.Start(ctx, "ghvault.entity")
				span.SetAttributes(
					attribute.String("entity", name),
					attribute.Int("wave", wi),
				)
				defer span.End()

				switch mode {
				case ModeSave:
					results[i] = o.runSave(sctx, strat, resolved[name], snap)
				case ModeRestore:
					results[i], created[i] = o.runRestore(sctx, strat, resolved[name], snap)
				}
				return nil
			})
		}
		// Wave barrier: wave n+1 never starts before every strategy in
		// wave n has finished, succeeded or failed.
		_ = g.Wait()

		// Context writes happen here, on the orchestrator goroutine only.
		for i, name := range wave {
			runCtx.RecordSelection(name, resolved[name])
			if mode == ModeRestore {
				runCtx.RecordRemap(name, created[i])
			}
			runCtx.RecordResult(results[i])
			if o.onResult != nil {
				o.onResult(wi, results[i])
			}
		}
	}

	report := Aggregate(runCtx.Results())
	report.Aborted = aborted
	runSpan.SetAttributes(attribute.Bool("run.success", report.OverallSuccess))
	return report, nil
}

// effectiveSelection resolves what an entity should run with: the explicitly
// requested selection (default everything), narrowed by the resolved
// selection of the entity it is coupled to. Coupling only ever narrows — a
// child selection never widens its parent's.
func effectiveSelection(strat strategy.Strategy, selections map[string]selection.Selection, runCtx *strategy.Context) selection.Selection {
	sel, ok := selections[strat.Name()]
	if !ok {
		sel = selection.SelectAll()
	}
	if parent := strat.CoupledTo(); parent != "" {
		if parentSel, ok := runCtx.ResolvedSelection(parent); ok {
			sel = selection.Intersect(sel, parentSel)
		}
	}
	return sel
}

// runSave executes one entity's collect → transform → persist pipeline. Any
// error or panic is captured into the result; siblings are unaffected.
func (o *Orchestrator) runSave(ctx context.Context, strat strategy.Strategy, sel selection.Selection, snap *strategy.Snapshot) (res strategy.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = strategy.Failed(strat.Name(), time.Since(start), fmt.Errorf("strategy panicked: %v", r))
		}
	}()

	records, err := strat.Collect(ctx, o.source, sel)
	if err != nil {
		return strategy.Failed(strat.Name(), time.Since(start), fmt.Errorf("collect: %w", err))
	}
	transformed, err := strat.Transform(records, snap)
	if err != nil {
		return strategy.Failed(strat.Name(), time.Since(start), fmt.Errorf("transform: %w", err))
	}
	outcome, err := strat.Persist(ctx, o.sink, transformed)
	if err != nil {
		return strategy.Failed(strat.Name(), time.Since(start), fmt.Errorf("persist: %w", err))
	}

	res = strategy.Result{
		Entity:         strat.Name(),
		ItemsProcessed: outcome.Processed,
		ItemsPersisted: outcome.Persisted,
		Err:            outcome.Message,
		Elapsed:        time.Since(start),
	}
	// Partial persistence still counts as success; only a total loss of a
	// non-empty batch fails the entity.
	res.Success = outcome.Persisted > 0 || outcome.Processed == 0
	return res
}

// runRestore executes one entity's load → transform-for-creation → create
// pipeline and returns the created-identifier records for the remap table.
func (o *Orchestrator) runRestore(ctx context.Context, strat strategy.Strategy, sel selection.Selection, snap *strategy.Snapshot) (res strategy.Result, created []strategy.CreatedRecord) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = strategy.Failed(strat.Name(), time.Since(start), fmt.Errorf("strategy panicked: %v", r))
			created = nil
		}
	}()

	records, err := strat.Load(ctx, o.source, sel)
	if err != nil {
		return strategy.Failed(strat.Name(), time.Since(start), fmt.Errorf("load: %w", err)), nil
	}
	reqs, skipped, err := strat.TransformForCreation(records, snap)
	if err != nil {
		res = strategy.Failed(strat.Name(), time.Since(start), err)
		res.Skipped = skipped
		return res, nil
	}
	created, err = strat.Create(ctx, o.sink, reqs)
	if err != nil {
		res = strategy.Failed(strat.Name(), time.Since(start), fmt.Errorf("create: %w", err))
		res.Skipped = skipped
		return res, nil
	}

	res = strategy.Result{
		Entity:         strat.Name(),
		ItemsProcessed: len(records),
		ItemsPersisted: len(created),
		Skipped:        skipped,
		Elapsed:        time.Since(start),
	}
	if len(created) == 0 && len(reqs) > 0 {
		res.Success = false
		res.Err = fmt.Sprintf("all %d create requests failed", len(reqs))
	} else {
		res.Success = true
	}
	return res, created
}
