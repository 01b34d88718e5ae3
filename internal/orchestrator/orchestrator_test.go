package orchestrator_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghvault/ghvault/internal/orchestrator"
	"github.com/ghvault/ghvault/internal/resolver"
	"github.com/ghvault/ghvault/internal/selection"
	"github.com/ghvault/ghvault/internal/strategy"
	"github.com/ghvault/ghvault/internal/types"
)

// fakeSource serves canned raw records per entity, with optional per-entity
// failures.
type fakeSource struct {
	records map[string][]strategy.RawRecord
	fail    map[string]error
}

func (f *fakeSource) Fetch(_ context.Context, entity string, _ selection.Selection) ([]strategy.RawRecord, error) {
	if err := f.fail[entity]; err != nil {
		return nil, err
	}
	return f.records[entity], nil
}

// memSink captures writes and assigns destination identifiers on create.
// Safe for concurrent use: strategies in one wave write different entities
// in parallel.
type memSink struct {
	mu sync.Mutex
	// written records per entity (save mode)
	written map[string][]strategy.RawRecord
	// newID offset per create (restore mode): NewID = OldID + offset
	offset int
	// entities whose create step produces nothing
	barren map[string]bool
}

func newMemSink(offset int) *memSink {
	return &memSink{written: make(map[string][]strategy.RawRecord), offset: offset, barren: make(map[string]bool)}
}

func (m *memSink) Write(_ context.Context, entity string, records []strategy.RawRecord) (strategy.PersistOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written[entity] = records
	return strategy.PersistOutcome{Processed: len(records), Persisted: len(records)}, nil
}

func (m *memSink) Create(_ context.Context, entity string, reqs []strategy.CreateRequest) ([]strategy.CreatedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.barren[entity] {
		return nil, nil
	}
	created := make([]strategy.CreatedRecord, len(reqs))
	for i, req := range reqs {
		created[i] = strategy.CreatedRecord{OldID: req.OldID, NewID: req.OldID + m.offset}
	}
	return created, nil
}

func raw(t *testing.T, v interface{}) strategy.RawRecord {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func issueURL(n int) string {
	return fmt.Sprintf("https://api.github.com/repos/o/r/issues/%d", n)
}

func resultFor(t *testing.T, report *orchestrator.Report, entity string) strategy.Result {
	t.Helper()
	for _, res := range report.Results {
		if res.Entity == entity {
			return res
		}
	}
	t.Fatalf("no result recorded for entity %q in %+v", entity, report.Results)
	return strategy.Result{}
}

func fixtureSource(t *testing.T) *fakeSource {
	return &fakeSource{
		records: map[string][]strategy.RawRecord{
			types.EntityLabels: {
				raw(t, types.Label{Name: "bug", Color: "ff0000"}),
			},
			types.EntityIssues: {
				raw(t, types.Issue{Number: 1, Title: "a", State: "open"}),
				raw(t, types.Issue{Number: 2, Title: "b", State: "open"}),
				raw(t, types.Issue{Number: 3, Title: "c", State: "closed"}),
				raw(t, types.Issue{Number: 8, Title: "d", State: "open"}),
			},
			types.EntityComments: {
				raw(t, types.Comment{ID: 10, IssueURL: issueURL(1), Body: "c1"}),
				raw(t, types.Comment{ID: 11, IssueURL: issueURL(2), Body: "c2"}),
				raw(t, types.Comment{ID: 12, IssueURL: issueURL(8), Body: "c8"}),
			},
		},
		fail: make(map[string]error),
	}
}

func TestSaveCouplingNarrowsComments(t *testing.T) {
	src := fixtureSource(t)
	sink := newMemSink(0)
	o := orchestrator.New(strategy.Defaults(), src, sink)

	report, err := o.ExecuteSave(context.Background(),
		[]string{types.EntityIssues, types.EntityComments},
		map[string]selection.Selection{types.EntityIssues: selection.NewSubset(1, 2, 3)},
	)
	require.NoError(t, err)
	assert.True(t, report.OverallSuccess)

	// Comments never expand beyond their parent issues' selection.
	require.Len(t, sink.written[types.EntityComments], 2)
	for _, rec := range sink.written[types.EntityComments] {
		var c types.Comment
		require.NoError(t, json.Unmarshal(rec, &c))
		assert.LessOrEqual(t, c.ParentNumber(), 3)
	}
	// The issue subset itself was honored.
	require.Len(t, sink.written[types.EntityIssues], 3)
}

func TestExplicitChildSelectionNeverWidensParent(t *testing.T) {
	src := fixtureSource(t)
	sink := newMemSink(0)
	o := orchestrator.New(strategy.Defaults(), src, sink)

	// Comments explicitly narrowed to parent 1; issues narrowed to {1,2}.
	// Effective comments selection is the intersection; issues keep {1,2}.
	report, err := o.ExecuteSave(context.Background(),
		[]string{types.EntityIssues, types.EntityComments},
		map[string]selection.Selection{
			types.EntityIssues:   selection.NewSubset(1, 2),
			types.EntityComments: selection.NewSubset(1),
		},
	)
	require.NoError(t, err)
	assert.True(t, report.OverallSuccess)
	assert.Len(t, sink.written[types.EntityIssues], 2)
	assert.Len(t, sink.written[types.EntityComments], 1)
}

func TestPartialFailureContainment(t *testing.T) {
	src := fixtureSource(t)
	src.fail[types.EntityLabels] = fmt.Errorf("boom: source unavailable")
	sink := newMemSink(0)
	o := orchestrator.New(strategy.Defaults(), src, sink)

	report, err := o.ExecuteSave(context.Background(),
		[]string{types.EntityLabels, types.EntityIssues, types.EntityComments},
		nil,
	)
	require.NoError(t, err)
	assert.False(t, report.OverallSuccess)

	labels := resultFor(t, report, types.EntityLabels)
	assert.False(t, labels.Success)
	assert.Contains(t, labels.Err, "boom")

	// Same-wave sibling and downstream dependent are unaffected.
	assert.True(t, resultFor(t, report, types.EntityIssues).Success)
	assert.True(t, resultFor(t, report, types.EntityComments).Success)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, types.EntityLabels, report.Failed()[0].Entity)
}

func TestRestoreRemapsParentReferences(t *testing.T) {
	src := fixtureSource(t)
	sink := newMemSink(100)
	o := orchestrator.New(strategy.Defaults(), src, sink)

	report, err := o.ExecuteRestore(context.Background(),
		[]string{types.EntityIssues, types.EntityComments},
		nil,
	)
	require.NoError(t, err)
	require.True(t, report.OverallSuccess, "results: %+v", report.Results)

	issues := resultFor(t, report, types.EntityIssues)
	assert.Equal(t, 4, issues.ItemsProcessed)
	assert.Equal(t, 4, issues.ItemsPersisted)

	comments := resultFor(t, report, types.EntityComments)
	assert.Equal(t, 3, comments.ItemsProcessed)
	assert.Equal(t, 3, comments.ItemsPersisted)
	assert.Zero(t, comments.Skipped)
}

func TestRestoreSelectionNarrowsLoadedRecords(t *testing.T) {
	src := fixtureSource(t)
	sink := newMemSink(100)
	o := orchestrator.New(strategy.Defaults(), src, sink)

	report, err := o.ExecuteRestore(context.Background(),
		[]string{types.EntityIssues, types.EntityComments},
		map[string]selection.Selection{types.EntityIssues: selection.NewSubset(1, 2)},
	)
	require.NoError(t, err)
	require.True(t, report.OverallSuccess, "results: %+v", report.Results)

	issues := resultFor(t, report, types.EntityIssues)
	assert.Equal(t, 2, issues.ItemsProcessed)
	assert.Equal(t, 2, issues.ItemsPersisted)

	// Coupling narrows the comments too: the comment on issue 8 is never
	// loaded, so it is not counted as skipped either.
	comments := resultFor(t, report, types.EntityComments)
	assert.Equal(t, 2, comments.ItemsProcessed)
	assert.Equal(t, 2, comments.ItemsPersisted)
	assert.Zero(t, comments.Skipped)
}

func TestRestoreDependentFailsWhenParentCreatedNothing(t *testing.T) {
	src := &fakeSource{
		records: map[string][]strategy.RawRecord{
			types.EntityPRReviews: {
				raw(t, types.Review{ID: 50, PullRequestURL: "https://api.github.com/repos/o/r/pulls/2", State: "APPROVED"}),
			},
			types.EntityPRReviewComments: {
				raw(t, types.ReviewComment{ID: 900, ReviewID: 50, PullRequestURL: "https://api.github.com/repos/o/r/pulls/2", Body: "x"}),
			},
		},
		fail: make(map[string]error),
	}
	sink := newMemSink(100)
	sink.barren[types.EntityPRReviews] = true
	o := orchestrator.New(strategy.Defaults(), src, sink)

	report, err := o.ExecuteRestore(context.Background(),
		[]string{types.EntityPRReviews, types.EntityPRReviewComments},
		nil,
	)
	require.NoError(t, err)
	assert.False(t, report.OverallSuccess)

	reviews := resultFor(t, report, types.EntityPRReviews)
	assert.False(t, reviews.Success)

	// The dependent reports zero persisted and a missing-parent message; it
	// does not crash and it does not abort the run.
	rc := resultFor(t, report, types.EntityPRReviewComments)
	assert.False(t, rc.Success)
	assert.Zero(t, rc.ItemsPersisted)
	assert.Contains(t, rc.Err, "no parent mapping")
	assert.Contains(t, rc.Err, types.EntityPRReviews)
}

func TestPoolSizeDoesNotChangeResults(t *testing.T) {
	for _, n := range []int{1, 2, 8} {
		src := fixtureSource(t)
		sink := newMemSink(0)
		o := orchestrator.New(strategy.Defaults(), src, sink, orchestrator.WithConcurrency(n))

		report, err := o.ExecuteSave(context.Background(),
			[]string{types.EntityLabels, types.EntityIssues, types.EntityComments},
			map[string]selection.Selection{types.EntityIssues: selection.NewSubset(1, 2)},
		)
		require.NoError(t, err, "concurrency %d", n)
		assert.True(t, report.OverallSuccess, "concurrency %d", n)
		assert.Len(t, sink.written[types.EntityIssues], 2, "concurrency %d", n)
		assert.Len(t, sink.written[types.EntityComments], 2, "concurrency %d", n)
	}
}

func TestSaveIdempotentAgainstUnchangedSource(t *testing.T) {
	src := fixtureSource(t)
	sink := newMemSink(0)
	o := orchestrator.New(strategy.Defaults(), src, sink)

	first, err := o.ExecuteSave(context.Background(), []string{types.EntityIssues, types.EntityComments}, nil)
	require.NoError(t, err)
	second, err := o.ExecuteSave(context.Background(), []string{types.EntityIssues, types.EntityComments}, nil)
	require.NoError(t, err)

	require.Len(t, second.Results, len(first.Results))
	for _, entity := range []string{types.EntityIssues, types.EntityComments} {
		a, b := resultFor(t, first, entity), resultFor(t, second, entity)
		assert.Equal(t, a.ItemsProcessed, b.ItemsProcessed, entity)
		assert.Equal(t, a.ItemsPersisted, b.ItemsPersisted, entity)
	}
}

func TestCancellationStopsNewWaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := orchestrator.New(strategy.Defaults(), fixtureSource(t), newMemSink(0))
	report, err := o.ExecuteRestore(ctx, []string{types.EntityIssues, types.EntityComments}, nil)
	require.NoError(t, err)
	assert.True(t, report.Aborted)
	assert.Empty(t, report.Results)
}

func TestPreflightErrors(t *testing.T) {
	o := orchestrator.New(strategy.Defaults(), fixtureSource(t), newMemSink(0))

	_, err := o.ExecuteSave(context.Background(), []string{"wiki"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wiki")

	// A cycle among custom strategies is rejected before any entity runs.
	reg := strategy.NewRegistry()
	require.Error(t, func() error {
		_, err := orchestrator.New(reg, fixtureSource(t), newMemSink(0)).
			ExecuteSave(context.Background(), []string{"ghost"}, nil)
		return err
	}())
}

func TestEmptyRunSucceeds(t *testing.T) {
	o := orchestrator.New(strategy.Defaults(), fixtureSource(t), newMemSink(0))
	report, err := o.ExecuteSave(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, report.OverallSuccess)
	assert.Empty(t, report.Results)
}

func TestAggregateCycleSurfacesAsResolverError(t *testing.T) {
	// Cycles are a pre-flight failure surfaced synchronously.
	deps := map[string][]string{"x": {"y"}, "y": {"x"}}
	_, err := resolver.Waves(deps, []string{"x", "y"})
	var cerrTyped *resolver.CycleError
	require.ErrorAs(t, err, &cerrTyped)
	assert.Equal(t, []string{"x", "y"}, cerrTyped.Entities)
}
