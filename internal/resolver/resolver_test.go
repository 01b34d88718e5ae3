package resolver_test

import (
	"errors"
	"testing"

	"github.com/ghvault/ghvault/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWavesBasicLayering(t *testing.T) {
	deps := map[string][]string{
		"labels":   nil,
		"issues":   nil,
		"comments": {"issues"},
	}

	waves, err := resolver.Waves(deps, []string{"labels", "issues", "comments"})
	require.NoError(t, err)
	require.Len(t, waves, 2)
	assert.ElementsMatch(t, []string{"labels", "issues"}, waves[0])
	assert.Equal(t, []string{"comments"}, waves[1])
}

func TestWavesFullCatalogue(t *testing.T) {
	deps := map[string][]string{
		"labels":             nil,
		"milestones":         nil,
		"issues":             {"labels", "milestones"},
		"comments":           {"issues"},
		"sub_issues":         {"issues"},
		"pull_requests":      {"labels", "milestones"},
		"pr_comments":        {"pull_requests"},
		"pr_reviews":         {"pull_requests"},
		"pr_review_comments": {"pr_reviews"},
	}
	requested := []string{
		"labels", "milestones", "issues", "comments", "sub_issues",
		"pull_requests", "pr_comments", "pr_reviews", "pr_review_comments",
	}

	waves, err := resolver.Waves(deps, requested)
	require.NoError(t, err)
	require.Len(t, waves, 4)
	assert.ElementsMatch(t, []string{"labels", "milestones"}, waves[0])
	assert.ElementsMatch(t, []string{"issues", "pull_requests"}, waves[1])
	assert.ElementsMatch(t, []string{"comments", "sub_issues", "pr_comments", "pr_reviews"}, waves[2])
	assert.ElementsMatch(t, []string{"pr_review_comments"}, waves[3])

	// Every entity appears exactly once, and each entity's requested
	// dependencies land in a strictly earlier wave.
	waveOf := make(map[string]int)
	total := 0
	for i, wave := range waves {
		for _, name := range wave {
			_, dup := waveOf[name]
			require.False(t, dup, "entity %s appears twice", name)
			waveOf[name] = i
			total++
		}
	}
	assert.Equal(t, len(requested), total)
	for _, name := range requested {
		for _, dep := range deps[name] {
			assert.Less(t, waveOf[dep], waveOf[name], "%s must run after %s", name, dep)
		}
	}
}

func TestWavesUnrequestedDependencySatisfied(t *testing.T) {
	deps := map[string][]string{
		"issues":   {"labels", "milestones"},
		"comments": {"issues"},
	}

	// labels and milestones are not requested: issues starts in wave 0.
	waves, err := resolver.Waves(deps, []string{"issues", "comments"})
	require.NoError(t, err)
	require.Len(t, waves, 2)
	assert.Equal(t, []string{"issues"}, waves[0])
	assert.Equal(t, []string{"comments"}, waves[1])
}

func TestWavesCycleDetection(t *testing.T) {
	deps := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": nil,
	}

	_, err := resolver.Waves(deps, []string{"a", "b", "c", "d"})
	require.Error(t, err)

	var cycleErr *resolver.CycleError
	require.True(t, errors.As(err, &cycleErr))
	// Exactly the cyclic subset is named; d cleared in wave 0.
	assert.Equal(t, []string{"a", "b", "c"}, cycleErr.Entities)
}

func TestWavesCycleExcludesDownstreamEntities(t *testing.T) {
	deps := map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"c": {"a"},
		"d": {"c"},
	}

	// c and d never clear because they sit downstream of the a<->b cycle,
	// but only the cycle members are reported.
	_, err := resolver.Waves(deps, []string{"a", "b", "c", "d"})
	var cycleErr *resolver.CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"a", "b"}, cycleErr.Entities)
}

func TestWavesTwoCyclesBothReported(t *testing.T) {
	deps := map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"x": {"y"},
		"y": {"x"},
	}

	_, err := resolver.Waves(deps, []string{"a", "b", "x", "y"})
	var cycleErr *resolver.CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"a", "b", "x", "y"}, cycleErr.Entities)
}

func TestWavesSelfLoopIgnoredByResolver(t *testing.T) {
	// Self-dependencies are rejected at registration; the resolver itself
	// treats them as satisfied rather than deadlocking.
	waves, err := resolver.Waves(map[string][]string{"a": {"a"}}, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}}, waves)
}

func TestWavesEmptyRequest(t *testing.T) {
	waves, err := resolver.Waves(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, waves)
}
