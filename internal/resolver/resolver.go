// Package resolver computes the execution order for a run: it partitions the
// requested entities into ordered waves such that every entity appears in a
// strictly later wave than all of its requested dependencies, and entities
// within one wave have no dependency relationship among themselves.
package resolver

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError reports that the requested entities form a dependency cycle.
// Entities names exactly the residual cyclic subset, sorted.
type CycleError struct {
	Entities []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected among entities: %s", strings.Join(e.Entities, ", "))
}

// Waves layers the requested entities by Kahn's algorithm. deps maps an
// entity to the entities that must complete before it; dependencies outside
// the requested set are treated as already satisfied, never as blocking.
// Each wave is sorted for deterministic output, though execution order within
// a wave carries no guarantee.
func Waves(deps map[string][]string, requested []string) ([][]string, error) {
	inSet := make(map[string]bool, len(requested))
	for _, name := range requested {
		inSet[name] = true
	}

	// In-degree restricted to the requested set, and the reverse adjacency
	// needed to decrement dependents as waves clear.
	indegree := make(map[string]int, len(requested))
	dependents := make(map[string][]string)
	for _, name := range requested {
		indegree[name] = 0
		for _, dep := range deps[name] {
			if !inSet[dep] || dep == name {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var waves [][]string
	remaining := len(indegree)
	done := make(map[string]bool, remaining)
	for remaining > 0 {
		var wave []string
		for name, d := range indegree {
			if d == 0 && !done[name] {
				wave = append(wave, name)
			}
		}
		if len(wave) == 0 {
			return nil, &CycleError{Entities: cyclicSubset(indegree, done, dependents)}
		}
		sort.Strings(wave)
		for _, name := range wave {
			done[name] = true
			for _, dep := range dependents[name] {
				indegree[dep]--
			}
		}
		remaining -= len(wave)
		waves = append(waves, wave)
	}
	return waves, nil
}

// cyclicSubset narrows the entities left after a stall to the ones actually
// on a cycle. The residual set also contains acyclic entities downstream of
// a cycle; those are excluded, since an entity is cyclic iff it can reach
// itself through dependent edges inside the residual set.
func cyclicSubset(indegree map[string]int, done map[string]bool, dependents map[string][]string) []string {
	residual := make(map[string]bool, len(indegree))
	for name := range indegree {
		if !done[name] {
			residual[name] = true
		}
	}

	var cyclic []string
	for name := range residual {
		if reaches(name, name, residual, dependents, make(map[string]bool)) {
			cyclic = append(cyclic, name)
		}
	}
	sort.Strings(cyclic)
	return cyclic
}

func reaches(node, target string, residual map[string]bool, dependents map[string][]string, seen map[string]bool) bool {
	for _, next := range dependents[node] {
		if !residual[next] || seen[next] {
			continue
		}
		if next == target {
			return true
		}
		seen[next] = true
		if reaches(next, target, residual, dependents, seen) {
			return true
		}
	}
	return false
}
