// Package selection implements the selective filter used to narrow which
// records of an entity a run touches. A selection is parsed from an
// expression of whitespace-separated tokens, each a single non-negative
// integer or an inclusive range "lo-hi", or from the literals "true"
// (everything) and "false" (nothing).
package selection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the three selection variants.
type Kind int

const (
	// KindAll matches every identifier.
	KindAll Kind = iota
	// KindNone matches no identifier.
	KindNone
	// KindSubset matches an explicit set of identifiers.
	KindSubset
)

// Selection is a predicate over non-negative integer identifiers.
// The zero value matches everything.
type Selection struct {
	kind Kind
	ids  map[int]struct{}
}

// SyntaxError reports a selection expression token that could not be parsed.
type SyntaxError struct {
	Token  string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid selection token %q: %s", e.Token, e.Reason)
}

// SelectAll returns a selection matching every identifier.
func SelectAll() Selection {
	return Selection{kind: KindAll}
}

// SelectNone returns a selection matching no identifier.
func SelectNone() Selection {
	return Selection{kind: KindNone}
}

// NewSubset returns a selection matching exactly the given identifiers.
func NewSubset(ids ...int) Selection {
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Selection{kind: KindSubset, ids: set}
}

// ParseBool maps true to SelectAll and false to SelectNone.
func ParseBool(b bool) Selection {
	if b {
		return SelectAll()
	}
	return SelectNone()
}

// Parse parses a selection expression. An empty expression selects
// everything. Parse fails with a *SyntaxError naming the offending token
// when a token is non-numeric, negative, or a range with hi < lo.
func Parse(expr string) (Selection, error) {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "", "true":
		return SelectAll(), nil
	case "false":
		return SelectNone(), nil
	}

	ids := make(map[int]struct{})
	for _, token := range strings.Fields(expr) {
		if lo, hi, ok := strings.Cut(token, "-"); ok {
			loN, err := parseID(lo)
			if err != nil {
				return Selection{}, &SyntaxError{Token: token, Reason: "range bounds must be non-negative integers"}
			}
			hiN, err := parseID(hi)
			if err != nil {
				return Selection{}, &SyntaxError{Token: token, Reason: "range bounds must be non-negative integers"}
			}
			if hiN < loN {
				return Selection{}, &SyntaxError{Token: token, Reason: "range upper bound is below lower bound"}
			}
			for i := loN; i <= hiN; i++ {
				ids[i] = struct{}{}
			}
			continue
		}
		n, err := parseID(token)
		if err != nil {
			return Selection{}, &SyntaxError{Token: token, Reason: "must be a non-negative integer or lo-hi range"}
		}
		ids[n] = struct{}{}
	}
	return Selection{kind: KindSubset, ids: ids}, nil
}

func parseID(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("not a non-negative integer")
	}
	return n, nil
}

// Kind returns the selection variant.
func (s Selection) Kind() Kind {
	return s.kind
}

// Matches reports whether the identifier is included in the selection.
func (s Selection) Matches(id int) bool {
	switch s.kind {
	case KindAll:
		return true
	case KindNone:
		return false
	default:
		_, ok := s.ids[id]
		return ok
	}
}

// IsEmpty reports whether the selection can match nothing at all.
func (s Selection) IsEmpty() bool {
	return s.kind == KindNone || (s.kind == KindSubset && len(s.ids) == 0)
}

// IDs returns the subset identifiers in ascending order. It returns nil for
// All and None selections.
func (s Selection) IDs() []int {
	if s.kind != KindSubset {
		return nil
	}
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Intersect returns the selection matching exactly the identifiers matched
// by both a and b.
func Intersect(a, b Selection) Selection {
	switch {
	case a.kind == KindAll:
		return b
	case b.kind == KindAll:
		return a
	case a.kind == KindNone || b.kind == KindNone:
		return SelectNone()
	}
	out := make(map[int]struct{})
	for id := range a.ids {
		if _, ok := b.ids[id]; ok {
			out[id] = struct{}{}
		}
	}
	return Selection{kind: KindSubset, ids: out}
}

// String renders the selection in normalized expression form: "true" for
// All, "false" for None, and sorted, range-collapsed tokens for subsets.
// The output re-parses to an equivalent selection.
func (s Selection) String() string {
	switch s.kind {
	case KindAll:
		return "true"
	case KindNone:
		return "false"
	}
	ids := s.IDs()
	if len(ids) == 0 {
		return "false"
	}

	var tokens []string
	start, prev := ids[0], ids[0]
	flush := func() {
		switch {
		case start == prev:
			tokens = append(tokens, strconv.Itoa(start))
		case prev == start+1:
			tokens = append(tokens, strconv.Itoa(start), strconv.Itoa(prev))
		default:
			tokens = append(tokens, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, id := range ids[1:] {
		if id == prev+1 {
			prev = id
			continue
		}
		flush()
		start, prev = id, id
	}
	flush()
	return strings.Join(tokens, " ")
}
