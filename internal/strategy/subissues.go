package strategy

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ghvault/ghvault/internal/types"
)

// subIssuesStrategy handles parent/child links between issues. A link is
// selected by its parent issue number and restores only when both sides of
// the link exist in the destination.
type subIssuesStrategy struct {
	base
}

func newSubIssuesStrategy() subIssuesStrategy {
	return subIssuesStrategy{base{
		name:      types.EntitySubIssues,
		deps:      []string{types.EntityIssues},
		coupledTo: types.EntityIssues,
		key:       parentNumberKey,
	}}
}

func (subIssuesStrategy) Transform(records []RawRecord, _ *Snapshot) ([]RawRecord, error) {
	links := make([]types.SubIssueLink, 0, len(records))
	for _, rec := range records {
		var l types.SubIssueLink
		if err := json.Unmarshal(rec, &l); err != nil {
			return nil, fmt.Errorf("decode sub-issue link: %w", err)
		}
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].ParentNumber != links[j].ParentNumber {
			return links[i].ParentNumber < links[j].ParentNumber
		}
		return links[i].ChildNumber < links[j].ChildNumber
	})

	out := make([]RawRecord, 0, len(links))
	for _, l := range links {
		rec, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("encode sub-issue link %d->%d: %w", l.ParentNumber, l.ChildNumber, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s subIssuesStrategy) TransformForCreation(records []RawRecord, snap *Snapshot) ([]CreateRequest, int, error) {
	var skipped int
	reqs := make([]CreateRequest, 0, len(records))
	for _, rec := range records {
		var l types.SubIssueLink
		if err := json.Unmarshal(rec, &l); err != nil {
			return nil, 0, fmt.Errorf("decode sub-issue link: %w", err)
		}

		parent, okP := snap.Remap(types.EntityIssues, l.ParentNumber)
		child, okC := snap.Remap(types.EntityIssues, l.ChildNumber)
		if l.ParentNumber == 0 || l.ChildNumber == 0 || !okP || !okC {
			skipped++
			continue
		}
		payload, err := json.Marshal(types.SubIssueCreate{ParentNumber: parent, ChildNumber: child})
		if err != nil {
			return nil, 0, fmt.Errorf("encode sub-issue create %d->%d: %w", l.ParentNumber, l.ChildNumber, err)
		}
		reqs = append(reqs, CreateRequest{Payload: payload})
	}
	if len(reqs) == 0 && len(records) > 0 {
		return nil, skipped, errNoParentMapping(s.name, types.EntityIssues, len(records))
	}
	return reqs, skipped, nil
}
