package strategy

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ghvault/ghvault/internal/types"
)

// issuesStrategy handles issues, keyed by issue number. Its remap (old
// number → new number) is what comment and sub-issue strategies use to
// translate parent references during restore.
type issuesStrategy struct {
	base
}

func newIssuesStrategy() issuesStrategy {
	return issuesStrategy{base{
		name: types.EntityIssues,
		deps: []string{types.EntityLabels, types.EntityMilestones},
		key:  numberKey,
	}}
}

func (issuesStrategy) Transform(records []RawRecord, _ *Snapshot) ([]RawRecord, error) {
	issues := make([]types.Issue, 0, len(records))
	for _, rec := range records {
		var is types.Issue
		if err := json.Unmarshal(rec, &is); err != nil {
			return nil, fmt.Errorf("decode issue: %w", err)
		}
		// The issues listing can include pull requests; those belong to the
		// pull_requests entity.
		if is.PullRequest != nil {
			continue
		}
		issues = append(issues, is)
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Number < issues[j].Number })

	out := make([]RawRecord, 0, len(issues))
	for _, is := range issues {
		rec, err := json.Marshal(is)
		if err != nil {
			return nil, fmt.Errorf("encode issue #%d: %w", is.Number, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (issuesStrategy) TransformForCreation(records []RawRecord, snap *Snapshot) ([]CreateRequest, int, error) {
	reqs := make([]CreateRequest, 0, len(records))
	for _, rec := range records {
		var is types.Issue
		if err := json.Unmarshal(rec, &is); err != nil {
			return nil, 0, fmt.Errorf("decode issue: %w", err)
		}

		create := types.IssueCreate{
			Title:  is.Title,
			Body:   is.Body,
			Labels: labelNames(is.Labels),
			Closed: is.State == "closed",
		}
		for _, a := range is.Assignees {
			create.Assignees = append(create.Assignees, a.Login)
		}
		// A milestone reference is optional: when the destination-side
		// milestone is unknown, the issue restores without one.
		if is.Milestone != nil {
			if dst, ok := snap.Remap(types.EntityMilestones, is.Milestone.Number); ok {
				create.Milestone = dst
			}
		}

		payload, err := json.Marshal(create)
		if err != nil {
			return nil, 0, fmt.Errorf("encode issue create #%d: %w", is.Number, err)
		}
		reqs = append(reqs, CreateRequest{OldID: is.Number, Payload: payload})
	}
	return reqs, 0, nil
}

func labelNames(labels []types.Label) []string {
	if len(labels) == 0 {
		return nil
	}
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.Name
	}
	return names
}
