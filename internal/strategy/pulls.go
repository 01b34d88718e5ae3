package strategy

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ghvault/ghvault/internal/types"
)

// pullsStrategy handles pull requests, keyed by PR number. Restoring a PR
// requires its head and base refs to exist in the destination; records
// without refs are skipped rather than sent to certain failure.
type pullsStrategy struct {
	base
}

func newPullsStrategy() pullsStrategy {
	return pullsStrategy{base{
		name: types.EntityPullRequests,
		deps: []string{types.EntityLabels, types.EntityMilestones},
		key:  numberKey,
	}}
}

func (pullsStrategy) Transform(records []RawRecord, _ *Snapshot) ([]RawRecord, error) {
	pulls := make([]types.PullRequest, 0, len(records))
	for _, rec := range records {
		var pr types.PullRequest
		if err := json.Unmarshal(rec, &pr); err != nil {
			return nil, fmt.Errorf("decode pull request: %w", err)
		}
		pulls = append(pulls, pr)
	}
	sort.Slice(pulls, func(i, j int) bool { return pulls[i].Number < pulls[j].Number })

	out := make([]RawRecord, 0, len(pulls))
	for _, pr := range pulls {
		rec, err := json.Marshal(pr)
		if err != nil {
			return nil, fmt.Errorf("encode pull request #%d: %w", pr.Number, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s pullsStrategy) TransformForCreation(records []RawRecord, snap *Snapshot) ([]CreateRequest, int, error) {
	var skipped int
	reqs := make([]CreateRequest, 0, len(records))
	for _, rec := range records {
		var pr types.PullRequest
		if err := json.Unmarshal(rec, &pr); err != nil {
			return nil, 0, fmt.Errorf("decode pull request: %w", err)
		}
		if pr.Head == nil || pr.Base == nil || pr.Head.Ref == "" || pr.Base.Ref == "" {
			skipped++
			continue
		}

		create := types.PullCreate{
			Title:  pr.Title,
			Body:   pr.Body,
			Head:   pr.Head.Ref,
			Base:   pr.Base.Ref,
			Draft:  pr.Draft,
			Labels: labelNames(pr.Labels),
			Closed: pr.State != "open",
		}
		if pr.Milestone != nil {
			if dst, ok := snap.Remap(types.EntityMilestones, pr.Milestone.Number); ok {
				create.Milestone = dst
			}
		}

		payload, err := json.Marshal(create)
		if err != nil {
			return nil, 0, fmt.Errorf("encode pull request create #%d: %w", pr.Number, err)
		}
		reqs = append(reqs, CreateRequest{OldID: pr.Number, Payload: payload})
	}
	return reqs, skipped, nil
}
