package strategy

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ghvault/ghvault/internal/types"
)

// reviewsStrategy handles pull request reviews. Reviews are selected by
// their parent PR number; the create step's remap (old review ID → new
// review ID) gates review comment restoration.
type reviewsStrategy struct {
	base
}

func newReviewsStrategy() reviewsStrategy {
	return reviewsStrategy{base{
		name:      types.EntityPRReviews,
		deps:      []string{types.EntityPullRequests},
		coupledTo: types.EntityPullRequests,
		key:       pullURLKey,
	}}
}

func (reviewsStrategy) Transform(records []RawRecord, _ *Snapshot) ([]RawRecord, error) {
	reviews := make([]types.Review, 0, len(records))
	for _, rec := range records {
		var r types.Review
		if err := json.Unmarshal(rec, &r); err != nil {
			return nil, fmt.Errorf("decode review: %w", err)
		}
		reviews = append(reviews, r)
	}
	sort.Slice(reviews, func(i, j int) bool {
		pi, pj := reviews[i].ParentNumber(), reviews[j].ParentNumber()
		if pi != pj {
			return pi < pj
		}
		return reviews[i].ID < reviews[j].ID
	})

	out := make([]RawRecord, 0, len(reviews))
	for _, r := range reviews {
		rec, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode review %d: %w", r.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s reviewsStrategy) TransformForCreation(records []RawRecord, snap *Snapshot) ([]CreateRequest, int, error) {
	var skipped int
	reqs := make([]CreateRequest, 0, len(records))
	for _, rec := range records {
		var r types.Review
		if err := json.Unmarshal(rec, &r); err != nil {
			return nil, 0, fmt.Errorf("decode review: %w", err)
		}

		old := r.ParentNumber()
		dst, ok := snap.Remap(types.EntityPullRequests, old)
		if old == 0 || !ok {
			skipped++
			continue
		}
		payload, err := json.Marshal(types.ReviewCreate{
			PullNumber: dst,
			Body:       r.Body,
			Event:      types.ReviewEvent(r.State),
		})
		if err != nil {
			return nil, 0, fmt.Errorf("encode review create %d: %w", r.ID, err)
		}
		reqs = append(reqs, CreateRequest{OldID: int(r.ID), Payload: payload})
	}
	if len(reqs) == 0 && len(records) > 0 {
		return nil, skipped, errNoParentMapping(s.name, types.EntityPullRequests, len(records))
	}
	return reqs, skipped, nil
}
