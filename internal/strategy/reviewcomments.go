package strategy

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ghvault/ghvault/internal/types"
)

// reviewCommentsStrategy handles inline code comments on PR reviews. A
// review comment restores only when its parent review was recreated this
// run (or was never part of the run at all); when the reviews entity ran but
// produced no mapping, every comment is skipped and the entity fails with a
// missing-parent message rather than crashing.
type reviewCommentsStrategy struct {
	base
}

func newReviewCommentsStrategy() reviewCommentsStrategy {
	return reviewCommentsStrategy{base{
		name:      types.EntityPRReviewComments,
		deps:      []string{types.EntityPRReviews},
		coupledTo: types.EntityPRReviews,
		key:       pullURLKey,
	}}
}

func (reviewCommentsStrategy) Transform(records []RawRecord, _ *Snapshot) ([]RawRecord, error) {
	comments, err := decodeReviewComments(records)
	if err != nil {
		return nil, err
	}
	sort.Slice(comments, func(i, j int) bool {
		pi, pj := comments[i].ParentNumber(), comments[j].ParentNumber()
		if pi != pj {
			return pi < pj
		}
		return comments[i].ID < comments[j].ID
	})

	out := make([]RawRecord, 0, len(comments))
	for _, rc := range comments {
		rec, err := json.Marshal(rc)
		if err != nil {
			return nil, fmt.Errorf("encode review comment %d: %w", rc.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s reviewCommentsStrategy) TransformForCreation(records []RawRecord, snap *Snapshot) ([]CreateRequest, int, error) {
	comments, err := decodeReviewComments(records)
	if err != nil {
		return nil, 0, err
	}

	var skipped int
	reqs := make([]CreateRequest, 0, len(comments))
	for _, rc := range comments {
		// The parent review must have a destination-side counterpart.
		if _, ok := snap.Remap(types.EntityPRReviews, int(rc.ReviewID)); rc.ReviewID == 0 || !ok {
			skipped++
			continue
		}
		oldPR := rc.ParentNumber()
		dstPR, ok := snap.Remap(types.EntityPullRequests, oldPR)
		if oldPR == 0 || !ok {
			skipped++
			continue
		}

		payload, err := json.Marshal(types.ReviewCommentCreate{
			PullNumber: dstPR,
			Body:       rc.Body,
			Path:       rc.Path,
			CommitID:   rc.CommitID,
			Line:       rc.Line,
			Side:       rc.Side,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("encode review comment create %d: %w", rc.ID, err)
		}
		reqs = append(reqs, CreateRequest{OldID: int(rc.ID), Payload: payload})
	}
	if len(reqs) == 0 && len(comments) > 0 {
		return nil, skipped, errNoParentMapping(s.name, types.EntityPRReviews, len(comments))
	}
	return reqs, skipped, nil
}

func decodeReviewComments(records []RawRecord) ([]types.ReviewComment, error) {
	comments := make([]types.ReviewComment, 0, len(records))
	for _, rec := range records {
		var rc types.ReviewComment
		if err := json.Unmarshal(rec, &rc); err != nil {
			return nil, fmt.Errorf("decode review comment: %w", err)
		}
		comments = append(comments, rc)
	}
	return comments, nil
}
