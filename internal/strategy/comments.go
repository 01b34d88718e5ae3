package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/ghvault/ghvault/internal/types"
)

// commentsStrategy handles conversation comments for either parent entity:
// issue comments (parent issues) and PR conversation comments (parent
// pull_requests). Comments are selected by their parent's number, and the
// effective selection is coupled to the parent's: comments never expand
// beyond what their parent selection includes.
type commentsStrategy struct {
	base
	parent string
}

func newCommentsStrategy(name, parent string) commentsStrategy {
	return commentsStrategy{
		base:   base{name: name, deps: []string{parent}, coupledTo: parent, key: issueURLKey},
		parent: parent,
	}
}

func (s commentsStrategy) Transform(records []RawRecord, _ *Snapshot) ([]RawRecord, error) {
	comments, err := decodeComments(records)
	if err != nil {
		return nil, err
	}
	types.SortComments(comments)

	out := make([]RawRecord, 0, len(comments))
	for _, c := range comments {
		rec, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("encode comment %d: %w", c.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// TransformForCreation translates parent references through the parent
// entity's remap. Comments whose parent has no destination-side counterpart
// are skipped, not errored; if nothing at all can be created from a
// non-empty input, the entity fails.
func (s commentsStrategy) TransformForCreation(records []RawRecord, snap *Snapshot) ([]CreateRequest, int, error) {
	comments, err := decodeComments(records)
	if err != nil {
		return nil, 0, err
	}
	// Chronological creation keeps the destination's conversation order.
	types.SortComments(comments)

	var skipped int
	reqs := make([]CreateRequest, 0, len(comments))
	for _, c := range comments {
		old := c.ParentNumber()
		dst, ok := snap.Remap(s.parent, old)
		if old == 0 || !ok {
			skipped++
			continue
		}
		payload, err := json.Marshal(types.CommentCreate{IssueNumber: dst, Body: c.Body})
		if err != nil {
			return nil, 0, fmt.Errorf("encode comment create %d: %w", c.ID, err)
		}
		reqs = append(reqs, CreateRequest{OldID: int(c.ID), Payload: payload})
	}
	if len(reqs) == 0 && len(comments) > 0 {
		return nil, skipped, errNoParentMapping(s.name, s.parent, len(comments))
	}
	return reqs, skipped, nil
}

func decodeComments(records []RawRecord) ([]types.Comment, error) {
	comments := make([]types.Comment, 0, len(records))
	for _, rec := range records {
		var c types.Comment
		if err := json.Unmarshal(rec, &c); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, nil
}
