package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ghvault/ghvault/internal/strategy"
	"github.com/ghvault/ghvault/internal/types"
)

// Sink creates records in a destination repository through the GitHub REST
// API. It is the restore-side half of the data-sink contract; Write is not
// supported because save runs persist to an archive, never to the API.
type Sink struct {
	client *Client
	warnf  func(format string, args ...interface{})
}

// NewSink returns a Sink backed by client. Per-item create failures are
// reported through warnf and surface as missing created records; pass nil to
// discard warnings.
func NewSink(client *Client, warnf func(format string, args ...interface{})) *Sink {
	if warnf == nil {
		warnf = func(string, ...interface{}) {}
	}
	return &Sink{client: client, warnf: warnf}
}

// Write is not supported: the API sink only creates.
func (s *Sink) Write(ctx context.Context, entity string, records []strategy.RawRecord) (strategy.PersistOutcome, error) {
	return strategy.PersistOutcome{}, fmt.Errorf("github sink cannot persist %s: API destination is create-only", entity)
}

// createdProbe decodes the identifying fields of a create response.
type createdProbe struct {
	ID     int64 `json:"id"`
	Number int   `json:"number"`
}

// Create materializes the prepared requests in the destination repository.
// A failed item is warned about and omitted from the result; the batch only
// errors when the destination refuses authorization outright.
func (s *Sink) Create(ctx context.Context, entity string, reqs []strategy.CreateRequest) ([]strategy.CreatedRecord, error) {
	created := make([]strategy.CreatedRecord, 0, len(reqs))
	for _, req := range reqs {
		newID, err := s.createOne(ctx, entity, req.Payload)
		if err != nil {
			if errors.Is(err, ErrAuthorizationDenied) {
				return created, err
			}
			s.warnf("failed to create %s record: %v", entity, err)
			continue
		}
		created = append(created, strategy.CreatedRecord{OldID: req.OldID, NewID: newID})
	}
	return created, nil
}

func (s *Sink) createOne(ctx context.Context, entity string, payload strategy.RawRecord) (int, error) {
	switch entity {
	case types.EntityLabels:
		return s.createLabel(ctx, payload)
	case types.EntityMilestones:
		return s.createMilestone(ctx, payload)
	case types.EntityIssues:
		return s.createIssue(ctx, payload)
	case types.EntityComments, types.EntityPRComments:
		return s.createComment(ctx, payload)
	case types.EntitySubIssues:
		return s.createSubIssueLink(ctx, payload)
	case types.EntityPullRequests:
		return s.createPull(ctx, payload)
	case types.EntityPRReviews:
		return s.createReview(ctx, payload)
	case types.EntityPRReviewComments:
		return s.createReviewComment(ctx, payload)
	default:
		return 0, fmt.Errorf("unknown entity %q", entity)
	}
}

func (s *Sink) createLabel(ctx context.Context, payload json.RawMessage) (int, error) {
	var lc types.LabelCreate
	if err := json.Unmarshal(payload, &lc); err != nil {
		return 0, err
	}
	// Labels are keyed by name, so there is no identifier to map back.
	return 0, s.client.postJSON(ctx, s.client.repoPath()+"/labels", lc, nil)
}

func (s *Sink) createMilestone(ctx context.Context, payload json.RawMessage) (int, error) {
	var mc types.MilestoneCreate
	if err := json.Unmarshal(payload, &mc); err != nil {
		return 0, err
	}
	var resp createdProbe
	if err := s.client.postJSON(ctx, s.client.repoPath()+"/milestones", mc, &resp); err != nil {
		return 0, err
	}
	return resp.Number, nil
}

func (s *Sink) createIssue(ctx context.Context, payload json.RawMessage) (int, error) {
	var ic types.IssueCreate
	if err := json.Unmarshal(payload, &ic); err != nil {
		return 0, err
	}
	body := struct {
		Title     string   `json:"title"`
		Body      string   `json:"body,omitempty"`
		Labels    []string `json:"labels,omitempty"`
		Assignees []string `json:"assignees,omitempty"`
		Milestone int      `json:"milestone,omitempty"`
	}{ic.Title, ic.Body, ic.Labels, ic.Assignees, ic.Milestone}

	var resp createdProbe
	if err := s.client.postJSON(ctx, s.client.repoPath()+"/issues", body, &resp); err != nil {
		return 0, err
	}
	if ic.Closed {
		path := fmt.Sprintf("%s/issues/%d", s.client.repoPath(), resp.Number)
		if err := s.client.patchJSON(ctx, path, map[string]string{"state": "closed"}); err != nil {
			s.warnf("created issue #%d but failed to close it: %v", resp.Number, err)
		}
	}
	return resp.Number, nil
}

func (s *Sink) createComment(ctx context.Context, payload json.RawMessage) (int, error) {
	var cc types.CommentCreate
	if err := json.Unmarshal(payload, &cc); err != nil {
		return 0, err
	}
	path := fmt.Sprintf("%s/issues/%d/comments", s.client.repoPath(), cc.IssueNumber)
	var resp createdProbe
	if err := s.client.postJSON(ctx, path, map[string]string{"body": cc.Body}, &resp); err != nil {
		return 0, err
	}
	return int(resp.ID), nil
}

// createSubIssueLink attaches a child issue to a parent. The link endpoint
// wants the child's global identifier, so the child issue is looked up by
// number first.
func (s *Sink) createSubIssueLink(ctx context.Context, payload json.RawMessage) (int, error) {
	var sc types.SubIssueCreate
	if err := json.Unmarshal(payload, &sc); err != nil {
		return 0, err
	}
	var child createdProbe
	childPath := fmt.Sprintf("%s/issues/%d", s.client.repoPath(), sc.ChildNumber)
	if err := s.client.getJSON(ctx, childPath, &child); err != nil {
		return 0, fmt.Errorf("looking up sub-issue #%d: %w", sc.ChildNumber, err)
	}
	linkPath := fmt.Sprintf("%s/issues/%d/sub_issues", s.client.repoPath(), sc.ParentNumber)
	if err := s.client.postJSON(ctx, linkPath, map[string]int64{"sub_issue_id": child.ID}, nil); err != nil {
		return 0, err
	}
	return sc.ChildNumber, nil
}

func (s *Sink) createPull(ctx context.Context, payload json.RawMessage) (int, error) {
	var pc types.PullCreate
	if err := json.Unmarshal(payload, &pc); err != nil {
		return 0, err
	}
	body := struct {
		Title string `json:"title"`
		Body  string `json:"body,omitempty"`
		Head  string `json:"head"`
		Base  string `json:"base"`
		Draft bool   `json:"draft,omitempty"`
	}{pc.Title, pc.Body, pc.Head, pc.Base, pc.Draft}

	var resp createdProbe
	if err := s.client.postJSON(ctx, s.client.repoPath()+"/pulls", body, &resp); err != nil {
		return 0, err
	}

	// Labels and milestones attach through the issues side of the API.
	if len(pc.Labels) > 0 || pc.Milestone != 0 {
		patch := struct {
			Labels    []string `json:"labels,omitempty"`
			Milestone int      `json:"milestone,omitempty"`
		}{pc.Labels, pc.Milestone}
		path := fmt.Sprintf("%s/issues/%d", s.client.repoPath(), resp.Number)
		if err := s.client.patchJSON(ctx, path, patch); err != nil {
			s.warnf("created pull request #%d but failed to attach labels/milestone: %v", resp.Number, err)
		}
	}
	if pc.Closed {
		path := fmt.Sprintf("%s/pulls/%d", s.client.repoPath(), resp.Number)
		if err := s.client.patchJSON(ctx, path, map[string]string{"state": "closed"}); err != nil {
			s.warnf("created pull request #%d but failed to close it: %v", resp.Number, err)
		}
	}
	return resp.Number, nil
}

func (s *Sink) createReview(ctx context.Context, payload json.RawMessage) (int, error) {
	var rc types.ReviewCreate
	if err := json.Unmarshal(payload, &rc); err != nil {
		return 0, err
	}
	body := struct {
		Body  string `json:"body,omitempty"`
		Event string `json:"event"`
	}{rc.Body, rc.Event}
	path := fmt.Sprintf("%s/pulls/%d/reviews", s.client.repoPath(), rc.PullNumber)
	var resp createdProbe
	if err := s.client.postJSON(ctx, path, body, &resp); err != nil {
		return 0, err
	}
	return int(resp.ID), nil
}

func (s *Sink) createReviewComment(ctx context.Context, payload json.RawMessage) (int, error) {
	var rcc types.ReviewCommentCreate
	if err := json.Unmarshal(payload, &rcc); err != nil {
		return 0, err
	}
	body := struct {
		Body     string `json:"body"`
		Path     string `json:"path,omitempty"`
		CommitID string `json:"commit_id,omitempty"`
		Line     int    `json:"line,omitempty"`
		Side     string `json:"side,omitempty"`
	}{rcc.Body, rcc.Path, rcc.CommitID, rcc.Line, rcc.Side}
	path := fmt.Sprintf("%s/pulls/%d/comments", s.client.repoPath(), rcc.PullNumber)
	var resp createdProbe
	if err := s.client.postJSON(ctx, path, body, &resp); err != nil {
		return 0, err
	}
	return int(resp.ID), nil
}
