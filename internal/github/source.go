package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ghvault/ghvault/internal/selection"
	"github.com/ghvault/ghvault/internal/types"
)

// Source reads repository data from the GitHub REST API. It implements the
// collector's data-source contract: one Fetch call per entity, raw JSON out.
//
// The issues API mixes issues and pull requests, and the repo-wide comments
// endpoint mixes comments on both, so Source keeps a lazily built set of
// pull request numbers to tell the two apart. Safe for concurrent use.
type Source struct {
	client *Client

	mu        sync.Mutex
	prNumbers map[int]bool
}

// NewSource returns a Source backed by client.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// Fetch retrieves every record of the entity. Narrowing to the selection is
// best effort here (the caller filters authoritatively); per-parent entities
// use it to skip API calls for unrequested parents.
func (s *Source) Fetch(ctx context.Context, entity string, sel selection.Selection) ([]json.RawMessage, error) {
	repo := s.client.repoPath()
	switch entity {
	case types.EntityLabels:
		return s.client.listRaw(ctx, repo+"/labels", nil)
	case types.EntityMilestones:
		return s.client.listRaw(ctx, repo+"/milestones", map[string]string{"state": "all"})
	case types.EntityIssues:
		return s.fetchIssues(ctx)
	case types.EntityComments:
		return s.fetchComments(ctx, false)
	case types.EntityPRComments:
		return s.fetchComments(ctx, true)
	case types.EntitySubIssues:
		return s.fetchSubIssues(ctx, sel)
	case types.EntityPullRequests:
		return s.client.listRaw(ctx, repo+"/pulls", map[string]string{"state": "all"})
	case types.EntityPRReviews:
		return s.fetchReviews(ctx, sel)
	case types.EntityPRReviewComments:
		return s.client.listRaw(ctx, repo+"/pulls/comments", nil)
	default:
		return nil, fmt.Errorf("unknown entity %q", entity)
	}
}

// recordProbe decodes just enough of an issues-API record to classify it.
type recordProbe struct {
	ID          int64            `json:"id"`
	Number      int              `json:"number"`
	PullRequest *json.RawMessage `json:"pull_request"`
}

// fetchIssues lists all issues, dropping pull requests masquerading as
// issues in the listing.
func (s *Source) fetchIssues(ctx context.Context) ([]json.RawMessage, error) {
	records, err := s.client.listRaw(ctx, s.client.repoPath()+"/issues", map[string]string{"state": "all"})
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		var probe recordProbe
		if err := json.Unmarshal(rec, &probe); err != nil {
			return nil, fmt.Errorf("failed to parse issue record: %w", err)
		}
		if probe.PullRequest == nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fetchComments lists the repo-wide issue comments and keeps those whose
// parent is (wantPR=true) or is not (wantPR=false) a pull request.
func (s *Source) fetchComments(ctx context.Context, wantPR bool) ([]json.RawMessage, error) {
	prs, err := s.prSet(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.client.listRaw(ctx, s.client.repoPath()+"/issues/comments", nil)
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		var c types.Comment
		if err := json.Unmarshal(rec, &c); err != nil {
			return nil, fmt.Errorf("failed to parse comment record: %w", err)
		}
		parent := c.ParentNumber()
		if parent == 0 {
			continue
		}
		if prs[parent] == wantPR {
			out = append(out, rec)
		}
	}
	return out, nil
}

// fetchSubIssues synthesizes parent/child link records from the per-issue
// sub-issue listings. Issues outside the selection are skipped.
func (s *Source) fetchSubIssues(ctx context.Context, sel selection.Selection) ([]json.RawMessage, error) {
	parents, err := s.fetchIssues(ctx)
	if err != nil {
		return nil, err
	}
	var out []json.RawMessage
	for _, rec := range parents {
		var probe recordProbe
		if err := json.Unmarshal(rec, &probe); err != nil {
			return nil, fmt.Errorf("failed to parse issue record: %w", err)
		}
		if !sel.Matches(probe.Number) {
			continue
		}
		children, err := s.client.listRaw(ctx, fmt.Sprintf("%s/issues/%d/sub_issues", s.client.repoPath(), probe.Number), nil)
		if err != nil {
			// Repositories without the sub-issues feature 404 here.
			var nf *NotFoundError
			if errors.As(err, &nf) {
				continue
			}
			return nil, err
		}
		for _, child := range children {
			var cp recordProbe
			if err := json.Unmarshal(child, &cp); err != nil {
				return nil, fmt.Errorf("failed to parse sub-issue record: %w", err)
			}
			link, err := json.Marshal(types.SubIssueLink{
				ParentNumber: probe.Number,
				ChildNumber:  cp.Number,
				ChildID:      cp.ID,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, link)
		}
	}
	return out, nil
}

// fetchReviews lists reviews per pull request. PRs outside the selection are
// skipped.
func (s *Source) fetchReviews(ctx context.Context, sel selection.Selection) ([]json.RawMessage, error) {
	prs, err := s.prSet(ctx)
	if err != nil {
		return nil, err
	}
	numbers := make([]int, 0, len(prs))
	for n := range prs {
		if sel.Matches(n) {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)

	var out []json.RawMessage
	for _, n := range numbers {
		reviews, err := s.client.listRaw(ctx, fmt.Sprintf("%s/pulls/%d/reviews", s.client.repoPath(), n), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, reviews...)
	}
	return out, nil
}

// prSet returns the set of pull request numbers in the repository,
// fetching it once and caching for the lifetime of the Source.
func (s *Source) prSet(ctx context.Context) (map[int]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prNumbers != nil {
		return s.prNumbers, nil
	}
	records, err := s.client.listRaw(ctx, s.client.repoPath()+"/pulls", map[string]string{"state": "all"})
	if err != nil {
		return nil, err
	}
	set := make(map[int]bool, len(records))
	for _, rec := range records {
		var probe recordProbe
		if err := json.Unmarshal(rec, &probe); err != nil {
			return nil, fmt.Errorf("failed to parse pull request record: %w", err)
		}
		set[probe.Number] = true
	}
	s.prNumbers = set
	return set, nil
}
