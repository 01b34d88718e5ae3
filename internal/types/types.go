// Package types defines the domain records ghvault archives and restores,
// plus the entity catalogue. JSON tags follow the GitHub REST shapes so
// fetched payloads round-trip through the archive unchanged.
package types

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Entity names. Each name identifies exactly one strategy.
const (
	EntityLabels           = "labels"
	EntityMilestones       = "milestones"
	EntityIssues           = "issues"
	EntityComments         = "comments"
	EntitySubIssues        = "sub_issues"
	EntityPullRequests     = "pull_requests"
	EntityPRComments       = "pr_comments"
	EntityPRReviews        = "pr_reviews"
	EntityPRReviewComments = "pr_review_comments"
)

// allEntities is the canonical ordering used for reports and the CLI.
var allEntities = []string{
	EntityLabels,
	EntityMilestones,
	EntityIssues,
	EntityComments,
	EntitySubIssues,
	EntityPullRequests,
	EntityPRComments,
	EntityPRReviews,
	EntityPRReviewComments,
}

// AllEntities returns every known entity name in canonical order.
func AllEntities() []string {
	out := make([]string, len(allEntities))
	copy(out, allEntities)
	return out
}

// IsValidEntity reports whether name is a known entity.
func IsValidEntity(name string) bool {
	for _, e := range allEntities {
		if e == name {
			return true
		}
	}
	return false
}

// ParseEntityList parses a comma-separated entity list (e.g. "issues,comments").
// Names are deduplicated and returned in canonical order. An empty list means
// all entities.
func ParseEntityList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "all" {
		return AllEntities(), nil
	}
	want := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if !IsValidEntity(name) {
			return nil, fmt.Errorf("unknown entity %q (valid: %s)", name, strings.Join(allEntities, ", "))
		}
		want[name] = true
	}
	var out []string
	for _, e := range allEntities {
		if want[e] {
			out = append(out, e)
		}
	}
	return out, nil
}

// User is the author or assignee of a record.
type User struct {
	ID    int64  `json:"id,omitempty"`
	Login string `json:"login"`
}

// Label is a repository label. Labels are keyed by name, not number, so
// numeric selections do not apply to them.
type Label struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description,omitempty"`
}

// Milestone is a repository milestone, keyed by its number.
type Milestone struct {
	ID          int64      `json:"id,omitempty"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	State       string     `json:"state"`
	DueOn       *time.Time `json:"due_on,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// PullRef marks an issues-API record that is actually a pull request.
type PullRef struct {
	URL string `json:"url,omitempty"`
}

// Issue is a repository issue, keyed by its number.
type Issue struct {
	ID          int64      `json:"id,omitempty"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Body        string     `json:"body,omitempty"`
	State       string     `json:"state"`
	Labels      []Label    `json:"labels,omitempty"`
	Milestone   *Milestone `json:"milestone,omitempty"`
	User        *User      `json:"user,omitempty"`
	Assignees   []User     `json:"assignees,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	PullRequest *PullRef   `json:"pull_request,omitempty"`
}

// Comment is a conversation comment on an issue or pull request. The parent
// is identified by the trailing number of IssueURL, as in the REST payload.
type Comment struct {
	ID        int64      `json:"id,omitempty"`
	IssueURL  string     `json:"issue_url"`
	Body      string     `json:"body"`
	User      *User      `json:"user,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ParentNumber returns the issue or PR number the comment belongs to,
// or 0 when the URL does not carry one.
func (c Comment) ParentNumber() int {
	return NumberFromURL(c.IssueURL)
}

// SubIssueLink records that ChildNumber is a sub-issue of ParentNumber.
// Link records are synthesized at fetch time; the REST API exposes them
// only as per-issue child listings.
type SubIssueLink struct {
	ParentNumber int   `json:"parent_number"`
	ChildNumber  int   `json:"child_number"`
	ChildID      int64 `json:"child_id,omitempty"`
}

// BranchRef is one side of a pull request.
type BranchRef struct {
	Ref string `json:"ref"`
	SHA string `json:"sha,omitempty"`
}

// PullRequest is a pull request, keyed by its number.
type PullRequest struct {
	ID        int64      `json:"id,omitempty"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	State     string     `json:"state"`
	Draft     bool       `json:"draft,omitempty"`
	Labels    []Label    `json:"labels,omitempty"`
	Milestone *Milestone `json:"milestone,omitempty"`
	User      *User      `json:"user,omitempty"`
	Head      *BranchRef `json:"head,omitempty"`
	Base      *BranchRef `json:"base,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// Review is a pull request review. The parent PR is identified by the
// trailing number of PullRequestURL.
type Review struct {
	ID             int64      `json:"id"`
	PullRequestURL string     `json:"pull_request_url"`
	Body           string     `json:"body,omitempty"`
	State          string     `json:"state"`
	User           *User      `json:"user,omitempty"`
	CommitID       string     `json:"commit_id,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
}

// ParentNumber returns the PR number the review belongs to.
func (r Review) ParentNumber() int {
	return NumberFromURL(r.PullRequestURL)
}

// ReviewComment is an inline code comment attached to a pull request review.
type ReviewComment struct {
	ID             int64      `json:"id"`
	ReviewID       int64      `json:"pull_request_review_id,omitempty"`
	PullRequestURL string     `json:"pull_request_url"`
	Path           string     `json:"path,omitempty"`
	CommitID       string     `json:"commit_id,omitempty"`
	Line           int        `json:"line,omitempty"`
	Side           string     `json:"side,omitempty"`
	DiffHunk       string     `json:"diff_hunk,omitempty"`
	Body           string     `json:"body"`
	User           *User      `json:"user,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// ParentNumber returns the PR number the review comment belongs to.
func (rc ReviewComment) ParentNumber() int {
	return NumberFromURL(rc.PullRequestURL)
}

// NumberFromURL extracts the trailing integer path segment of a REST URL
// like ".../issues/42" or ".../pulls/7". Returns 0 when absent.
func NumberFromURL(u string) int {
	if u == "" {
		return 0
	}
	u = strings.TrimSuffix(u, "/")
	idx := strings.LastIndex(u, "/")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(u[idx+1:])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SortComments orders comments chronologically, falling back to ID so the
// order is total even when timestamps collide.
func SortComments(comments []Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		ti, tj := comments[i].CreatedAt, comments[j].CreatedAt
		if ti != nil && tj != nil && !ti.Equal(*tj) {
			return ti.Before(*tj)
		}
		return comments[i].ID < comments[j].ID
	})
}
