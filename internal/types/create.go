package types

import "time"

// Create-request payloads. Strategies build these during
// transform-for-creation with all cross-entity references already remapped
// to destination-side identifiers; the sink only has to ship them.

// LabelCreate creates a label by name.
type LabelCreate struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// MilestoneCreate creates a milestone. The destination assigns the number.
type MilestoneCreate struct {
	Title       string     `json:"title"`
	State       string     `json:"state,omitempty"`
	Description string     `json:"description,omitempty"`
	DueOn       *time.Time `json:"due_on,omitempty"`
}

// IssueCreate creates an issue. Milestone is the destination-side milestone
// number (zero when unset or unmapped). Closed issues are created open and
// closed with a follow-up update.
type IssueCreate struct {
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
	Milestone int      `json:"milestone,omitempty"`
	Closed    bool     `json:"closed,omitempty"`
}

// CommentCreate creates a conversation comment on the destination-side issue
// or pull request number.
type CommentCreate struct {
	IssueNumber int    `json:"issue_number"`
	Body        string `json:"body"`
}

// SubIssueCreate links two destination-side issue numbers.
type SubIssueCreate struct {
	ParentNumber int `json:"parent_number"`
	ChildNumber  int `json:"child_number"`
}

// PullCreate creates a pull request. Head and Base are branch names; the
// destination must have the refs.
type PullCreate struct {
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Head      string   `json:"head"`
	Base      string   `json:"base"`
	Draft     bool     `json:"draft,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Milestone int      `json:"milestone,omitempty"`
	Closed    bool     `json:"closed,omitempty"`
}

// ReviewCreate creates a review on the destination-side pull request number.
// Event is APPROVE, REQUEST_CHANGES, or COMMENT.
type ReviewCreate struct {
	PullNumber int    `json:"pull_number"`
	Body       string `json:"body,omitempty"`
	Event      string `json:"event"`
}

// ReviewCommentCreate creates an inline code comment on the destination-side
// pull request number.
type ReviewCommentCreate struct {
	PullNumber int    `json:"pull_number"`
	Body       string `json:"body"`
	Path       string `json:"path,omitempty"`
	CommitID   string `json:"commit_id,omitempty"`
	Line       int    `json:"line,omitempty"`
	Side       string `json:"side,omitempty"`
}

// ReviewEvent maps a review state from the source to the event the create
// endpoint expects. Dismissed and pending reviews restore as plain comments.
func ReviewEvent(state string) string {
	switch state {
	case "APPROVED":
		return "APPROVE"
	case "CHANGES_REQUESTED":
		return "REQUEST_CHANGES"
	default:
		return "COMMENT"
	}
}
