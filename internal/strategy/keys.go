package strategy

import (
	"encoding/json"

	"github.com/ghvault/ghvault/internal/types"
)

// Selection key extractors. Records that fail to decode key to 0, which no
// explicit subset contains, so malformed records drop out of narrowed runs
// rather than crashing them.

func numberKey(rec RawRecord) int {
	var v struct {
		Number int `json:"number"`
	}
	if err := json.Unmarshal(rec, &v); err != nil {
		return 0
	}
	return v.Number
}

func issueURLKey(rec RawRecord) int {
	var v struct {
		IssueURL string `json:"issue_url"`
	}
	if err := json.Unmarshal(rec, &v); err != nil {
		return 0
	}
	return types.NumberFromURL(v.IssueURL)
}

func pullURLKey(rec RawRecord) int {
	var v struct {
		PullRequestURL string `json:"pull_request_url"`
	}
	if err := json.Unmarshal(rec, &v); err != nil {
		return 0
	}
	return types.NumberFromURL(v.PullRequestURL)
}

func parentNumberKey(rec RawRecord) int {
	var v struct {
		ParentNumber int `json:"parent_number"`
	}
	if err := json.Unmarshal(rec, &v); err != nil {
		return 0
	}
	return v.ParentNumber
}
