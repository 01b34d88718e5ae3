package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ghvault/ghvault/internal/strategy"
	"github.com/ghvault/ghvault/internal/types"
)

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

// TestSinkCreateMilestone verifies the destination-assigned number is
// reported back for the identifier remap.
func TestSinkCreateMilestone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if !strings.Contains(r.URL.Path, "/repos/owner/repo/milestones") {
			t.Errorf("URL path = %s, want milestones endpoint", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(types.Milestone{ID: 900, Number: 7, Title: "v1.0"})
	}))
	defer server.Close()

	sink := NewSink(NewClient("token", "owner", "repo").WithBaseURL(server.URL), nil)
	created, err := sink.Create(context.Background(), types.EntityMilestones, []strategy.CreateRequest{
		{OldID: 3, Payload: mustMarshal(t, types.MilestoneCreate{Title: "v1.0"})},
	})
	if err != nil {
		t.Fatalf("Create(milestones) error = %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created %d records, want 1", len(created))
	}
	if created[0].OldID != 3 || created[0].NewID != 7 {
		t.Errorf("created[0] = %+v, want OldID 3 -> NewID 7", created[0])
	}
}

// TestSinkCreateIssue_ClosedGetsFollowUpPatch verifies a closed issue is
// created open and then closed with a PATCH.
func TestSinkCreateIssue_ClosedGetsFollowUpPatch(t *testing.T) {
	var patchedState string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/issues", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["title"] != "Old bug" {
			t.Errorf("create body title = %v, want %q", body["title"], "Old bug")
		}
		if _, hasClosed := body["closed"]; hasClosed {
			t.Error("create body carries a closed field; state must be set by follow-up PATCH")
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(types.Issue{ID: 500, Number: 42, Title: "Old bug"})
	})
	mux.HandleFunc("/repos/owner/repo/issues/42", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("Method = %s, want PATCH", r.Method)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		patchedState = body["state"]
		_ = json.NewEncoder(w).Encode(types.Issue{Number: 42, State: "closed"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	sink := NewSink(NewClient("token", "owner", "repo").WithBaseURL(server.URL), nil)
	created, err := sink.Create(context.Background(), types.EntityIssues, []strategy.CreateRequest{
		{OldID: 9, Payload: mustMarshal(t, types.IssueCreate{Title: "Old bug", Closed: true})},
	})
	if err != nil {
		t.Fatalf("Create(issues) error = %v", err)
	}
	if len(created) != 1 || created[0].NewID != 42 {
		t.Fatalf("created = %+v, want one record with NewID 42", created)
	}
	if patchedState != "closed" {
		t.Errorf("patched state = %q, want %q", patchedState, "closed")
	}
}

// TestSinkCreateComment verifies the comment lands on the remapped parent.
func TestSinkCreateComment(t *testing.T) {
	var capturedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(types.Comment{ID: 777, Body: "hello"})
	}))
	defer server.Close()

	sink := NewSink(NewClient("token", "owner", "repo").WithBaseURL(server.URL), nil)
	created, err := sink.Create(context.Background(), types.EntityComments, []strategy.CreateRequest{
		{OldID: 55, Payload: mustMarshal(t, types.CommentCreate{IssueNumber: 101, Body: "hello"})},
	})
	if err != nil {
		t.Fatalf("Create(comments) error = %v", err)
	}
	if !strings.Contains(capturedPath, "/issues/101/comments") {
		t.Errorf("path = %s, want /issues/101/comments", capturedPath)
	}
	if len(created) != 1 || created[0].NewID != 777 {
		t.Errorf("created = %+v, want one record with NewID 777", created)
	}
}

// TestSinkCreateSubIssueLink verifies the child is looked up by number and
// linked by its global identifier.
func TestSinkCreateSubIssueLink(t *testing.T) {
	var linkedID int64
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/issues/3", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.Issue{ID: 31337, Number: 3})
	})
	mux.HandleFunc("/repos/owner/repo/issues/1/sub_issues", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int64
		_ = json.NewDecoder(r.Body).Decode(&body)
		linkedID = body["sub_issue_id"]
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	sink := NewSink(NewClient("token", "owner", "repo").WithBaseURL(server.URL), nil)
	created, err := sink.Create(context.Background(), types.EntitySubIssues, []strategy.CreateRequest{
		{OldID: 3, Payload: mustMarshal(t, types.SubIssueCreate{ParentNumber: 1, ChildNumber: 3})},
	})
	if err != nil {
		t.Fatalf("Create(sub_issues) error = %v", err)
	}
	if linkedID != 31337 {
		t.Errorf("linked sub_issue_id = %d, want 31337", linkedID)
	}
	if len(created) != 1 {
		t.Errorf("created %d records, want 1", len(created))
	}
}

// TestSinkCreate_PartialFailure verifies a failed item is skipped with a
// warning while the rest of the batch goes through.
func TestSinkCreate_PartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["title"] == "rejected" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message": "Validation Failed"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(types.Issue{ID: 1, Number: 10})
	}))
	defer server.Close()

	var warnings []string
	warnf := func(format string, args ...interface{}) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	sink := NewSink(NewClient("token", "owner", "repo").WithBaseURL(server.URL), warnf)
	created, err := sink.Create(context.Background(), types.EntityIssues, []strategy.CreateRequest{
		{OldID: 1, Payload: mustMarshal(t, types.IssueCreate{Title: "accepted"})},
		{OldID: 2, Payload: mustMarshal(t, types.IssueCreate{Title: "rejected"})},
	})
	if err != nil {
		t.Fatalf("Create(issues) error = %v, want partial success", err)
	}
	if len(created) != 1 || created[0].OldID != 1 {
		t.Errorf("created = %+v, want only the accepted record", created)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want exactly one", warnings)
	}
}

// TestSinkCreate_AuthorizationDeniedAborts verifies an auth failure stops
// the batch instead of warning per item.
func TestSinkCreate_AuthorizationDeniedAborts(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	sink := NewSink(NewClient("expired", "owner", "repo").WithBaseURL(server.URL), nil)
	_, err := sink.Create(context.Background(), types.EntityLabels, []strategy.CreateRequest{
		{Payload: mustMarshal(t, types.LabelCreate{Name: "bug"})},
		{Payload: mustMarshal(t, types.LabelCreate{Name: "docs"})},
	})
	if !errors.Is(err, ErrAuthorizationDenied) {
		t.Fatalf("error = %v, want ErrAuthorizationDenied", err)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (batch aborted on first denial)", requests)
	}
}

// TestSinkWrite_Unsupported verifies the API sink refuses save-side writes.
func TestSinkWrite_Unsupported(t *testing.T) {
	sink := NewSink(NewClient("token", "owner", "repo"), nil)
	_, err := sink.Write(context.Background(), types.EntityLabels, nil)
	if err == nil {
		t.Fatal("Write() error = nil, want create-only error")
	}
}
