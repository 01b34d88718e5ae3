package types

import (
	"testing"
	"time"
)

func TestParseEntityList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "empty means all", input: "", want: AllEntities()},
		{name: "all keyword", input: "all", want: AllEntities()},
		{name: "single", input: "issues", want: []string{"issues"}},
		{name: "canonical reorder", input: "comments,labels", want: []string{"labels", "comments"}},
		{name: "dedupe", input: "issues,issues", want: []string{"issues"}},
		{name: "whitespace tolerated", input: " issues , comments ", want: []string{"issues", "comments"}},
		{name: "unknown entity", input: "wiki", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntityList(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseEntityList(%q): expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEntityList(%q): %v", tt.input, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseEntityList(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("ParseEntityList(%q) = %v, want %v", tt.input, got, tt.want)
				}
			}
		})
	}
}

func TestNumberFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"https://api.github.com/repos/o/r/issues/42", 42},
		{"https://api.github.com/repos/o/r/pulls/7", 7},
		{"https://api.github.com/repos/o/r/issues/42/", 42},
		{"", 0},
		{"https://api.github.com/repos/o/r/issues/abc", 0},
	}
	for _, tt := range tests {
		if got := NumberFromURL(tt.url); got != tt.want {
			t.Errorf("NumberFromURL(%q) = %d, want %d", tt.url, got, tt.want)
		}
	}
}

func TestSortComments(t *testing.T) {
	ts := func(s string) *time.Time {
		v, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t.Fatalf("bad timestamp %q: %v", s, err)
		}
		return &v
	}
	comments := []Comment{
		{ID: 3, CreatedAt: ts("2024-03-01T00:00:00Z")},
		{ID: 1, CreatedAt: ts("2024-01-01T00:00:00Z")},
		{ID: 5, CreatedAt: ts("2024-01-01T00:00:00Z")}, // same instant as ID 1
		{ID: 2, CreatedAt: nil},
	}
	SortComments(comments)

	wantOrder := []int64{1, 2, 5, 3}
	for i, want := range wantOrder {
		if comments[i].ID != want {
			t.Fatalf("position %d: got ID %d, want %d (order %v)", i, comments[i].ID, want, comments)
		}
	}
}
