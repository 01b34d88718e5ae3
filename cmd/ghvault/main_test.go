package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ghvault/ghvault/internal/orchestrator"
	"github.com/ghvault/ghvault/internal/strategy"
)

func TestRenderReportExitCodes(t *testing.T) {
	prevQuiet, prevJSON := quietFlag, jsonOutput
	quietFlag, jsonOutput = true, false
	defer func() { quietFlag, jsonOutput = prevQuiet, prevJSON }()

	tests := []struct {
		name   string
		report *orchestrator.Report
		want   int
	}{
		{
			name: "all succeeded",
			report: &orchestrator.Report{
				OverallSuccess: true,
				Results:        []strategy.Result{{Entity: "labels", Success: true, ItemsProcessed: 1, ItemsPersisted: 1}},
			},
			want: 0,
		},
		{
			name: "entity failed",
			report: &orchestrator.Report{
				OverallSuccess: false,
				Results:        []strategy.Result{{Entity: "labels", Success: false, Err: "boom"}},
			},
			want: 1,
		},
		{
			// An interrupted run signals failure even when every entity
			// that did run succeeded: the backup is incomplete.
			name: "interrupted with no failures",
			report: &orchestrator.Report{
				OverallSuccess: true,
				Aborted:        true,
				Results:        []strategy.Result{{Entity: "labels", Success: true, ItemsProcessed: 1, ItemsPersisted: 1}},
			},
			want: 1,
		},
		{
			name:   "empty run",
			report: &orchestrator.Report{OverallSuccess: true},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderReport("save", tt.report); got != tt.want {
				t.Errorf("renderReport() = %d, want %d", got, tt.want)
			}
		})
	}
}

// The save command must return control to main instead of exiting inside
// its Run: the exit code travels through exitCode so the persistent
// post-run hook (the telemetry flush) fires before the process exits.
func TestSaveCommandSetsExitCodeWithoutExiting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/o/r/labels" {
			_ = json.NewEncoder(w).Encode([]map[string]string{{"name": "bug", "color": "ff0000"}})
			return
		}
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "archive")
	exitCode = -1
	rootCmd.SetArgs([]string{"save",
		"--repo", "o/r",
		"--token", "tok",
		"--api-url", srv.URL,
		"--out", out,
		"--entities", "labels",
		"--quiet",
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if exitCode != 0 {
		t.Fatalf("exitCode = %d, want 0", exitCode)
	}
	for _, name := range []string{"labels.jsonl", "manifest.json"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("archive file %s missing: %v", name, err)
		}
	}
}
