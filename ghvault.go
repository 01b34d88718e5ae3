// Package ghvault provides a minimal public API for running repository
// saves and restores programmatically.
//
// The CLI in cmd/ghvault is a thin wrapper over RunSave and RunRestore;
// embedders get the same semantics: dependency-ordered waves, coupled
// selections, per-entity failure containment.
package ghvault

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ghvault/ghvault/internal/archive"
	"github.com/ghvault/ghvault/internal/github"
	"github.com/ghvault/ghvault/internal/orchestrator"
	"github.com/ghvault/ghvault/internal/selection"
	"github.com/ghvault/ghvault/internal/strategy"
	"github.com/ghvault/ghvault/internal/types"
)

// Report is the aggregated outcome of a run.
type Report = orchestrator.Report

// Options configures a save or restore run.
type Options struct {
	// Owner and Repo name the GitHub repository.
	Owner string
	Repo  string
	// Token authenticates against the API.
	Token string
	// BaseURL overrides the API endpoint (GHE); empty means api.github.com.
	BaseURL string
	// ArchiveDir is written by save and read by restore.
	ArchiveDir string
	// Entities restricts the run; nil or empty means all.
	Entities []string
	// Selections are per-entity filter expressions, e.g. {"issues": "1-5 10"}.
	Selections map[string]string
	// Concurrency caps parallel entities per wave (0 means default).
	Concurrency int
	// HTTPTimeout caps each API request (0 means the client default).
	HTTPTimeout time.Duration
	// DryRun makes restore stop short of creating anything.
	DryRun bool
	// ToolVersion is stamped into the save manifest.
	ToolVersion string
	// OnResult, when set, observes each entity result as it completes.
	OnResult func(wave int, res strategy.Result)
	// Warnf receives non-fatal restore warnings; nil discards them.
	Warnf func(format string, args ...interface{})
}

// ParseSelections converts expression strings to selections, failing fast on
// the first syntax error so no work starts with a bad filter.
func ParseSelections(exprs map[string]string) (map[string]selection.Selection, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make(map[string]selection.Selection, len(exprs))
	for entity, expr := range exprs {
		if !types.IsValidEntity(entity) {
			return nil, fmt.Errorf("unknown entity %q in selection", entity)
		}
		sel, err := selection.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("selection for %s: %w", entity, err)
		}
		out[entity] = sel
	}
	return out, nil
}

func (o Options) entities() []string {
	if len(o.Entities) == 0 {
		return types.AllEntities()
	}
	return o.Entities
}

func (o Options) orchestratorOpts() []orchestrator.Option {
	var opts []orchestrator.Option
	if o.Concurrency > 0 {
		opts = append(opts, orchestrator.WithConcurrency(o.Concurrency))
	}
	if o.OnResult != nil {
		opts = append(opts, orchestrator.WithOnResult(o.OnResult))
	}
	return opts
}

func (o Options) client() *github.Client {
	c := github.NewClient(o.Token, o.Owner, o.Repo)
	if o.BaseURL != "" {
		c = c.WithBaseURL(o.BaseURL)
	}
	if o.HTTPTimeout > 0 {
		c = c.WithHTTPClient(&http.Client{Timeout: o.HTTPTimeout})
	}
	return c
}

// RunSave fetches the selected entities from the repository and persists
// them into ArchiveDir, finishing with a manifest. The returned error covers
// pre-flight problems only; per-entity failures live in the report.
func RunSave(ctx context.Context, opts Options) (*Report, error) {
	selections, err := ParseSelections(opts.Selections)
	if err != nil {
		return nil, err
	}
	writer, err := archive.NewWriter(opts.ArchiveDir)
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(strategy.Defaults(), github.NewSource(opts.client()), writer, opts.orchestratorOpts()...)
	report, err := orch.ExecuteSave(ctx, opts.entities(), selections)
	if err != nil {
		return nil, err
	}
	if report.OverallSuccess {
		if err := writer.Finalize(opts.Owner+"/"+opts.Repo, opts.ToolVersion); err != nil {
			return report, fmt.Errorf("archive saved but manifest write failed: %w", err)
		}
	}
	return report, nil
}

// RunRestore loads the archive in ArchiveDir and recreates the selected
// entities in the repository, remapping identifiers as parents land. With
// DryRun the destination is never touched; created identifiers echo back
// unchanged so dependent entities still exercise their remap paths.
func RunRestore(ctx context.Context, opts Options) (*Report, error) {
	selections, err := ParseSelections(opts.Selections)
	if err != nil {
		return nil, err
	}
	reader, err := archive.NewReader(opts.ArchiveDir)
	if err != nil {
		return nil, err
	}

	manifest, err := reader.Manifest()
	if err != nil {
		return nil, err
	}
	if want := opts.Owner + "/" + opts.Repo; manifest.Repository != "" && manifest.Repository != want && opts.Warnf != nil {
		opts.Warnf("archive was saved from %s, restoring into %s", manifest.Repository, want)
	}

	var sink strategy.DataSink
	if opts.DryRun {
		sink = &strategy.EchoSink{}
	} else {
		sink = github.NewSink(opts.client(), opts.Warnf)
	}

	orch := orchestrator.New(strategy.Defaults(), reader, sink, opts.orchestratorOpts()...)
	return orch.ExecuteRestore(ctx, opts.entities(), selections)
}
