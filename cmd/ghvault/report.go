package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ghvault/ghvault/internal/orchestrator"
	"github.com/ghvault/ghvault/internal/strategy"
	"github.com/ghvault/ghvault/internal/telemetry"
	"github.com/ghvault/ghvault/internal/ui"
)

// renderReport prints the per-entity outcome and returns the process exit
// code: 0 for full success, 1 when anything failed or the run was
// interrupted before every entity was attempted.
func renderReport(mode string, report *orchestrator.Report) int {
	emitRunMetrics(mode, report)

	exit := 1
	if report.OverallSuccess && !report.Aborted {
		exit = 0
	}

	if jsonOutput {
		outputJSON(report)
		return exit
	}

	if !quietFlag {
		fmt.Println(ui.RenderSeparator())
		for _, res := range report.Results {
			fmt.Println(renderResultLine(res))
		}
		fmt.Println(ui.RenderSeparator())
	}

	failed := report.Failed()
	switch {
	case report.Aborted:
		fmt.Println(ui.RenderWarn("interrupted: remaining entities were not attempted"))
	case len(failed) == 0:
		fmt.Printf("%s %s complete: %d records across %d entities\n",
			ui.RenderPassIcon(), mode, report.TotalPersisted(), len(report.Results))
	}
	if len(failed) > 0 {
		fmt.Printf("%s %s finished with %d failed %s\n",
			ui.RenderFailIcon(), mode, len(failed), pluralize("entity", "entities", len(failed)))
	}

	return exit
}

func renderResultLine(res strategy.Result) string {
	var icon string
	switch {
	case !res.Success:
		icon = ui.RenderFailIcon()
	case res.ItemsProcessed == 0:
		// Nothing matched the entity's selection.
		icon = ui.RenderSkipIcon()
	default:
		icon = ui.RenderPassIcon()
	}
	line := fmt.Sprintf("%s %-20s %4d/%d", icon, res.Entity, res.ItemsPersisted, res.ItemsProcessed)
	if res.Skipped > 0 {
		line += ui.RenderWarn(fmt.Sprintf("  %d skipped", res.Skipped))
	}
	line += ui.RenderMuted(fmt.Sprintf("  %s", res.Elapsed.Round(time.Millisecond)))
	if res.Err != "" {
		line += "\n    " + ui.RenderFail(res.Err)
	}
	return line
}

func emitRunMetrics(mode string, report *orchestrator.Report) {
	if !telemetry.Enabled() {
		return
	}
	rm, err := telemetry.NewRunMetrics()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: metrics init failed: %v\n", err)
		return
	}
	for _, res := range report.Results {
		rm.RecordEntity(context.Background(), mode, res.Entity,
			res.Elapsed.Seconds(), res.ItemsPersisted, !res.Success)
	}
}

func pluralize(singular, plural string, n int) string {
	if n == 1 {
		return singular
	}
	return plural
}

// warnf prints a styled warning line unless --quiet is set.
func warnf(format string, args ...interface{}) {
	if quietFlag {
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderWarn(ui.IconWarn), fmt.Sprintf(format, args...))
}

// fatalf prints an error and exits with the pre-flight code. It flushes
// telemetry first because os.Exit skips the persistent post-run hook.
func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", fmt.Sprintf(format, args...))
	flushTelemetry()
	os.Exit(2)
}
