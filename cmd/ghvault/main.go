package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ghvault/ghvault/internal/config"
	"github.com/ghvault/ghvault/internal/telemetry"
)

var (
	// Persistent flag targets
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool
	tokenFlag   string
	repoFlag    string
	apiURLFlag  string
	concurrency int

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc

	// exitCode is set by commands instead of calling os.Exit directly, so
	// the persistent post-run hooks (telemetry flush) still fire. main
	// exits with it after Execute returns.
	exitCode int
)

func init() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "GitHub API token (default: $GHVAULT_TOKEN, $GITHUB_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Repository as owner/name (default: .ghvault.json, git remote)")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "GitHub API base URL for GHE (default: api.github.com)")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "Max entities processed in parallel per wave")

	for _, key := range []string{"json", "verbose", "quiet", "token", "repo", "api-url", "concurrency"} {
		if err := config.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind --%s: %v\n", key, err)
		}
	}

	// Add --version flag to root command (same behavior as version subcommand)
	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

var rootCmd = &cobra.Command{
	Use:   "ghvault",
	Short: "ghvault - GitHub repository backup and restore",
	Long: `Saves a repository's issues, pull requests, comments, reviews, labels and
milestones into a portable archive, and restores them in dependency order
with identifier remapping.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("ghvault version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help() // Help() always returns nil for cobra commands
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupSignalContext()
		if err := telemetry.Init(rootCtx, "ghvault", Version); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: telemetry init failed: %v\n", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		flushTelemetry()

		if rootCancel != nil {
			rootCancel()
		}
	},
}

// flushTelemetry drains buffered spans and metrics. Shutdown is idempotent,
// so calling it again from the post-run hook after an early exit is safe.
func flushTelemetry() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	telemetry.Shutdown(shutdownCtx)
	cancel()
}

// setupSignalContext creates a context that cancels on SIGINT/SIGTERM so an
// in-flight wave finishes and later waves are skipped.
func setupSignalContext() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
