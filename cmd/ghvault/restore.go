package main

import (
	"fmt"

	"github.com/spf13/cobra"
	ghvault "github.com/ghvault/ghvault"
	"github.com/ghvault/ghvault/internal/ui"
)

var (
	restoreInDir      string
	restoreEntities   string
	restoreSelects    []string
	restoreSelectFile string
	restoreDryRun     bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Recreate archived entities in a repository",
	Long: `Reads an archive directory and recreates its entities in the repository,
in dependency order. Identifiers are remapped as parents are created, so a
comment archived against issue #12 lands on whatever number the restored
issue received.

With --dry-run nothing is created; the run reports what would happen,
resolving parent references against the archived identifiers.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := buildOptions(restoreInDir, restoreEntities, restoreSelects, restoreSelectFile)
		if err != nil {
			fatalf("%v", err)
		}
		opts.DryRun = restoreDryRun
		if opts.Token == "" && !restoreDryRun {
			fatalf("no API token: pass --token or set GHVAULT_TOKEN / GITHUB_TOKEN")
		}

		if !quietFlag && !jsonOutput {
			verb := "restoring"
			if restoreDryRun {
				verb = "dry-run restoring"
			}
			fmt.Printf("%s %s %s %s\n", verb, opts.ArchiveDir,
				ui.RenderMuted("→"), ui.RenderAccent(opts.Owner+"/"+opts.Repo))
		}

		report, err := ghvault.RunRestore(rootCtx, opts)
		if err != nil {
			fatalf("%v", err)
		}
		exitCode = renderReport("restore", report)
	},
}

func init() {
	restoreCmd.Flags().StringVar(&restoreInDir, "in", "", "Archive directory to read (default: .ghvault.json setting)")
	restoreCmd.Flags().StringVar(&restoreEntities, "entities", "", "Comma-separated entities to restore (default: all)")
	restoreCmd.Flags().StringArrayVar(&restoreSelects, "select", nil, `Per-entity selection, e.g. "issues=1-5 10" (repeatable)`)
	restoreCmd.Flags().StringVar(&restoreSelectFile, "select-file", "", "YAML file mapping entities to selection expressions")
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "Load and transform without creating anything")
	rootCmd.AddCommand(restoreCmd)
}
