package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	ghvault "github.com/ghvault/ghvault"
	"github.com/ghvault/ghvault/internal/config"
	"github.com/ghvault/ghvault/internal/configfile"
	"github.com/ghvault/ghvault/internal/strategy"
	"github.com/ghvault/ghvault/internal/types"
	"github.com/ghvault/ghvault/internal/ui"
)

var (
	saveOutDir     string
	saveEntities   string
	saveSelects    []string
	saveSelectFile string
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Back up repository entities into an archive directory",
	Long: `Fetches the selected entities from the repository and writes them as JSONL
files plus a manifest. Entities are processed in dependency order; a failing
entity is reported without aborting unrelated work.

Selections filter by identifier, e.g. --select "issues=1-5 10". Entities
whose selection follows a parent (comments follow issues) are narrowed
automatically.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := buildOptions(saveOutDir, saveEntities, saveSelects, saveSelectFile)
		if err != nil {
			fatalf("%v", err)
		}
		if opts.Token == "" {
			fatalf("no API token: pass --token or set GHVAULT_TOKEN / GITHUB_TOKEN")
		}

		if !quietFlag && !jsonOutput {
			fmt.Printf("saving %s %s %s\n",
				ui.RenderAccent(opts.Owner+"/"+opts.Repo),
				ui.RenderMuted("→"), opts.ArchiveDir)
		}

		report, err := ghvault.RunSave(rootCtx, opts)
		if err != nil {
			fatalf("%v", err)
		}
		exitCode = renderReport("save", report)
	},
}

func init() {
	saveCmd.Flags().StringVar(&saveOutDir, "out", "", "Archive directory to write (default: .ghvault.json, then "+configfile.DefaultArchiveDir+")")
	saveCmd.Flags().StringVar(&saveEntities, "entities", "", "Comma-separated entities to save (default: all)")
	saveCmd.Flags().StringArrayVar(&saveSelects, "select", nil, `Per-entity selection, e.g. "issues=1-5 10" (repeatable)`)
	saveCmd.Flags().StringVar(&saveSelectFile, "select-file", "", "YAML file mapping entities to selection expressions")
	rootCmd.AddCommand(saveCmd)
}

// buildOptions resolves the layered configuration for save and restore:
// flags beat GHVAULT_* env, which beats .ghvault.json, which beats
// auto-detection.
func buildOptions(dirFlag, entitiesFlag string, selects []string, selectFile string) (ghvault.Options, error) {
	fileCfg, err := configfile.Load(".")
	if err != nil {
		return ghvault.Options{}, err
	}

	repo := config.GetString("repo")
	if repo == "" {
		repo = fileCfg.GetRepository()
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return ghvault.Options{}, fmt.Errorf("no repository: pass --repo owner/name or set it in %s", configfile.ConfigFileName)
	}

	dir := dirFlag
	if dir == "" {
		dir = config.GetString("archive-dir")
	}
	if dir == "" {
		dir = fileCfg.GetArchiveDir()
	}

	entityList := entitiesFlag
	if entityList == "" {
		entityList = config.GetString("entities")
	}
	if entityList == "" {
		entityList = fileCfg.GetEntities()
	}
	entities, err := types.ParseEntityList(entityList)
	if err != nil {
		return ghvault.Options{}, err
	}

	selections, err := parseSelectionFlags(selects, selectFile)
	if err != nil {
		return ghvault.Options{}, err
	}

	conc := config.GetInt("concurrency")
	if conc == 0 {
		conc = fileCfg.GetConcurrency()
	}

	opts := ghvault.Options{
		Owner:       owner,
		Repo:        name,
		Token:       config.GetToken(),
		BaseURL:     config.GetString("api-url"),
		ArchiveDir:  dir,
		Entities:    entities,
		Selections:  selections,
		Concurrency: conc,
		HTTPTimeout: config.GetDuration("http-timeout"),
		ToolVersion: Version,
		Warnf:       warnf,
	}
	if verboseFlag && !jsonOutput {
		opts.OnResult = func(wave int, res strategy.Result) {
			fmt.Printf("  wave %d: %s\n", wave+1, renderResultLine(res))
		}
	}
	return opts, nil
}
