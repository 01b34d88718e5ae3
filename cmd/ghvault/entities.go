package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ghvault/ghvault/internal/resolver"
	"github.com/ghvault/ghvault/internal/strategy"
	"github.com/ghvault/ghvault/internal/types"
	"github.com/ghvault/ghvault/internal/ui"
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List entities, their dependencies, and processing order",
	Run: func(cmd *cobra.Command, args []string) {
		reg := strategy.Defaults()
		waves, err := resolver.Waves(reg.DependencyMap(), types.AllEntities())
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			type entityInfo struct {
				Name         string   `json:"name"`
				Dependencies []string `json:"dependencies,omitempty"`
				CoupledTo    string   `json:"coupled_to,omitempty"`
			}
			var infos []entityInfo
			for _, name := range reg.Names() {
				strat, _ := reg.Get(name)
				infos = append(infos, entityInfo{
					Name:         name,
					Dependencies: strat.Dependencies(),
					CoupledTo:    strat.CoupledTo(),
				})
			}
			outputJSON(map[string]interface{}{
				"entities": infos,
				"waves":    waves,
			})
			return
		}

		fmt.Println(ui.RenderCategory("entities"))
		for _, name := range reg.Names() {
			strat, _ := reg.Get(name)
			line := "  " + name
			if deps := strat.Dependencies(); len(deps) > 0 {
				line += ui.RenderMuted("  needs " + strings.Join(deps, ", "))
			}
			if parent := strat.CoupledTo(); parent != "" {
				line += ui.RenderMuted("  (selection follows " + parent + ")")
			}
			fmt.Println(line)
		}

		fmt.Println()
		fmt.Println(ui.RenderCategory("processing order"))
		for i, wave := range waves {
			fmt.Printf("  %d. %s\n", i+1, strings.Join(wave, ", "))
		}
	},
}

func init() {
	rootCmd.AddCommand(entitiesCmd)
}
