package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseSelectionFlags merges repeated --select "entity=expr" flags with an
// optional --select-file YAML document (a flat entity: expression map).
// Flags win over the file when both name an entity.
func parseSelectionFlags(selects []string, selectFile string) (map[string]string, error) {
	out := make(map[string]string)

	if selectFile != "" {
		data, err := os.ReadFile(selectFile) // #nosec G304 - user-supplied path
		if err != nil {
			return nil, fmt.Errorf("reading selection file: %w", err)
		}
		var fromFile map[string]string
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("parsing selection file: %w", err)
		}
		for entity, expr := range fromFile {
			out[entity] = expr
		}
	}

	for _, s := range selects {
		entity, expr, ok := strings.Cut(s, "=")
		entity = strings.TrimSpace(entity)
		if !ok || entity == "" {
			return nil, fmt.Errorf("invalid --select %q: expected entity=expression", s)
		}
		out[entity] = strings.TrimSpace(expr)
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
