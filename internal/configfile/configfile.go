// Package configfile loads and saves the per-directory .ghvault.json file,
// which pins defaults (repository, archive directory) so repeated runs in a
// project directory do not need the full flag set.
package configfile

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const ConfigFileName = ".ghvault.json"

// DefaultArchiveDir is used when neither config nor flags name one.
const DefaultArchiveDir = "ghvault-archive"

type Config struct {
	// Repository is the default owner/name target.
	Repository string `json:"repository,omitempty"`
	// ArchiveDir is where save writes and restore reads by default.
	ArchiveDir string `json:"archive_dir,omitempty"`
	// Entities is a comma-separated default entity list ("" means all).
	Entities string `json:"entities,omitempty"`
	// Concurrency caps parallel entities per wave (0 means built-in default).
	Concurrency int `json:"concurrency,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		ArchiveDir: DefaultArchiveDir,
	}
}

func ConfigPath(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

// Load reads the config from dir. A missing file yields (nil, nil).
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(dir)) // #nosec G304 - controlled path from config
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Save(dir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(dir), data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// GetRepository returns the configured owner/name, or auto-detects it from
// the git remote of the current directory. Empty when neither is available.
func (c *Config) GetRepository() string {
	if c != nil && c.Repository != "" {
		return c.Repository
	}
	return detectRepoFromGitRemote()
}

// GetArchiveDir returns the configured archive directory or the default.
func (c *Config) GetArchiveDir() string {
	if c != nil && c.ArchiveDir != "" {
		return c.ArchiveDir
	}
	return DefaultArchiveDir
}

// GetEntities returns the configured default entity list ("" means all).
func (c *Config) GetEntities() string {
	if c == nil {
		return ""
	}
	return c.Entities
}

// GetConcurrency returns the configured concurrency cap, 0 when unset.
func (c *Config) GetConcurrency() int {
	if c == nil || c.Concurrency < 0 {
		return 0
	}
	return c.Concurrency
}

// detectRepoFromGitRemote extracts "owner/name" from the origin remote URL.
// Returns empty string if git is not available or remote is not configured.
func detectRepoFromGitRemote() string {
	cmd := exec.Command("git", "config", "--get", "remote.origin.url")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}

	url := strings.TrimSpace(string(output))
	if url == "" {
		return ""
	}
	url = strings.TrimSuffix(url, ".git")

	// SSH URLs (git@github.com:owner/repo)
	if at := strings.Index(url, "@"); at >= 0 && !strings.Contains(url, "://") {
		if colon := strings.Index(url, ":"); colon > at {
			url = url[colon+1:]
		}
	}

	// HTTPS URLs (https://github.com/owner/repo)
	if idx := strings.Index(url, "://"); idx >= 0 {
		url = url[idx+3:]
		if slash := strings.Index(url, "/"); slash >= 0 {
			url = url[slash+1:]
		}
	}

	parts := strings.Split(strings.Trim(url, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	owner := parts[len(parts)-2]
	name := parts[len(parts)-1]
	if owner == "" || name == "" {
		return ""
	}
	return owner + "/" + name
}
