// Package config wires viper for ghvault: flag defaults, GHVAULT_* env
// overrides, and the token fallback chain. Values here are process-wide
// startup settings; per-directory defaults live in the .ghvault.json file
// handled by internal/configfile.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// v is the package viper instance. Re-created on every Initialize so tests
// can reset state.
var v *viper.Viper

// Initialize sets defaults and binds GHVAULT_* environment variables.
// GHVAULT_CONCURRENCY=8 maps to key "concurrency", GHVAULT_ARCHIVE_DIR to
// "archive-dir", and so on.
func Initialize() error {
	nv := viper.New()

	nv.SetDefault("json", false)
	nv.SetDefault("verbose", false)
	nv.SetDefault("quiet", false)
	nv.SetDefault("token", "")
	nv.SetDefault("repo", "")
	nv.SetDefault("api-url", "")
	nv.SetDefault("archive-dir", "")
	nv.SetDefault("entities", "")
	nv.SetDefault("concurrency", 0)
	nv.SetDefault("http-timeout", 30*time.Second)

	nv.SetEnvPrefix("GHVAULT")
	nv.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	nv.AutomaticEnv()

	v = nv
	return nil
}

// BindPFlag ties a CLI flag to a config key so flag values take priority
// over environment and defaults.
func BindPFlag(key string, flag *pflag.Flag) error {
	ensureInitialized()
	return v.BindPFlag(key, flag)
}

func ensureInitialized() {
	if v == nil {
		_ = Initialize()
	}
}

func GetString(key string) string {
	ensureInitialized()
	return v.GetString(key)
}

func GetBool(key string) bool {
	ensureInitialized()
	return v.GetBool(key)
}

func GetInt(key string) int {
	ensureInitialized()
	return v.GetInt(key)
}

func GetDuration(key string) time.Duration {
	ensureInitialized()
	return v.GetDuration(key)
}

// GetToken resolves the API token: --token flag / GHVAULT_TOKEN first, then
// the conventional GITHUB_TOKEN and GH_TOKEN variables.
func GetToken() string {
	if t := GetString("token"); t != "" {
		return t
	}
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t
	}
	return os.Getenv("GH_TOKEN")
}
