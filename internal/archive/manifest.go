// Package archive persists entity records as JSONL files in an archive
// directory, one file per entity plus a manifest describing the run.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestFilename is the fixed name of the run manifest inside an archive
// directory.
const ManifestFilename = "manifest.json"

// EntityStat records what a save run captured for one entity.
type EntityStat struct {
	Records int `json:"records"`
}

// Manifest describes an archive: where it came from, when, and what it
// holds. Written after a successful save; read back before restore.
type Manifest struct {
	Repository  string                `json:"repository"`
	CreatedAt   time.Time             `json:"created_at"`
	ToolVersion string                `json:"tool_version,omitempty"`
	Entities    map[string]EntityStat `json:"entities"`
}

// NewManifest creates a manifest for the given owner/name repository.
func NewManifest(repository, toolVersion string) *Manifest {
	return &Manifest{
		Repository:  repository,
		CreatedAt:   time.Now().UTC(),
		ToolVersion: toolVersion,
		Entities:    make(map[string]EntityStat),
	}
}

// WriteManifest writes the manifest into dir atomically.
func WriteManifest(dir string, manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, ManifestFilename), data)
}

// ReadManifest loads the manifest from dir. A missing manifest is an error:
// the directory is not an archive.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no manifest in %s: not an archive directory", dir)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// writeFileAtomic writes data to path via a temp file in the same directory,
// renames it into place, and tightens permissions to 0600.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tempFile, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		_ = tempFile.Close()    // Best effort: may already be closed before rename
		_ = os.Remove(tempPath) // Best effort: cleanup temp file; may already be renamed
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Close before rename (required on Windows; double-close in defer is harmless)
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", base, err)
	}

	if err := os.Chmod(path, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to set permissions on %s: %v\n", base, err)
	}
	return nil
}
