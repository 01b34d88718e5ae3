package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ghvault/ghvault/internal/strategy"
)

// Writer persists entity records into an archive directory, one JSONL file
// per entity. It is the save-side data sink. Each entity file is replaced
// wholesale, so re-running a save against an unchanged source produces an
// identical archive. Safe for concurrent use.
type Writer struct {
	dir string

	mu    sync.Mutex
	stats map[string]EntityStat
}

// NewWriter returns a Writer rooted at dir, creating the directory if
// needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &Writer{dir: dir, stats: make(map[string]EntityStat)}, nil
}

// entityPath returns the JSONL file path for an entity.
func entityPath(dir, entity string) string {
	return filepath.Join(dir, entity+".jsonl")
}

// Write persists the records as <entity>.jsonl, one JSON object per line.
// An empty batch still writes the file so restore can tell "saved, nothing
// there" from "never saved".
func (w *Writer) Write(ctx context.Context, entity string, records []strategy.RawRecord) (strategy.PersistOutcome, error) {
	if err := ctx.Err(); err != nil {
		return strategy.PersistOutcome{Processed: len(records)}, err
	}

	var buf bytes.Buffer
	for _, rec := range records {
		buf.Write(bytes.TrimSpace(rec))
		buf.WriteByte('\n')
	}
	if err := writeFileAtomic(entityPath(w.dir, entity), buf.Bytes()); err != nil {
		return strategy.PersistOutcome{Processed: len(records)}, err
	}

	w.mu.Lock()
	w.stats[entity] = EntityStat{Records: len(records)}
	w.mu.Unlock()

	return strategy.PersistOutcome{
		Processed: len(records),
		Persisted: len(records),
		Message:   fmt.Sprintf("wrote %s", entity+".jsonl"),
	}, nil
}

// Create is not supported: archives are written, never created into.
func (w *Writer) Create(ctx context.Context, entity string, reqs []strategy.CreateRequest) ([]strategy.CreatedRecord, error) {
	return nil, fmt.Errorf("archive writer cannot create %s records: archives are save-only", entity)
}

// Finalize writes the manifest recording everything persisted so far.
func (w *Writer) Finalize(repository, toolVersion string) error {
	m := NewManifest(repository, toolVersion)
	w.mu.Lock()
	for entity, stat := range w.stats {
		m.Entities[entity] = stat
	}
	w.mu.Unlock()
	return WriteManifest(w.dir, m)
}
