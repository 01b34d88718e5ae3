package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ghvault/ghvault/internal/selection"
	"github.com/ghvault/ghvault/internal/strategy"
)

// maxLineSize bounds a single JSONL record. Issue bodies can be large but
// not megabytes large; anything past this is a corrupt file.
const maxLineSize = 10 * 1024 * 1024

// Reader loads entity records from an archive directory. It is the
// restore-side data source.
type Reader struct {
	dir string
}

// NewReader returns a Reader over dir. The manifest is validated so a typo'd
// path fails before any entity work starts.
func NewReader(dir string) (*Reader, error) {
	if _, err := ReadManifest(dir); err != nil {
		return nil, err
	}
	return &Reader{dir: dir}, nil
}

// Manifest re-reads the archive manifest.
func (r *Reader) Manifest() (*Manifest, error) {
	return ReadManifest(r.dir)
}

// Fetch reads every record of <entity>.jsonl. Blank lines are skipped; a
// line that is not a JSON object fails the entity. A missing file means the
// entity was never saved and yields no records.
func (r *Reader) Fetch(ctx context.Context, entity string, sel selection.Selection) ([]strategy.RawRecord, error) {
	f, err := os.Open(entityPath(r.dir, entity))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s archive: %w", entity, err)
	}
	defer f.Close()

	var records []strategy.RawRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return nil, fmt.Errorf("%s archive line %d: malformed JSON", entity, lineNo)
		}
		rec := make(strategy.RawRecord, len(line))
		copy(rec, line)
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s archive: %w", entity, err)
	}
	return records, nil
}
