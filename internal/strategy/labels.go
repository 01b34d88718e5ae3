package strategy

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ghvault/ghvault/internal/types"
)

// labelsStrategy handles repository labels. Labels are keyed by name, so
// numeric selections do not narrow them: anything but None means all.
type labelsStrategy struct {
	base
}

func newLabelsStrategy() labelsStrategy {
	return labelsStrategy{base{name: types.EntityLabels}}
}

func (labelsStrategy) Transform(records []RawRecord, _ *Snapshot) ([]RawRecord, error) {
	labels := make([]types.Label, 0, len(records))
	for _, rec := range records {
		var l types.Label
		if err := json.Unmarshal(rec, &l); err != nil {
			return nil, fmt.Errorf("decode label: %w", err)
		}
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })

	out := make([]RawRecord, 0, len(labels))
	for _, l := range labels {
		rec, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("encode label %q: %w", l.Name, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (labelsStrategy) TransformForCreation(records []RawRecord, _ *Snapshot) ([]CreateRequest, int, error) {
	reqs := make([]CreateRequest, 0, len(records))
	for _, rec := range records {
		var l types.Label
		if err := json.Unmarshal(rec, &l); err != nil {
			return nil, 0, fmt.Errorf("decode label: %w", err)
		}
		payload, err := json.Marshal(types.LabelCreate{
			Name:        l.Name,
			Color:       l.Color,
			Description: l.Description,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("encode label create %q: %w", l.Name, err)
		}
		reqs = append(reqs, CreateRequest{Payload: payload})
	}
	return reqs, 0, nil
}
