package strategy

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ghvault/ghvault/internal/types"
)

// milestonesStrategy handles milestones, keyed by milestone number. The
// create step's remap (old number → new number) feeds the milestone
// references of issues and pull requests.
type milestonesStrategy struct {
	base
}

func newMilestonesStrategy() milestonesStrategy {
	return milestonesStrategy{base{name: types.EntityMilestones, key: numberKey}}
}

func (milestonesStrategy) Transform(records []RawRecord, _ *Snapshot) ([]RawRecord, error) {
	milestones := make([]types.Milestone, 0, len(records))
	for _, rec := range records {
		var m types.Milestone
		if err := json.Unmarshal(rec, &m); err != nil {
			return nil, fmt.Errorf("decode milestone: %w", err)
		}
		milestones = append(milestones, m)
	}
	sort.Slice(milestones, func(i, j int) bool { return milestones[i].Number < milestones[j].Number })

	out := make([]RawRecord, 0, len(milestones))
	for _, m := range milestones {
		rec, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("encode milestone #%d: %w", m.Number, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (milestonesStrategy) TransformForCreation(records []RawRecord, _ *Snapshot) ([]CreateRequest, int, error) {
	reqs := make([]CreateRequest, 0, len(records))
	for _, rec := range records {
		var m types.Milestone
		if err := json.Unmarshal(rec, &m); err != nil {
			return nil, 0, fmt.Errorf("decode milestone: %w", err)
		}
		payload, err := json.Marshal(types.MilestoneCreate{
			Title:       m.Title,
			State:       m.State,
			Description: m.Description,
			DueOn:       m.DueOn,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("encode milestone create #%d: %w", m.Number, err)
		}
		reqs = append(reqs, CreateRequest{OldID: m.Number, Payload: payload})
	}
	return reqs, 0, nil
}
