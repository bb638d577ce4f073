package entities

import (
	"fmt"
	"sort"
)

// StageID identifies a production stage (e.g. Solder Paste, Pick & Place, Reflow, AOI).
type StageID int

// Stage is a single production step shared by every line that supports it.
type Stage struct {
	ID      StageID
	Name    string
	Order   int // presentation / routing-default order, strictly increasing across the set
}

// NewStage creates a validated Stage.
func NewStage(id StageID, name string, order int) (*Stage, error) {
	if name == "" {
		return nil, fmt.Errorf("stage name cannot be empty")
	}
	return &Stage{ID: id, Name: name, Order: order}, nil
}

// ValidateStages checks that ids are unique and that order is strictly
// monotone across the full set. Stages need not be passed in Order
// sequence; this sorts a local copy before checking monotonicity.
func ValidateStages(stages []*Stage) error {
	seen := make(map[StageID]bool, len(stages))
	ordered := make([]*Stage, len(stages))
	copy(ordered, stages)
	for _, s := range ordered {
		if seen[s.ID] {
			return fmt.Errorf("duplicate stage id %d", s.ID)
		}
		seen[s.ID] = true
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Order <= ordered[i-1].Order {
			return fmt.Errorf("stage order must be strictly increasing: stage %d (order %d) does not exceed stage %d (order %d)",
				ordered[i].ID, ordered[i].Order, ordered[i-1].ID, ordered[i-1].Order)
		}
	}
	return nil
}
