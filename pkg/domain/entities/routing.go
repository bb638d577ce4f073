package entities

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// RoutingStep is one stop of a product's routing.
type RoutingStep struct {
	StageID      StageID
	Sequence     int // strictly increasing within a routing
	AllowedLines []LineID // empty = no filter, any capable line is a candidate
	Multiplier   decimal.Decimal
	FixedMinutes int
}

// AllowsLine reports whether l passes this step's allowed-line filter.
func (s RoutingStep) AllowsLine(l LineID) bool {
	if len(s.AllowedLines) == 0 {
		return true
	}
	for _, allowed := range s.AllowedLines {
		if allowed == l {
			return true
		}
	}
	return false
}

// Routing is the ordered sequence of stages a product must traverse.
type Routing struct {
	ProductID          string
	Steps              []RoutingStep // ordered by Sequence
	BaseLeadTimePerUnit decimal.Decimal // minutes/unit
	ComplexityFactor    decimal.Decimal
	LeadTimeOverride    map[StageID]decimal.Decimal // per-stage base_leadtime override
}

// NewRouting validates and constructs a Routing. Steps must already be
// ordered by Sequence; sequence numbers must be strictly increasing and
// every referenced stage id must exist in knownStages.
func NewRouting(productID string, steps []RoutingStep, baseLeadTime, complexity decimal.Decimal, knownStages map[StageID]*Stage) (*Routing, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("routing for %s must have at least one step", productID)
	}
	for i, st := range steps {
		if _, ok := knownStages[st.StageID]; !ok {
			return nil, fmt.Errorf("routing for %s references unknown stage id %d", productID, st.StageID)
		}
		if i > 0 && st.Sequence <= steps[i-1].Sequence {
			return nil, fmt.Errorf("routing for %s: sequence numbers must be strictly increasing, got %d after %d",
				productID, st.Sequence, steps[i-1].Sequence)
		}
	}
	return &Routing{
		ProductID:           productID,
		Steps:               steps,
		BaseLeadTimePerUnit: baseLeadTime,
		ComplexityFactor:    complexity,
		LeadTimeOverride:    map[StageID]decimal.Decimal{},
	}, nil
}

// StepAt returns the routing step for stage s, if present.
func (r *Routing) StepAt(s StageID) (RoutingStep, bool) {
	for _, st := range r.Steps {
		if st.StageID == s {
			return st, true
		}
	}
	return RoutingStep{}, false
}

// NextStep returns the step immediately following stage s in routing order,
// if s is not the last step.
func (r *Routing) NextStep(s StageID) (RoutingStep, bool) {
	for i, st := range r.Steps {
		if st.StageID == s && i+1 < len(r.Steps) {
			return r.Steps[i+1], true
		}
	}
	return RoutingStep{}, false
}

// LastStage returns the final stage of this routing.
func (r *Routing) LastStage() StageID {
	return r.Steps[len(r.Steps)-1].StageID
}

// DefaultRouting synthesizes a routing that traverses every stage in its
// declared order with a uniform base lead time and no step overrides, for
// products with no configured routing.
func DefaultRouting(productID string, stages []*Stage, baseLeadTime decimal.Decimal) *Routing {
	sorted := make([]*Stage, len(stages))
	copy(sorted, stages)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	steps := make([]RoutingStep, len(sorted))
	for i, s := range sorted {
		steps[i] = RoutingStep{
			StageID:    s.ID,
			Sequence:   s.Order,
			Multiplier: decimal.NewFromInt(1),
		}
	}
	return &Routing{
		ProductID:           productID,
		Steps:               steps,
		BaseLeadTimePerUnit: baseLeadTime,
		ComplexityFactor:    decimal.NewFromInt(1),
		LeadTimeOverride:    map[StageID]decimal.Decimal{},
	}
}
