package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LineID identifies a physical assembly line.
type LineID string

// StageCapability describes how well a line performs a given stage.
type StageCapability struct {
	Enabled    bool
	Efficiency decimal.Decimal // in [0.1, 1.5]
}

// Line is a physical assembly path supporting one or more stages.
type Line struct {
	ID              LineID
	Name            string
	Active          bool
	MaxFeederSlots  int
	StageCapability map[StageID]StageCapability
}

// NewLine creates a validated Line.
func NewLine(id LineID, name string, active bool, maxFeederSlots int) (*Line, error) {
	if id == "" {
		return nil, fmt.Errorf("line id cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("line name cannot be empty")
	}
	if maxFeederSlots < 0 {
		return nil, fmt.Errorf("max feeder slots cannot be negative, got %d", maxFeederSlots)
	}
	return &Line{
		ID:              id,
		Name:            name,
		Active:          active,
		MaxFeederSlots:  maxFeederSlots,
		StageCapability: make(map[StageID]StageCapability),
	}, nil
}

var (
	minEfficiency = decimal.NewFromFloat(0.1)
	maxEfficiency = decimal.NewFromFloat(1.5)
)

// SetCapability enables stage s on this line with the given efficiency.
func (l *Line) SetCapability(s StageID, efficiency decimal.Decimal) error {
	if efficiency.LessThan(minEfficiency) || efficiency.GreaterThan(maxEfficiency) {
		return fmt.Errorf("efficiency %s for stage %d out of range [0.1, 1.5]", efficiency, s)
	}
	l.StageCapability[s] = StageCapability{Enabled: true, Efficiency: efficiency}
	return nil
}

// Supports reports whether the line is active and has an enabled capability
// entry for the given stage.
func (l *Line) Supports(s StageID) bool {
	if !l.Active {
		return false
	}
	capability, ok := l.StageCapability[s]
	return ok && capability.Enabled
}

// EfficiencyAt returns the line's efficiency at stage s, or an error if the
// stage is not supported.
func (l *Line) EfficiencyAt(s StageID) (decimal.Decimal, error) {
	if !l.Supports(s) {
		return decimal.Zero, fmt.Errorf("line %s does not support stage %d", l.ID, s)
	}
	return l.StageCapability[s].Efficiency, nil
}
