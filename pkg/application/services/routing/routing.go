// Package routing resolves a product's routing (configured or a
// synthesized default) and computes effective lead times and per-line
// processing durations from it.
package routing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
	"github.com/solderline/smt-scheduler/pkg/domain/repositories"
)

// Service resolves routings and derives processing times from them.
type Service struct {
	products repositories.ProductRepository
	stages   repositories.StageRepository
	lines    repositories.LineRepository
}

// New builds a routing service over the given repositories.
func New(products repositories.ProductRepository, stages repositories.StageRepository, lines repositories.LineRepository) *Service {
	return &Service{products: products, stages: stages, lines: lines}
}

// RoutingFor returns the product's configured routing, or a synthesized
// default traversing every stage in declared order when none is
// configured.
func (s *Service) RoutingFor(product *entities.Product) (*entities.Routing, error) {
	r, err := s.products.GetRouting(product.ID)
	if err == nil {
		return r, nil
	}
	allStages, sErr := s.stages.GetAllStages()
	if sErr != nil {
		return nil, fmt.Errorf("failed to load stage catalog for default routing: %w", sErr)
	}
	if len(allStages) == 0 {
		return nil, fmt.Errorf("no routing configured for product %s and no stages exist to synthesize a default", product.ID)
	}
	return entities.DefaultRouting(product.ID, allStages, decimal.NewFromInt(1)), nil
}

// EffectiveLeadTime computes the per-unit lead time for (routing, stage),
// applying the per-stage override in place of the routing's base lead
// time when one is configured.
func EffectiveLeadTime(r *entities.Routing, step entities.RoutingStep) decimal.Decimal {
	base := r.BaseLeadTimePerUnit
	if override, ok := r.LeadTimeOverride[step.StageID]; ok {
		base = override
	}
	return base.Mul(r.ComplexityFactor).Mul(step.Multiplier).Add(decimal.NewFromInt(int64(step.FixedMinutes)))
}

// ProcessingMinutes computes ceil(effective_leadtime * quantity /
// line_efficiency) for (routing, stage, quantity, line).
// It returns an error if the line is not a candidate for this step: it
// does not support the stage, or the step's allowed-line filter excludes
// it.
func (s *Service) ProcessingMinutes(r *entities.Routing, step entities.RoutingStep, quantity int, line *entities.Line) (int, error) {
	if !step.AllowsLine(line.ID) {
		return 0, fmt.Errorf("line %s is excluded by the allowed-line filter for stage %d", line.ID, step.StageID)
	}
	efficiency, err := line.EfficiencyAt(step.StageID)
	if err != nil {
		return 0, fmt.Errorf("line %s does not support stage %d: %w", line.ID, step.StageID, err)
	}

	leadTime := EffectiveLeadTime(r, step)
	numerator := leadTime.Mul(decimal.NewFromInt(int64(quantity)))
	minutes := numerator.Div(efficiency)
	ceiled := minutes.Ceil()
	return int(ceiled.IntPart()), nil
}

// CandidateLines returns every active line from the fleet that is both
// capable of the step's stage and permitted by the step's allowed-line
// filter.
func (s *Service) CandidateLines(step entities.RoutingStep) ([]*entities.Line, error) {
	active, err := s.lines.GetActiveLines()
	if err != nil {
		return nil, fmt.Errorf("failed to load active lines: %w", err)
	}
	var candidates []*entities.Line
	for _, l := range active {
		if l.Supports(step.StageID) && step.AllowsLine(l.ID) {
			candidates = append(candidates, l)
		}
	}
	return candidates, nil
}

// MinProcessingMinutes returns the smallest processing time across every
// candidate line for (routing, stage, quantity), used by the model
// builder's horizon calculation. It returns false if no candidate line
// exists.
func (s *Service) MinProcessingMinutes(r *entities.Routing, step entities.RoutingStep, quantity int) (int, bool, error) {
	candidates, err := s.CandidateLines(step)
	if err != nil {
		return 0, false, err
	}
	if len(candidates) == 0 {
		return 0, false, nil
	}
	best := math.MaxInt
	for _, l := range candidates {
		m, err := s.ProcessingMinutes(r, step, quantity, l)
		if err != nil {
			continue
		}
		if m < best {
			best = m
		}
	}
	if best == math.MaxInt {
		return 0, false, nil
	}
	return best, true, nil
}
