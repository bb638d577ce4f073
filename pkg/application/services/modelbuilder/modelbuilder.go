// Package modelbuilder is the core of the core: it turns planned work
// units into a CP-SAT constraint model (integer time variables, optional
// line-assignment Booleans, no-overlap per line, inter-stage precedence
// with transfer delays, and the lot-split batch-ordering and pipeline
// rules) and hands the finished model to pkg/infrastructure/solver.
//
// Construction happens in several passes over the work units rather than
// one single loop: first a horizon estimate, then per-(unit,stage)
// variables, then the cross-cutting constraints that relate them.
package modelbuilder

import (
	"fmt"
	"sort"

	cpmodel "github.com/google/or-tools/ortools/sat/go/cpmodel"

	"github.com/solderline/smt-scheduler/pkg/application/services/routing"
	"github.com/solderline/smt-scheduler/pkg/domain/entities"
)

// UnitContext pairs a planned work unit with the product/routing it
// belongs to and its calendar-converted release/due window.
type UnitContext struct {
	Unit           entities.WorkUnit
	Product        *entities.Product
	Routing        *entities.Routing
	ReleaseMinutes int
	DueMinutes     int
}

// lineCandidate is one (work unit, stage, line) triple's variables.
type lineCandidate struct {
	line              *entities.Line
	start             cpmodel.IntVar
	end               cpmodel.IntVar
	assigned          cpmodel.BoolVar
	processingMinutes int
}

// unitStage is the per-(unit, stage) aggregate: one stage-end variable
// shared by every candidate line.
type unitStage struct {
	unit       entities.WorkUnit
	product    string
	stage      entities.StageID
	batch      int
	minGap     int
	stageEnd   cpmodel.IntVar
	candidates []lineCandidate
}

// Result is everything the decoder needs to read assigned variables back
// out of a solved model.
type Result struct {
	Horizon    int
	Makespan   cpmodel.IntVar
	unitStages []*unitStage
}

// UnitStages exposes the per-(unit,stage) variable groups for the
// decoder, without leaking the unexported type itself.
func (r *Result) UnitStages() []*UnitStageView {
	out := make([]*UnitStageView, 0, len(r.unitStages))
	for _, us := range r.unitStages {
		candidates := make([]LineCandidateView, 0, len(us.candidates))
		for _, c := range us.candidates {
			candidates = append(candidates, LineCandidateView{
				Line:              c.line,
				Start:             c.start,
				End:               c.end,
				Assigned:          c.assigned,
				ProcessingMinutes: c.processingMinutes,
			})
		}
		out = append(out, &UnitStageView{
			Unit:       us.unit,
			Stage:      us.stage,
			Batch:      us.batch,
			StageEnd:   us.stageEnd,
			Candidates: candidates,
		})
	}
	return out
}

// UnitStageView and LineCandidateView are the decoder-facing read-only
// projections of the builder's internal variable bookkeeping.
type UnitStageView struct {
	Unit       entities.WorkUnit
	Stage      entities.StageID
	Batch      int
	StageEnd   cpmodel.IntVar
	Candidates []LineCandidateView
}

type LineCandidateView struct {
	Line              *entities.Line
	Start             cpmodel.IntVar
	End               cpmodel.IntVar
	Assigned          cpmodel.BoolVar
	ProcessingMinutes int
}

// Builder assembles the constraint model for one solve call.
type Builder struct {
	routingSvc    *routing.Service
	stageTransfer *entities.StageTransferMatrix
	lineTransfer  *entities.LineTransferMatrix
	flags         entities.FeatureFlags
}

// New builds a model builder over the given transfer matrices and
// feature flags.
func New(routingSvc *routing.Service, stageTransfer *entities.StageTransferMatrix, lineTransfer *entities.LineTransferMatrix, flags entities.FeatureFlags) *Builder {
	return &Builder{routingSvc: routingSvc, stageTransfer: stageTransfer, lineTransfer: lineTransfer, flags: flags}
}

func stagesFor(uc UnitContext) []entities.StageID {
	if stageID, ok := uc.Unit.Stage(); ok {
		return []entities.StageID{stageID}
	}
	stages := make([]entities.StageID, len(uc.Routing.Steps))
	for i, st := range uc.Routing.Steps {
		stages[i] = st.StageID
	}
	return stages
}

// Build constructs variables and constraints for every unit in units
// against cp, and returns a Result the caller should hold onto for
// decoding once the model has been solved.
func (b *Builder) Build(cp *cpmodel.Builder, units []UnitContext) (*Result, error) {
	horizon, err := b.computeHorizon(units)
	if err != nil {
		return nil, err
	}

	byUnitStage := map[string]*unitStage{}
	var ordered []*unitStage
	stageGroups := map[stageKey][]*unitStage{}
	allIntervalsByLine := map[entities.LineID][]cpmodel.IntervalVar{}

	for _, uc := range units {
		for _, stageID := range stagesFor(uc) {
			step, ok := uc.Routing.StepAt(stageID)
			if !ok {
				return nil, fmt.Errorf("product %s: routing has no step for stage %d", uc.Product.ID, stageID)
			}
			candidateLines, err := b.routingSvc.CandidateLines(step)
			if err != nil {
				return nil, fmt.Errorf("product %s stage %d: %w", uc.Product.ID, stageID, err)
			}
			if len(candidateLines) == 0 {
				return nil, &entities.StructuralInputError{Reasons: []entities.FailureReason{{
					Code:    "NO_CANDIDATE_LINE",
					Message: fmt.Sprintf("stage %d has no line that supports it for product %s", stageID, uc.Product.ID),
				}}}
			}

			stageEnd := cp.NewIntVar(0, int64(horizon))
			var candidates []lineCandidate
			for _, line := range candidateLines {
				procMinutes, err := b.routingSvc.ProcessingMinutes(uc.Routing, step, uc.Unit.Quantity(), line)
				if err != nil {
					continue
				}
				start := cp.NewIntVar(int64(uc.ReleaseMinutes), int64(horizon))
				end := cp.NewIntVar(0, int64(horizon))
				assigned := cp.NewBoolVar()
				interval := cp.NewOptionalIntervalVar(start, cp.NewConstant(int64(procMinutes)), end, assigned)

				cp.AddEquality(stageEnd, end).OnlyEnforceIf(assigned)

				allIntervalsByLine[line.ID] = append(allIntervalsByLine[line.ID], interval)
				candidates = append(candidates, lineCandidate{
					line:              line,
					start:             start,
					end:               end,
					assigned:          assigned,
					processingMinutes: procMinutes,
				})
			}
			if len(candidates) == 0 {
				return nil, &entities.StructuralInputError{Reasons: []entities.FailureReason{{
					Code:    "NO_CANDIDATE_LINE",
					Message: fmt.Sprintf("stage %d has no line with a computable processing time for product %s", stageID, uc.Product.ID),
				}}}
			}

			assignedVars := make([]cpmodel.BoolVar, len(candidates))
			for i, c := range candidates {
				assignedVars[i] = c.assigned
			}
			cp.AddExactlyOne(assignedVars...)

			cfgStage := stageID
			if _, isStageBatch := uc.Unit.Stage(); !isStageBatch {
				cfgStage = 0
			}
			us := &unitStage{
				unit:       uc.Unit,
				product:    uc.Product.ID,
				stage:      stageID,
				batch:      uc.Unit.BatchNumber(),
				minGap:     uc.Product.LotSplitFor(cfgStage).MinGapBetweenBatches,
				stageEnd:   stageEnd,
				candidates: candidates,
			}
			byUnitStage[unitStageKey(uc.Unit, stageID)] = us
			ordered = append(ordered, us)
			key := stageKey{product: uc.Product.ID, stage: stageID}
			stageGroups[key] = append(stageGroups[key], us)

			if b.flags.UseHardDeadlineConstraint && stageID == uc.Routing.LastStage() {
				cp.AddLessOrEqual(stageEnd, cp.NewConstant(int64(uc.DueMinutes)))
			}
		}
	}

	for _, intervals := range allIntervalsByLine {
		if len(intervals) > 1 {
			cp.AddNoOverlap(intervals...)
		}
	}

	if err := b.postInterStagePrecedence(cp, units, byUnitStage); err != nil {
		return nil, err
	}
	b.postBatchOrdering(cp, stageGroups)

	makespan := b.postObjective(cp, units, byUnitStage, horizon)

	return &Result{Horizon: horizon, Makespan: makespan, unitStages: ordered}, nil
}

type stageKey struct {
	product string
	stage   entities.StageID
}

func unitStageKey(u entities.WorkUnit, stage entities.StageID) string {
	return fmt.Sprintf("%s@%d", u.Key(), stage)
}

// postInterStagePrecedence posts inter-stage precedence for product-level
// mode, where the same work unit traverses consecutive routing steps, by
// walking each ProductBatch unit's own routing. Stage-level mode covers
// inter-stage ordering via the pipeline rule instead.
func (b *Builder) postInterStagePrecedence(cp *cpmodel.Builder, units []UnitContext, byUnitStage map[string]*unitStage) error {
	for _, uc := range units {
		if _, isStageBatch := uc.Unit.Stage(); isStageBatch {
			continue
		}
		for i := 1; i < len(uc.Routing.Steps); i++ {
			prevStage := uc.Routing.Steps[i-1].StageID
			nextStage := uc.Routing.Steps[i].StageID
			prev := byUnitStage[unitStageKey(uc.Unit, prevStage)]
			next := byUnitStage[unitStageKey(uc.Unit, nextStage)]
			if prev == nil || next == nil {
				return fmt.Errorf("missing stage variables for product %s between stages %d and %d", uc.Product.ID, prevStage, nextStage)
			}
			b.postTransferGatedPrecedence(cp, prev, next)
		}
	}
	return nil
}

// postTransferGatedPrecedence posts, for every (prev line, next line)
// pair, `next.start >= prev.stageEnd + stage_transfer + line_transfer`
// gated on both lines actually being chosen.
func (b *Builder) postTransferGatedPrecedence(cp *cpmodel.Builder, prev, next *unitStage) {
	stageTransfer := 0
	if b.flags.EnableStageTransferTime {
		stageTransfer = b.stageTransfer.Get(prev.stage, next.stage)
	}
	for _, pc := range prev.candidates {
		for _, nc := range next.candidates {
			lineTransfer := 0
			if b.flags.EnableLineTransferTime {
				lineTransfer = b.lineTransfer.Get(pc.line.ID, nc.line.ID)
			}
			bound := cpmodel.NewLinearExpr().AddTerm(prev.stageEnd, 1).AddConstant(int64(stageTransfer + lineTransfer))
			cp.AddGreaterOrEqual(nc.start, bound).OnlyEnforceIf(pc.assigned, nc.assigned)
		}
	}
}

// postBatchOrdering posts intra-stage batch ordering (applicable to both
// stage-level and product-level modes once grouped by (product, stage))
// and, for stage-level mode, the pipeline precedence across stages.
func (b *Builder) postBatchOrdering(cp *cpmodel.Builder, stageGroups map[stageKey][]*unitStage) {
	for _, group := range stageGroups {
		sort.Slice(group, func(i, j int) bool { return group[i].batch < group[j].batch })
		for i := 1; i < len(group); i++ {
			prev, cur := group[i-1], group[i]
			bound := cpmodel.NewLinearExpr().AddTerm(prev.stageEnd, 1).AddConstant(int64(cur.minGap))
			for _, cc := range cur.candidates {
				cp.AddGreaterOrEqual(cc.start, bound)
			}
		}
	}

	if !b.flags.EnableLotSplitting {
		return
	}
	byProduct := map[string]map[entities.StageID][]*unitStage{}
	for key, group := range stageGroups {
		if byProduct[key.product] == nil {
			byProduct[key.product] = map[entities.StageID][]*unitStage{}
		}
		byProduct[key.product][key.stage] = group
	}
	for _, stages := range byProduct {
		if len(stages) < 2 {
			continue
		}
		b.postPipelinePrecedence(cp, stages)
	}
}

// postPipelinePrecedence posts pipeline precedence for one product's
// stage-level groups: batch b at stage s' waits on the corresponding
// batch min(b, N_prev) at the preceding stage s, rather than a
// ceil-based correspondence.
func (b *Builder) postPipelinePrecedence(cp *cpmodel.Builder, stages map[entities.StageID][]*unitStage) {
	var orderedStages []entities.StageID
	for s := range stages {
		orderedStages = append(orderedStages, s)
	}
	sort.Slice(orderedStages, func(i, j int) bool { return orderedStages[i] < orderedStages[j] })

	for i := 1; i < len(orderedStages); i++ {
		prevStage, curStage := orderedStages[i-1], orderedStages[i]
		prevGroup, curGroup := stages[prevStage], stages[curStage]
		nPrev := len(prevGroup)
		for _, cur := range curGroup {
			correspondingBatch := cur.batch
			if correspondingBatch > nPrev {
				correspondingBatch = nPrev
			}
			prev := prevGroup[correspondingBatch-1]
			b.postTransferGatedPrecedence(cp, prev, cur)
		}
	}
}

// postObjective minimizes the maximum stage-end across every unit's
// completion at the last stage of its routing. Priority weighting
// happens earlier, via work-unit ordering in
// pkg/application/services/orchestration, not as part of this scalar
// objective.
func (b *Builder) postObjective(cp *cpmodel.Builder, units []UnitContext, byUnitStage map[string]*unitStage, horizon int) cpmodel.IntVar {
	var completions []cpmodel.LinearArgument
	for _, uc := range units {
		lastStage := uc.Routing.LastStage()
		if stageID, isStageBatch := uc.Unit.Stage(); isStageBatch && stageID != lastStage {
			continue
		}
		if us, ok := byUnitStage[unitStageKey(uc.Unit, lastStage)]; ok {
			completions = append(completions, us.stageEnd)
		}
	}
	makespan := cp.NewIntVar(0, int64(horizon))
	if len(completions) == 0 {
		cp.AddEquality(makespan, cp.NewConstant(0))
	} else {
		cp.AddMaxEquality(makespan, completions...)
	}
	cp.Minimize(makespan)
	return makespan
}

// computeHorizon estimates the planning horizon as twice the sum of
// minimum processing times plus a transfer buffer, floored at seven days of
// working minutes past the earliest release, compared against the
// calendar-minutes span actually available between the earliest release
// and the latest due date plus 30 days.
func (b *Builder) computeHorizon(units []UnitContext) (int, error) {
	if len(units) == 0 {
		return 0, fmt.Errorf("cannot build a model with no work units")
	}

	sumMin := 0
	transferBuffer := 0
	earliestRelease := units[0].ReleaseMinutes
	latestDue := units[0].DueMinutes
	for _, uc := range units {
		if uc.ReleaseMinutes < earliestRelease {
			earliestRelease = uc.ReleaseMinutes
		}
		if uc.DueMinutes > latestDue {
			latestDue = uc.DueMinutes
		}
		for _, stageID := range stagesFor(uc) {
			step, ok := uc.Routing.StepAt(stageID)
			if !ok {
				continue
			}
			m, found, err := b.routingSvc.MinProcessingMinutes(uc.Routing, step, uc.Unit.Quantity())
			if err != nil {
				return 0, err
			}
			if !found {
				return 0, &entities.StructuralInputError{Reasons: []entities.FailureReason{{
					Code:    "NO_CANDIDATE_LINE",
					Message: fmt.Sprintf("no line can process stage %d for product %s", stageID, uc.Product.ID),
				}}}
			}
			sumMin += m
		}
		transferBuffer += b.stageTransfer.Default + b.lineTransfer.Default
	}

	const workingMinutesPerDay = 480
	floor := earliestRelease + 7*workingMinutesPerDay
	calendarSpan := (latestDue + 30*workingMinutesPerDay) - earliestRelease
	if calendarSpan < 0 {
		calendarSpan = 0
	}

	horizon := 2*sumMin + transferBuffer
	if calendarSpan > horizon {
		horizon = calendarSpan
	}
	if horizon < floor {
		horizon = floor
	}
	return horizon, nil
}
