// Package orchestration drives one end-to-end solve: validate input,
// plan lot splits, build the constraint model, hand it to the solver, and
// decode the response. It runs as numbered passes over the same inputs
// rather than one large loop, with a small state machine governing what
// each pass is allowed to do to the result.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/solderline/smt-scheduler/pkg/application/services/calendar"
	"github.com/solderline/smt-scheduler/pkg/application/services/decoder"
	"github.com/solderline/smt-scheduler/pkg/application/services/modelbuilder"
	"github.com/solderline/smt-scheduler/pkg/application/services/planner"
	"github.com/solderline/smt-scheduler/pkg/application/services/routing"
	"github.com/solderline/smt-scheduler/pkg/domain/advisors"
	"github.com/solderline/smt-scheduler/pkg/domain/entities"
	"github.com/solderline/smt-scheduler/pkg/domain/repositories"
	"github.com/solderline/smt-scheduler/pkg/infrastructure/solver"

	cpmodel "github.com/google/or-tools/ortools/sat/go/cpmodel"
	"github.com/sirupsen/logrus"
)

// state names the orchestrator's position in its pipeline. It exists for
// logging and tests, not as exported API.
type state string

const (
	stateInit      state = "Init"
	stateValidated state = "Validated"
	statePlanned   state = "Planned"
	stateModeled   state = "Modeled"
	stateSolving   state = "Solving"
	stateDecoded   state = "Decoded"
	stateFailed    state = "Failed"
)

// Engine wires every repository and service the solve pipeline needs. It
// holds no per-solve state, so one Engine can run repeated solves.
type Engine struct {
	Stages    repositories.StageRepository
	Lines     repositories.LineRepository
	Products  repositories.ProductRepository
	Calendar  repositories.CalendarRepository
	Transfers repositories.TransferMatrixRepository

	Grouping advisors.ComponentGroupingAdvisor
	Skills   advisors.OperatorSkillAdvisor

	Flags        entities.FeatureFlags
	SolverParams solver.Params

	Logger *logrus.Logger
}

// New builds an Engine, defaulting advisors to their no-op implementation
// when nil so callers need not wire the optional collaborators.
func New(stages repositories.StageRepository, lines repositories.LineRepository, products repositories.ProductRepository, cal repositories.CalendarRepository, transfers repositories.TransferMatrixRepository, flags entities.FeatureFlags, solverParams solver.Params) *Engine {
	return &Engine{
		Stages:       stages,
		Lines:        lines,
		Products:     products,
		Calendar:     cal,
		Transfers:    transfers,
		Grouping:     advisors.NoopGroupingAdvisor{},
		Skills:       advisors.NoopOperatorAdvisor{},
		Flags:        flags,
		SolverParams: solverParams,
		Logger:       logrus.StandardLogger(),
	}
}

// transition logs a move to the given pipeline state.
func (e *Engine) transition(st state, fields logrus.Fields) {
	logger := e.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	entry := logger.WithField("state", string(st))
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Debug("orchestrator state transition")
}

// Solve runs one complete pipeline pass, anchoring the integer time axis
// at planStart. A business-level outcome (invalid input, infeasibility,
// timeout, nothing to schedule) and a calendar conversion overrun
// (StatusError) are reported through the returned
// ScheduleResult's Status with a nil error; a non-nil error
// means something went wrong that the caller cannot recover a result
// from (a malformed repository, a solver crash).
func (e *Engine) Solve(ctx context.Context, planStart time.Time) (*entities.ScheduleResult, error) {
	e.transition(stateInit, nil)
	calSvc, products, routingSvc, err := e.init()
	if err != nil {
		e.transition(stateFailed, logrus.Fields{"error": err})
		return nil, err
	}

	if result := e.validate(products, routingSvc, calSvc); result != nil {
		e.transition(stateFailed, logrus.Fields{"reasons": len(result.FailureReasons)})
		return result, nil
	}
	e.transition(stateValidated, logrus.Fields{"products": len(products)})

	units, err := e.plan(products, routingSvc, calSvc, planStart)
	if err != nil {
		e.transition(stateFailed, logrus.Fields{"error": err})
		return nil, err
	}
	if len(units) == 0 {
		e.transition(stateDecoded, logrus.Fields{"outcome": "no production needed"})
		return &entities.ScheduleResult{Status: entities.StatusNoProductionNeeded, PlanStartDate: planStart}, nil
	}
	e.transition(statePlanned, logrus.Fields{"units": len(units)})
	e.applyAdvisors(products)
	units = e.orderByPriority(units)

	stageTransfer, err := e.Transfers.GetStageTransferMatrix()
	if err != nil {
		e.transition(stateFailed, logrus.Fields{"error": err})
		return nil, fmt.Errorf("failed to load stage transfer matrix: %w", err)
	}
	lineTransfer, err := e.Transfers.GetLineTransferMatrix()
	if err != nil {
		e.transition(stateFailed, logrus.Fields{"error": err})
		return nil, fmt.Errorf("failed to load line transfer matrix: %w", err)
	}
	builder := modelbuilder.New(routingSvc, stageTransfer, lineTransfer, e.Flags)

	var built *modelbuilder.Result
	e.transition(stateModeled, nil)
	resp, err := solver.Solve(ctx, e.SolverParams, func(cp *cpmodel.Builder) error {
		var buildErr error
		built, buildErr = builder.Build(cp, units)
		return buildErr
	})
	if structural, ok := asStructuralError(err); ok {
		e.transition(stateFailed, logrus.Fields{"reasons": len(structural.Reasons)})
		return &entities.ScheduleResult{
			Status:         entities.StatusInvalidInput,
			PlanStartDate:  planStart,
			FailureReasons: structural.Reasons,
		}, nil
	}
	if err != nil {
		e.transition(stateFailed, logrus.Fields{"error": err})
		return nil, fmt.Errorf("solve failed: %w", err)
	}
	e.transition(stateSolving, logrus.Fields{"status": resp.Status.String(), "wall_time_ms": resp.WallTimeMS})

	switch resp.Status {
	case entities.StatusInfeasible:
		e.transition(stateFailed, logrus.Fields{"outcome": "infeasible"})
		return &entities.ScheduleResult{
			Status:        entities.StatusInfeasible,
			PlanStartDate: planStart,
			SolveTimeMS:   resp.WallTimeMS,
			FailureReasons: []entities.FailureReason{{
				Code:    "MODEL_INFEASIBLE",
				Message: "the solver proved no feasible schedule exists within the computed horizon",
			}},
		}, nil
	case entities.StatusUnknown:
		e.transition(stateFailed, logrus.Fields{"outcome": "timeout"})
		return &entities.ScheduleResult{
			Status:        entities.StatusTimeout,
			PlanStartDate: planStart,
			SolveTimeMS:   resp.WallTimeMS,
			FailureReasons: []entities.FailureReason{{
				Code:    "SOLVER_TIMEOUT",
				Message: "the solver exhausted its time budget without proving feasibility or infeasibility",
			}},
		}, nil
	case entities.StatusInvalidInput:
		e.transition(stateFailed, logrus.Fields{"outcome": "invalid input reported by solver"})
		return &entities.ScheduleResult{Status: entities.StatusInvalidInput, PlanStartDate: planStart}, nil
	}

	dec := decoder.New(e.Stages, e.Lines, e.Products, e.Transfers, calSvc, planStart)
	result, err := dec.Decode(resp.Raw, built)
	var overrun *entities.CalendarOverrunError
	if errors.As(err, &overrun) {
		e.transition(stateFailed, logrus.Fields{"error": err})
		return &entities.ScheduleResult{
			Status:         entities.StatusError,
			PlanStartDate:  planStart,
			SolveTimeMS:    resp.WallTimeMS,
			FailureReasons: []entities.FailureReason{{Code: "CALENDAR_OVERRUN", Message: overrun.Error()}},
		}, nil
	}
	if err != nil {
		e.transition(stateFailed, logrus.Fields{"error": err})
		return nil, fmt.Errorf("failed to decode solved model: %w", err)
	}
	result.Status = resp.Status
	result.SolveTimeMS = resp.WallTimeMS
	e.transition(stateDecoded, logrus.Fields{"tasks": len(result.Tasks)})
	return result, nil
}

func asStructuralError(err error) (*entities.StructuralInputError, bool) {
	structural, ok := err.(*entities.StructuralInputError)
	return structural, ok
}

// init is the Init state: it resolves the calendar and constructs the
// stateless per-solve services.
func (e *Engine) init() (*calendar.Service, []*entities.Product, *routing.Service, error) {
	cal, err := e.Calendar.GetCalendar()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load calendar: %w", err)
	}
	calSvc := calendar.New(cal)

	products, err := e.Products.GetAllProducts()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load products: %w", err)
	}

	routingSvc := routing.New(e.Products, e.Stages, e.Lines)
	return calSvc, products, routingSvc, nil
}

// validate is the Validated state: it checks every structural
// precondition before any variable is created, so an unsatisfiable input
// fails fast with a diagnostic instead of surfacing as solver
// infeasibility.
func (e *Engine) validate(products []*entities.Product, routingSvc *routing.Service, calSvc *calendar.Service) *entities.ScheduleResult {
	var reasons []entities.FailureReason

	stages, err := e.Stages.GetAllStages()
	if err != nil || len(stages) == 0 {
		reasons = append(reasons, entities.FailureReason{Code: "NO_STAGES", Message: "no stages are configured"})
	}
	lines, err := e.Lines.GetActiveLines()
	if err != nil || len(lines) == 0 {
		reasons = append(reasons, entities.FailureReason{Code: "NO_ACTIVE_LINES", Message: "no active lines are configured"})
	}
	for _, stage := range stages {
		supported := false
		for _, l := range lines {
			if l.Supports(stage.ID) {
				supported = true
				break
			}
		}
		if !supported {
			reasons = append(reasons, entities.FailureReason{
				Code:    "STAGE_WITHOUT_LINE",
				Message: fmt.Sprintf("stage %d (%s) has no active line that supports it", stage.ID, stage.Name),
			})
		}
	}

	cal, err := e.Calendar.GetCalendar()
	if err != nil {
		reasons = append(reasons, entities.FailureReason{Code: "NO_CALENDAR", Message: "no working calendar is configured"})
	} else if err := calendar.ValidateHasWorkingDays(cal); err != nil {
		reasons = append(reasons, entities.FailureReason{Code: "NO_WORKING_DAYS", Message: err.Error()})
	}

	for _, p := range products {
		if !p.DueDate.After(p.ReleaseDate) {
			reasons = append(reasons, entities.FailureReason{
				Code:    "DUE_BEFORE_RELEASE",
				Message: fmt.Sprintf("product %s: due date does not fall after release date", p.ID),
			})
			continue
		}
		if _, err := routingSvc.RoutingFor(p); err != nil {
			reasons = append(reasons, entities.FailureReason{
				Code:    "NO_ROUTING",
				Message: fmt.Sprintf("product %s: %v", p.ID, err),
			})
		}
	}

	if len(reasons) == 0 {
		return nil
	}
	return &entities.ScheduleResult{Status: entities.StatusInvalidInput, FailureReasons: reasons}
}

// plan is the Planned state: lot-split every product into work units and
// convert each one's wall-clock release/due window into the integer
// working-minutes coordinate the model builder operates on.
func (e *Engine) plan(products []*entities.Product, routingSvc *routing.Service, calSvc *calendar.Service, planStart time.Time) ([]modelbuilder.UnitContext, error) {
	var units []modelbuilder.UnitContext
	for _, p := range products {
		if p.RequiredQty() <= 0 {
			continue
		}
		r, err := routingSvc.RoutingFor(p)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", p.ID, err)
		}
		stageIDs := make([]entities.StageID, len(r.Steps))
		for i, st := range r.Steps {
			stageIDs[i] = st.StageID
		}

		plan, err := planner.PlanProduct(p, stageIDs)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", p.ID, err)
		}

		releaseMinutes := calSvc.DateToMinutes(p.ReleaseDate, planStart, "")
		dueMinutes := calSvc.DateToMinutes(p.DueDate, planStart, "")
		for _, wu := range plan.WorkUnits {
			units = append(units, modelbuilder.UnitContext{
				Unit:           wu,
				Product:        p,
				Routing:        r,
				ReleaseMinutes: releaseMinutes,
				DueMinutes:     dueMinutes,
			})
		}
	}
	return units, nil
}

// applyAdvisors calls the grouping advisor and discards its suggestions;
// they affect neither the work-unit order nor the result. The
// operator-skill advisor is not called.
func (e *Engine) applyAdvisors(products []*entities.Product) {
	_ = e.Grouping.SuggestGroups(products)
}

// orderByPriority sorts work units by descending product priority.
// Priority is applied as a work-unit ordering pass before model
// construction, never as a term in the objective. Stable sort keeps
// same-priority units in their original (and for a stage-level product,
// routing) order.
func (e *Engine) orderByPriority(units []modelbuilder.UnitContext) []modelbuilder.UnitContext {
	if !e.Flags.EnablePriorityScheduling {
		return units
	}
	ordered := make([]modelbuilder.UnitContext, len(units))
	copy(ordered, units)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Product.Priority > ordered[j].Product.Priority })
	return ordered
}
