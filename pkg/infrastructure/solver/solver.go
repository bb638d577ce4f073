// Package solver wraps the CP-SAT solve call behind a narrow interface:
// pkg/application/services/modelbuilder only adds variables and
// constraints to the cpmodel.Builder it is handed, while this package
// owns the solver parameters, runs the solve, and maps its status.
package solver

import (
	"context"
	"fmt"
	"time"

	cpmodel "github.com/google/or-tools/ortools/sat/go/cpmodel"
	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
	sppb "github.com/google/or-tools/ortools/sat/proto/satparameters"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
)

// Params configures a single solve call.
type Params struct {
	TimeLimit  time.Duration
	NumWorkers int32
	RandomSeed int64
}

// Response is the raw result of a solve, before any domain-specific
// decoding happens in pkg/application/services/decoder.
type Response struct {
	Status         entities.ScheduleStatus
	ObjectiveValue int64
	WallTimeMS     int64
	Raw            *cmpb.CpSolverResponse
}

// Solve builds the model with build, then hands it to CP-SAT with the
// given parameters. build receives a fresh Builder and returns any error
// encountered while adding variables and constraints. ctx is checked only
// after the solver returns: a cancelled context discards the response, but
// does not interrupt a running solve.
func Solve(ctx context.Context, params Params, build func(cp *cpmodel.Builder) error) (*Response, error) {
	cp := cpmodel.NewCpModelBuilder()
	if err := build(cp); err != nil {
		return nil, fmt.Errorf("failed to build constraint model: %w", err)
	}

	model, err := cp.Model()
	if err != nil {
		return nil, fmt.Errorf("invalid constraint model: %w", err)
	}

	sp := &sppb.SatParameters{}
	if params.TimeLimit > 0 {
		seconds := params.TimeLimit.Seconds()
		sp.MaxTimeInSeconds = &seconds
	}
	if params.NumWorkers > 0 {
		sp.NumWorkers = &params.NumWorkers
	}
	if params.RandomSeed != 0 {
		seed := int32(params.RandomSeed)
		sp.RandomSeed = &seed
	}

	started := time.Now()
	resp, err := cpmodel.SolveCpModelWithParameters(model, sp)
	if err != nil {
		return nil, fmt.Errorf("solve failed: %w", err)
	}
	elapsed := time.Since(started)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return &Response{
		Status:         mapStatus(resp.GetStatus()),
		ObjectiveValue: int64(resp.GetObjectiveValue()),
		WallTimeMS:     elapsed.Milliseconds(),
		Raw:            resp,
	}, nil
}

func mapStatus(s cmpb.CpSolverStatus) entities.ScheduleStatus {
	switch s {
	case cmpb.CpSolverStatus_OPTIMAL:
		return entities.StatusOptimal
	case cmpb.CpSolverStatus_FEASIBLE:
		return entities.StatusFeasible
	case cmpb.CpSolverStatus_INFEASIBLE:
		return entities.StatusInfeasible
	case cmpb.CpSolverStatus_MODEL_INVALID:
		return entities.StatusInvalidInput
	default:
		return entities.StatusUnknown
	}
}
