package entities

import "fmt"

// StructuralInputError is returned by the model builder when a structural
// precondition fails during construction, such as a stage with no
// candidate line; the orchestrator reports it as INVALID_INPUT. The checks
// the orchestrator runs before construction (no stages, no active lines,
// a stage with no supporting line, due <= release) are reported on the
// result directly, not through this error.
type StructuralInputError struct {
	Reasons []FailureReason
}

func (e *StructuralInputError) Error() string {
	if len(e.Reasons) == 0 {
		return "structural input error"
	}
	return fmt.Sprintf("structural input error: %s", e.Reasons[0].Message)
}

// ModelInfeasibleError wraps the solver's proof that no schedule exists,
// plus the post-hoc per-product capacity analysis.
type ModelInfeasibleError struct {
	Reasons []FailureReason
}

func (e *ModelInfeasibleError) Error() string {
	return fmt.Sprintf("model infeasible: %d diagnostic reason(s)", len(e.Reasons))
}

// SolverTimeoutError describes a solver run that exhausted its time budget
// without finding a feasible solution. The orchestrator reports that
// outcome as StatusTimeout on the result and does not return this error.
type SolverTimeoutError struct {
	TimeLimitSeconds int
}

func (e *SolverTimeoutError) Error() string {
	return fmt.Sprintf("solver timed out after %ds without a feasible solution", e.TimeLimitSeconds)
}

// CalendarOverrunError is an internal consistency error: minutes_to_date
// failed to terminate within 1000 calendar days.
type CalendarOverrunError struct {
	Minutes int
}

func (e *CalendarOverrunError) Error() string {
	return fmt.Sprintf("calendar conversion of %d minutes exceeded the 1000 calendar day safety bound", e.Minutes)
}
