package entities

import (
	"fmt"
	"time"
)

// ScheduleStatus mirrors the solver's outcome plus this system's own
// pre/post validation statuses.
type ScheduleStatus int

const (
	StatusUnknown ScheduleStatus = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
	StatusTimeout
	StatusInvalidInput
	StatusNoProductionNeeded
	StatusError
)

// String implements fmt.Stringer for ScheduleStatus.
func (s ScheduleStatus) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusInvalidInput:
		return "INVALID_INPUT"
	case StatusNoProductionNeeded:
		return "NO_PRODUCTION_NEEDED"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FeatureFlags toggles optional model behavior.
type FeatureFlags struct {
	EnableLotSplitting        bool
	EnableCustomRouting       bool
	EnableStageTransferTime   bool
	EnableLineTransferTime    bool
	EnablePriorityScheduling  bool
	UseHardDeadlineConstraint bool
	EnableStageNaming         bool
}

// DefaultFeatureFlags returns every flag enabled except the hard deadline,
// which defaults to the soft, report-only behavior.
func DefaultFeatureFlags() FeatureFlags {
	return FeatureFlags{
		EnableLotSplitting:        true,
		EnableCustomRouting:       true,
		EnableStageTransferTime:   true,
		EnableLineTransferTime:    true,
		EnablePriorityScheduling:  true,
		UseHardDeadlineConstraint: false,
		EnableStageNaming:         true,
	}
}

// ScheduleResult is the complete output of one Solve call.
type ScheduleResult struct {
	Status                ScheduleStatus
	MakespanMinutes       int
	SolveTimeMS           int64
	PlanStartDate         time.Time
	ExpectedCompletion    time.Time

	Tasks             []ScheduledTask
	MissedDeadlines   []MissedDeadline
	CapacityAnalyses  []CapacityAnalysis
	LineUtilizations  []LineUtilization
	ChangeoverStats   []ChangeoverStat
	FailureReasons    []FailureReason
	Warnings          []Warning
}

// Summary returns a one-line-per-section human-readable rollup of the
// result, the way a planner glancing at a terminal would want it.
func (r *ScheduleResult) Summary() string {
	s := fmt.Sprintf("Schedule status: %s (%d tasks, makespan %d minutes, solved in %dms)\n",
		r.Status, len(r.Tasks), r.MakespanMinutes, r.SolveTimeMS)
	if len(r.MissedDeadlines) > 0 {
		s += fmt.Sprintf("  Missed deadlines: %d\n", len(r.MissedDeadlines))
	}
	bottlenecks := 0
	for _, c := range r.CapacityAnalyses {
		if c.Bottleneck {
			bottlenecks++
		}
	}
	if bottlenecks > 0 {
		s += fmt.Sprintf("  Bottleneck stages: %d\n", bottlenecks)
	}
	if len(r.ChangeoverStats) > 0 {
		s += fmt.Sprintf("  Changeovers: %d\n", len(r.ChangeoverStats))
	}
	if len(r.FailureReasons) > 0 {
		s += fmt.Sprintf("  Failure reasons: %d\n", len(r.FailureReasons))
	}
	return s
}
