package entities

import "time"

// ScheduledTask is a decoded (work unit, stage, line) assignment, with both
// the integer working-minutes axis and its wall-clock equivalents.
type ScheduledTask struct {
	ProductID     string
	DisplayName   string
	StageID       StageID
	StageOrder    int
	StageName     string
	LineID        LineID
	LineName      string
	Quantity      int

	StartMinute int
	EndMinute   int
	StartDate   time.Time
	EndDate     time.Time

	ProcessingMinutes     int
	TransferMinutes       int // stage transfer applied before this task
	LineTransferMinutes   int // line transfer (changeover) applied before this task
	PreviousLineOnTrack   LineID // previous line on the same (line, stage) track, for changeover labeling

	BatchNumber  int
	TotalBatches int
}

// Overlaps reports whether two tasks on the same line overlap in time.
func (t ScheduledTask) Overlaps(other ScheduledTask) bool {
	return t.StartMinute < other.EndMinute && other.StartMinute < t.EndMinute
}

// MissedDeadline records a product whose final-stage task completed after
// its due date.
type MissedDeadline struct {
	ProductID         string
	DueDate           time.Time
	ActualCompletion  time.Time
	DelayWorkingDays  int
}

// CapacityAnalysis is the per-stage utilization report.
type CapacityAnalysis struct {
	StageID           StageID
	StageName         string
	RequiredMinutes   int
	AvailableMinutes  int
	Bottleneck        bool
}

// LineUtilization is the per-line busy/available report.
type LineUtilization struct {
	LineID            LineID
	LineName          string
	ProcessingMinutes int
	TransferMinutes   int
	SetupMinutes      int
	AvailableMinutes  int
	Utilization       float64 // (processing + transfer + setup) / available
}

// ChangeoverStat records a product changeover on a line: two consecutive
// tasks (by start minute) on the same line that belong to different
// products, whatever their stages. StageID is the incoming task's stage.
type ChangeoverStat struct {
	LineID        LineID
	StageID       StageID
	FromProductID string
	ToProductID   string
	AtMinute      int
}

// FailureReason is a diagnostic emitted on INVALID_INPUT or INFEASIBLE.
type FailureReason struct {
	Code    string
	Message string
}

// Warning is a non-fatal note attached to a successful result.
type Warning struct {
	Code    string
	Message string
}
