// Package decoder turns a solved constraint model back into the
// wall-clock schedule and capacity reports a solve run produces. It is
// the mirror image of modelbuilder: where that package reads entities and
// writes CP-SAT variables, this one reads a CpSolverResponse and writes
// entities.
package decoder

import (
	"sort"
	"time"

	cpmodel "github.com/google/or-tools/ortools/sat/go/cpmodel"
	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"

	calsvc "github.com/solderline/smt-scheduler/pkg/application/services/calendar"
	"github.com/solderline/smt-scheduler/pkg/application/services/modelbuilder"
	"github.com/solderline/smt-scheduler/pkg/domain/entities"
	"github.com/solderline/smt-scheduler/pkg/domain/repositories"
)

// Decoder reconstructs a ScheduleResult from a solved model.
type Decoder struct {
	stages    repositories.StageRepository
	lines     repositories.LineRepository
	products  repositories.ProductRepository
	transfers repositories.TransferMatrixRepository
	calendar  *calsvc.Service
	planStart time.Time
}

// New builds a decoder anchored at planStart, the wall-clock instant that
// corresponds to integer minute zero.
func New(stages repositories.StageRepository, lines repositories.LineRepository, products repositories.ProductRepository, transfers repositories.TransferMatrixRepository, calendar *calsvc.Service, planStart time.Time) *Decoder {
	return &Decoder{stages: stages, lines: lines, products: products, transfers: transfers, calendar: calendar, planStart: planStart}
}

// Decode builds the full ScheduleResult from the solved response and the
// variable groups the model builder produced.
func (d *Decoder) Decode(resp *cmpb.CpSolverResponse, result *modelbuilder.Result) (*entities.ScheduleResult, error) {
	tasks, err := d.decodeTasks(resp, result)
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].LineID != tasks[j].LineID {
			return tasks[i].LineID < tasks[j].LineID
		}
		return tasks[i].StartMinute < tasks[j].StartMinute
	})

	if err := d.fillTransferBreakdown(tasks); err != nil {
		return nil, err
	}
	d.annotateChangeovers(tasks)
	changeovers := d.changeoverStats(tasks)
	missed, err := d.missedDeadlines(tasks)
	if err != nil {
		return nil, err
	}
	capacities, err := d.capacityAnalyses(tasks)
	if err != nil {
		return nil, err
	}
	utilizations, err := d.lineUtilizations(tasks)
	if err != nil {
		return nil, err
	}

	makespan := cpmodel.SolutionIntegerValue(resp, result.Makespan)
	completion, err := d.calendar.MinutesToDate(int(makespan), d.planStart, "")
	if err != nil {
		return nil, err
	}

	return &entities.ScheduleResult{
		MakespanMinutes:    int(makespan),
		PlanStartDate:      d.planStart,
		ExpectedCompletion: completion,
		Tasks:              tasks,
		MissedDeadlines:    missed,
		CapacityAnalyses:   capacities,
		LineUtilizations:   utilizations,
		ChangeoverStats:    changeovers,
	}, nil
}

func (d *Decoder) decodeTasks(resp *cmpb.CpSolverResponse, result *modelbuilder.Result) ([]entities.ScheduledTask, error) {
	var tasks []entities.ScheduledTask
	for _, us := range result.UnitStages() {
		var chosen *modelbuilder.LineCandidateView
		for i := range us.Candidates {
			c := &us.Candidates[i]
			if cpmodel.SolutionBooleanValue(resp, c.Assigned) {
				chosen = c
				break
			}
		}
		if chosen == nil {
			continue
		}

		stage, err := d.stages.GetStage(us.Stage)
		if err != nil {
			return nil, err
		}
		product, err := d.products.GetProduct(us.Unit.ProductID())
		if err != nil {
			return nil, err
		}

		startMinute := int(cpmodel.SolutionIntegerValue(resp, chosen.Start))
		endMinute := int(cpmodel.SolutionIntegerValue(resp, chosen.End))
		startDate, err := d.calendar.MinutesToDate(startMinute, d.planStart, chosen.Line.ID)
		if err != nil {
			return nil, err
		}
		endDate, err := d.calendar.MinutesToDate(endMinute, d.planStart, chosen.Line.ID)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, entities.ScheduledTask{
			ProductID:         product.ID,
			DisplayName:       product.DisplayNameAt(stage),
			StageID:           stage.ID,
			StageOrder:        stage.Order,
			StageName:         stage.Name,
			LineID:            chosen.Line.ID,
			LineName:          chosen.Line.Name,
			Quantity:          us.Unit.Quantity(),
			StartMinute:       startMinute,
			EndMinute:         endMinute,
			StartDate:         startDate,
			EndDate:           endDate,
			ProcessingMinutes: chosen.ProcessingMinutes,
			BatchNumber:       us.Unit.BatchNumber(),
			TotalBatches:      us.Unit.TotalBatches(),
		})
	}
	return tasks, nil
}

// fillTransferBreakdown computes TransferMinutes and LineTransferMinutes
// for product-level work units by walking each (product, batch)'s tasks
// in routing order and looking up the matrices between consecutive
// stages. Stage-level lot splitting's pipeline correspondence does not
// map cleanly onto a simple per-batch sequence, so those tasks are left
// with a zero breakdown; their timing is still exact, only this
// informational split is skipped.
func (d *Decoder) fillTransferBreakdown(tasks []entities.ScheduledTask) error {
	stageTransfer, err := d.transfers.GetStageTransferMatrix()
	if err != nil {
		return err
	}
	lineTransfer, err := d.transfers.GetLineTransferMatrix()
	if err != nil {
		return err
	}

	type groupKey struct {
		product string
		batch   int
	}
	groups := map[groupKey][]int{}
	for i, t := range tasks {
		product, err := d.products.GetProduct(t.ProductID)
		if err != nil {
			return err
		}
		if product.HasStageLevelSplitting() {
			continue
		}
		key := groupKey{product: t.ProductID, batch: t.BatchNumber}
		groups[key] = append(groups[key], i)
	}

	for _, indices := range groups {
		sort.Slice(indices, func(i, j int) bool { return tasks[indices[i]].StageOrder < tasks[indices[j]].StageOrder })
		for i := 1; i < len(indices); i++ {
			prev := &tasks[indices[i-1]]
			cur := &tasks[indices[i]]
			cur.TransferMinutes = stageTransfer.Get(prev.StageID, cur.StageID)
			cur.LineTransferMinutes = lineTransfer.Get(prev.LineID, cur.LineID)
		}
	}
	return nil
}

// annotateChangeovers walks each stage's tasks in start order, across all
// lines, and records which line ran the chronologically previous task on
// that stage, for changeover labeling.
func (d *Decoder) annotateChangeovers(tasks []entities.ScheduledTask) {
	lastLine := map[entities.StageID]entities.LineID{}
	indices := make([]int, len(tasks))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(i, j int) bool { return tasks[indices[i]].StartMinute < tasks[indices[j]].StartMinute })
	for _, i := range indices {
		t := &tasks[i]
		if prevLine, ok := lastLine[t.StageID]; ok {
			t.PreviousLineOnTrack = prevLine
		}
		lastLine[t.StageID] = t.LineID
	}
}

func (d *Decoder) changeoverStats(tasks []entities.ScheduledTask) []entities.ChangeoverStat {
	lastProduct := map[entities.LineID]string{}
	indices := make([]int, len(tasks))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(i, j int) bool { return tasks[indices[i]].StartMinute < tasks[indices[j]].StartMinute })

	var stats []entities.ChangeoverStat
	for _, i := range indices {
		t := tasks[i]
		if prev, ok := lastProduct[t.LineID]; ok && prev != t.ProductID {
			stats = append(stats, entities.ChangeoverStat{
				LineID:        t.LineID,
				StageID:       t.StageID,
				FromProductID: prev,
				ToProductID:   t.ProductID,
				AtMinute:      t.StartMinute,
			})
		}
		lastProduct[t.LineID] = t.ProductID
	}
	return stats
}

// missedDeadlines reports every product whose last-stage task completed
// after its due date.
func (d *Decoder) missedDeadlines(tasks []entities.ScheduledTask) ([]entities.MissedDeadline, error) {
	lastByProduct := map[string]entities.ScheduledTask{}
	for _, t := range tasks {
		routing, err := d.products.GetRouting(t.ProductID)
		if err != nil {
			continue
		}
		if routing.LastStage() != t.StageID {
			continue
		}
		if existing, ok := lastByProduct[t.ProductID]; !ok || t.EndMinute > existing.EndMinute {
			lastByProduct[t.ProductID] = t
		}
	}

	var missed []entities.MissedDeadline
	for productID, last := range lastByProduct {
		product, err := d.products.GetProduct(productID)
		if err != nil {
			return nil, err
		}
		if !last.EndDate.After(product.DueDate) {
			continue
		}
		delay := 0
		cursor := product.DueDate
		for cursor.Before(last.EndDate) {
			if d.calendar.IsWorkingDay(cursor, last.LineID) {
				delay++
			}
			cursor = cursor.AddDate(0, 0, 1)
		}
		missed = append(missed, entities.MissedDeadline{
			ProductID:        productID,
			DueDate:          product.DueDate,
			ActualCompletion: last.EndDate,
			DelayWorkingDays: delay,
		})
	}
	sort.Slice(missed, func(i, j int) bool { return missed[i].ProductID < missed[j].ProductID })
	return missed, nil
}

// capacityAnalyses computes the per-stage required-vs-available minutes
// report. A stage is flagged as a bottleneck once its required minutes
// exceed what every supporting line can offer across the scheduled
// window.
func (d *Decoder) capacityAnalyses(tasks []entities.ScheduledTask) ([]entities.CapacityAnalysis, error) {
	required := map[entities.StageID]int{}
	windowEnd := map[entities.StageID]time.Time{}
	for _, t := range tasks {
		required[t.StageID] += t.ProcessingMinutes
		if t.EndDate.After(windowEnd[t.StageID]) {
			windowEnd[t.StageID] = t.EndDate
		}
	}

	allStages, err := d.stages.GetAllStages()
	if err != nil {
		return nil, err
	}
	allLines, err := d.lines.GetActiveLines()
	if err != nil {
		return nil, err
	}

	var analyses []entities.CapacityAnalysis
	for _, stage := range allStages {
		req, ok := required[stage.ID]
		if !ok {
			continue
		}
		available := 0
		end := windowEnd[stage.ID]
		for _, line := range allLines {
			if !line.Supports(stage.ID) {
				continue
			}
			cursor := d.planStart
			for cursor.Before(end) {
				available += d.calendar.WorkingMinutesInDay(cursor, line.ID)
				cursor = cursor.AddDate(0, 0, 1)
			}
		}
		analyses = append(analyses, entities.CapacityAnalysis{
			StageID:          stage.ID,
			StageName:        stage.Name,
			RequiredMinutes:  req,
			AvailableMinutes: available,
			Bottleneck:       req > available,
		})
	}
	sort.Slice(analyses, func(i, j int) bool { return analyses[i].StageID < analyses[j].StageID })
	return analyses, nil
}

// lineUtilizations computes each line's busy/available ratio over the
// scheduled window, where busy is processing plus transfer plus setup
// minutes.
func (d *Decoder) lineUtilizations(tasks []entities.ScheduledTask) ([]entities.LineUtilization, error) {
	type accum struct {
		processing int
		transfer   int
		setup      int
		end        time.Time
	}
	byLine := map[entities.LineID]*accum{}
	for _, t := range tasks {
		a, ok := byLine[t.LineID]
		if !ok {
			a = &accum{}
			byLine[t.LineID] = a
		}
		a.processing += t.ProcessingMinutes
		a.transfer += t.TransferMinutes
		a.setup += t.LineTransferMinutes
		if t.EndDate.After(a.end) {
			a.end = t.EndDate
		}
	}

	var out []entities.LineUtilization
	for lineID, a := range byLine {
		line, err := d.lines.GetLine(lineID)
		if err != nil {
			return nil, err
		}
		available := 0
		cursor := d.planStart
		for cursor.Before(a.end) {
			available += d.calendar.WorkingMinutesInDay(cursor, lineID)
			cursor = cursor.AddDate(0, 0, 1)
		}
		utilization := 0.0
		if available > 0 {
			utilization = float64(a.processing+a.transfer+a.setup) / float64(available)
		}
		out = append(out, entities.LineUtilization{
			LineID:            lineID,
			LineName:          line.Name,
			ProcessingMinutes: a.processing,
			TransferMinutes:   a.transfer,
			SetupMinutes:      a.setup,
			AvailableMinutes:  available,
			Utilization:       utilization,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineID < out[j].LineID })
	return out, nil
}
