package decoder

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	cpmodel "github.com/google/or-tools/ortools/sat/go/cpmodel"

	calsvc "github.com/solderline/smt-scheduler/pkg/application/services/calendar"
	"github.com/solderline/smt-scheduler/pkg/application/services/modelbuilder"
	"github.com/solderline/smt-scheduler/pkg/application/services/routing"
	"github.com/solderline/smt-scheduler/pkg/domain/entities"
	"github.com/solderline/smt-scheduler/pkg/infrastructure/repositories/memory"
	"github.com/solderline/smt-scheduler/pkg/infrastructure/solver"
	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
)

func mustDate(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// buildTwoStageCatalog seeds one product with a two-stage routing on a
// single line, mirroring modelbuilder_test.go's fixture shape.
func buildTwoStageCatalog(t *testing.T) (*memory.Catalog, *entities.Product, *entities.Routing) {
	t.Helper()
	c := memory.NewCatalog()

	stages := []*entities.Stage{
		{ID: 1, Name: "Solder Paste", Order: 1},
		{ID: 2, Name: "Reflow", Order: 2},
	}
	if err := c.LoadStages(stages); err != nil {
		t.Fatalf("LoadStages: %v", err)
	}

	line, err := entities.NewLine("L1", "Line One", true, 40)
	if err != nil {
		t.Fatalf("NewLine: %v", err)
	}
	for _, st := range stages {
		if err := line.SetCapability(st.ID, decimal.NewFromInt(1)); err != nil {
			t.Fatalf("SetCapability: %v", err)
		}
	}
	if err := c.LoadLines([]*entities.Line{line}); err != nil {
		t.Fatalf("LoadLines: %v", err)
	}

	steps := []entities.RoutingStep{
		{StageID: 1, Sequence: 1, Multiplier: decimal.NewFromInt(1)},
		{StageID: 2, Sequence: 2, Multiplier: decimal.NewFromInt(1)},
	}
	knownStages := map[entities.StageID]*entities.Stage{1: stages[0], 2: stages[1]}
	r, err := entities.NewRouting("P1", steps, decimal.NewFromFloat(0.1), decimal.NewFromInt(1), knownStages)
	if err != nil {
		t.Fatalf("NewRouting: %v", err)
	}
	if err := c.LoadRoutings([]*entities.Routing{r}); err != nil {
		t.Fatalf("LoadRoutings: %v", err)
	}

	product, err := entities.NewProduct("P1", "Widget", 100, 0, mustDate(2026, 1, 1), mustDate(2026, 1, 20), entities.PriorityNormal)
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}
	if err := c.LoadProducts([]*entities.Product{product}); err != nil {
		t.Fatalf("LoadProducts: %v", err)
	}

	cal := entities.NewDefaultCalendar(entities.Shift{StartMinute: 480, EndMinute: 1020})
	if err := c.LoadCalendar(cal); err != nil {
		t.Fatalf("LoadCalendar: %v", err)
	}
	if err := c.LoadStageTransferMatrix(entities.NewStageTransferMatrix(0)); err != nil {
		t.Fatalf("LoadStageTransferMatrix: %v", err)
	}
	if err := c.LoadLineTransferMatrix(entities.NewLineTransferMatrix(0)); err != nil {
		t.Fatalf("LoadLineTransferMatrix: %v", err)
	}
	return c, product, r
}

// solveOne builds and solves a one-unit model, returning the raw response
// and the model result decoder.Decode needs.
func solveOne(t *testing.T, c *memory.Catalog, product *entities.Product, r *entities.Routing) (*cmpb.CpSolverResponse, *modelbuilder.Result) {
	t.Helper()
	routingSvc := routing.New(c, c, c)
	stageTransfer, _ := c.GetStageTransferMatrix()
	lineTransfer, _ := c.GetLineTransferMatrix()
	builder := modelbuilder.New(routingSvc, stageTransfer, lineTransfer, entities.DefaultFeatureFlags())

	unit := entities.ProductBatch{Product: "P1", Batch: 1, Total: 1, Qty: 100}
	units := []modelbuilder.UnitContext{{Unit: unit, Product: product, Routing: r, ReleaseMinutes: 0, DueMinutes: 100000}}

	var result *modelbuilder.Result
	resp, err := solver.Solve(context.Background(), solver.Params{TimeLimit: 10 * time.Second}, func(cp *cpmodel.Builder) error {
		var buildErr error
		result, buildErr = builder.Build(cp, units)
		return buildErr
	})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	return resp.Raw, result
}

func TestDecode_ProducesOneTaskPerStage(t *testing.T) {
	c, product, r := buildTwoStageCatalog(t)
	raw, result := solveOne(t, c, product, r)

	cal, err := c.GetCalendar()
	if err != nil {
		t.Fatalf("GetCalendar: %v", err)
	}
	calService := calsvc.New(cal)
	planStart := mustDate(2026, 1, 1)

	dec := New(c, c, c, c, calService, planStart)
	out, err := dec.Decode(raw, result)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(out.Tasks) != 2 {
		t.Fatalf("expected 2 decoded tasks, got %d", len(out.Tasks))
	}
	for _, task := range out.Tasks {
		if task.ProductID != "P1" {
			t.Errorf("unexpected product id %q", task.ProductID)
		}
		if task.EndMinute <= task.StartMinute {
			t.Errorf("task end (%d) should be after start (%d)", task.EndMinute, task.StartMinute)
		}
	}
	if out.MakespanMinutes <= 0 {
		t.Errorf("expected a positive makespan, got %d", out.MakespanMinutes)
	}
	if !out.ExpectedCompletion.After(out.PlanStartDate) {
		t.Errorf("expected completion %v should be after plan start %v", out.ExpectedCompletion, out.PlanStartDate)
	}
}

func TestDecode_NoMissedDeadlineWhenDueDateFar(t *testing.T) {
	c, product, r := buildTwoStageCatalog(t)
	raw, result := solveOne(t, c, product, r)

	cal, _ := c.GetCalendar()
	calService := calsvc.New(cal)
	dec := New(c, c, c, c, calService, mustDate(2026, 1, 1))

	out, err := dec.Decode(raw, result)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out.MissedDeadlines) != 0 {
		t.Fatalf("expected no missed deadlines, got %d", len(out.MissedDeadlines))
	}
	if len(out.CapacityAnalyses) != 2 {
		t.Fatalf("expected capacity analyses for both stages, got %d", len(out.CapacityAnalyses))
	}
	if len(out.LineUtilizations) != 1 {
		t.Fatalf("expected one line's utilization, got %d", len(out.LineUtilizations))
	}
}
