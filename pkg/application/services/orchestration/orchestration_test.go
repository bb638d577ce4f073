package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
	"github.com/solderline/smt-scheduler/pkg/infrastructure/repositories/memory"
	"github.com/solderline/smt-scheduler/pkg/infrastructure/solver"
)

func mustDate(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// seedCatalog builds a minimal feasible catalog: two stages, one line
// supporting both, a calendar, and empty transfer matrices, mirroring the
// modelbuilder package's fixture.
func seedCatalog(t *testing.T) *memory.Catalog {
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
	return c
}

func newEngine(c *memory.Catalog) *Engine {
	return New(c, c, c, c, c, entities.DefaultFeatureFlags(), solver.Params{TimeLimit: 10 * time.Second})
}

func TestSolve_FeasibleScheduleProducesDecodedTasks(t *testing.T) {
	c := seedCatalog(t)

	steps := []entities.RoutingStep{
		{StageID: 1, Sequence: 1, Multiplier: decimal.NewFromInt(1)},
		{StageID: 2, Sequence: 2, Multiplier: decimal.NewFromInt(1)},
	}
	knownStages := map[entities.StageID]*entities.Stage{1: {ID: 1, Name: "Solder Paste", Order: 1}, 2: {ID: 2, Name: "Reflow", Order: 2}}
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

	engine := newEngine(c)
	result, err := engine.Solve(context.Background(), mustDate(2026, 1, 1))
	if err != nil {
		t.Fatalf("Solve returned an unexpected error: %v", err)
	}
	if result.Status != entities.StatusOptimal && result.Status != entities.StatusFeasible {
		t.Fatalf("expected an optimal or feasible status, got %s (reasons: %v)", result.Status, result.FailureReasons)
	}
	if len(result.Tasks) != 2 {
		t.Fatalf("expected 2 scheduled tasks, got %d", len(result.Tasks))
	}
	if result.MakespanMinutes <= 0 {
		t.Fatalf("expected a positive makespan, got %d", result.MakespanMinutes)
	}
}

func TestSolve_NoRoutingFallsBackToDefaultRouting(t *testing.T) {
	c := seedCatalog(t)

	// A product with no routing registered for it: RoutingFor synthesizes a
	// default routing over every catalog stage, so the solve succeeds with
	// one task per stage and a nil error.
	product, err := entities.NewProduct("P1", "Widget", 100, 0, mustDate(2026, 1, 1), mustDate(2026, 1, 20), entities.PriorityNormal)
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}
	if err := c.LoadProducts([]*entities.Product{product}); err != nil {
		t.Fatalf("LoadProducts: %v", err)
	}

	engine := newEngine(c)
	result, err := engine.Solve(context.Background(), mustDate(2026, 1, 1))
	if err != nil {
		t.Fatalf("Solve returned an unexpected error: %v", err)
	}
	if result.Status != entities.StatusOptimal && result.Status != entities.StatusFeasible {
		t.Fatalf("expected an optimal or feasible status, got %s (reasons: %v)", result.Status, result.FailureReasons)
	}
	if len(result.Tasks) != 2 {
		t.Fatalf("expected one task per default-routing stage (2), got %d", len(result.Tasks))
	}
}

func TestSolve_NoProductsReturnsNoProductionNeeded(t *testing.T) {
	c := seedCatalog(t)
	engine := newEngine(c)

	result, err := engine.Solve(context.Background(), mustDate(2026, 1, 1))
	if err != nil {
		t.Fatalf("Solve returned an unexpected error: %v", err)
	}
	if result.Status != entities.StatusNoProductionNeeded {
		t.Fatalf("expected StatusNoProductionNeeded, got %s", result.Status)
	}
}
