package modelbuilder

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	cpmodel "github.com/google/or-tools/ortools/sat/go/cpmodel"

	"github.com/solderline/smt-scheduler/pkg/application/services/routing"
	"github.com/solderline/smt-scheduler/pkg/domain/entities"
	"github.com/solderline/smt-scheduler/pkg/infrastructure/repositories/memory"
	"github.com/solderline/smt-scheduler/pkg/infrastructure/solver"
)

func mustDate(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// buildSingleLineCatalog mirrors the routing package's S1 fixture: one
// product, four stages in a line, a single line supporting all of them.
func buildSingleLineCatalog(t *testing.T) (*memory.Catalog, *entities.Product) {
	t.Helper()
	c := memory.NewCatalog()

	stages := []*entities.Stage{
		{ID: 1, Name: "Solder Paste", Order: 1},
		{ID: 2, Name: "Pick and Place", Order: 2},
		{ID: 3, Name: "Reflow", Order: 3},
		{ID: 4, Name: "AOI", Order: 4},
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

	steps := make([]entities.RoutingStep, len(stages))
	for i, st := range stages {
		steps[i] = entities.RoutingStep{StageID: st.ID, Sequence: st.Order, Multiplier: decimal.NewFromInt(1)}
	}
	knownStages := map[entities.StageID]*entities.Stage{1: stages[0], 2: stages[1], 3: stages[2], 4: stages[3]}
	r, err := entities.NewRouting("P1", steps, decimal.NewFromFloat(0.1), decimal.NewFromInt(1), knownStages)
	if err != nil {
		t.Fatalf("NewRouting: %v", err)
	}
	if err := c.LoadRoutings([]*entities.Routing{r}); err != nil {
		t.Fatalf("LoadRoutings: %v", err)
	}

	cal := entities.NewDefaultCalendar(entities.Shift{StartMinute: 480, EndMinute: 1020})
	if err := c.LoadCalendar(cal); err != nil {
		t.Fatalf("LoadCalendar: %v", err)
	}
	if err := c.LoadStageTransferMatrix(entities.NewStageTransferMatrix(5)); err != nil {
		t.Fatalf("LoadStageTransferMatrix: %v", err)
	}
	if err := c.LoadLineTransferMatrix(entities.NewLineTransferMatrix(0)); err != nil {
		t.Fatalf("LoadLineTransferMatrix: %v", err)
	}

	product, err := entities.NewProduct("P1", "Widget", 100, 0, mustDate(2026, 1, 1), mustDate(2026, 1, 20), entities.PriorityNormal)
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}
	if err := c.LoadProducts([]*entities.Product{product}); err != nil {
		t.Fatalf("LoadProducts: %v", err)
	}
	return c, product
}

func TestBuild_SingleProductSolvesWithOneUnitStagePerStep(t *testing.T) {
	c, product := buildSingleLineCatalog(t)
	routingSvc := routing.New(c, c, c)
	r, err := routingSvc.RoutingFor(product)
	if err != nil {
		t.Fatalf("RoutingFor: %v", err)
	}

	stageTransfer, _ := c.GetStageTransferMatrix()
	lineTransfer, _ := c.GetLineTransferMatrix()
	builder := New(routingSvc, stageTransfer, lineTransfer, entities.DefaultFeatureFlags())

	unit := entities.ProductBatch{Product: "P1", Batch: 1, Total: 1, Qty: 100}
	units := []UnitContext{{Unit: unit, Product: product, Routing: r, ReleaseMinutes: 0, DueMinutes: 100000}}

	var result *Result
	resp, err := solver.Solve(context.Background(), solver.Params{TimeLimit: 10 * time.Second}, func(cp *cpmodel.Builder) error {
		var buildErr error
		result, buildErr = builder.Build(cp, units)
		return buildErr
	})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if resp.Raw == nil {
		t.Fatal("expected a raw solver response")
	}
	if result == nil {
		t.Fatal("expected a non-nil model result")
	}
	if len(result.UnitStages()) != 4 {
		t.Fatalf("expected 4 unit-stages (one per routing step), got %d", len(result.UnitStages()))
	}
}

func TestBuild_NoCandidateLineReturnsStructuralError(t *testing.T) {
	c, product := buildSingleLineCatalog(t)
	routingSvc := routing.New(c, c, c)
	r, err := routingSvc.RoutingFor(product)
	if err != nil {
		t.Fatalf("RoutingFor: %v", err)
	}
	// Exclude every line from the first step so no candidate exists.
	r.Steps[0].AllowedLines = []entities.LineID{"NONEXISTENT"}

	stageTransfer, _ := c.GetStageTransferMatrix()
	lineTransfer, _ := c.GetLineTransferMatrix()
	builder := New(routingSvc, stageTransfer, lineTransfer, entities.DefaultFeatureFlags())

	unit := entities.ProductBatch{Product: "P1", Batch: 1, Total: 1, Qty: 100}
	units := []UnitContext{{Unit: unit, Product: product, Routing: r, ReleaseMinutes: 0, DueMinutes: 100000}}

	cp := cpmodel.NewCpModelBuilder()
	_, err = builder.Build(cp, units)
	if err == nil {
		t.Fatal("expected a structural error when no line can run the first stage")
	}
	if _, ok := err.(*entities.StructuralInputError); !ok {
		t.Fatalf("expected *entities.StructuralInputError, got %T: %v", err, err)
	}
}
