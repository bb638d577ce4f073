package routing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
	"github.com/solderline/smt-scheduler/pkg/infrastructure/repositories/memory"
)

func mustDate(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func buildS1Catalog(t *testing.T) *memory.Catalog {
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

	leadTimes := map[entities.StageID]decimal.Decimal{
		1: decimal.NewFromFloat(0.5),
		2: decimal.NewFromFloat(1.2),
		3: decimal.NewFromFloat(0.8),
		4: decimal.NewFromFloat(0.3),
	}
	steps := make([]entities.RoutingStep, len(stages))
	for i, st := range stages {
		steps[i] = entities.RoutingStep{
			StageID:    st.ID,
			Sequence:   st.Order,
			Multiplier: decimal.NewFromInt(1),
		}
	}
	knownStages := map[entities.StageID]*entities.Stage{1: stages[0], 2: stages[1], 3: stages[2], 4: stages[3]}
	r, err := entities.NewRouting("P1", steps, decimal.NewFromInt(1), decimal.NewFromInt(1), knownStages)
	if err != nil {
		t.Fatalf("NewRouting: %v", err)
	}
	for stageID, lt := range leadTimes {
		r.LeadTimeOverride[stageID] = lt
	}
	if err := c.LoadRoutings([]*entities.Routing{r}); err != nil {
		t.Fatalf("LoadRoutings: %v", err)
	}

	return c
}

func TestService_ProcessingMinutes_S1Scenario(t *testing.T) {
	c := buildS1Catalog(t)
	svc := New(c, c, c)

	r, err := c.GetRouting("P1")
	if err != nil {
		t.Fatalf("GetRouting: %v", err)
	}
	line, err := c.GetLine("L1")
	if err != nil {
		t.Fatalf("GetLine: %v", err)
	}

	want := map[entities.StageID]int{1: 50, 2: 120, 3: 80, 4: 30}
	total := 0
	for _, step := range r.Steps {
		got, err := svc.ProcessingMinutes(r, step, 100, line)
		if err != nil {
			t.Fatalf("ProcessingMinutes(stage %d): %v", step.StageID, err)
		}
		if got != want[step.StageID] {
			t.Errorf("ProcessingMinutes(stage %d) = %d, want %d", step.StageID, got, want[step.StageID])
		}
		total += got
	}
	if total != 280 {
		t.Errorf("total processing minutes = %d, want 280 (spec.md S1)", total)
	}
}

func TestService_ProcessingMinutes_LineExcludedByAllowedList(t *testing.T) {
	c := buildS1Catalog(t)
	svc := New(c, c, c)

	r, _ := c.GetRouting("P1")
	line, _ := c.GetLine("L1")
	step := r.Steps[0]
	step.AllowedLines = []entities.LineID{"OTHER"}

	if _, err := svc.ProcessingMinutes(r, step, 100, line); err == nil {
		t.Fatal("expected error when line is excluded by allowed-line filter")
	}
}

func TestService_RoutingFor_SynthesizesDefaultWhenUnconfigured(t *testing.T) {
	c := memory.NewCatalog()
	stages := []*entities.Stage{{ID: 1, Name: "Solder Paste", Order: 1}}
	if err := c.LoadStages(stages); err != nil {
		t.Fatalf("LoadStages: %v", err)
	}
	svc := New(c, c, c)

	product, err := entities.NewProduct("P2", "Gadget", 10, 0,
		mustDate(2026, 1, 1), mustDate(2026, 1, 8), entities.PriorityNormal)
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}

	r, err := svc.RoutingFor(product)
	if err != nil {
		t.Fatalf("RoutingFor: %v", err)
	}
	if len(r.Steps) != 1 || r.Steps[0].StageID != 1 {
		t.Errorf("expected default routing over the single known stage, got %+v", r.Steps)
	}
}
