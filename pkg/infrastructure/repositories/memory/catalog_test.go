package memory

import (
	"testing"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
)

func TestCatalog_StagesRoundTrip(t *testing.T) {
	c := NewCatalog()
	stages := []*entities.Stage{
		{ID: 1, Name: "Solder Paste", Order: 1},
		{ID: 2, Name: "Pick & Place", Order: 2},
	}
	if err := c.LoadStages(stages); err != nil {
		t.Fatalf("LoadStages: %v", err)
	}

	got, err := c.GetStage(2)
	if err != nil {
		t.Fatalf("GetStage: %v", err)
	}
	if got.Name != "Pick & Place" {
		t.Errorf("GetStage(2).Name = %q, want %q", got.Name, "Pick & Place")
	}

	all, err := c.GetAllStages()
	if err != nil {
		t.Fatalf("GetAllStages: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("GetAllStages() returned %d stages, want 2", len(all))
	}

	if _, err := c.GetStage(99); err == nil {
		t.Fatal("expected error for unknown stage id")
	}
}

func TestCatalog_ActiveLinesOnly(t *testing.T) {
	c := NewCatalog()
	active, _ := entities.NewLine("L1", "Line One", true, 40)
	inactive, _ := entities.NewLine("L2", "Line Two", false, 40)
	if err := c.LoadLines([]*entities.Line{active, inactive}); err != nil {
		t.Fatalf("LoadLines: %v", err)
	}

	lines, err := c.GetActiveLines()
	if err != nil {
		t.Fatalf("GetActiveLines: %v", err)
	}
	if len(lines) != 1 || lines[0].ID != "L1" {
		t.Errorf("GetActiveLines() = %+v, want only L1", lines)
	}

	all, err := c.GetAllLines()
	if err != nil {
		t.Fatalf("GetAllLines: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("GetAllLines() returned %d, want 2", len(all))
	}
}

func TestCatalog_TransferMatrixDefaultsWhenUnset(t *testing.T) {
	c := NewCatalog()
	m, err := c.GetStageTransferMatrix()
	if err != nil {
		t.Fatalf("GetStageTransferMatrix: %v", err)
	}
	if got := m.Get(1, 2); got != 0 {
		t.Errorf("unset matrix should default to 0, got %d", got)
	}
}
