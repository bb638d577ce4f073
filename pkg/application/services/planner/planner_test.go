package planner

import (
	"testing"
	"time"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
)

func mustDate(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func sum(batches []int) int {
	total := 0
	for _, b := range batches {
		total += b
	}
	return total
}

func TestComputeBatches_None(t *testing.T) {
	got, err := ComputeBatches(100, entities.LotSplitConfig{Strategy: entities.SplitNone})
	if err != nil {
		t.Fatalf("ComputeBatches: %v", err)
	}
	if len(got) != 1 || got[0] != 100 {
		t.Errorf("got %v, want [100]", got)
	}
}

func TestComputeBatches_FixedQty_MergesSmallTail(t *testing.T) {
	got, err := ComputeBatches(105, entities.LotSplitConfig{
		Strategy: entities.SplitFixedQty, BatchSize: 50, MinBatchSize: 10, AllowSmallLastBatch: false,
	})
	if err != nil {
		t.Fatalf("ComputeBatches: %v", err)
	}
	want := []int{50, 55}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %v, want %v", got, want)
	}
	if sum(got) != 105 {
		t.Errorf("batches sum to %d, want 105", sum(got))
	}
}

func TestComputeBatches_FixedQty_KeepsSmallTailWhenAllowed(t *testing.T) {
	got, err := ComputeBatches(105, entities.LotSplitConfig{
		Strategy: entities.SplitFixedQty, BatchSize: 50, MinBatchSize: 10, AllowSmallLastBatch: true,
	})
	if err != nil {
		t.Fatalf("ComputeBatches: %v", err)
	}
	want := []int{50, 50, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if sum(got) != 105 {
		t.Errorf("batches sum to %d, want 105", sum(got))
	}
}

func TestComputeBatches_FixedBatches_DistributesRemainder(t *testing.T) {
	got, err := ComputeBatches(10, entities.LotSplitConfig{Strategy: entities.SplitFixedBatches, BatchCount: 3})
	if err != nil {
		t.Fatalf("ComputeBatches: %v", err)
	}
	want := []int{4, 3, 3}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("got %v, want %v", got, want)
	}
	if sum(got) != 10 {
		t.Errorf("batches sum to %d, want 10", sum(got))
	}
}

func TestComputeBatches_Percentage(t *testing.T) {
	got, err := ComputeBatches(100, entities.LotSplitConfig{Strategy: entities.SplitPercentage, Percentage: 25})
	if err != nil {
		t.Fatalf("ComputeBatches: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 batches for 25%%, got %v", got)
	}
	if sum(got) != 100 {
		t.Errorf("batches sum to %d, want 100", sum(got))
	}
}

func TestComputeBatches_Auto(t *testing.T) {
	got, err := ComputeBatches(1000, entities.LotSplitConfig{Strategy: entities.SplitAuto, MinBatchSize: 10})
	if err != nil {
		t.Fatalf("ComputeBatches: %v", err)
	}
	if sum(got) != 1000 {
		t.Errorf("batches sum to %d, want 1000", sum(got))
	}
	for _, b := range got {
		if b > 500 {
			t.Errorf("auto batch size %d exceeds the 500 ceiling", b)
		}
	}
}

func TestComputeBatches_SuppressedBelowMinQty(t *testing.T) {
	got, err := ComputeBatches(5, entities.LotSplitConfig{
		Strategy: entities.SplitFixedQty, BatchSize: 2, MinQtyToSplit: 10,
	})
	if err != nil {
		t.Fatalf("ComputeBatches: %v", err)
	}
	if len(got) != 1 || got[0] != 5 {
		t.Errorf("expected suppression to yield one batch of 5, got %v", got)
	}
}

func TestPlanProduct_ProductLevelMode(t *testing.T) {
	p, err := entities.NewProduct("P1", "Widget", 100, 0, mustDate(2026, 1, 1), mustDate(2026, 1, 8), entities.PriorityNormal)
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}
	p.LotSplits[0] = entities.LotSplitConfig{Strategy: entities.SplitFixedBatches, BatchCount: 2}

	plan, err := PlanProduct(p, []entities.StageID{1, 2})
	if err != nil {
		t.Fatalf("PlanProduct: %v", err)
	}
	if plan.StageLevel {
		t.Fatal("expected product-level mode")
	}
	if len(plan.WorkUnits) != 2 {
		t.Fatalf("expected 2 product-level work units, got %d", len(plan.WorkUnits))
	}
	for _, wu := range plan.WorkUnits {
		if _, isStage := wu.Stage(); isStage {
			t.Errorf("product-level work unit should report Stage() ok=false, got %+v", wu)
		}
	}
}

func TestPlanProduct_StageLevelMode(t *testing.T) {
	p, err := entities.NewProduct("P1", "Widget", 100, 0, mustDate(2026, 1, 1), mustDate(2026, 1, 8), entities.PriorityNormal)
	if err != nil {
		t.Fatalf("NewProduct: %v", err)
	}
	p.LotSplits[1] = entities.LotSplitConfig{Strategy: entities.SplitFixedBatches, BatchCount: 2}

	plan, err := PlanProduct(p, []entities.StageID{1, 2})
	if err != nil {
		t.Fatalf("PlanProduct: %v", err)
	}
	if !plan.StageLevel {
		t.Fatal("expected stage-level mode once any stage has a non-none split")
	}
	stage1Units := 0
	stage2Units := 0
	for _, wu := range plan.WorkUnits {
		stageID, ok := wu.Stage()
		if !ok {
			t.Fatalf("stage-level work unit should report Stage() ok=true, got %+v", wu)
		}
		switch stageID {
		case 1:
			stage1Units++
		case 2:
			stage2Units++
		}
	}
	if stage1Units != 2 {
		t.Errorf("stage 1 should have 2 batches, got %d", stage1Units)
	}
	if stage2Units != 1 {
		t.Errorf("stage 2 with no override should fall back to one batch, got %d", stage2Units)
	}
}
