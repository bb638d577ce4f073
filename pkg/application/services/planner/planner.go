// Package planner turns a product's required quantity into an ordered
// list of batch sizes and the work units the constraint model builder
// schedules.
package planner

import (
	"fmt"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
)

// ComputeBatches returns the ordered batch sizes for requiredQty under
// cfg, summing exactly to requiredQty. Splitting is suppressed (one
// batch of the full quantity) when requiredQty is below
// cfg.MinQtyToSplit.
func ComputeBatches(requiredQty int, cfg entities.LotSplitConfig) ([]int, error) {
	if requiredQty <= 0 {
		return nil, nil
	}
	if requiredQty < cfg.MinQtyToSplit {
		return []int{requiredQty}, nil
	}

	switch cfg.Strategy {
	case entities.SplitNone:
		return []int{requiredQty}, nil

	case entities.SplitFixedQty:
		return fixedQtyBatches(requiredQty, cfg), nil

	case entities.SplitFixedBatches:
		return nearEqualBatches(requiredQty, cfg.BatchCount), nil

	case entities.SplitPercentage:
		k := ceilDiv(100, cfg.Percentage)
		return nearEqualBatches(requiredQty, k), nil

	case entities.SplitAuto:
		size := clamp(requiredQty/4, cfg.MinBatchSize, 500)
		auto := cfg
		auto.Strategy = entities.SplitFixedQty
		auto.BatchSize = size
		return fixedQtyBatches(requiredQty, auto), nil

	default:
		return nil, fmt.Errorf("unknown split strategy %d", cfg.Strategy)
	}
}

func fixedQtyBatches(requiredQty int, cfg entities.LotSplitConfig) []int {
	if cfg.BatchSize <= 0 {
		return []int{requiredQty}
	}
	var batches []int
	remaining := requiredQty
	for remaining > 0 {
		size := cfg.BatchSize
		if size > remaining {
			size = remaining
		}
		batches = append(batches, size)
		remaining -= size
	}
	if len(batches) > 1 {
		tail := batches[len(batches)-1]
		if tail < cfg.MinBatchSize && !cfg.AllowSmallLastBatch {
			batches = batches[:len(batches)-1]
			batches[len(batches)-1] += tail
		}
	}
	return batches
}

// nearEqualBatches splits qty into k batches as close to equal size as
// possible, distributing the remainder one extra unit per early batch.
func nearEqualBatches(qty, k int) []int {
	if k <= 0 {
		return []int{qty}
	}
	if k > qty {
		k = qty
	}
	base := qty / k
	remainder := qty % k
	batches := make([]int, k)
	for i := range batches {
		batches[i] = base
		if i < remainder {
			batches[i]++
		}
	}
	return batches
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

func clamp(v, lo, hi int) int {
	if lo > 0 && v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	return v
}

// Plan is the complete set of work units for one product, plus the batch
// sizes that produced them, keyed per stage so the model builder can
// look up which batch index a work unit occupies at each stage.
type Plan struct {
	Product   *entities.Product
	WorkUnits []entities.WorkUnit
	// BatchSizesByStage holds the batch-size list actually used at each
	// stage, for stage-level mode. Product-level mode stores the single
	// shared list under key 0.
	BatchSizesByStage map[entities.StageID][]int
	StageLevel        bool
}

// PlanProduct builds the work units for product across its routing's
// stages, given in routing order as stageIDs. The lot-split config for
// each stage comes from product.LotSplitFor (key 0 in product-level mode).
func PlanProduct(product *entities.Product, stageIDs []entities.StageID) (*Plan, error) {
	requiredQty := product.RequiredQty()
	if requiredQty <= 0 {
		return &Plan{Product: product, BatchSizesByStage: map[entities.StageID][]int{}}, nil
	}

	stageLevel := product.HasStageLevelSplitting()
	plan := &Plan{
		Product:           product,
		BatchSizesByStage: map[entities.StageID][]int{},
		StageLevel:        stageLevel,
	}

	if stageLevel {
		for _, stageID := range stageIDs {
			cfg := product.LotSplitFor(stageID)
			batches, err := ComputeBatches(requiredQty, cfg)
			if err != nil {
				return nil, fmt.Errorf("product %s stage %d: %w", product.ID, stageID, err)
			}
			plan.BatchSizesByStage[stageID] = batches
			total := len(batches)
			for i, qty := range batches {
				plan.WorkUnits = append(plan.WorkUnits, entities.StageBatch{
					Product: product.ID,
					StageID: stageID,
					Batch:   i + 1,
					Total:   total,
					Qty:     qty,
				})
			}
		}
		return plan, nil
	}

	cfg := product.LotSplitFor(0)
	batches, err := ComputeBatches(requiredQty, cfg)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", product.ID, err)
	}
	plan.BatchSizesByStage[0] = batches
	total := len(batches)
	for i, qty := range batches {
		plan.WorkUnits = append(plan.WorkUnits, entities.ProductBatch{
			Product: product.ID,
			Batch:   i + 1,
			Total:   total,
			Qty:     qty,
		})
	}
	return plan, nil
}
