package entities

import "strconv"

// WorkUnit is the tagged variant representing an indivisible scheduling
// atom, either a whole product traversing its routing (ProductBatch) or a
// single (product, stage, batch) tuple under stage-level splitting
// (StageBatch). The two modes are mutually exclusive per product within
// one solve.
type WorkUnit interface {
	ProductID() string
	BatchNumber() int
	TotalBatches() int
	Quantity() int
	// Stage returns the pinned stage id for a StageBatch, or (0, false) for
	// a ProductBatch, which flows through every stage of its routing.
	Stage() (StageID, bool)
	Key() string
}

// ProductBatch is a work unit spanning the whole routing for one batch of a
// product-level split (or the single batch of an unsplit product).
type ProductBatch struct {
	Product    string
	Batch      int
	Total      int
	Qty        int
}

func (p ProductBatch) ProductID() string      { return p.Product }
func (p ProductBatch) BatchNumber() int       { return p.Batch }
func (p ProductBatch) TotalBatches() int      { return p.Total }
func (p ProductBatch) Quantity() int          { return p.Qty }
func (p ProductBatch) Stage() (StageID, bool) { return 0, false }
func (p ProductBatch) Key() string            { return formatKey(p.Product, -1, p.Batch) }

// StageBatch is a work unit for one batch at one stage, under stage-level
// lot splitting.
type StageBatch struct {
	Product string
	StageID StageID
	Batch   int
	Total   int
	Qty     int
}

func (s StageBatch) ProductID() string      { return s.Product }
func (s StageBatch) BatchNumber() int       { return s.Batch }
func (s StageBatch) TotalBatches() int      { return s.Total }
func (s StageBatch) Quantity() int          { return s.Qty }
func (s StageBatch) Stage() (StageID, bool) { return s.StageID, true }
func (s StageBatch) Key() string            { return formatKey(s.Product, int(s.StageID), s.Batch) }

func formatKey(product string, stageID, batch int) string {
	return product + "#" + strconv.Itoa(stageID) + "#" + strconv.Itoa(batch)
}
