package entities

import (
	"fmt"
	"strings"
	"time"
)

// PriorityTier ranks products for the priority-weighted ordering pass
// (applied before model construction, never as a lexicographic
// objective).
type PriorityTier int

const (
	PriorityLow PriorityTier = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// StageNaming configures how a product's display name at a given stage is
// derived.
type StageNaming struct {
	NamesByStage map[StageID]string
	NamePattern  string // e.g. "{Name}-{StageOrder}", used when no per-stage name is set
}

// Product is a unit of demand to be scheduled across the routing's stages.
type Product struct {
	ID           string
	Name         string
	OrderQty     int
	StockQty     int
	ReleaseDate  time.Time
	DueDate      time.Time
	Priority     PriorityTier
	RoutingID    string // looked up in the routing catalog; product ID by convention
	LotSplits    map[StageID]LotSplitConfig
	Naming       StageNaming
}

// NewProduct creates a validated Product. due > release is enforced here;
// required_qty = max(0, order_qty - stock_qty) is exposed via RequiredQty.
func NewProduct(id, name string, orderQty, stockQty int, release, due time.Time, priority PriorityTier) (*Product, error) {
	if id == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if orderQty < 0 {
		return nil, fmt.Errorf("order qty cannot be negative, got %d", orderQty)
	}
	if stockQty < 0 {
		return nil, fmt.Errorf("stock qty cannot be negative, got %d", stockQty)
	}
	if !due.After(release) {
		return nil, fmt.Errorf("product %s: due date %v must be after release date %v", id, due, release)
	}
	return &Product{
		ID:          id,
		Name:        name,
		OrderQty:    orderQty,
		StockQty:    stockQty,
		ReleaseDate: release,
		DueDate:     due,
		Priority:    priority,
		RoutingID:   id,
		LotSplits:   map[StageID]LotSplitConfig{},
	}, nil
}

// RequiredQty is max(0, order_qty - stock_qty).
func (p *Product) RequiredQty() int {
	req := p.OrderQty - p.StockQty
	if req < 0 {
		return 0
	}
	return req
}

// LotSplitFor returns the configured split for a stage, or the no-split
// default if none was configured.
func (p *Product) LotSplitFor(s StageID) LotSplitConfig {
	if cfg, ok := p.LotSplits[s]; ok {
		return cfg
	}
	return DefaultLotSplitConfig()
}

// HasStageLevelSplitting reports whether any stage of this product has a
// non-default split configuration. Stage-level splitting is materialized
// whenever it's present anywhere for the product. Key 0 holds the
// product-level split shared by every stage and does not count.
func (p *Product) HasStageLevelSplitting() bool {
	for s, cfg := range p.LotSplits {
		if s == 0 {
			continue
		}
		if cfg.Strategy != SplitNone {
			return true
		}
	}
	return false
}

// DisplayNameAt returns the display name for this product at the given
// stage, from the per-stage name map when present, otherwise by expanding
// the name pattern ("{Name}-{StageOrder}" by default).
func (p *Product) DisplayNameAt(stage *Stage) string {
	if p.Naming.NamesByStage != nil {
		if name, ok := p.Naming.NamesByStage[stage.ID]; ok {
			return name
		}
	}
	pattern := p.Naming.NamePattern
	if pattern == "" {
		pattern = "{Name}-{StageOrder}"
	}
	return expandNamePattern(pattern, p.Name, stage.Order)
}

func expandNamePattern(pattern, name string, stageOrder int) string {
	out := strings.ReplaceAll(pattern, "{Name}", name)
	out = strings.ReplaceAll(out, "{StageOrder}", fmt.Sprintf("%d", stageOrder))
	return out
}
