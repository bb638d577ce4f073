// Package memory provides in-memory implementations of the domain
// repository interfaces, indexed by id for O(1) lookup.
package memory

import (
	"fmt"

	"github.com/solderline/smt-scheduler/pkg/domain/entities"
	"github.com/solderline/smt-scheduler/pkg/domain/repositories"
)

// Catalog is a single in-memory store for every repository interface this
// engine needs. A real deployment could split these across services; for a
// single `solve` call, one indexed store per concern is kept, but
// collapsed into one struct since nothing here needs independent
// lifecycle management.
type Catalog struct {
	stages   []entities.Stage
	stageIdx map[entities.StageID]int

	lines   []entities.Line
	lineIdx map[entities.LineID]int

	products   []entities.Product
	productIdx map[string]int

	routings   []entities.Routing
	routingIdx map[string]int

	calendar *entities.Calendar

	stageTransfer *entities.StageTransferMatrix
	lineTransfer  *entities.LineTransferMatrix
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		stageIdx:   map[entities.StageID]int{},
		lineIdx:    map[entities.LineID]int{},
		productIdx: map[string]int{},
		routingIdx: map[string]int{},
	}
}

var (
	_ repositories.StageRepository           = (*Catalog)(nil)
	_ repositories.LineRepository            = (*Catalog)(nil)
	_ repositories.ProductRepository         = (*Catalog)(nil)
	_ repositories.CalendarRepository        = (*Catalog)(nil)
	_ repositories.TransferMatrixRepository  = (*Catalog)(nil)
)

// LoadStages replaces the stage catalog.
func (c *Catalog) LoadStages(stages []*entities.Stage) error {
	c.stages = c.stages[:0]
	c.stageIdx = make(map[entities.StageID]int, len(stages))
	for _, s := range stages {
		c.stageIdx[s.ID] = len(c.stages)
		c.stages = append(c.stages, *s)
	}
	return nil
}

// GetStage returns a single stage by id.
func (c *Catalog) GetStage(id entities.StageID) (*entities.Stage, error) {
	idx, ok := c.stageIdx[id]
	if !ok {
		return nil, fmt.Errorf("stage not found: %d", id)
	}
	return &c.stages[idx], nil
}

// GetAllStages returns every stage in the catalog.
func (c *Catalog) GetAllStages() ([]*entities.Stage, error) {
	out := make([]*entities.Stage, 0, len(c.stages))
	for i := range c.stages {
		out = append(out, &c.stages[i])
	}
	return out, nil
}

// LoadLines replaces the line fleet.
func (c *Catalog) LoadLines(lines []*entities.Line) error {
	c.lines = c.lines[:0]
	c.lineIdx = make(map[entities.LineID]int, len(lines))
	for _, l := range lines {
		c.lineIdx[l.ID] = len(c.lines)
		c.lines = append(c.lines, *l)
	}
	return nil
}

// GetLine returns a single line by id.
func (c *Catalog) GetLine(id entities.LineID) (*entities.Line, error) {
	idx, ok := c.lineIdx[id]
	if !ok {
		return nil, fmt.Errorf("line not found: %s", id)
	}
	return &c.lines[idx], nil
}

// GetAllLines returns every line in the fleet.
func (c *Catalog) GetAllLines() ([]*entities.Line, error) {
	out := make([]*entities.Line, 0, len(c.lines))
	for i := range c.lines {
		out = append(out, &c.lines[i])
	}
	return out, nil
}

// GetActiveLines returns only active lines.
func (c *Catalog) GetActiveLines() ([]*entities.Line, error) {
	out := make([]*entities.Line, 0, len(c.lines))
	for i := range c.lines {
		if c.lines[i].Active {
			out = append(out, &c.lines[i])
		}
	}
	return out, nil
}

// LoadProducts replaces the product set.
func (c *Catalog) LoadProducts(products []*entities.Product) error {
	c.products = c.products[:0]
	c.productIdx = make(map[string]int, len(products))
	for _, p := range products {
		c.productIdx[p.ID] = len(c.products)
		c.products = append(c.products, *p)
	}
	return nil
}

// GetProduct returns a single product by id.
func (c *Catalog) GetProduct(id string) (*entities.Product, error) {
	idx, ok := c.productIdx[id]
	if !ok {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	return &c.products[idx], nil
}

// GetAllProducts returns every product.
func (c *Catalog) GetAllProducts() ([]*entities.Product, error) {
	out := make([]*entities.Product, 0, len(c.products))
	for i := range c.products {
		out = append(out, &c.products[i])
	}
	return out, nil
}

// LoadRoutings replaces the routing catalog.
func (c *Catalog) LoadRoutings(routings []*entities.Routing) error {
	c.routings = c.routings[:0]
	c.routingIdx = make(map[string]int, len(routings))
	for _, r := range routings {
		c.routingIdx[r.ProductID] = len(c.routings)
		c.routings = append(c.routings, *r)
	}
	return nil
}

// GetRouting returns the configured routing for a product, if any. Callers
// that want the default-synthesis fallback should check the returned
// error and construct one via entities.DefaultRouting themselves (the
// repository only ever reports what was actually configured).
func (c *Catalog) GetRouting(productID string) (*entities.Routing, error) {
	idx, ok := c.routingIdx[productID]
	if !ok {
		return nil, fmt.Errorf("routing not found for product: %s", productID)
	}
	return &c.routings[idx], nil
}

// LoadCalendar installs the singleton working calendar.
func (c *Catalog) LoadCalendar(cal *entities.Calendar) error {
	c.calendar = cal
	return nil
}

// GetCalendar returns the installed calendar.
func (c *Catalog) GetCalendar() (*entities.Calendar, error) {
	if c.calendar == nil {
		return nil, fmt.Errorf("no calendar loaded")
	}
	return c.calendar, nil
}

// LoadStageTransferMatrix installs the stage-to-stage transfer matrix.
func (c *Catalog) LoadStageTransferMatrix(m *entities.StageTransferMatrix) error {
	c.stageTransfer = m
	return nil
}

// GetStageTransferMatrix returns the installed stage transfer matrix.
func (c *Catalog) GetStageTransferMatrix() (*entities.StageTransferMatrix, error) {
	if c.stageTransfer == nil {
		return entities.NewStageTransferMatrix(0), nil
	}
	return c.stageTransfer, nil
}

// LoadLineTransferMatrix installs the line-to-line transfer matrix.
func (c *Catalog) LoadLineTransferMatrix(m *entities.LineTransferMatrix) error {
	c.lineTransfer = m
	return nil
}

// GetLineTransferMatrix returns the installed line transfer matrix.
func (c *Catalog) GetLineTransferMatrix() (*entities.LineTransferMatrix, error) {
	if c.lineTransfer == nil {
		return entities.NewLineTransferMatrix(0), nil
	}
	return c.lineTransfer, nil
}
