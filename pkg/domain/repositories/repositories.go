// Package repositories declares the read-only collaborators the
// orchestrator and its services consume. The engine never imports a
// concrete implementation directly, only these interfaces, so that the
// in-memory catalogs built from CSV/Excel input can be swapped for any
// other source without touching scheduling logic.
package repositories

import "github.com/solderline/smt-scheduler/pkg/domain/entities"

// StageRepository provides access to the stage catalog.
type StageRepository interface {
	GetStage(id entities.StageID) (*entities.Stage, error)
	GetAllStages() ([]*entities.Stage, error)
	LoadStages(stages []*entities.Stage) error
}

// LineRepository provides access to the line fleet and their stage
// capabilities.
type LineRepository interface {
	GetLine(id entities.LineID) (*entities.Line, error)
	GetAllLines() ([]*entities.Line, error)
	GetActiveLines() ([]*entities.Line, error)
	LoadLines(lines []*entities.Line) error
}

// ProductRepository provides access to products and their routings.
type ProductRepository interface {
	GetProduct(id string) (*entities.Product, error)
	GetAllProducts() ([]*entities.Product, error)
	LoadProducts(products []*entities.Product) error

	GetRouting(productID string) (*entities.Routing, error)
	LoadRoutings(routings []*entities.Routing) error
}

// CalendarRepository provides access to the singleton working calendar.
type CalendarRepository interface {
	GetCalendar() (*entities.Calendar, error)
	LoadCalendar(cal *entities.Calendar) error
}

// TransferMatrixRepository provides access to the stage and line transfer
// matrices.
type TransferMatrixRepository interface {
	GetStageTransferMatrix() (*entities.StageTransferMatrix, error)
	GetLineTransferMatrix() (*entities.LineTransferMatrix, error)
	LoadStageTransferMatrix(m *entities.StageTransferMatrix) error
	LoadLineTransferMatrix(m *entities.LineTransferMatrix) error
}
