package core

import (
	"context"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
)

// VehicleRepository defines access to vehicle records.
type VehicleRepository interface {
	// GetByRegistration returns util.ErrNotFound if no vehicle has regnNo.
	// Inside a transaction the row is locked until commit.
	GetByRegistration(ctx context.Context, regnNo string) (*model.Vehicle, error)

	// Create returns util.ErrAlreadyExists on a duplicate registration number.
	Create(ctx context.Context, v *model.Vehicle) error

	Save(ctx context.Context, v *model.Vehicle) error

	// ListByCenter returns the vehicles of a center ordered by registration number.
	ListByCenter(ctx context.Context, centerID string) ([]*model.Vehicle, error)
}

// TestInstanceRepository defines access to test instances. A vehicle has at
// most one stored instance: the one of its current cycle.
type TestInstanceRepository interface {
	GetByVehicle(ctx context.Context, vehicleID string) (*model.TestInstance, error)

	// Create returns util.ErrAlreadyExists when the vehicle already has one.
	Create(ctx context.Context, t *model.TestInstance) error

	// Save replaces the instance of t.VehicleID.
	Save(ctx context.Context, t *model.TestInstance) error

	ListByVehicles(ctx context.Context, vehicleIDs []string) ([]*model.TestInstance, error)
}

// SubInspectionRepository defines access to visual and functional records,
// one per category and vehicle.
type SubInspectionRepository interface {
	Get(ctx context.Context, c catalog.Category, vehicleID string) (*model.SubInspection, error)

	// Create returns util.ErrAlreadyExists when a record of the category exists.
	Create(ctx context.Context, s *model.SubInspection) error

	// Save replaces the record of (s.Category, s.VehicleID).
	Save(ctx context.Context, s *model.SubInspection) error

	ListByVehicles(ctx context.Context, c catalog.Category, vehicleIDs []string) ([]*model.SubInspection, error)
}

// Repository groups the record repositories.
type Repository interface {
	Vehicle() VehicleRepository
	TestInstance() TestInstanceRepository
	SubInspection() SubInspectionRepository
}

// Transactor runs a unit of work. Every write made through the Repository
// passed to fn commits if fn returns nil, and none does otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// Store is the record store port implemented by adapters.
type Store interface {
	Repository
	Transactor

	// Ping reports whether the store can serve requests.
	Ping(ctx context.Context) error

	Close() error
}
