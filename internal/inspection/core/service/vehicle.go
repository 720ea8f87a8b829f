package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/pkg/util"
	"github.com/autopeer-io/atsinspect/pkg/log"
)

// VehicleInput carries the fields of a vehicle registration.
type VehicleInput struct {
	RegnNo    string
	BookingID string
	// CenterID defaults to the caller's center.
	CenterID  string
	EngineNo  string
	ChassisNo string
}

// RegisterVehicle books a vehicle for inspection.
func (s *Service) RegisterVehicle(ctx context.Context, p model.Principal, in VehicleInput) (*model.Vehicle, error) {
	const op = "inspection.RegisterVehicle"

	if in.CenterID == "" {
		in.CenterID = p.CenterID
	}
	for _, f := range []struct{ name, value string }{
		{"regnNo", in.RegnNo},
		{"bookingId", in.BookingID},
		{"centerId", in.CenterID},
	} {
		if err := requireField(op, f.name, f.value); err != nil {
			return nil, err
		}
	}

	unlock, err := s.locks.Lock(ctx, in.RegnNo)
	if err != nil {
		return nil, core.E(core.KindInternal, op, "waiting for vehicle lock", err)
	}
	defer unlock()

	now := s.clock.Now()
	v := &model.Vehicle{
		ID:        s.newID(),
		RegnNo:    in.RegnNo,
		BookingID: in.BookingID,
		CenterID:  in.CenterID,
		EngineNo:  in.EngineNo,
		ChassisNo: in.ChassisNo,
		Status:    model.VehicleRegistered,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Vehicle().Create(ctx, v); err != nil {
		if errors.Is(err, util.ErrAlreadyExists) {
			return nil, core.E(core.KindConflict, op, fmt.Sprintf("vehicle %s is already registered", in.RegnNo), err)
		}
		return nil, core.StoreError(op, err)
	}

	log.C(ctx).Info("Vehicle registered", "regnNo", v.RegnNo, "center", v.CenterID)
	return v, nil
}

// GetVehicle returns the vehicle record of regnNo.
func (s *Service) GetVehicle(ctx context.Context, regnNo string) (*model.Vehicle, error) {
	const op = "inspection.GetVehicle"

	if err := requireField(op, "regnNo", regnNo); err != nil {
		return nil, err
	}

	v, err := s.store.Vehicle().GetByRegistration(ctx, regnNo)
	if err != nil {
		return nil, core.StoreError(op, vehicleLookupError(op, regnNo, err))
	}
	return v, nil
}

// Rules returns the catalog of a category.
func (s *Service) Rules(c catalog.Category) ([]catalog.Rule, error) {
	if !c.Valid() {
		return nil, core.E(core.KindInvalidInput, "inspection.Rules", fmt.Sprintf("unknown category %q", c), nil)
	}
	return catalog.Rules(c), nil
}
