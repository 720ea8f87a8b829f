package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/pkg/metrics"
	"github.com/autopeer-io/atsinspect/internal/pkg/util"
	"github.com/autopeer-io/atsinspect/pkg/log"
)

// StatusView is the read projection of a vehicle's current test instance.
type StatusView struct {
	RegnNo       string               `json:"regnNo"`
	BookingID    string               `json:"bookingId"`
	InstanceID   string               `json:"instanceId"`
	Status       model.InstanceStatus `json:"status"`
	Cycle        int                  `json:"cycle"`
	Visual       *model.SubInspection `json:"visualTests"`
	Functional   *model.SubInspection `json:"functionalTests"`
	SubmittedBy  model.Inspector      `json:"submittedBy"`
	StartedAt    time.Time            `json:"startedAt"`
	CompletedAt  *time.Time           `json:"completedAt,omitempty"`
	LaneExitTime *time.Time           `json:"laneExitTime,omitempty"`
}

// VehicleRef is the vehicle part of an InstanceSummary.
type VehicleRef struct {
	RegnNo    string              `json:"regnNo"`
	BookingID string              `json:"bookingId"`
	Status    model.VehicleStatus `json:"status"`
}

// InstanceSummary is one row of a center listing.
type InstanceSummary struct {
	ID          string               `json:"id"`
	Vehicle     VehicleRef           `json:"vehicle"`
	Status      model.InstanceStatus `json:"status"`
	Cycle       int                  `json:"cycle"`
	SubmittedBy model.Inspector      `json:"submittedBy"`
	StartedAt   time.Time            `json:"startedAt"`
	CompletedAt *time.Time           `json:"completedAt,omitempty"`
}

// Start opens a new inspection cycle for regnNo: both sub-inspection records
// are created, a test instance is created in IN_PROGRESS and the vehicle moves
// to IN_PROGRESS. Everything is applied in one unit of work.
func (s *Service) Start(ctx context.Context, p model.Principal, regnNo string) (*model.TestInstance, error) {
	const op = "inspection.Start"

	if err := requireField(op, "regnNo", regnNo); err != nil {
		return nil, err
	}

	var (
		vehicle   *model.Vehicle
		started   *model.TestInstance
		completed *model.TestInstance
	)
	err := s.vehicleTx(ctx, op, regnNo, func(ctx context.Context, repo core.Repository, v *model.Vehicle) error {
		prev, err := repo.TestInstance().GetByVehicle(ctx, v.ID)
		switch {
		case errors.Is(err, util.ErrNotFound):
			prev = nil
		case err != nil:
			return err
		case prev.Open():
			return core.E(core.KindConflict, op, fmt.Sprintf("an inspection is already in progress for %s", regnNo), nil)
		}

		cycle := 1
		if prev != nil {
			cycle = prev.Cycle + 1
		}

		visual, err := s.openSubInspection(ctx, repo, catalog.Visual, v, cycle)
		if err != nil {
			return err
		}
		functional, err := s.openSubInspection(ctx, repo, catalog.Functional, v, cycle)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		inst := &model.TestInstance{
			ID:           s.newID(),
			BookingID:    v.BookingID,
			VehicleID:    v.ID,
			VisualID:     visual.ID,
			FunctionalID: functional.ID,
			Status:       model.InstanceInProgress,
			SubmittedBy:  p.Inspector(),
			Cycle:        cycle,
			StartedAt:    now,
		}
		if prev == nil {
			err = repo.TestInstance().Create(ctx, inst)
		} else {
			err = repo.TestInstance().Save(ctx, inst)
		}
		if err != nil {
			return err
		}

		v.Status = model.VehicleInProgress
		v.LaneExitTime = nil
		v.UpdatedAt = now
		if err := repo.Vehicle().Save(ctx, v); err != nil {
			return err
		}
		vehicle, started = v, inst.Clone()

		// Records adopted from submissions made before the start may
		// already be complete.
		completed, err = s.reconcile(ctx, repo, v)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.InspectionsStartedTotal.Inc()
	log.C(ctx).Info("Test instance started", "regnNo", regnNo, "instance", started.ID, "cycle", started.Cycle)
	s.notify(ctx, s.event(model.EventStarted, vehicle, started))

	if completed != nil {
		s.onCompleted(ctx, metrics.TriggerSubmission, vehicle, completed)
		return completed, nil
	}
	return started, nil
}

// openSubInspection creates the record of category c for cycle. A record of
// the same cycle, created by an early submission, is adopted; a record of a
// previous cycle is replaced.
func (s *Service) openSubInspection(
	ctx context.Context,
	repo core.Repository,
	c catalog.Category,
	v *model.Vehicle,
	cycle int,
) (*model.SubInspection, error) {
	rec, err := s.startSubInspection(ctx, repo, c, v, cycle)
	if !errors.Is(err, util.ErrAlreadyExists) {
		return rec, err
	}

	existing, err := repo.SubInspection().Get(ctx, c, v.ID)
	if err != nil {
		return nil, err
	}
	if existing.Cycle == cycle {
		return existing, nil
	}

	rec = model.NewSubInspection(s.newID(), c, v, cycle, s.clock.Now())
	if err := repo.SubInspection().Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// MarkComplete explicitly completes the open test instance of regnNo. It
// fails with PreconditionFailed while either sub-inspection is incomplete.
// A completed instance is returned unchanged.
func (s *Service) MarkComplete(ctx context.Context, p model.Principal, regnNo string) (*model.TestInstance, error) {
	const op = "inspection.MarkComplete"

	if err := requireField(op, "regnNo", regnNo); err != nil {
		return nil, err
	}

	var (
		vehicle      *model.Vehicle
		inst         *model.TestInstance
		transitioned bool
	)
	err := s.vehicleTx(ctx, op, regnNo, func(ctx context.Context, repo core.Repository, v *model.Vehicle) error {
		var err error
		inst, err = repo.TestInstance().GetByVehicle(ctx, v.ID)
		if errors.Is(err, util.ErrNotFound) {
			return core.E(core.KindNotFound, op, fmt.Sprintf("no test instance for %s", regnNo), nil)
		}
		if err != nil {
			return err
		}
		if !inst.Open() {
			return nil
		}

		visual, functional, err := loadRecords(ctx, repo, v)
		if err != nil {
			return err
		}
		if visual == nil || functional == nil {
			return core.E(core.KindNotFound, op, fmt.Sprintf("sub-inspection records of %s not found", regnNo), nil)
		}

		if err := s.complete(ctx, repo, v, inst, visual, functional); err != nil {
			if errors.Is(err, errNotReady) {
				return core.E(core.KindPreconditionFailed, op, errNotReady.Error(), nil)
			}
			return err
		}

		vehicle, transitioned = v, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		log.C(ctx).Info("Test instance marked complete", "regnNo", regnNo, "by", p.ID)
		s.onCompleted(ctx, metrics.TriggerExplicit, vehicle, inst)
	}
	return inst, nil
}

// Status returns the current test instance of regnNo with its sub-inspections.
func (s *Service) Status(ctx context.Context, regnNo string) (*StatusView, error) {
	const op = "inspection.Status"

	if err := requireField(op, "regnNo", regnNo); err != nil {
		return nil, err
	}

	v, err := s.store.Vehicle().GetByRegistration(ctx, regnNo)
	if err != nil {
		return nil, core.StoreError(op, vehicleLookupError(op, regnNo, err))
	}

	inst, err := s.store.TestInstance().GetByVehicle(ctx, v.ID)
	if errors.Is(err, util.ErrNotFound) {
		return nil, core.E(core.KindNotFound, op, fmt.Sprintf("no test instance for %s", regnNo), nil)
	}
	if err != nil {
		return nil, core.StoreError(op, err)
	}

	visual, functional, err := loadRecords(ctx, s.store, v)
	if err != nil {
		return nil, core.StoreError(op, err)
	}

	view := &StatusView{
		RegnNo:       v.RegnNo,
		BookingID:    v.BookingID,
		InstanceID:   inst.ID,
		Status:       inst.Status,
		Cycle:        inst.Cycle,
		SubmittedBy:  inst.SubmittedBy,
		StartedAt:    inst.StartedAt,
		CompletedAt:  inst.CompletedAt,
		LaneExitTime: v.LaneExitTime,
	}
	if visual != nil && visual.Cycle == inst.Cycle {
		view.Visual = visual
	}
	if functional != nil && functional.Cycle == inst.Cycle {
		view.Functional = functional
	}
	return view, nil
}

// ListByCenter returns the test instances of every vehicle booked at centerID.
func (s *Service) ListByCenter(ctx context.Context, centerID string) ([]InstanceSummary, error) {
	const op = "inspection.ListByCenter"

	if err := requireField(op, "centerId", centerID); err != nil {
		return nil, err
	}

	vehicles, err := s.store.Vehicle().ListByCenter(ctx, centerID)
	if err != nil {
		return nil, core.StoreError(op, err)
	}

	byID := make(map[string]*model.Vehicle, len(vehicles))
	ids := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID] = v
		ids = append(ids, v.ID)
	}

	instances, err := s.store.TestInstance().ListByVehicles(ctx, ids)
	if err != nil {
		return nil, core.StoreError(op, err)
	}

	out := make([]InstanceSummary, 0, len(instances))
	for _, inst := range instances {
		v, ok := byID[inst.VehicleID]
		if !ok {
			continue
		}
		out = append(out, InstanceSummary{
			ID:          inst.ID,
			Vehicle:     VehicleRef{RegnNo: v.RegnNo, BookingID: v.BookingID, Status: v.Status},
			Status:      inst.Status,
			Cycle:       inst.Cycle,
			SubmittedBy: inst.SubmittedBy,
			StartedAt:   inst.StartedAt,
			CompletedAt: inst.CompletedAt,
		})
	}
	return out, nil
}
