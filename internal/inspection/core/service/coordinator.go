package service

import (
	"context"
	"errors"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/pkg/metrics"
	"github.com/autopeer-io/atsinspect/internal/pkg/util"
	"github.com/autopeer-io/atsinspect/pkg/log"
)

// reconcile decides whether the open test instance of v can be completed and,
// if so, completes it within the caller's unit of work. It returns the
// completed instance, or nil when there is nothing to do yet: no instance, an
// instance that is already closed, or a sub-inspection that is missing or
// incomplete. Calling it again after completion is a no-op.
func (s *Service) reconcile(ctx context.Context, repo core.Repository, v *model.Vehicle) (*model.TestInstance, error) {
	inst, err := repo.TestInstance().GetByVehicle(ctx, v.ID)
	if errors.Is(err, util.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !inst.Open() {
		return nil, nil
	}

	visual, functional, err := loadRecords(ctx, repo, v)
	if err != nil {
		return nil, err
	}

	switch err := s.complete(ctx, repo, v, inst, visual, functional); {
	case err == nil:
		return inst, nil
	case errors.Is(err, errNotReady), errors.Is(err, errAlreadyCompleted):
		return nil, nil
	default:
		return nil, err
	}
}

// complete fires the completion transition and persists the instance and the
// vehicle. Nothing is written when the transition is refused.
func (s *Service) complete(
	ctx context.Context,
	repo core.Repository,
	v *model.Vehicle,
	inst *model.TestInstance,
	visual, functional *model.SubInspection,
) error {
	if err := newLifecycle(s.clock, v, inst, visual, functional).Complete(ctx); err != nil {
		return err
	}

	if err := repo.TestInstance().Save(ctx, inst); err != nil {
		return err
	}
	return repo.Vehicle().Save(ctx, v)
}

// loadRecords returns both sub-inspections of v; a missing one is nil.
func loadRecords(ctx context.Context, repo core.Repository, v *model.Vehicle) (visual, functional *model.SubInspection, err error) {
	get := func(c catalog.Category) (*model.SubInspection, error) {
		rec, err := repo.SubInspection().Get(ctx, c, v.ID)
		if errors.Is(err, util.ErrNotFound) {
			return nil, nil
		}
		return rec, err
	}

	if visual, err = get(catalog.Visual); err != nil {
		return nil, nil, err
	}
	if functional, err = get(catalog.Functional); err != nil {
		return nil, nil, err
	}
	return visual, functional, nil
}

// onCompleted runs after the completing unit of work has committed.
func (s *Service) onCompleted(ctx context.Context, trigger string, v *model.Vehicle, inst *model.TestInstance) {
	metrics.InspectionsCompletedTotal.WithLabelValues(trigger).Inc()
	if inst.CompletedAt != nil {
		metrics.InspectionDuration.Observe(inst.CompletedAt.Sub(inst.StartedAt).Seconds())
	}

	log.C(ctx).Info("Test instance completed",
		"regnNo", v.RegnNo, "instance", inst.ID, "cycle", inst.Cycle, "trigger", trigger)

	s.notify(ctx, s.event(model.EventCompleted, v, inst))
}
