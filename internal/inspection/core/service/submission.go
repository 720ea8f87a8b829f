package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/pkg/metrics"
	"github.com/autopeer-io/atsinspect/internal/pkg/util"
)

// SubmissionResult is returned by the submit operations.
type SubmissionResult struct {
	Record *model.SubInspection

	// InstanceCompleted is set when this submission completed the test
	// instance.
	InstanceCompleted bool
}

// SubmitVisual records a visual inspection. Keys that are not visual rules
// are ignored. The record is complete once submitted, whatever the number of
// rules it carried.
func (s *Service) SubmitVisual(ctx context.Context, p model.Principal, regnNo string, rules map[string]any) (res *SubmissionResult, err error) {
	const op = "inspection.SubmitVisual"
	defer func() { observeSubmission(catalog.Visual, err) }()

	if err := requireField(op, "regnNo", regnNo); err != nil {
		return nil, err
	}
	if rules == nil {
		return nil, core.E(core.KindInvalidInput, op, "rules must be an object", nil)
	}

	values := make(map[string]catalog.Value, len(rules))
	for id, raw := range rules {
		rule, ok := catalog.Lookup(catalog.Visual, id)
		if !ok {
			continue
		}
		v, err := rule.Parse(raw)
		if err != nil {
			return nil, core.E(core.KindInvalidInput, op, "", err)
		}
		values[id] = v
	}

	return s.submit(ctx, op, regnNo, catalog.Visual, func(rec *model.SubInspection) {
		for id, v := range values {
			rec.Set(id, v)
		}
		rec.IsCompleted = true
	})
}

// SubmitFunctional records the value of one functional rule and recomputes
// whether every functional rule has been assessed.
func (s *Service) SubmitFunctional(ctx context.Context, p model.Principal, regnNo, ruleID string, value any) (res *SubmissionResult, err error) {
	const op = "inspection.SubmitFunctional"
	defer func() { observeSubmission(catalog.Functional, err) }()

	if err := requireField(op, "regnNo", regnNo); err != nil {
		return nil, err
	}
	if err := requireField(op, "rule", ruleID); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, core.E(core.KindInvalidInput, op, "value is required", nil)
	}

	rule, ok := catalog.Lookup(catalog.Functional, ruleID)
	if !ok {
		return nil, core.E(core.KindInvalidInput, op, fmt.Sprintf("unknown functional rule %q", ruleID), nil)
	}
	v, err := rule.Parse(value)
	if err != nil {
		return nil, core.E(core.KindInvalidInput, op, "", err)
	}

	return s.submit(ctx, op, regnNo, catalog.Functional, func(rec *model.SubInspection) {
		rec.Set(ruleID, v)
		rec.RefreshFunctionalCompletion()
	})
}

// submit applies mutate to the record of category c and runs the completion
// coordinator, all in the vehicle's unit of work.
func (s *Service) submit(
	ctx context.Context,
	op, regnNo string,
	c catalog.Category,
	mutate func(rec *model.SubInspection),
) (*SubmissionResult, error) {
	var (
		vehicle   *model.Vehicle
		record    *model.SubInspection
		completed *model.TestInstance
	)
	err := s.vehicleTx(ctx, op, regnNo, func(ctx context.Context, repo core.Repository, v *model.Vehicle) error {
		rec, err := s.recordFor(ctx, op, repo, c, v)
		if err != nil {
			return err
		}

		mutate(rec)
		rec.UpdatedAt = s.clock.Now()
		if err := repo.SubInspection().Save(ctx, rec); err != nil {
			return err
		}

		completed, err = s.reconcile(ctx, repo, v)
		if err != nil {
			return err
		}

		vehicle, record = v, rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed != nil {
		s.onCompleted(ctx, metrics.TriggerSubmission, vehicle, completed)
	}
	return &SubmissionResult{Record: record, InstanceCompleted: completed != nil}, nil
}

// recordFor returns the record of category c that a submission applies to,
// creating it for the vehicle's current cycle when none exists. Records of a
// completed cycle are closed until the next Start.
func (s *Service) recordFor(
	ctx context.Context,
	op string,
	repo core.Repository,
	c catalog.Category,
	v *model.Vehicle,
) (*model.SubInspection, error) {
	cycle := 1
	inst, err := repo.TestInstance().GetByVehicle(ctx, v.ID)
	switch {
	case err == nil:
		if !inst.Open() {
			return nil, core.E(core.KindConflict, op,
				fmt.Sprintf("inspection cycle %d of %s is closed, start a new one", inst.Cycle, v.RegnNo), nil)
		}
		cycle = inst.Cycle
	case !errors.Is(err, util.ErrNotFound):
		return nil, err
	}

	rec, err := repo.SubInspection().Get(ctx, c, v.ID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}
	return s.startSubInspection(ctx, repo, c, v, cycle)
}

// startSubInspection creates a record with every rule NotAssessed. It returns
// util.ErrAlreadyExists when the vehicle already has a record of category c.
func (s *Service) startSubInspection(
	ctx context.Context,
	repo core.Repository,
	c catalog.Category,
	v *model.Vehicle,
	cycle int,
) (*model.SubInspection, error) {
	rec := model.NewSubInspection(s.newID(), c, v, cycle, s.clock.Now())
	if err := repo.SubInspection().Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// PendingFunctional lists the vehicles of the caller's center whose
// functional inspection is open and has not assessed ruleID yet.
func (s *Service) PendingFunctional(ctx context.Context, p model.Principal, ruleID string) ([]string, error) {
	const op = "inspection.PendingFunctional"

	if err := requireField(op, "rule", ruleID); err != nil {
		return nil, err
	}
	if _, ok := catalog.Lookup(catalog.Functional, ruleID); !ok {
		return nil, core.E(core.KindInvalidInput, op, fmt.Sprintf("unknown functional rule %q", ruleID), nil)
	}

	return s.pending(ctx, op, p, catalog.Functional, func(rec *model.SubInspection) bool {
		return rec != nil && !rec.IsCompleted && rec.Pending(ruleID)
	})
}

// PendingVisual lists the vehicles of the caller's center that have no
// visual inspection yet or an incomplete one.
func (s *Service) PendingVisual(ctx context.Context, p model.Principal) ([]string, error) {
	return s.pending(ctx, "inspection.PendingVisual", p, catalog.Visual, func(rec *model.SubInspection) bool {
		return rec == nil || !rec.IsCompleted
	})
}

func (s *Service) pending(
	ctx context.Context,
	op string,
	p model.Principal,
	c catalog.Category,
	match func(rec *model.SubInspection) bool,
) ([]string, error) {
	if err := requireField(op, "centerId", p.CenterID); err != nil {
		return nil, err
	}

	vehicles, err := s.store.Vehicle().ListByCenter(ctx, p.CenterID)
	if err != nil {
		return nil, core.StoreError(op, err)
	}

	ids := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		ids = append(ids, v.ID)
	}

	recs, err := s.store.SubInspection().ListByVehicles(ctx, c, ids)
	if err != nil {
		return nil, core.StoreError(op, err)
	}
	byVehicle := make(map[string]*model.SubInspection, len(recs))
	for _, rec := range recs {
		byVehicle[rec.VehicleID] = rec
	}

	out := []string{}
	for _, v := range vehicles {
		if match(byVehicle[v.ID]) {
			out = append(out, v.RegnNo)
		}
	}
	return out, nil
}

func observeSubmission(c catalog.Category, err error) {
	outcome := metrics.OutcomeAccepted
	if err != nil {
		outcome = metrics.OutcomeRejected
	}
	metrics.RuleSubmissionsTotal.WithLabelValues(string(c), outcome).Inc()
}
