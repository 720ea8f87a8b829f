package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/pkg/metrics"
	"github.com/autopeer-io/atsinspect/internal/pkg/util"
	"github.com/autopeer-io/atsinspect/pkg/log"
)

// Service implements the inspection use cases.
// It orchestrates calls between the model entities and the adapters (ports).
type Service struct {
	store    core.Store
	notifier core.EventNotifier
	clock    clock.PassiveClock
	locks    *keyedMutex
	newID    func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clock.PassiveClock) Option {
	return func(s *Service) { s.clock = c }
}

// WithIDGenerator replaces the UUID generator used for new records.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates the inspection service. A nil notifier drops events.
func New(store core.Store, notifier core.EventNotifier, opts ...Option) *Service {
	if notifier == nil {
		notifier = core.NopNotifier{}
	}

	s := &Service{
		store:    store,
		notifier: notifier,
		clock:    clock.RealClock{},
		locks:    newKeyedMutex(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether the record store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return core.E(core.KindStoreUnavailable, "inspection.Ready", "", err)
	}
	return nil
}

// vehicleTx runs fn in one unit of work for the vehicle regnNo, holding the
// vehicle's lock for the whole read-modify-write sequence.
func (s *Service) vehicleTx(
	ctx context.Context,
	op, regnNo string,
	fn func(ctx context.Context, repo core.Repository, v *model.Vehicle) error,
) error {
	unlock, err := s.locks.Lock(ctx, regnNo)
	if err != nil {
		return core.E(core.KindInternal, op, "waiting for vehicle lock", err)
	}
	defer unlock()

	err = s.store.InTx(ctx, func(ctx context.Context, repo core.Repository) error {
		v, err := repo.Vehicle().GetByRegistration(ctx, regnNo)
		if err != nil {
			return vehicleLookupError(op, regnNo, err)
		}
		return fn(ctx, repo, v)
	})

	return core.StoreError(op, err)
}

func vehicleLookupError(op, regnNo string, err error) error {
	if errors.Is(err, util.ErrNotFound) {
		return core.E(core.KindNotFound, op, fmt.Sprintf("vehicle %s not found", regnNo), nil)
	}
	return err
}

func requireField(op, name, value string) error {
	if value == "" {
		return core.E(core.KindInvalidInput, op, name+" is required", nil)
	}
	return nil
}

// notify publishes events after commit. Failures never reach the caller.
func (s *Service) notify(ctx context.Context, events ...*model.InspectionEvent) {
	for _, e := range events {
		if err := s.notifier.Notify(ctx, e); err != nil {
			metrics.NotifierFailuresTotal.Inc()
			log.C(ctx).Warn("Failed to publish inspection event", "type", e.Type, "regnNo", e.RegnNo, "err", err)
		}
	}
}

func (s *Service) event(t model.EventType, v *model.Vehicle, inst *model.TestInstance) *model.InspectionEvent {
	return &model.InspectionEvent{
		Type:       t,
		RegnNo:     v.RegnNo,
		BookingID:  v.BookingID,
		CenterID:   v.CenterID,
		InstanceID: inst.ID,
		Cycle:      inst.Cycle,
		Status:     inst.Status,
		Inspector:  inst.SubmittedBy,
		OccurredAt: s.clock.Now(),
	}
}
