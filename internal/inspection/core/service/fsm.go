package service

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	fsmutil "github.com/autopeer-io/atsinspect/internal/pkg/util/fsm"
)

const eventComplete = "complete"

var (
	errNotReady         = errors.New("visual and functional inspections must both be completed")
	errAlreadyCompleted = errors.New("test instance is already completed")
)

// lifecycle drives one test instance through IN_PROGRESS -> COMPLETED.
// The machine starts from the stored status, so it is cheap to rebuild per
// unit of work.
type lifecycle struct {
	fsm   *fsm.FSM
	clock clock.PassiveClock

	vehicle    *model.Vehicle
	instance   *model.TestInstance
	visual     *model.SubInspection
	functional *model.SubInspection
}

func newLifecycle(clk clock.PassiveClock, v *model.Vehicle, inst *model.TestInstance, visual, functional *model.SubInspection) *lifecycle {
	l := &lifecycle{
		clock:      clk,
		vehicle:    v,
		instance:   inst,
		visual:     visual,
		functional: functional,
	}

	l.fsm = fsm.NewFSM(
		string(inst.Status),
		fsm.Events{
			{Name: eventComplete, Src: []string{string(model.InstanceInProgress)}, Dst: string(model.InstanceCompleted)},
		},
		fsm.Callbacks{
			"before_" + eventComplete:                  l.guardComplete,
			"enter_" + string(model.InstanceCompleted): fsmutil.WrapEvent(l.onCompleted),
		},
	)

	return l
}

// ready reports whether both sub-inspections of the instance's cycle are done.
func (l *lifecycle) ready() bool {
	return l.done(l.visual) && l.done(l.functional)
}

func (l *lifecycle) done(s *model.SubInspection) bool {
	return s != nil && s.Cycle == l.instance.Cycle && s.IsCompleted
}

func (l *lifecycle) guardComplete(_ context.Context, e *fsm.Event) {
	if !l.ready() {
		e.Cancel(errNotReady)
	}
}

func (l *lifecycle) onCompleted(_ context.Context, _ *fsm.Event) error {
	now := l.clock.Now()

	l.instance.Status = model.InstanceCompleted
	l.instance.CompletedAt = &now

	l.vehicle.Status = model.VehicleCompleted
	l.vehicle.LaneExitTime = &now
	l.vehicle.UpdatedAt = now

	return nil
}

// Complete fires the completion event. It returns errNotReady when the guard
// vetoes the transition and errAlreadyCompleted when the instance is closed.
func (l *lifecycle) Complete(ctx context.Context) error {
	err := l.fsm.Event(ctx, eventComplete)
	switch {
	case err == nil:
		return nil
	case fsmutil.IsCanceled(err):
		return errNotReady
	case fsmutil.IsInvalidEvent(err):
		return errAlreadyCompleted
	case fsmutil.IsRealError(err):
		return err
	default:
		// No transition: the machine is already in COMPLETED.
		return errAlreadyCompleted
	}
}
