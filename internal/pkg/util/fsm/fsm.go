package fsm

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// WrapEvent adapts an error-returning callback to fsm.Callback. A non-nil
// error is stored on the event and surfaces from FSM.Event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

// IsRealError reports whether err returned from FSM.Event means the
// transition failed, as opposed to being skipped or vetoed by a guard.
func IsRealError(err error) bool {
	if err == nil {
		return false
	}

	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return false
	}

	var canceled fsm.CanceledError
	return !errors.As(err, &canceled)
}

// IsCanceled reports whether err comes from a before_ callback calling Cancel.
func IsCanceled(err error) bool {
	var canceled fsm.CanceledError
	return errors.As(err, &canceled)
}

// IsInvalidEvent reports whether the event is not allowed in the current state.
func IsInvalidEvent(err error) bool {
	var invalid fsm.InvalidEventError
	return errors.As(err, &invalid)
}
