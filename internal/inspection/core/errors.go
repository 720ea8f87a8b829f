package core

import (
	"errors"
	"fmt"

	"github.com/autopeer-io/atsinspect/internal/pkg/util"
)

// Kind classifies an error for the callers of the service.
type Kind string

const (
	KindNotFound           Kind = "NotFound"
	KindConflict           Kind = "Conflict"
	KindInvalidInput       Kind = "InvalidInput"
	KindPreconditionFailed Kind = "PreconditionFailed"
	KindStoreUnavailable   Kind = "StoreUnavailable"
	KindInternal           Kind = "Internal"
)

// Error is returned by every service operation.
type Error struct {
	Kind Kind
	// Op is the failing operation, e.g. "inspection.Start".
	Op  string
	Msg string
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, so errors.Is(err, core.ErrNotFound) works for any Op.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrPreconditionFailed = &Error{Kind: KindPreconditionFailed}
	ErrStoreUnavailable   = &Error{Kind: KindStoreUnavailable}
	ErrInternal           = &Error{Kind: KindInternal}
)

// E builds an *Error.
func E(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StoreError classifies an error coming out of a store adapter. Errors that
// are already *Error keep their kind; not-found and duplicates map to their
// kinds; everything else means the store could not serve the request.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, util.ErrNotFound):
		return E(KindNotFound, op, "", err)
	case errors.Is(err, util.ErrAlreadyExists):
		return E(KindConflict, op, "", err)
	default:
		return E(KindStoreUnavailable, op, "", err)
	}
}
