package relations

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by store implementations.
var (
	// ErrRecordNotFound is returned by a store when a lookup matches nothing.
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned by a store when a write violates a uniqueness constraint.
	ErrDuplicateKey = errors.New("duplicate key")
)

// ErrorKind categorizes engine errors. Handlers map kinds to status codes.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConflict   ErrorKind = "conflict"
	KindNotFound   ErrorKind = "not_found"
	KindPermission ErrorKind = "permission"
	KindSync       ErrorKind = "sync"
	KindStore      ErrorKind = "store"
)

// Kind sentinels for use with errors.Is.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrPermission = &Error{Kind: KindPermission}
	ErrSync       = &Error{Kind: KindSync}
	ErrStore      = &Error{Kind: KindStore}
)

// Error is the error type returned by every engine operation.
type Error struct {
	// Op is the operation that failed, e.g. "SendRequest".
	Op   string
	Kind ErrorKind
	// Msg is safe to show to the caller.
	Msg string
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("relations: %s (%s): %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("relations: %s (%s): %s", e.Op, e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("relations: %s (%s): %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("relations: %s (%s)", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, ErrConflict) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the kind of err, or KindStore for errors that did not come from the engine.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// Message returns the caller-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func validationError(op, msg string) error {
	return &Error{Op: op, Kind: KindValidation, Msg: msg}
}

func conflictError(op, msg string) error {
	return &Error{Op: op, Kind: KindConflict, Msg: msg}
}

func notFoundError(op, msg string) error {
	return &Error{Op: op, Kind: KindNotFound, Msg: msg}
}

func permissionError(op, msg string) error {
	return &Error{Op: op, Kind: KindPermission, Msg: msg}
}

// storeError translates a store failure. Missing records and uniqueness
// violations become NotFound and Conflict; everything else is a transient store fault.
func storeError(op, what string, err error) error {
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return &Error{Op: op, Kind: KindNotFound, Msg: what + " not found", Err: err}
	case errors.Is(err, ErrDuplicateKey):
		return &Error{Op: op, Kind: KindConflict, Msg: what + " already exists", Err: err}
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Kind: KindStore, Msg: "storage unavailable", Err: err}
}
