package weft

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for core operations. The typed errors below wrap these
// so callers can match with errors.Is without losing the detail fields.
var (
	ErrMissingHandler   = errors.New("weft: no event handler")
	ErrIDConflict       = errors.New("weft: component id conflict")
	ErrInvalidDeletion  = errors.New("weft: component cannot be deleted")
	ErrReconcileMisuse  = errors.New("weft: reconciliation invoked twice")
	ErrDuplicateDataID  = errors.New("weft: duplicate id in data set")
	ErrAsyncNotAccepted = errors.New("weft: synchronous request not acknowledged as async")
	ErrNotContainer     = errors.New("weft: component is not a container")
	ErrUnknownSpec      = errors.New("weft: unknown component spec")
)

// MissingHandlerError is raised when an event reaches a component with no
// matching handler. Dispatch catches it internally to drive bubbling; it
// only escapes to the caller when the bubble chain is exhausted without a
// sink. Trace lists the ids the event bubbled through, origin first.
type MissingHandlerError struct {
	CID   string
	Event string
	Trace []string
}

func (e *MissingHandlerError) Error() string {
	msg := fmt.Sprintf("weft: no event handler for %q on component %q", e.Event, e.CID)
	if len(e.Trace) > 0 {
		msg += " (bubbled through " + strings.Join(e.Trace, ", ") + ")"
	}
	return msg
}

func (e *MissingHandlerError) Unwrap() error { return ErrMissingHandler }

// IDConflictError is raised when a second live component claims an id that
// is already registered for a different container within one store.
type IDConflictError struct {
	CID          string
	ExistingCCID string
	ClaimedCCID  string
}

func (e *IDConflictError) Error() string {
	return fmt.Sprintf("weft: component id %q already registered under container %q, claimed by %q",
		e.CID, e.ExistingCCID, e.ClaimedCCID)
}

func (e *IDConflictError) Unwrap() error { return ErrIDConflict }

// InvalidDeletionError is raised when Delete is called on a component that
// has no container, i.e. the root.
type InvalidDeletionError struct {
	CID string
}

func (e *InvalidDeletionError) Error() string {
	return fmt.Sprintf("weft: component %q has no container and cannot be deleted", e.CID)
}

func (e *InvalidDeletionError) Unwrap() error { return ErrInvalidDeletion }

// ReconcileMisuseError is raised when UpdateChildren runs a second time in
// the same request without the force override.
type ReconcileMisuseError struct {
	CID string
}

func (e *ReconcileMisuseError) Error() string {
	return fmt.Sprintf("weft: update of children called twice without force for component %q", e.CID)
}

func (e *ReconcileMisuseError) Unwrap() error { return ErrReconcileMisuse }

// DuplicateDataIDError is raised when a data fetch returns the same id
// twice in one call. Silently reconciling such a set would corrupt
// structural order, so the request is aborted instead.
type DuplicateDataIDError struct {
	CID    string
	DataID any
}

func (e *DuplicateDataIDError) Error() string {
	return fmt.Sprintf("weft: data for container %q contains duplicate id %v", e.CID, e.DataID)
}

func (e *DuplicateDataIDError) Unwrap() error { return ErrDuplicateDataID }

// IsMissingHandler reports whether err is an unhandled-event error.
func IsMissingHandler(err error) bool {
	return errors.Is(err, ErrMissingHandler)
}

// IsIDConflict reports whether err is a component id conflict.
func IsIDConflict(err error) bool {
	return errors.Is(err, ErrIDConflict)
}
