package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrSnapshotNotFound = errors.New("trust score snapshot not found")
)

// TransitionError is returned when a requested state change is not
// allowed by the lifecycle transition table. Terminal for the request;
// no side effect has occurred.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition from %q to %q is not allowed", e.From, e.To)
}

// ConflictError is returned when a concurrent writer advanced the product
// between read and write. The operation had no side effect and is safe to
// retry with freshly read state.
type ConflictError struct {
	ProductID       string
	ExpectedVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("product %q was modified concurrently (expected version %d)", e.ProductID, e.ExpectedVersion)
}

// DataIntegrityError indicates persisted state outside the known state
// set. It is fatal for the operation and must never be retried or
// silently swallowed.
type DataIntegrityError struct {
	ProductID string
	State     State
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("product %q has state %q outside the known state set", e.ProductID, e.State)
}
