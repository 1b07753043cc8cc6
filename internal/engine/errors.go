package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/kitchensync/internal/model"
)

// RecomputeError reports that an order item write succeeded but the parent
// order's derived state could not be recomputed.
//
// The item write is not rolled back. Callers can inspect OrderID to decide
// whether to retry the recomputation through a no-op item update.
type RecomputeError struct {
	// OrderID identifies the order left stale.
	OrderID string

	// Err is the underlying persistence error.
	Err error
}

// Error implements the error interface.
func (e *RecomputeError) Error() string {
	return fmt.Sprintf("recompute order %s: %v", e.OrderID, e.Err)
}

// Unwrap returns the underlying persistence error.
func (e *RecomputeError) Unwrap() error {
	return e.Err
}

// IsRecomputeError returns true if the error is a recomputation failure.
// Uses errors.As to handle wrapped errors.
func IsRecomputeError(err error) bool {
	var re *RecomputeError
	return errors.As(err, &re)
}

// referenceError turns a NotFound on a referenced entity into a validation
// error on the referencing field. Other errors pass through.
func referenceError(err error, field string, t model.EntityType, id string) error {
	if model.IsNotFound(err) {
		return model.Invalid(field, "%s %q does not exist", t, id)
	}
	return err
}

// inUseError reports a delete blocked by references.
func inUseError(t model.EntityType, id string, n int, by string) error {
	return model.Invalid("id", "%s %q is referenced by %d %s", t, id, n, by)
}
