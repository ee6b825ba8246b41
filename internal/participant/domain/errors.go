package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrValidationFailed   = errors.New("validation_failed")
	ErrConstraintViolated = errors.New("constraint_violated")
	ErrConflict           = errors.New("conflict")
)

// Invariant names carried by ConstraintError.
const (
	InvariantUniqueness        = "uniqueness"
	InvariantPrimaryPerRole    = "primary_per_role"
	InvariantCustomerNonOrphan = "customer_non_orphan"
	InvariantRoleCapability    = "role_capability"
	InvariantCommissionBounds  = "commission_bounds"
)

// ValidationError carries every problem found in a participant batch.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// ConstraintError reports a write the participant store refused.
type ConstraintError struct {
	Invariant  string
	Constraint string
	Message    string
}

func (e *ConstraintError) Error() string {
	return e.Message
}

func (e *ConstraintError) Unwrap() error { return ErrConstraintViolated }

// KindOf returns the machine-checkable kind of err, or "internal".
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, ErrConstraintViolated):
		return "constraint_violated"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}

// DetailOf renders err for API responses and bulk results. Internal errors are not
// described beyond their kind.
func DetailOf(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	detail := &ErrorDetail{Type: kind, Message: err.Error()}

	var verr *ValidationError
	var cerr *ConstraintError
	switch {
	case errors.As(err, &verr):
		detail.Message = "participant validation failed"
		detail.Errors = append([]string(nil), verr.Errors...)
	case errors.As(err, &cerr):
		detail.Message = cerr.Message
		detail.Invariant = cerr.Invariant
	case kind == "internal":
		detail.Message = "internal error"
	}
	return detail
}
