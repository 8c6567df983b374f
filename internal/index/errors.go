package index

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrMissingReference         = errors.New("missing reference")
	ErrDivisionByZero           = errors.New("division by zero")
	ErrIncompleteFactorCoverage = errors.New("incomplete factor coverage")
	ErrWeightSumInvariant       = errors.New("weight sum invariant violated")
	ErrWeightKeyMismatch        = errors.New("weight key mismatch")
	ErrNegativeWeight           = errors.New("negative weight")
	ErrNonFiniteValue           = errors.New("non-finite value")
	ErrUnknownEntity            = errors.New("unknown entity")
)

// Error reports which entity or factor triggered a data-quality failure.
type Error struct {
	Op     string
	Kind   error
	Entity Entity
	Factor Factor
	Detail string
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Factor != "" {
		msg += fmt.Sprintf(" (factor %s)", e.Factor)
	}
	if e.Entity != "" {
		msg += fmt.Sprintf(" (entity %s)", e.Entity)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }

// KindName returns a stable snake_case label for err's kind, suitable for
// metrics labels and API payloads. Errors from outside this package map to
// "unknown".
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrMissingReference):
		return "missing_reference"
	case errors.Is(err, ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, ErrIncompleteFactorCoverage):
		return "incomplete_factor_coverage"
	case errors.Is(err, ErrWeightSumInvariant):
		return "weight_sum_invariant_violated"
	case errors.Is(err, ErrWeightKeyMismatch):
		return "weight_key_mismatch"
	case errors.Is(err, ErrNegativeWeight):
		return "negative_weight"
	case errors.Is(err, ErrNonFiniteValue):
		return "non_finite_value"
	case errors.Is(err, ErrUnknownEntity):
		return "unknown_entity"
	default:
		return "unknown"
	}
}
