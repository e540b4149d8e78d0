package statement

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingField       = errors.New("missing field")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrUnknownField       = errors.New("unknown field")
)

// MissingFieldError a formula needed a field the record does not carry.
// Absent is never treated as zero.
type MissingFieldError struct {
	Field  Field
	Period string
}

func (e *MissingFieldError) Error() string {
	if e.Period == "" {
		return fmt.Sprintf("missing field %s", e.Field)
	}
	return fmt.Sprintf("missing field %s (period %s)", e.Field, e.Period)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// InvariantViolationError an accounting identity does not hold within tolerance.
type InvariantViolationError struct {
	Rule   string // balance_assets, balance_funding, non_negative, dupont_reconciliation ...
	Period string
	Left   decimal.Decimal
	Right  decimal.Decimal
	Detail string
}

func (e *InvariantViolationError) Error() string {
	msg := fmt.Sprintf("invariant %s violated", e.Rule)
	if e.Period != "" {
		msg += fmt.Sprintf(" (period %s)", e.Period)
	}
	if e.Detail != "" {
		return msg + ": " + e.Detail
	}
	return fmt.Sprintf("%s: %s != %s (gap %s)", msg, e.Left, e.Right, e.Gap())
}

// Gap left - right
func (e *InvariantViolationError) Gap() decimal.Decimal {
	return e.Left.Sub(e.Right)
}

func (e *InvariantViolationError) Is(target error) bool {
	return target == ErrInvariantViolation
}
