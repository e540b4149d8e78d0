package ratios

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrDivisionByZero   = errors.New("division by zero")
	ErrUnknownRatio     = errors.New("unknown ratio")
	ErrCashFlowRequired = errors.New("operating cash flow not supplied")
)

// DivisionByZeroError the denominator is zero, or negative where the ratio is
// undefined (negative equity, negative EBITDA ...).
type DivisionByZeroError struct {
	Ratio       Name
	Denominator string
	Value       decimal.Decimal
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("%s undefined: denominator %s = %s", e.Ratio, e.Denominator, e.Value)
}

func (e *DivisionByZeroError) Is(target error) bool {
	return target == ErrDivisionByZero
}
