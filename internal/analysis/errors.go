package analysis

import (
	"errors"

	"github.com/wonny/finlab/internal/cashflow"
	"github.com/wonny/finlab/internal/casestudy"
	"github.com/wonny/finlab/internal/dupont"
	"github.com/wonny/finlab/internal/ratios"
	"github.com/wonny/finlab/internal/scenario"
	"github.com/wonny/finlab/internal/statement"
	"github.com/wonny/finlab/internal/thresholds"
)

// Error codes reported by stage errors and the HTTP adapter
const (
	CodeMissingField       = "MISSING_FIELD"
	CodeUnknownField       = "UNKNOWN_FIELD"
	CodeDivisionByZero     = "DIVISION_BY_ZERO"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
	CodeReconciliation     = "RECONCILIATION_MISMATCH"
	CodeUndefinedFactor    = "UNDEFINED_FACTOR"
	CodeAttribution        = "ATTRIBUTION_UNDEFINED"
	CodeUnknownSector      = "UNKNOWN_SECTOR"
	CodeUnknownCase        = "UNKNOWN_CASE"
	CodeUnknownPeriod      = "UNKNOWN_PERIOD"
	CodeInvalidShock       = "INVALID_SHOCK"
	CodeInvalidStructure   = "INVALID_STRUCTURE"
	CodeInvalidAsset       = "INVALID_ASSET"
	CodeInvalidTable       = "INVALID_TABLE"
	CodeCashFlowRequired   = "CASH_FLOW_REQUIRED"
	CodeInternal           = "INTERNAL"
)

var codes = []struct {
	target error
	code   string
}{
	{statement.ErrMissingField, CodeMissingField},
	{statement.ErrUnknownField, CodeUnknownField},
	{ratios.ErrDivisionByZero, CodeDivisionByZero},
	{ratios.ErrCashFlowRequired, CodeCashFlowRequired},
	{cashflow.ErrReconciliationMismatch, CodeReconciliation},
	{dupont.ErrLossMakingPeriod, CodeUndefinedFactor},
	{dupont.ErrLevelMismatch, CodeAttribution},
	{dupont.ErrNonPositiveFactor, CodeAttribution},
	{thresholds.ErrUnknownSector, CodeUnknownSector},
	{casestudy.ErrUnknownCase, CodeUnknownCase},
	{casestudy.ErrUnknownPeriod, CodeUnknownPeriod},
	{scenario.ErrInvalidShock, CodeInvalidShock},
	{scenario.ErrInvalidStructure, CodeInvalidStructure},
	{cashflow.ErrInvalidAsset, CodeInvalidAsset},
	{cashflow.ErrUnknownMethod, CodeInvalidAsset},
	{statement.ErrInvariantViolation, CodeInvariantViolation},
}

// Code maps an engine error to a stable error code.
// Unknown errors map to CodeInternal.
func Code(err error) string {
	var verr thresholds.ValidationError
	if errors.As(err, &verr) {
		return CodeInvalidTable
	}
	for _, c := range codes {
		if errors.Is(err, c.target) {
			return c.code
		}
	}
	return CodeInternal
}

// IsDomainError true when err is a typed engine error (bad or insufficient input)
// rather than an internal failure.
func IsDomainError(err error) bool {
	return err != nil && Code(err) != CodeInternal
}
