// Package analysis runs the full statement analysis for one company and period:
// balance verification, ratios, DuPont, cash flow, red flags, diagnosis and
// optional stress scenarios, collected into one report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wonny/finlab/internal/cashflow"
	"github.com/wonny/finlab/internal/diagnostic"
	"github.com/wonny/finlab/internal/dupont"
	"github.com/wonny/finlab/internal/ratios"
	"github.com/wonny/finlab/internal/scenario"
	"github.com/wonny/finlab/internal/statement"
	"github.com/wonny/finlab/internal/thresholds"
	"github.com/wonny/finlab/pkg/logger"
)

// =============================================================================
// Analyzer
// =============================================================================

// Analyzer report generator.
// ⭐ SSOT: composing the engines into one report happens only here
type Analyzer struct {
	store         *thresholds.Store
	simulator     *scenario.Simulator
	log           *logger.Logger
	defaultSector string
}

// NewAnalyzer simulator may be nil; stress scenarios are then reported as a stage error
func NewAnalyzer(store *thresholds.Store, simulator *scenario.Simulator, log *logger.Logger) *Analyzer {
	return &Analyzer{
		store:     store,
		simulator: simulator,
		log:       log.Component("analysis.analyzer"),
	}
}

// WithDefaultSector sector used when Input.Sector is empty
func (a *Analyzer) WithDefaultSector(sector string) *Analyzer {
	cp := *a
	cp.defaultSector = sector
	return &cp
}

// Input one analysis request
// ⭐ Assembling the records is the caller's job; the Analyzer only computes
type Input struct {
	Subject string
	Sector  string
	Current statement.Record

	// Prior enables averages, attribution, red flags and (with Supplementary) cash-flow reconstruction
	Prior         *statement.Record
	Supplementary *cashflow.Supplementary

	// OperatingCashFlow reported OCF; nil → the reconstructed one, if any
	OperatingCashFlow *decimal.Decimal

	// PriorOperatingCashFlow reported OCF of Prior; enables the profit vs cash growth flag
	PriorOperatingCashFlow *decimal.Decimal

	// Averages computes ratios on average balances (needs Prior)
	Averages bool

	Scenarios []scenario.Scenario
}

// Analyze runs every stage. A failing stage is recorded in Report.Errors and
// the stages that do not depend on it still run. Only an unknown sector or a
// cancelled context fail the whole analysis.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	// one table snapshot per report
	table, hash := a.store.Current()

	sector := in.Sector
	if sector == "" {
		sector = a.defaultSector
	}
	res, err := table.Resolve(sector)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", in.Subject, err)
	}

	report := &Report{
		RunID:   uuid.New().String(),
		Subject: in.Subject,
		Period:  in.Current.Period(),
		Sector:  sector,
		Basis:   BasisPeriodEnd,
		Metadata: Metadata{
			GeneratedAt: time.Now(),
			TableHash:   hash,
			TableID:     table.Meta.TableID,
			Version:     table.Meta.Version,
		},
	}
	if in.Prior != nil {
		report.PriorPeriod = in.Prior.Period()
	}

	// 1. Balance-sheet identities
	report.fail(StageBalance, in.Current.CheckBalance(table.Tolerance.BalanceRelative))
	if in.Prior != nil {
		report.fail(StageBalance, in.Prior.CheckBalance(table.Tolerance.BalanceRelative))
	}

	// 2. Averages (optional)
	basis := in.Current
	if in.Averages {
		if in.Prior == nil {
			report.fail(StageAverages, fmt.Errorf("%w: averages need a prior period", statement.ErrMissingField))
		} else {
			basis = statement.AverageBalances(*in.Prior, in.Current)
			report.Basis = BasisAverage
		}
	}

	// 3. Cash flow (before ratios: the reconstructed OCF feeds cash-flow quality)
	ocf := in.OperatingCashFlow
	if in.Prior != nil && in.Supplementary != nil {
		tol := decimal.NewFromFloat(table.Tolerance.CashAbsolute)
		st, err := cashflow.NewReconstructor(tol).Reconstruct(*in.Prior, in.Current, *in.Supplementary)
		report.fail(StageCashFlow, err)
		if st != nil {
			report.CashFlow = st
			report.Linkage = cashflow.Linkage(*in.Prior, in.Current, *in.Supplementary, st, tol)
			if ocf == nil {
				total := st.Operating.Total
				ocf = &total
			}
		}
	}

	// 4. Ratios
	report.Ratios = ratios.ComputeAll(basis, ratios.Options{TaxRate: table.TaxRate, OperatingCashFlow: ocf})
	report.CommonSize = ratios.CommonSize(in.Current)
	if in.Prior != nil {
		report.Horizontal = ratios.Horizontal(*in.Prior, in.Current)
	}

	// 5. DuPont
	dec := dupont.NewDecomposer(table.Tolerance.DupontRelative)
	report.DuPont3, err = dec.Decompose(basis, dupont.ThreeFactor)
	report.fail(StageDuPont, err)
	var dupontErr error
	report.DuPont5, dupontErr = dec.Decompose(basis, dupont.FiveFactor)
	report.fail(StageDuPont, dupontErr)

	// attribution compares period-end against period-end; the prior has no average of its own
	if in.Prior != nil && report.DuPont3 != nil {
		var (
			compare = report.DuPont3
			base    *dupont.Result
			err     error
		)
		if report.Basis == BasisAverage {
			compare, err = dec.Decompose(in.Current, dupont.ThreeFactor)
		}
		if err == nil {
			base, err = dec.Decompose(*in.Prior, dupont.ThreeFactor)
		}
		if err == nil {
			report.Attribution, err = dupont.Attribute(base, compare)
		}
		report.fail(StageAttribution, err)
	}

	// 6. Red flags (trend)
	var (
		flags      []diagnostic.Finding
		flagsUnavl []diagnostic.Unavailable
	)
	if in.Prior != nil {
		flags, flagsUnavl = diagnostic.RedFlags(diagnostic.TrendInput{
			Prior:                  *in.Prior,
			Current:                in.Current,
			OperatingCashFlow:      ocf,
			PriorOperatingCashFlow: in.PriorOperatingCashFlow,
		}, res.RedFlags())
	}

	// 7. Classification
	report.Diagnostic = diagnostic.Evaluate(res, diagnostic.Input{
		Subject:   in.Subject,
		Period:    in.Current.Period(),
		Sector:    sector,
		Ratios:    report.Ratios,
		DuPont:    report.DuPont5,
		DuPontErr: dupontErr,
		Extra:     flags,
	})
	report.Diagnostic.TableHash = hash
	report.Diagnostic.Unavailable = append(report.Diagnostic.Unavailable, flagsUnavl...)

	// 8. Stress scenarios (optional)
	if len(in.Scenarios) > 0 {
		if a.simulator == nil {
			report.fail(StageStress, errors.New("no simulator configured"))
		} else {
			results, err := a.simulator.WithSector(sector).RunBatch(ctx, in.Current, in.Scenarios)
			if err != nil {
				return nil, fmt.Errorf("analyze %s: stress: %w", in.Subject, err)
			}
			report.Stress = results
		}
	}

	a.log.WithFields(map[string]interface{}{
		"run_id":  report.RunID,
		"subject": report.Subject,
		"period":  report.Period,
		"sector":  report.Sector,
		"label":   report.Diagnostic.Label,
		"errors":  len(report.Errors),
		"elapsed": time.Since(start).String(),
	}).Info("analysis report generated")

	return report, nil
}
