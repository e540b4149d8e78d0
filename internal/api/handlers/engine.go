package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/wonny/finlab/internal/analysis"
	"github.com/wonny/finlab/internal/cashflow"
	"github.com/wonny/finlab/internal/dupont"
	"github.com/wonny/finlab/internal/ratios"
	"github.com/wonny/finlab/internal/scenario"
	"github.com/wonny/finlab/internal/thresholds"
	"github.com/wonny/finlab/pkg/logger"
)

// EngineHandler statement computations: ratios, DuPont, cash flow, analysis, stress
// ⭐ SSOT: engine API handlers live in this struct only
type EngineHandler struct {
	store     *thresholds.Store
	analyzer  *analysis.Analyzer
	simulator *scenario.Simulator
	logger    *logger.Logger
}

// NewEngineHandler creates a new engine handler
func NewEngineHandler(
	store *thresholds.Store,
	analyzer *analysis.Analyzer,
	simulator *scenario.Simulator,
	log *logger.Logger,
) *EngineHandler {
	return &EngineHandler{
		store:     store,
		analyzer:  analyzer,
		simulator: simulator,
		logger:    log.Component("api.engine"),
	}
}

// =============================================================================
// Ratios
// =============================================================================

// RatiosRequest ratio computation request
type RatiosRequest struct {
	Statement         *StatementPayload `json:"statement"`
	TaxRate           *float64          `json:"tax_rate,omitempty"`            // default: table tax rate
	OperatingCashFlow *float64          `json:"operating_cash_flow,omitempty"` // enables cash-flow quality
}

// Ratios computes the whole catalog for one period
// POST /api/ratios
func (h *EngineHandler) Ratios(w http.ResponseWriter, r *http.Request) {
	var req RatiosRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := req.Statement.Record()
	if err != nil {
		respondEngineError(w, h.logger, err, nil)
		return
	}

	opts := ratios.Options{TaxRate: h.store.Table().TaxRate, OperatingCashFlow: optionalDecimal(req.OperatingCashFlow)}
	if req.TaxRate != nil {
		opts.TaxRate = *req.TaxRate
	}

	respondJSON(w, http.StatusOK, ratios.ComputeAll(rec, opts))
}

// =============================================================================
// DuPont
// =============================================================================

// DuPontRequest decomposition request; Compare adds an attribution against Statement
type DuPontRequest struct {
	Statement *StatementPayload `json:"statement"`
	Compare   *StatementPayload `json:"compare,omitempty"`
	Level     int               `json:"level"` // 3 or 5, default 3
}

// DuPontResponse decomposition and optional attribution
type DuPontResponse struct {
	Result      *dupont.Result      `json:"result"`
	Compare     *dupont.Result      `json:"compare,omitempty"`
	Attribution *dupont.Attribution `json:"attribution,omitempty"`
}

// DuPont decomposes ROE
// POST /api/dupont
func (h *EngineHandler) DuPont(w http.ResponseWriter, r *http.Request) {
	var req DuPontRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Level == 0 {
		req.Level = int(dupont.ThreeFactor)
	}

	dec := dupont.NewDecomposer(h.store.Table().Tolerance.DupontRelative)
	decompose := func(p *StatementPayload) (*dupont.Result, error) {
		rec, err := p.Record()
		if err != nil {
			return nil, err
		}
		return dec.Decompose(rec, dupont.Level(req.Level))
	}

	res, err := decompose(req.Statement)
	if err != nil {
		h.respondDuPontError(w, err)
		return
	}
	resp := DuPontResponse{Result: res}

	if req.Compare != nil {
		if resp.Compare, err = decompose(req.Compare); err != nil {
			h.respondDuPontError(w, err)
			return
		}
		if resp.Attribution, err = dupont.Attribute(res, resp.Compare); err != nil {
			respondEngineError(w, h.logger, err, resp)
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *EngineHandler) respondDuPontError(w http.ResponseWriter, err error) {
	if errors.Is(err, dupont.ErrInvalidLevel) {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	respondEngineError(w, h.logger, err, nil)
}

// =============================================================================
// Cash flow
// =============================================================================

// CashFlowRequest reconstruction between two consecutive periods
type CashFlowRequest struct {
	Prior         *StatementPayload      `json:"prior"`
	Current       *StatementPayload      `json:"current"`
	Supplementary cashflow.Supplementary `json:"supplementary"`
}

// CashFlowResponse statement and cross-statement checks
type CashFlowResponse struct {
	Statement    *cashflow.Statement     `json:"statement"`
	Linkage      *cashflow.LinkageReport `json:"linkage"`
	FreeCashFlow decimal.Decimal         `json:"free_cash_flow"`
}

// CashFlow rebuilds the indirect-method cash-flow statement.
// A closing-cash mismatch answers 422 with the statement in the error detail.
// POST /api/cashflow
func (h *EngineHandler) CashFlow(w http.ResponseWriter, r *http.Request) {
	var req CashFlowRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	prior, err := req.Prior.Record()
	if err != nil {
		respondEngineError(w, h.logger, err, nil)
		return
	}
	current, err := req.Current.Record()
	if err != nil {
		respondEngineError(w, h.logger, err, nil)
		return
	}

	tol := decimal.NewFromFloat(h.store.Table().Tolerance.CashAbsolute)
	st, err := cashflow.NewReconstructor(tol).Reconstruct(prior, current, req.Supplementary)
	if err != nil {
		respondEngineError(w, h.logger, err, st)
		return
	}

	respondJSON(w, http.StatusOK, CashFlowResponse{
		Statement:    st,
		Linkage:      cashflow.Linkage(prior, current, req.Supplementary, st, tol),
		FreeCashFlow: st.FreeCashFlow(),
	})
}

// =============================================================================
// Analysis
// =============================================================================

// AnalyzeRequest full analysis request
type AnalyzeRequest struct {
	Subject                string                  `json:"subject,omitempty"`
	Sector                 string                  `json:"sector,omitempty"`
	Current                *StatementPayload       `json:"current"`
	Prior                  *StatementPayload       `json:"prior,omitempty"`
	Supplementary          *cashflow.Supplementary `json:"supplementary,omitempty"`
	OperatingCashFlow      *float64                `json:"operating_cash_flow,omitempty"`
	PriorOperatingCashFlow *float64                `json:"prior_operating_cash_flow,omitempty"`
	Averages               bool                    `json:"averages,omitempty"`
	Scenarios              []scenario.Scenario     `json:"scenarios,omitempty"`
}

// Analyze runs the full pipeline
// POST /api/analyze
func (h *EngineHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in, err := req.input()
	if err != nil {
		respondEngineError(w, h.logger, err, nil)
		return
	}

	report, err := h.analyzer.Analyze(r.Context(), in)
	if err != nil {
		respondEngineError(w, h.logger, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (req *AnalyzeRequest) input() (analysis.Input, error) {
	current, err := req.Current.Record()
	if err != nil {
		return analysis.Input{}, err
	}
	in := analysis.Input{
		Subject:                req.Subject,
		Sector:                 req.Sector,
		Current:                current,
		Supplementary:          req.Supplementary,
		OperatingCashFlow:      optionalDecimal(req.OperatingCashFlow),
		PriorOperatingCashFlow: optionalDecimal(req.PriorOperatingCashFlow),
		Averages:               req.Averages,
		Scenarios:              req.Scenarios,
	}
	if req.Prior != nil {
		prior, err := req.Prior.Record()
		if err != nil {
			return analysis.Input{}, err
		}
		in.Prior = &prior
	}
	for _, sc := range req.Scenarios {
		for _, s := range sc.Shocks {
			if err := s.Validate(); err != nil {
				return analysis.Input{}, err
			}
		}
	}
	return in, nil
}

// =============================================================================
// Stress scenarios
// =============================================================================

// SimulateRequest Shocks is shorthand for a single ad-hoc scenario
type SimulateRequest struct {
	Statement *StatementPayload   `json:"statement"`
	Sector    string              `json:"sector,omitempty"`
	Scenarios []scenario.Scenario `json:"scenarios,omitempty"`
	Shocks    []scenario.Shock    `json:"shocks,omitempty"`
}

// Simulate runs stress scenarios in parallel
// POST /api/simulate
func (h *EngineHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := req.Statement.Record()
	if err != nil {
		respondEngineError(w, h.logger, err, nil)
		return
	}

	scenarios := req.Scenarios
	if len(req.Shocks) > 0 {
		scenarios = append(scenarios, scenario.Scenario{Name: "ad-hoc", Shocks: req.Shocks})
	}
	if len(scenarios) == 0 {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "no scenarios or shocks given")
		return
	}
	if req.Sector != "" {
		if _, err := h.store.Resolve(req.Sector); err != nil {
			respondEngineError(w, h.logger, err, nil)
			return
		}
	}

	results, err := h.simulator.WithSector(req.Sector).RunBatch(r.Context(), rec, scenarios)
	if err != nil {
		respondEngineError(w, h.logger, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"statement": rec,
		"results":   results,
	})
}
