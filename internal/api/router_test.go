package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/wonny/finlab/internal/analysis"
	"github.com/wonny/finlab/internal/api/handlers"
	"github.com/wonny/finlab/internal/casestudy"
	"github.com/wonny/finlab/internal/scenario"
	"github.com/wonny/finlab/internal/thresholds"
	"github.com/wonny/finlab/pkg/logger"
)

func newTestRouter(t *testing.T, limiter *rate.Limiter) http.Handler {
	t.Helper()
	log := logger.Nop()

	store, err := thresholds.NewStoreFromTable(thresholds.Default())
	require.NoError(t, err)
	sim := scenario.NewSimulator(store, log, 2)
	analyzer := analysis.NewAnalyzer(store, sim, log)

	engine := handlers.NewEngineHandler(store, analyzer, sim, log)
	reference := handlers.NewReferenceHandler(store, casestudy.Default(), analyzer, log)
	return NewRouter(engine, reference, limiter, log)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const tech2022 = `{"period": "2022", "values": {
	"cash": 150000, "accounts_receivable": 280000, "inventory": 120000, "prepaid_expenses": 15000,
	"accounts_payable": 95000, "other_operating_liabilities": 80000,
	"short_term_debt": 80000, "long_term_debt": 200000}}`

const tech2023 = `{"period": "2023", "values": {
	"net_income": 69300, "depreciation": 50000,
	"cash": 85000, "accounts_receivable": 420000, "inventory": 180000, "prepaid_expenses": 20000,
	"accounts_payable": 110000, "other_operating_liabilities": 95000,
	"short_term_debt": 120000, "long_term_debt": 280000}}`

const aero = `{"period": "2023", "values": {
	"net_revenue": 1800, "ebitda": 450, "ebit": 350, "financial_expenses": 200,
	"pretax_income": 150, "income_tax": 50, "net_income": 100,
	"total_assets": 2500, "current_liabilities": 450, "non_current_liabilities": 1550,
	"short_term_debt": 300, "long_term_debt": 1300, "equity": 500}}`

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(t, nil), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestRatiosEndpoint(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, "POST", "/api/ratios", `{"statement": `+aero+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "2023", body["period"])
	results := body["results"].([]interface{})
	found := false
	for _, r := range results {
		m := r.(map[string]interface{})
		if m["name"] == "interest_coverage" {
			found = true
			assert.InDelta(t, 1.75, m["value"].(float64), 1e-9)
		}
	}
	assert.True(t, found)
	assert.NotEmpty(t, body["failures"]) // no current assets: liquidity ratios fail
}

func TestRatiosErrors(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed", `{"statement": `, http.StatusBadRequest, handlers.CodeInvalidRequest},
		{"unknown key", `{"statment": {}}`, http.StatusBadRequest, handlers.CodeInvalidRequest},
		{"no statement", `{}`, http.StatusUnprocessableEntity, analysis.CodeMissingField},
		{"unknown field", `{"statement": {"period": "2023", "values": {"profit": 1}}}`, http.StatusUnprocessableEntity, analysis.CodeUnknownField},
		{"negative balance", `{"statement": {"period": "2023", "values": {"inventory": -1}}}`, http.StatusUnprocessableEntity, analysis.CodeInvariantViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, "POST", "/api/ratios", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode(t, rec)["code"])
		})
	}
}

func TestDuPontEndpoint(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, "POST", "/api/dupont", `{"statement": `+aero+`, "level": 5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode(t, rec)["result"].(map[string]interface{})
	assert.Len(t, result["factors"], 5)
	assert.InDelta(t, 0.2, result["direct_roe"].(float64), 1e-9)

	rec = do(t, h, "POST", "/api/dupont", `{"statement": `+aero+`, "level": 4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	loss := strings.Replace(aero, `"pretax_income": 150, "income_tax": 50, "net_income": 100`,
		`"pretax_income": -10, "income_tax": 0, "net_income": -10`, 1)
	rec = do(t, h, "POST", "/api/dupont", `{"statement": `+loss+`, "level": 5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, analysis.CodeUndefinedFactor, decode(t, rec)["code"])
}

func TestCashFlowEndpoint(t *testing.T) {
	h := newTestRouter(t, nil)

	body := `{"prior": ` + tech2022 + `, "current": ` + tech2023 + `,
		"supplementary": {"dividends": 29300, "capex": 150000, "capital_increase": 50000}}`
	rec := do(t, h, "POST", "/api/cashflow", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	st := decode(t, rec)["statement"].(map[string]interface{})
	assert.Equal(t, true, st["reconciled"])
	assert.Equal(t, "85000", st["closing_cash"])

	// missing the capital increase: 50,000 short
	body = `{"prior": ` + tech2022 + `, "current": ` + tech2023 + `,
		"supplementary": {"dividends": 29300, "capex": 150000}}`
	rec = do(t, h, "POST", "/api/cashflow", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, analysis.CodeReconciliation, out["code"])
	assert.NotNil(t, out["detail"])
}

func TestAnalyzeEndpoint(t *testing.T) {
	h := newTestRouter(t, nil)

	body := `{"subject": "AeroTech", "current": ` + aero + `,
		"scenarios": [{"name": "EBITDA -30%", "shocks": [{"kind": "ebitda_change", "value": -0.3}]}]}`
	rec := do(t, h, "POST", "/api/analyze", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.NotEmpty(t, out["run_id"])
	assert.Len(t, out["stress"], 1)
	assert.NotNil(t, out["diagnostic"])

	// net income 80 → 100 while operating cash flow 120 → 90
	prior := strings.NewReplacer(`"period": "2023"`, `"period": "2022"`, `"net_income": 100`, `"net_income": 80`).Replace(aero)
	rec = do(t, h, "POST", "/api/analyze", `{"current": `+aero+`, "prior": `+prior+`,
		"operating_cash_flow": 90, "prior_operating_cash_flow": 120}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	severity := map[string]interface{}{}
	for _, f := range decode(t, rec)["diagnostic"].(map[string]interface{})["findings"].([]interface{}) {
		finding := f.(map[string]interface{})
		severity[finding["indicator"].(string)] = finding["severity"]
	}
	assert.Equal(t, "attention", severity["profit_outpacing_cash"])

	rec = do(t, h, "POST", "/api/analyze", `{"sector": "mining", "current": `+aero+`}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, analysis.CodeUnknownSector, decode(t, rec)["code"])

	rec = do(t, h, "POST", "/api/analyze", `{"current": `+aero+`, "scenarios": [{"name": "x", "shocks": [{"kind": "meteor", "value": 1}]}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, analysis.CodeInvalidShock, decode(t, rec)["code"])
}

func TestSimulateEndpoint(t *testing.T) {
	h := newTestRouter(t, nil)

	body := `{"statement": ` + aero + `, "shocks": [
		{"kind": "ebitda_change", "value": -0.1},
		{"kind": "ebitda_change", "value": -0.2}]}`
	rec := do(t, h, "POST", "/api/simulate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	results := decode(t, rec)["results"].([]interface{})
	require.Len(t, results, 1)
	res := results[0].(map[string]interface{})
	assert.Equal(t, "ad-hoc", res["scenario"])
	assert.Len(t, res["steps"], 2)

	rec = do(t, h, "POST", "/api/simulate", `{"statement": `+aero+`}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThresholdsEndpoints(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, "GET", "/api/thresholds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	snap := out["snapshot"].(map[string]interface{})
	assert.Equal(t, "canonical", snap["table_id"])
	assert.Contains(t, out["sectors"], "retail")

	rec = do(t, h, "POST", "/api/thresholds/validate", string(thresholds.DefaultYAML()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["valid"])

	rec = do(t, h, "POST", "/api/thresholds/validate", "meta: {table_id: x}\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, analysis.CodeInvalidTable, decode(t, rec)["code"])
}

func TestCasesEndpoints(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, "GET", "/api/cases", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 6)

	rec = do(t, h, "GET", "/api/cases/aerotech", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "aerotech", decode(t, rec)["id"])

	rec = do(t, h, "GET", "/api/cases/acme", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, analysis.CodeUnknownCase, decode(t, rec)["code"])

	rec = do(t, h, "POST", "/api/cases/tech-solutions/analyze", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cf := decode(t, rec)["cash_flow"].(map[string]interface{})
	assert.Equal(t, true, cf["reconciled"])
}

func TestRateLimit(t *testing.T) {
	h := newTestRouter(t, rate.NewLimiter(rate.Limit(0.001), 1))

	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/api/cases", "").Code)
	rec := do(t, h, "GET", "/api/cases", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, rec)["code"])

	// health is outside the limited subrouter
	assert.Equal(t, http.StatusOK, do(t, h, "GET", "/health", "").Code)
}

func TestRecovery(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := do(t, h, "GET", "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
