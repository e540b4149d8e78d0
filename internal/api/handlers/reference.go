package handlers

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/finlab/internal/analysis"
	"github.com/wonny/finlab/internal/casestudy"
	"github.com/wonny/finlab/internal/thresholds"
	"github.com/wonny/finlab/pkg/logger"
)

// ReferenceHandler read-only reference data: threshold table and case studies
type ReferenceHandler struct {
	store    *thresholds.Store
	cases    *casestudy.Registry
	analyzer *analysis.Analyzer
	logger   *logger.Logger
}

// NewReferenceHandler creates a new reference handler
func NewReferenceHandler(store *thresholds.Store, cases *casestudy.Registry, analyzer *analysis.Analyzer, log *logger.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		store:    store,
		cases:    cases,
		analyzer: analyzer,
		logger:   log.Component("api.reference"),
	}
}

// ThresholdsResponse active table with its audit snapshot
type ThresholdsResponse struct {
	Snapshot *thresholds.Snapshot `json:"snapshot"`
	Table    *thresholds.Table    `json:"table"`
	Sectors  []string             `json:"sectors"`
}

// GetThresholds returns the active threshold table
// GET /api/thresholds
func (h *ReferenceHandler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	snap.TableYAML = ""
	table := h.store.Table()

	respondJSON(w, http.StatusOK, ThresholdsResponse{
		Snapshot: snap,
		Table:    table,
		Sectors:  table.SectorNames(),
	})
}

// ValidateThresholds checks a YAML table without installing it
// POST /api/thresholds/validate
func (h *ReferenceHandler) ValidateThresholds(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid request body")
		return
	}

	t, err := thresholds.Parse(data)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, analysis.CodeInvalidTable, err.Error())
		return
	}
	hash, err := thresholds.Hash(t)
	if err != nil {
		respondEngineError(w, h.logger, err, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":      true,
		"table_hash": hash,
		"warnings":   thresholds.Warn(t),
	})
}

// ListCases returns every case study
// GET /api/cases
func (h *ReferenceHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cases.List())
}

// GetCase returns one case study with its figures
// GET /api/cases/{id}
func (h *ReferenceHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	c, err := h.cases.Get(mux.Vars(r)["id"])
	if err != nil {
		respondEngineError(w, h.logger, err, nil)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// AnalyzeCase runs the full analysis on the case's last two periods and its scenarios
// POST /api/cases/{id}/analyze
func (h *ReferenceHandler) AnalyzeCase(w http.ResponseWriter, r *http.Request) {
	c, err := h.cases.Get(mux.Vars(r)["id"])
	if err != nil {
		respondEngineError(w, h.logger, err, nil)
		return
	}

	in, err := analysis.CaseInput(c)
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
