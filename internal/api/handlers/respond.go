package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/wonny/finlab/internal/analysis"
	"github.com/wonny/finlab/internal/statement"
	"github.com/wonny/finlab/pkg/logger"
)

// CodeInvalidRequest malformed JSON body
const CodeInvalidRequest = "INVALID_REQUEST"

// maxBodyBytes request body cap
const maxBodyBytes = 1 << 20

// ErrorResponse error body
type ErrorResponse struct {
	Error  string      `json:"error"`
	Code   string      `json:"code"`
	Detail interface{} `json:"detail,omitempty"`
}

// StatementPayload one period of figures keyed by field wire name
type StatementPayload struct {
	Period string             `json:"period"`
	Values map[string]float64 `json:"values"`
}

// Record validates the payload into a statement Record
func (p *StatementPayload) Record() (statement.Record, error) {
	if p == nil {
		return statement.Record{}, fmt.Errorf("%w: statement", statement.ErrMissingField)
	}
	return statement.FromFloats(p.Period, p.Values)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondEngineError typed engine errors → 422 with their code, anything else → 500
func respondEngineError(w http.ResponseWriter, log *logger.Logger, err error, detail interface{}) {
	code := analysis.Code(err)
	if code == analysis.CodeInternal {
		log.WithError(err).Error("request failed")
		respondError(w, http.StatusInternalServerError, code, "internal error")
		return
	}

	status := http.StatusUnprocessableEntity
	if code == analysis.CodeUnknownCase {
		status = http.StatusNotFound
	}
	respondJSON(w, status, ErrorResponse{Error: err.Error(), Code: code, Detail: detail})
}

// decodeJSON strict decode: unknown keys are rejected like in the YAML loaders
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "invalid request body"
		if !errors.Is(err, io.EOF) {
			msg = fmt.Sprintf("invalid request body: %v", err)
		}
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, msg)
		return false
	}
	return true
}

func optionalDecimal(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}
