package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/reportbot/reportbot/internal/sqlguard"
)

const maxRequestBodyBytes = 64 << 10

type askRequest struct {
	Prompt string `json:"prompt"`
}

type askResponse struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Reason    string `json:"reason,omitempty"`
	SQL       string `json:"sql,omitempty"`
	RowCount  *int   `json:"row_count,omitempty"`
	Truncated *bool  `json:"truncated,omitempty"`
}

type validateRequest struct {
	SQL string `json:"sql"`
}

// validateResponse carries the rejection category only. The offending
// identifier goes to the operator log.
type validateResponse struct {
	Accepted bool     `json:"accepted"`
	SQL      string   `json:"sql,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Tables   []string `json:"tables"`
	Columns  []string `json:"columns"`
	Wildcard bool     `json:"wildcard"`
}

// handleAsk answers 200 for every pipeline outcome: the message is the
// delivery, whether it carries rows, a rejection or a failure.
func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Assistant == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASSISTANT_NOT_CONFIGURED", "natural-language queries are not configured", false, nil)
		return
	}

	var req askRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "PROMPT_REQUIRED", "prompt is required", false, nil)
		return
	}

	message := deps.Assistant.Handle(r.Context(), req.Prompt)
	response := askResponse{
		Kind:    string(message.Kind),
		Message: message.Text,
		Reason:  message.Reason,
		SQL:     message.SQL,
	}
	if message.SQL != "" {
		rowCount := message.RowCount
		truncated := message.Truncated
		response.RowCount = &rowCount
		response.Truncated = &truncated
	}
	writeJSON(w, http.StatusOK, response)
}

func handleValidate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if len(deps.Policy.Tables()) == 0 {
		writeError(r.Context(), w, http.StatusNotImplemented, "POLICY_NOT_CONFIGURED", "query policy is not configured", false, nil)
		return
	}

	var req validateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid validate request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	statement, err := sqlguard.Validate(req.SQL, deps.Policy)
	response := validateResponse{
		Accepted: err == nil,
		SQL:      statement.SQL,
		Tables:   nonNil(statement.References.Tables),
		Columns:  nonNil(statement.References.Columns),
		Wildcard: statement.References.Wildcard,
	}
	if err != nil {
		var rejected *sqlguard.RejectedError
		if !errors.As(err, &rejected) {
			writeError(r.Context(), w, http.StatusInternalServerError, "VALIDATION_FAILED", "failed to validate statement", false, nil)
			return
		}
		response.Reason = string(rejected.Reason)
		if deps.Logger != nil {
			deps.Logger.InfoContext(
				r.Context(),
				"sql validation rejected",
				slog.String("reason", string(rejected.Reason)),
				slog.String("identifier", rejected.Identifier),
			)
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func handlePolicy(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if len(deps.Policy.Tables()) == 0 {
		writeError(r.Context(), w, http.StatusNotImplemented, "POLICY_NOT_CONFIGURED", "query policy is not configured", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tables":         deps.Policy.Tables(),
		"columns":        deps.Policy.Columns(),
		"allow_wildcard": deps.Policy.AllowsWildcard(),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
