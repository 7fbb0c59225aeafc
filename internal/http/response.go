package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
)

func init() {
	// Report amounts go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// envelope is the JSON shape every API response uses.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondOK(w http.ResponseWriter, payload envelope) {
	if payload == nil {
		payload = envelope{}
	}
	payload["success"] = true
	writeJSON(w, http.StatusOK, payload)
}

func respondCreated(w http.ResponseWriter, payload envelope) {
	if payload == nil {
		payload = envelope{}
	}
	payload["success"] = true
	writeJSON(w, http.StatusCreated, payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "error": message})
}
