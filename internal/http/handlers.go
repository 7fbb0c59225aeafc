package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/core"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/storage"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/tabular"
)

const maxImportSize = 10 << 20 // 10 MiB

type entryPayload struct {
	ID         int64           `json:"id,omitempty"`
	Date       core.Date       `json:"date"`
	Gain       decimal.Decimal `json:"gain"`
	Loss       decimal.Decimal `json:"loss"`
	Withdrawal decimal.Decimal `json:"withdrawal"`
	Deposit    decimal.Decimal `json:"deposit"`
}

type settingsPayload struct {
	StartingBalance  decimal.Decimal  `json:"starting_balance"`
	ExchangeRate     *decimal.Decimal `json:"exchange_rate"`
	SignedWithdrawal bool             `json:"signed_withdrawal"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, envelope{"status": "ok"})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.ledger.Settings(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load settings", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	opts, err := s.ledger.Options(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	respondOK(w, envelope{"settings": settingsPayload{
		StartingBalance:  settings.StartingBalance,
		ExchangeRate:     settings.ExchangeRate,
		SignedWithdrawal: opts.SignedWithdrawal,
	}})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.ledger.UpdateSettings(r.Context(), storage.Settings{
		StartingBalance: payload.StartingBalance,
		ExchangeRate:    payload.ExchangeRate,
	})
	if err != nil {
		if errors.Is(err, core.ErrInvalidRate) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to update settings", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}
	respondOK(w, nil)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ledger.ListEntries(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list entries", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}

	payload := make([]entryPayload, len(entries))
	for i, le := range entries {
		payload[i] = entryPayload{
			ID:         le.ID,
			Date:       le.Entry.Date,
			Gain:       le.Entry.Gain,
			Loss:       le.Entry.Loss,
			Withdrawal: le.Entry.Withdrawal,
			Deposit:    le.Entry.Deposit,
		}
	}
	respondOK(w, envelope{"entries": payload, "count": len(payload)})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var payload entryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry := core.Entry{
		Date:       payload.Date,
		Gain:       payload.Gain,
		Loss:       payload.Loss,
		Withdrawal: payload.Withdrawal,
		Deposit:    payload.Deposit,
	}
	if err := entry.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.ledger.CreateEntry(r.Context(), entry)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to create entry", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create entry")
		return
	}
	respondCreated(w, envelope{"id": id})
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid entry ID")
		return
	}

	if err := s.ledger.DeleteEntry(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "entry not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to delete entry", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}
	respondOK(w, nil)
}

// handleCalculate derives the report. With an empty body it computes from
// the stored ledger; a body with a "data" list computes on those entries
// alone without persisting anything.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data []entryPayload `json:"data"`
	}
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var (
		daily   []core.DailyRecord
		monthly []core.MonthlyRecord
	)
	if len(req.Data) > 0 {
		entries := make([]core.Entry, len(req.Data))
		for i, p := range req.Data {
			entries[i] = core.Entry{
				Date:       p.Date,
				Gain:       p.Gain,
				Loss:       p.Loss,
				Withdrawal: p.Withdrawal,
				Deposit:    p.Deposit,
			}
		}
		opts, err := s.ledger.Options(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to load settings")
			return
		}
		if daily, err = core.ComputeDaily(entries, opts); err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if monthly, err = core.ComputeMonthly(daily, opts); err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	} else {
		report, err := s.ledger.Report(r.Context())
		if err != nil {
			if errors.Is(err, core.ErrInvalidDate) || errors.Is(err, core.ErrInvalidRate) {
				respondError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			s.logger.ErrorContext(r.Context(), "Failed to compute report", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to compute report")
			return
		}
		daily, monthly = report.Daily, report.Monthly
	}

	respondOK(w, envelope{"daily": daily, "monthly": monthly})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if view == "" {
		view = "daily"
	}
	if view != "daily" && view != "monthly" {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown view %q", view))
		return
	}

	report, err := s.ledger.Report(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to compute report", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to compute report")
		return
	}

	var t tabular.Table
	if view == "daily" {
		t = tabular.DailyTable(report.Daily)
	} else {
		t = tabular.MonthlyTable(report.Monthly)
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", view))
	if err := tabular.WriteCSV(w, t); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to write CSV", "error", err)
	}
}

// handleImportCSV replaces the entire ledger with the uploaded file. The
// file is validated before anything is touched: a missing column or a
// malformed row rejects the whole upload.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	t, err := tabular.ReadCSV(file)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	opts, err := s.ledger.Options(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	entries, err := tabular.ParseEntries(t, opts)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	n, err := s.ledger.ImportEntries(r.Context(), entries)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to import entries", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to import entries")
		return
	}
	respondOK(w, envelope{"imported": n})
}
