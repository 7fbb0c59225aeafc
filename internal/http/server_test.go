package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/log"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/services"
	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/storage"
)

func newTestServer(t *testing.T, signedWithdrawal bool) *Server {
	t.Helper()
	logger := applog.New(applog.ComponentHTTP, applog.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})
	ledger := services.NewLedgerService(storage.NewMemoryStore(), nil, signedWithdrawal)
	return NewServer(":0", ledger, logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)
	rec := doJSON(t, s, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	payload := decodeEnvelope(t, rec)
	if payload["success"] != true || payload["status"] != "ok" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestEntryLifecycle(t *testing.T) {
	s := newTestServer(t, false)

	rec := doJSON(t, s, http.MethodPost, "/api/entries", map[string]any{
		"date": "2024-01-10", "gain": 100, "loss": 0, "withdrawal": 20, "deposit": 0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rec.Code, rec.Body.String())
	}
	created := decodeEnvelope(t, rec)
	id := created["id"].(float64)
	if id != 1 {
		t.Fatalf("id = %v", created["id"])
	}

	rec = doJSON(t, s, http.MethodGet, "/api/entries", nil)
	listed := decodeEnvelope(t, rec)
	if listed["count"].(float64) != 1 {
		t.Fatalf("count = %v", listed["count"])
	}
	entries := listed["entries"].([]any)
	first := entries[0].(map[string]any)
	if first["date"] != "2024-01-10" {
		t.Fatalf("date = %v", first["date"])
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/entries/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, "/api/entries/1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, "/api/entries/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}
}

func TestCreateEntryRejectsInvalid(t *testing.T) {
	s := newTestServer(t, false)

	rec := doJSON(t, s, http.MethodPost, "/api/entries", map[string]any{
		"date": "2024-01-10", "gain": -5,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	payload := decodeEnvelope(t, rec)
	if payload["success"] != false {
		t.Fatalf("expected success=false, got %v", payload)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/entries", map[string]any{
		"date": "not-a-date",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", rec.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestServer(t, false)

	rec := doJSON(t, s, http.MethodPut, "/api/settings", map[string]any{
		"starting_balance": 500, "exchange_rate": 80,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/settings", nil)
	payload := decodeEnvelope(t, rec)
	settings := payload["settings"].(map[string]any)
	if settings["starting_balance"].(float64) != 500 {
		t.Fatalf("starting_balance = %v", settings["starting_balance"])
	}
	if settings["exchange_rate"].(float64) != 80 {
		t.Fatalf("exchange_rate = %v", settings["exchange_rate"])
	}
	if settings["signed_withdrawal"] != false {
		t.Fatalf("signed_withdrawal = %v", settings["signed_withdrawal"])
	}
}

func TestUpdateSettingsRejectsBadRate(t *testing.T) {
	s := newTestServer(t, false)
	rec := doJSON(t, s, http.MethodPut, "/api/settings", map[string]any{
		"exchange_rate": 0,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestCalculate(t *testing.T) {
	s := newTestServer(t, false)

	if rec := doJSON(t, s, http.MethodPut, "/api/settings", map[string]any{"starting_balance": 500}); rec.Code != http.StatusOK {
		t.Fatalf("settings status = %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodPost, "/api/entries", map[string]any{"date": "2024-01-10", "gain": 100}); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodPost, "/api/entries", map[string]any{"date": "2024-01-11", "loss": 30, "withdrawal": 20}); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := doJSON(t, s, http.MethodPost, "/api/calculate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("calculate status = %d body = %s", rec.Code, rec.Body.String())
	}
	payload := decodeEnvelope(t, rec)
	daily := payload["daily"].([]any)
	monthly := payload["monthly"].([]any)
	if len(daily) != 2 || len(monthly) != 1 {
		t.Fatalf("report shape: %d daily, %d monthly", len(daily), len(monthly))
	}

	last := daily[1].(map[string]any)
	// Amounts marshal as JSON numbers, not strings.
	if last["Cum"].(float64) != 70 {
		t.Fatalf("Cum = %v", last["Cum"])
	}
	if last["Balance"].(float64) != 550 {
		t.Fatalf("Balance = %v", last["Balance"])
	}
	if last["Sl"].(float64) != 2 || last["Date"] != "2024-01-11" {
		t.Fatalf("unexpected record: %v", last)
	}
	month := monthly[0].(map[string]any)
	if month["Month"] != "2024-01-01" || month["Balance"].(float64) != 550 {
		t.Fatalf("unexpected month: %v", month)
	}
}

func TestCalculateWithInlineData(t *testing.T) {
	s := newTestServer(t, false)

	// Entries in the body are computed as-is and never stored.
	rec := doJSON(t, s, http.MethodPost, "/api/calculate", map[string]any{
		"data": []map[string]any{
			{"date": "2024-03-02", "gain": 10},
			{"date": "2024-03-01", "loss": 4},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	payload := decodeEnvelope(t, rec)
	daily := payload["daily"].([]any)
	if len(daily) != 2 {
		t.Fatalf("daily = %v", daily)
	}
	if daily[0].(map[string]any)["Date"] != "2024-03-01" {
		t.Fatalf("inline data not sorted: %v", daily[0])
	}

	listed := decodeEnvelope(t, doJSON(t, s, http.MethodGet, "/api/entries", nil))
	if listed["count"].(float64) != 0 {
		t.Fatalf("inline calculation must not persist entries: %v", listed["count"])
	}
}

func TestCalculateRecomputesEveryCall(t *testing.T) {
	s := newTestServer(t, false)

	if rec := doJSON(t, s, http.MethodPost, "/api/entries", map[string]any{"date": "2024-01-10", "gain": 100}); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	payload := decodeEnvelope(t, doJSON(t, s, http.MethodPost, "/api/calculate", nil))
	if len(payload["daily"].([]any)) != 1 {
		t.Fatalf("daily = %v", payload["daily"])
	}

	// The report is derived fresh on each call, so a write between two
	// calculations must show up in the second one.
	if rec := doJSON(t, s, http.MethodPost, "/api/entries", map[string]any{"date": "2024-01-11", "gain": 50}); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	payload = decodeEnvelope(t, doJSON(t, s, http.MethodPost, "/api/calculate", nil))
	if len(payload["daily"].([]any)) != 2 {
		t.Fatalf("stale report after write: %v", payload["daily"])
	}
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t, false)
	if rec := doJSON(t, s, http.MethodPost, "/api/entries", map[string]any{"date": "2024-01-10", "gain": 100}); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/export/csv?view=daily", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Sl,Date,Gain ($)") {
		t.Fatalf("header = %q", lines[0])
	}

	rec = doJSON(t, s, http.MethodGet, "/api/export/csv?view=weekly", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad view status = %d", rec.Code)
	}
}

func importCSV(t *testing.T, s *Server, csv string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "ledger.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(fw, csv); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/csv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestImportCSVReplacesLedger(t *testing.T) {
	s := newTestServer(t, false)
	if rec := doJSON(t, s, http.MethodPost, "/api/entries", map[string]any{"date": "2023-12-31", "gain": 1}); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	csv := "Date,Gain ($),Loss ($),Withdrawal ($),Deposit ($)\n" +
		"2024-01-01,10,0,0,0\n" +
		"2024-01-02,0,4,0,0\n"
	rec := importCSV(t, s, csv)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d body = %s", rec.Code, rec.Body.String())
	}
	payload := decodeEnvelope(t, rec)
	if payload["imported"].(float64) != 2 {
		t.Fatalf("imported = %v", payload["imported"])
	}

	rec = doJSON(t, s, http.MethodGet, "/api/entries", nil)
	listed := decodeEnvelope(t, rec)
	if listed["count"].(float64) != 2 {
		t.Fatalf("count after import = %v", listed["count"])
	}
}

func TestImportCSVMissingColumn(t *testing.T) {
	s := newTestServer(t, false)
	if rec := doJSON(t, s, http.MethodPost, "/api/entries", map[string]any{"date": "2023-12-31", "gain": 1}); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := importCSV(t, s, "Date,Gain ($)\n2024-01-01,10\n")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	// Rejected upload must not touch the ledger.
	listed := decodeEnvelope(t, doJSON(t, s, http.MethodGet, "/api/entries", nil))
	if listed["count"].(float64) != 1 {
		t.Fatalf("count = %v", listed["count"])
	}
}
