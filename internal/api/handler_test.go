package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"prospine/server/internal/ledger"
)

func newTestHandler() *Handler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(nil, "test-secret", logger, nil)
}

func doRequest(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return body
}

func TestHealth(t *testing.T) {
	router := newTestHandler().Router()
	rec := doRequest(t, router, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestAppInfoIsPublic(t *testing.T) {
	router := newTestHandler().Router()
	rec := doRequest(t, router, http.MethodGet, "/app/info", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "success" {
		t.Fatalf("body = %v", body)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	router := newTestHandler().Router()
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/attendance/"},
		{http.MethodGet, "/patients/"},
		{http.MethodPost, "/expenses/"},
		{http.MethodGet, "/appointments/"},
	} {
		rec := doRequest(t, router, tc.method, tc.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", tc.method, tc.path, rec.Code)
		}
	}
}

func TestProtectedRoutesRejectBadToken(t *testing.T) {
	router := newTestHandler().Router()
	rec := doRequest(t, router, http.MethodGet, "/patients/", "not-a-jwt", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestTokenSignedWithWrongSecretIsRejected(t *testing.T) {
	other := New(nil, "other-secret", logrus.New(), nil)
	token, err := other.generateToken(1, "reception", 1)
	if err != nil {
		t.Fatalf("generateToken: %v", err)
	}
	router := newTestHandler().Router()
	rec := doRequest(t, router, http.MethodGet, "/patients/", token, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMiddlewareExposesEmployeeIdentity(t *testing.T) {
	h := newTestHandler()
	token, err := h.generateToken(42, "admin", 3)
	if err != nil {
		t.Fatalf("generateToken: %v", err)
	}

	var gotEmployee, gotBranch int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEmployee = employeeIDFromContext(r)
		gotBranch = branchIDFromContext(r)
	})
	rec := doRequest(t, h.authMiddleware(next), http.MethodGet, "/whatever", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotEmployee != 42 || gotBranch != 3 {
		t.Fatalf("employee=%d branch=%d, want 42 and 3", gotEmployee, gotBranch)
	}
}

func TestMarkAttendanceRejectsMalformedBody(t *testing.T) {
	h := newTestHandler()
	token, _ := h.generateToken(1, "reception", 1)
	router := h.Router()

	for name, body := range map[string]string{
		"invalid json":   `{"patient_id":`,
		"unknown field":  `{"patient_id": 1, "bogus": true}`,
		"missing id":     `{"remarks": "x"}`,
		"non-positive":   `{"patient_id": 0}`,
		"bad mode value": `{"patient_id": 1, "mode": "bitcoin"}`,
	} {
		rec := doRequest(t, router, http.MethodPost, "/attendance/", token, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestCreatePatientRejectsInvalidPlan(t *testing.T) {
	h := newTestHandler()
	token, _ := h.generateToken(1, "reception", 1)
	router := h.Router()

	for name, body := range map[string]string{
		"missing name":       `{"treatment_type": "daily"}`,
		"bad treatment type": `{"patient_name": "A", "treatment_type": "hourly"}`,
		"negative days":      `{"patient_name": "A", "treatment_type": "package", "treatment_days": -1}`,
		"negative money":     `{"patient_name": "A", "treatment_type": "daily", "treatment_cost_per_day": "-5"}`,
		"bad start date":     `{"patient_name": "A", "treatment_type": "daily", "start_date": "31-12-2026"}`,
	} {
		rec := doRequest(t, router, http.MethodPost, "/patients/", token, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestCreateExpenseRejectsNonPositiveAmount(t *testing.T) {
	h := newTestHandler()
	token, _ := h.generateToken(1, "admin", 1)
	rec := doRequest(t, h.Router(), http.MethodPost, "/expenses/", token,
		`{"category": "rent", "amount": "0"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListAttendanceRejectsBadDate(t *testing.T) {
	h := newTestHandler()
	token, _ := h.generateToken(1, "reception", 1)
	rec := doRequest(t, h.Router(), http.MethodGet, "/attendance/?date=12/05/2026", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRespondLedgerErrorStatusMapping(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"patient not found", ledger.ErrPatientNotFound, http.StatusNotFound},
		{"duplicate attendance", ledger.ErrDuplicateAttendance, http.StatusBadRequest},
		{"validation", &ledger.ValidationError{Reason: "patient id is required"}, http.StatusBadRequest},
		{"insufficient balance", &ledger.InsufficientBalanceError{Shortfall: decimal.NewFromInt(300)}, http.StatusBadRequest},
		{"lock timeout", ledger.ErrLockTimeout, http.StatusConflict},
		{"unknown", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		h.respondLedgerError(rec, tc.err)
		if rec.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.status)
		}
		if body := decodeBody(t, rec); body["status"] != "error" {
			t.Errorf("%s: body = %v", tc.name, body)
		}
	}
}

func TestRespondLedgerErrorIncludesShortfall(t *testing.T) {
	h := newTestHandler()
	rec := httptest.NewRecorder()
	h.respondLedgerError(rec, &ledger.InsufficientBalanceError{Shortfall: decimal.RequireFromString("150.50")})
	body := decodeBody(t, rec)
	if body["shortfall"] != "150.5" {
		t.Fatalf("shortfall = %v, want 150.5", body["shortfall"])
	}
}

func TestRespondLedgerErrorMarksLockTimeoutRetryable(t *testing.T) {
	h := newTestHandler()
	rec := httptest.NewRecorder()
	h.respondLedgerError(rec, ledger.ErrLockTimeout)
	body := decodeBody(t, rec)
	if body["retryable"] != true {
		t.Fatalf("retryable = %v, want true", body["retryable"])
	}
}

func TestDateRangeValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/expenses/?start_date=2026-08-01&end_date=2026-08-30", nil)
	start, end, err := dateRange(req, -30)
	if err != nil {
		t.Fatalf("dateRange: %v", err)
	}
	if start != "2026-08-01" || end != "2026-08-30" {
		t.Fatalf("range = %s..%s", start, end)
	}

	bad := httptest.NewRequest(http.MethodGet, "/expenses/?start_date=01-08-2026", nil)
	if _, _, err := dateRange(bad, -30); err == nil {
		t.Fatal("expected error for malformed start_date")
	}
}
