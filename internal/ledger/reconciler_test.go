package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestHasDeferralMarker(t *testing.T) {
	cases := []struct {
		remarks string
		want    bool
	}{
		{"marked as due", true},
		{"Marked As Due by reception", true},
		{"patient will PAY LATER", true},
		{"follow-up visit", false},
		{"", false},
		{"due next week", false},
	}
	for _, tc := range cases {
		if got := hasDeferralMarker(tc.remarks); got != tc.want {
			t.Errorf("hasDeferralMarker(%q) = %v, want %v", tc.remarks, got, tc.want)
		}
	}
}

func TestTitleFirst(t *testing.T) {
	if got := titleFirst("package"); got != "Package" {
		t.Fatalf("titleFirst = %q", got)
	}
	if got := titleFirst(""); got != "" {
		t.Fatalf("titleFirst empty = %q", got)
	}
}

// Validation failures must be rejected before any storage access; the nil
// db would panic otherwise.
func TestMarkAttendanceRejectsBadInputBeforeStorage(t *testing.T) {
	r := &Reconciler{}

	cases := []struct {
		name  string
		input MarkAttendanceInput
	}{
		{"zero patient id", MarkAttendanceInput{EmployeeID: 1}},
		{"missing employee identity", MarkAttendanceInput{PatientID: 7}},
		{"negative payment", MarkAttendanceInput{PatientID: 7, EmployeeID: 1, PaymentAmount: dec("-10")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.MarkAttendance(context.Background(), tc.input)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("want ValidationError, got %v", err)
			}
		})
	}
}

func TestRecordPaymentRejectsBadInputBeforeStorage(t *testing.T) {
	r := &Reconciler{}

	cases := []struct {
		name  string
		input RecordPaymentInput
	}{
		{"zero patient id", RecordPaymentInput{EmployeeID: 1, Amount: dec("50"), Mode: "cash"}},
		{"missing employee identity", RecordPaymentInput{PatientID: 7, Amount: dec("50"), Mode: "cash"}},
		{"zero amount", RecordPaymentInput{PatientID: 7, EmployeeID: 1, Mode: "cash"}},
		{"missing mode", RecordPaymentInput{PatientID: 7, EmployeeID: 1, Amount: dec("50")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.RecordPayment(context.Background(), tc.input)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("want ValidationError, got %v", err)
			}
		})
	}
}

func TestInsufficientBalanceErrorReportsShortfall(t *testing.T) {
	err := &InsufficientBalanceError{Shortfall: decimal.RequireFromString("149.5")}
	if !strings.Contains(err.Error(), "149.50") {
		t.Fatalf("error message %q does not carry the two-decimal shortfall", err.Error())
	}
}
