package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"prospine/server/domain"
)

type RecordPaymentInput struct {
	PatientID  int64
	EmployeeID int64
	Amount     decimal.Decimal
	Mode       string
	Remarks    string
}

type RecordPaymentResult struct {
	PaymentID  int64
	NewBalance decimal.Decimal
}

// RecordPayment appends a payment for a patient outside the attendance flow
// (the billing screen's "collect payment" action) and refreshes the cached
// advance/due fields. It takes the same patient row lock as MarkAttendance
// so the two flows never interleave on the same ledger.
func (r *Reconciler) RecordPayment(ctx context.Context, input RecordPaymentInput) (RecordPaymentResult, error) {
	if input.PatientID <= 0 {
		return RecordPaymentResult{}, &ValidationError{Reason: "invalid patient id"}
	}
	if input.EmployeeID <= 0 {
		return RecordPaymentResult{}, &ValidationError{Reason: "missing employee identity"}
	}
	if !input.Amount.IsPositive() {
		return RecordPaymentResult{}, &ValidationError{Reason: "payment amount must be positive"}
	}
	if strings.TrimSpace(input.Mode) == "" {
		return RecordPaymentResult{}, &ValidationError{Reason: "payment mode is required"}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return RecordPaymentResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return RecordPaymentResult{}, fmt.Errorf("set lock timeout: %w", err)
	}

	var patient domain.Patient
	err = tx.GetContext(ctx, &patient, `
		SELECT patient_id, branch_id, patient_name, phone_number, age, gender,
		       treatment_type, treatment_cost_per_day, package_cost, treatment_days,
		       total_amount, advance_payment, due_amount, status, start_date
		FROM patients
		WHERE patient_id = $1
		FOR UPDATE`, input.PatientID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return RecordPaymentResult{}, ErrPatientNotFound
	case isLockTimeout(err):
		return RecordPaymentResult{}, ErrLockTimeout
	case err != nil:
		return RecordPaymentResult{}, fmt.Errorf("lock patient: %w", err)
	}

	var paymentID int64
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO payments (patient_id, payment_date, amount, mode, remarks, processed_by_employee_id)
		VALUES ($1, CURRENT_DATE, $2, $3, $4, $5)
		RETURNING payment_id`,
		input.PatientID, input.Amount, input.Mode, input.Remarks, input.EmployeeID).Scan(&paymentID)
	if err != nil {
		return RecordPaymentResult{}, fmt.Errorf("insert payment: %w", err)
	}

	summary, err := ReadSummary(ctx, tx, input.PatientID, patient.StartDate, CostPerDay(patient))
	if err != nil {
		return RecordPaymentResult{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE patients SET advance_payment = $1, due_amount = $2
		WHERE patient_id = $3`,
		summary.PaidTotal, patient.TotalAmount.Sub(summary.PaidTotal), input.PatientID); err != nil {
		return RecordPaymentResult{}, fmt.Errorf("update patient summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return RecordPaymentResult{}, fmt.Errorf("commit payment: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"patient_id": input.PatientID,
		"payment_id": paymentID,
		"amount":     input.Amount.StringFixed(2),
		"mode":       input.Mode,
	}).Info("payment recorded")

	return RecordPaymentResult{PaymentID: paymentID, NewBalance: summary.EffectiveBalance}, nil
}
