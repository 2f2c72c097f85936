package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"prospine/server/domain"
)

// Remarks markers that let a visit be recorded without sufficient balance.
// The marker text doubles as the audit trail for the deferral.
var deferralMarkers = []string{"marked as due", "pay later"}

// Reconciler applies the attendance-marking operation: it verifies the
// patient's ledger, optionally records a same-transaction payment, inserts
// the attendance row and refreshes the patient's cached summary fields, all
// under an exclusive lock on the patient row.
type Reconciler struct {
	db          *sqlx.DB
	logger      *logrus.Logger
	lockTimeout time.Duration
}

func NewReconciler(db *sqlx.DB, logger *logrus.Logger, lockTimeout time.Duration) *Reconciler {
	return &Reconciler{db: db, logger: logger, lockTimeout: lockTimeout}
}

// MarkAttendanceInput carries everything the operation needs. EmployeeID is
// the acting caller's identity, threaded in explicitly; the reconciler never
// reads ambient session state.
type MarkAttendanceInput struct {
	PatientID     int64
	EmployeeID    int64
	PaymentAmount decimal.Decimal
	PaymentMode   string
	Remarks       string
}

type MarkAttendanceResult struct {
	AttendanceID int64
	PaymentID    *int64
	NewBalance   decimal.Decimal
}

// MarkAttendance records today's visit for a patient in a single database
// transaction. Two concurrent calls for the same patient serialize on the
// row lock; the loser then fails the duplicate-day check. Any error rolls
// the whole transaction back, so no partial payment, attendance or patient
// mutation is ever observable.
func (r *Reconciler) MarkAttendance(ctx context.Context, input MarkAttendanceInput) (MarkAttendanceResult, error) {
	if input.PatientID <= 0 {
		return MarkAttendanceResult{}, &ValidationError{Reason: "invalid patient id"}
	}
	if input.EmployeeID <= 0 {
		return MarkAttendanceResult{}, &ValidationError{Reason: "missing employee identity"}
	}
	if input.PaymentAmount.IsNegative() {
		return MarkAttendanceResult{}, &ValidationError{Reason: "payment amount must not be negative"}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return MarkAttendanceResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Bound the wait on the row lock so a stuck writer surfaces as a
	// retryable condition instead of a hung request.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return MarkAttendanceResult{}, fmt.Errorf("set lock timeout: %w", err)
	}

	// Serialization point: the exclusive row lock orders all attendance
	// marking for this patient.
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
		return MarkAttendanceResult{}, ErrPatientNotFound
	case isLockTimeout(err):
		return MarkAttendanceResult{}, ErrLockTimeout
	case err != nil:
		return MarkAttendanceResult{}, fmt.Errorf("lock patient: %w", err)
	}

	var existing int64
	if err := tx.GetContext(ctx, &existing,
		`SELECT COUNT(*) FROM attendance WHERE patient_id = $1 AND attendance_date = CURRENT_DATE`,
		input.PatientID); err != nil {
		return MarkAttendanceResult{}, fmt.Errorf("check duplicate attendance: %w", err)
	}
	if existing > 0 {
		return MarkAttendanceResult{}, ErrDuplicateAttendance
	}

	costPerDay := CostPerDay(patient)

	before, err := ReadSummary(ctx, tx, input.PatientID, patient.StartDate, costPerDay)
	if err != nil {
		return MarkAttendanceResult{}, err
	}

	var paymentID *int64
	if input.PaymentAmount.IsPositive() {
		if strings.TrimSpace(input.PaymentMode) == "" {
			return MarkAttendanceResult{}, &ValidationError{Reason: "payment mode is required"}
		}
		var id int64
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO payments (patient_id, payment_date, amount, mode, remarks, processed_by_employee_id)
			VALUES ($1, CURRENT_DATE, $2, $3, $4, $5)
			RETURNING payment_id`,
			input.PatientID, input.PaymentAmount, input.PaymentMode, input.Remarks, input.EmployeeID).Scan(&id)
		if err != nil {
			return MarkAttendanceResult{}, fmt.Errorf("insert payment: %w", err)
		}
		paymentID = &id
	} else if before.EffectiveBalance.LessThan(costPerDay) && !hasDeferralMarker(input.Remarks) {
		shortfall := costPerDay.Sub(before.EffectiveBalance)
		if shortfall.IsNegative() {
			shortfall = decimal.Zero
		}
		return MarkAttendanceResult{}, &InsufficientBalanceError{Shortfall: shortfall}
	}

	remarks := strings.TrimSpace(input.Remarks)
	if remarks == "" {
		remarks = "Auto: " + titleFirst(strings.ToLower(patient.TreatmentType)) + " attendance"
	}

	var attendanceID int64
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO attendance (patient_id, attendance_date, remarks, payment_id, marked_by_employee_id)
		VALUES ($1, CURRENT_DATE, $2, $3, $4)
		RETURNING attendance_id`,
		input.PatientID, remarks, paymentID, input.EmployeeID).Scan(&attendanceID)
	if err != nil {
		// The unique index backstops the duplicate check across sessions
		// that never contended on the row lock.
		if isUniqueViolation(err) {
			return MarkAttendanceResult{}, ErrDuplicateAttendance
		}
		return MarkAttendanceResult{}, fmt.Errorf("insert attendance: %w", err)
	}

	// Refresh the denormalized patient summary from the ledger, now
	// including the rows inserted above.
	after, err := ReadSummary(ctx, tx, input.PatientID, patient.StartDate, costPerDay)
	if err != nil {
		return MarkAttendanceResult{}, err
	}

	status := patient.Status
	if status == domain.StatusInactive {
		status = domain.StatusActive
	}
	newDue := patient.TotalAmount.Sub(after.PaidTotal)
	if _, err := tx.ExecContext(ctx, `
		UPDATE patients SET advance_payment = $1, due_amount = $2, status = $3
		WHERE patient_id = $4`,
		after.PaidTotal, newDue, status, input.PatientID); err != nil {
		return MarkAttendanceResult{}, fmt.Errorf("update patient summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return MarkAttendanceResult{}, fmt.Errorf("commit attendance: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"patient_id":    input.PatientID,
		"attendance_id": attendanceID,
		"employee_id":   input.EmployeeID,
		"payment":       input.PaymentAmount.StringFixed(2),
		"new_balance":   after.EffectiveBalance.StringFixed(2),
	}).Info("attendance marked")

	return MarkAttendanceResult{
		AttendanceID: attendanceID,
		PaymentID:    paymentID,
		NewBalance:   after.EffectiveBalance,
	}, nil
}

func hasDeferralMarker(remarks string) bool {
	lowered := strings.ToLower(remarks)
	for _, marker := range deferralMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func titleFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 55P03 lock_not_available, 40P01 deadlock_detected: both mean
		// "lost the race, retry with fresh input".
		return pgErr.Code == "55P03" || pgErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
