package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDuplicateAttendance = errors.New("attendance already marked for today")

	// ErrLockTimeout means the patient row lock could not be acquired in
	// time. Nothing was written; the caller may retry after revalidating
	// its input, since the balance may have changed under the other writer.
	ErrLockTimeout = errors.New("patient record is locked by another operation, try again")
)

// ValidationError rejects malformed input before any write happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// InsufficientBalanceError carries the exact shortfall so the caller can
// prompt for that amount and retry.
type InsufficientBalanceError struct {
	Shortfall decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance, need %s more", e.Shortfall.StringFixed(2))
}
