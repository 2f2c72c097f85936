package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment modes accepted by the billing flows.
const (
	ModeCash  = "cash"
	ModeUPI   = "upi"
	ModeCard  = "card"
	ModeOther = "other"
)

// Payment is an append-only ledger entry. Rows are never updated or deleted.
type Payment struct {
	PaymentID   int64           `db:"payment_id" json:"payment_id"`
	PatientID   int64           `db:"patient_id" json:"patient_id"`
	PaymentDate time.Time       `db:"payment_date" json:"payment_date"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Mode        string          `db:"mode" json:"mode"`
	Remarks     string          `db:"remarks" json:"remarks"`
	CreatedAt   string          `db:"created_at" json:"created_at,omitempty"`
	ProcessedBy int64           `db:"processed_by_employee_id" json:"processed_by_employee_id"`
}
