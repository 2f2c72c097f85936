package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LabTest struct {
	TestID        int64           `db:"test_id" json:"test_id"`
	PatientID     int64           `db:"patient_id" json:"patient_id"`
	TestDate      time.Time       `db:"test_date" json:"test_date"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	AdvanceAmount decimal.Decimal `db:"advance_amount" json:"advance_amount"`
	DueAmount     decimal.Decimal `db:"due_amount" json:"due_amount"`
	Discount      decimal.Decimal `db:"discount" json:"discount"`
	CreatedAt     string          `db:"created_at" json:"created_at,omitempty"`
}

type LabTestItem struct {
	ItemID        int64           `db:"item_id" json:"item_id"`
	TestID        int64           `db:"test_id" json:"test_id"`
	TestName      string          `db:"test_name" json:"test_name"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	AdvanceAmount decimal.Decimal `db:"advance_amount" json:"advance_amount"`
	DueAmount     decimal.Decimal `db:"due_amount" json:"due_amount"`
}
