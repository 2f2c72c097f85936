package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Treatment plan types. Anything else is billed at zero.
const (
	TreatmentPackage = "package"
	TreatmentDaily   = "daily"
	TreatmentAdvance = "advance"
	TreatmentOther   = "other"
)

// Patient statuses.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusCompleted = "completed"
)

type Patient struct {
	PatientID           int64           `db:"patient_id" json:"patient_id"`
	BranchID            int64           `db:"branch_id" json:"branch_id"`
	Name                string          `db:"patient_name" json:"patient_name"`
	Phone               string          `db:"phone_number" json:"phone_number"`
	Age                 *int            `db:"age" json:"age,omitempty"`
	Gender              string          `db:"gender" json:"gender"`
	TreatmentType       string          `db:"treatment_type" json:"treatment_type"`
	TreatmentCostPerDay decimal.Decimal `db:"treatment_cost_per_day" json:"treatment_cost_per_day"`
	PackageCost         decimal.Decimal `db:"package_cost" json:"package_cost"`
	TreatmentDays       int             `db:"treatment_days" json:"treatment_days"`
	TotalAmount         decimal.Decimal `db:"total_amount" json:"total_amount"`
	AdvancePayment      decimal.Decimal `db:"advance_payment" json:"advance_payment"`
	DueAmount           decimal.Decimal `db:"due_amount" json:"due_amount"`
	Status              string          `db:"status" json:"status"`
	StartDate           time.Time       `db:"start_date" json:"start_date"`
	CreatedAt           string          `db:"created_at" json:"created_at,omitempty"`
}
