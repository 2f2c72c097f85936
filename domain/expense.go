package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ExpenseID   int64           `db:"expense_id" json:"expense_id"`
	BranchID    int64           `db:"branch_id" json:"branch_id"`
	ExpenseDate time.Time       `db:"expense_date" json:"expense_date"`
	Category    string          `db:"category" json:"category"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Remarks     string          `db:"remarks" json:"remarks"`
	CreatedBy   int64           `db:"created_by_employee_id" json:"created_by_employee_id"`
	CreatedAt   string          `db:"created_at" json:"created_at,omitempty"`
}
