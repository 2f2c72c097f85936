package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Summary is the derived view of a patient's ledger: what they paid all-time,
// what their visits since the plan start consumed, and the difference. It is
// computed on demand and never persisted.
type Summary struct {
	PaidTotal        decimal.Decimal `json:"paid_total"`
	ConsumedTotal    decimal.Decimal `json:"consumed_total"`
	EffectiveBalance decimal.Decimal `json:"effective_balance"`
}

// ReadSummary computes the ledger summary for a patient. q must be bound to
// the same transaction as any mutation that depends on the result; reading
// outside that transaction reintroduces the stale-balance race this package
// exists to prevent. Consumed cost assumes costPerDay has been constant
// since startDate.
func ReadSummary(ctx context.Context, q sqlx.QueryerContext, patientID int64, startDate time.Time, costPerDay decimal.Decimal) (Summary, error) {
	var paid decimal.Decimal
	if err := sqlx.GetContext(ctx, q, &paid,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE patient_id = $1`, patientID); err != nil {
		return Summary{}, fmt.Errorf("sum payments: %w", err)
	}

	var visits int64
	if err := sqlx.GetContext(ctx, q, &visits,
		`SELECT COUNT(*) FROM attendance WHERE patient_id = $1 AND attendance_date >= $2`,
		patientID, startDate); err != nil {
		return Summary{}, fmt.Errorf("count attendance: %w", err)
	}

	consumed := costPerDay.Mul(decimal.NewFromInt(visits))
	return Summary{
		PaidTotal:        paid,
		ConsumedTotal:    consumed,
		EffectiveBalance: paid.Sub(consumed),
	}, nil
}
