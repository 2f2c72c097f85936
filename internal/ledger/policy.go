package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"prospine/server/domain"
)

// CostPerDay derives the charge for a single visit from the patient's
// treatment plan. Package plans spread the package cost evenly across the
// configured day count; a package with zero treatment days is billed as
// free. Daily and advance plans bill the configured per-day rate. Unknown
// plan types bill nothing.
func CostPerDay(p domain.Patient) decimal.Decimal {
	switch strings.ToLower(p.TreatmentType) {
	case domain.TreatmentPackage:
		if p.TreatmentDays > 0 {
			return p.PackageCost.Div(decimal.NewFromInt(int64(p.TreatmentDays))).Round(2)
		}
		return decimal.Zero
	case domain.TreatmentDaily, domain.TreatmentAdvance:
		return p.TreatmentCostPerDay
	default:
		return decimal.Zero
	}
}
