package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"prospine/server/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCostPerDay(t *testing.T) {
	cases := []struct {
		name    string
		patient domain.Patient
		want    string
	}{
		{
			name: "package spreads cost across days",
			patient: domain.Patient{
				TreatmentType: domain.TreatmentPackage,
				PackageCost:   dec("5000"),
				TreatmentDays: 10,
			},
			want: "500",
		},
		{
			name: "package with zero days is free",
			patient: domain.Patient{
				TreatmentType: domain.TreatmentPackage,
				PackageCost:   dec("5000"),
				TreatmentDays: 0,
			},
			want: "0",
		},
		{
			name: "package rounds to cents",
			patient: domain.Patient{
				TreatmentType: domain.TreatmentPackage,
				PackageCost:   dec("5000"),
				TreatmentDays: 3,
			},
			want: "1666.67",
		},
		{
			name: "daily ignores package cost",
			patient: domain.Patient{
				TreatmentType:       domain.TreatmentDaily,
				TreatmentCostPerDay: dec("300"),
				PackageCost:         dec("9999"),
				TreatmentDays:       7,
			},
			want: "300",
		},
		{
			name: "advance uses per-day rate",
			patient: domain.Patient{
				TreatmentType:       domain.TreatmentAdvance,
				TreatmentCostPerDay: dec("450.50"),
			},
			want: "450.50",
		},
		{
			name: "plan type is case-insensitive",
			patient: domain.Patient{
				TreatmentType: "Package",
				PackageCost:   dec("1000"),
				TreatmentDays: 4,
			},
			want: "250",
		},
		{
			name: "unknown plan bills nothing",
			patient: domain.Patient{
				TreatmentType:       domain.TreatmentOther,
				TreatmentCostPerDay: dec("300"),
				PackageCost:         dec("5000"),
				TreatmentDays:       10,
			},
			want: "0",
		},
		{
			name:    "empty plan bills nothing",
			patient: domain.Patient{TreatmentType: ""},
			want:    "0",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CostPerDay(tc.patient)
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("CostPerDay = %s, want %s", got, tc.want)
			}
		})
	}
}
