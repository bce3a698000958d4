package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Charge is one billable line supplied by another department.
type Charge struct {
	Description string
	Quantity    int
	Amount      decimal.Decimal
}

// ChargeSource resolves a prescription into the patient it belongs to and
// its billable lines.
type ChargeSource interface {
	ChargesForPrescription(ctx context.Context, prescriptionID string) (patientID string, charges []Charge, err error)
}

type ChargeSourceFunc func(ctx context.Context, prescriptionID string) (string, []Charge, error)

func (f ChargeSourceFunc) ChargesForPrescription(ctx context.Context, id string) (string, []Charge, error) {
	return f(ctx, id)
}
