package pharmacy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/medcore/hms/pkg/patch"
)

type Medication struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name" validate:"required"`
	Manufacturer  string          `db:"manufacturer" json:"manufacturer,omitempty"`
	UnitPrice     decimal.Decimal `db:"unit_price" json:"unit_price" validate:"gte=0"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity" validate:"gte=0"`
	ExpiryDate    *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

type MedicationPatch struct {
	Name          patch.Field[string]          `json:"name" validate:"omitempty,min=1"`
	Manufacturer  patch.Field[string]          `json:"manufacturer"`
	UnitPrice     patch.Field[decimal.Decimal] `json:"unit_price"`
	StockQuantity patch.Field[int]             `json:"stock_quantity"`
	ExpiryDate    patch.Field[time.Time]       `json:"expiry_date"`
}

func (p MedicationPatch) apply(m *Medication) {
	p.Name.Apply(&m.Name)
	p.Manufacturer.Apply(&m.Manufacturer)
	p.UnitPrice.Apply(&m.UnitPrice)
	p.StockQuantity.Apply(&m.StockQuantity)
	if d, ok := p.ExpiryDate.Get(); ok {
		m.ExpiryDate = &d
	}
}

type PrescriptionStatus string

const (
	PrescriptionPending   PrescriptionStatus = "PENDING"
	PrescriptionDispensed PrescriptionStatus = "DISPENSED"
)

type Prescription struct {
	ID        string              `db:"id" json:"id"`
	PatientID string              `db:"patient_id" json:"patient_id"`
	DoctorID  string              `db:"doctor_id" json:"doctor_id"`
	IssuedAt  time.Time           `db:"issued_at" json:"issued_at"`
	Status    PrescriptionStatus  `db:"status" json:"status"`
	Notes     string              `db:"notes" json:"notes,omitempty"`
	Items     []*PrescriptionItem `db:"-" json:"items,omitempty"`
}

type PrescriptionItem struct {
	ID             string `db:"id" json:"id"`
	PrescriptionID string `db:"prescription_id" json:"prescription_id"`
	MedicationID   string `db:"medication_id" json:"medication_id"`
	Quantity       int    `db:"quantity" json:"quantity"`
	Dosage         string `db:"dosage" json:"dosage,omitempty"`
	Instructions   string `db:"instructions" json:"instructions,omitempty"`
}

// LineCharge is the billable amount of one prescription line at the
// medication's current unit price.
type LineCharge struct {
	MedicationID string
	Description  string
	Quantity     int
	Amount       decimal.Decimal
}
