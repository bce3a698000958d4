package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/medcore/hms/pkg/patch"
)

// Status of a bill. It is never stored independently of the amounts: every
// write derives it again from (paid, total).
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid:
		return true
	}
	return false
}

// DeriveStatus maps a paid/total pair to a status. Nothing paid (or a net
// refund) is PENDING even when the total is zero; any positive payment that
// covers the total is PAID.
func DeriveStatus(paid, total decimal.Decimal) Status {
	switch {
	case !paid.IsPositive():
		return StatusPending
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	default:
		return StatusPartial
	}
}

// Bill maps to the bills table.
type Bill struct {
	ID          string          `db:"id" json:"id"`
	PatientID   string          `db:"patient_id" json:"patient_id"`
	IssueDate   time.Time       `db:"issue_date" json:"issue_date"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaidAmount  decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	Status      Status          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`

	Items []*BillItem `db:"-" json:"items,omitempty"`
}

// BalanceDue is total minus paid; negative after an overpayment.
func (b *Bill) BalanceDue() decimal.Decimal {
	return b.TotalAmount.Sub(b.PaidAmount)
}

func (b *Bill) deriveStatus() {
	b.Status = DeriveStatus(b.PaidAmount, b.TotalAmount)
}

// BillItem maps to the bill_items table. TotalPrice is the stored line
// total and is not derived from Quantity.
type BillItem struct {
	ID          string          `db:"id" json:"id"`
	BillID      string          `db:"bill_id" json:"bill_id"`
	Description string          `db:"description" json:"description"`
	Quantity    int             `db:"quantity" json:"quantity"`
	TotalPrice  decimal.Decimal `db:"total_price" json:"total_price"`
}

// BillPatch is a partial update of a bill. When PaidAmount is set, Status
// is derived and any Status in the same patch is ignored.
type BillPatch struct {
	Status     patch.Field[Status]          `json:"status"`
	PaidAmount patch.Field[decimal.Decimal] `json:"paid_amount"`
}

func (p BillPatch) Empty() bool { return !p.Status.Set && !p.PaidAmount.Set }

type BillItemPatch struct {
	Description patch.Field[string]          `json:"description" validate:"omitempty,min=1"`
	Quantity    patch.Field[int]             `json:"quantity" validate:"omitempty,gte=1"`
	TotalPrice  patch.Field[decimal.Decimal] `json:"total_price"`
}

func (p BillItemPatch) Empty() bool {
	return !p.Description.Set && !p.Quantity.Set && !p.TotalPrice.Set
}

// sumLineTotals adds line totals in slice order with exact decimal addition.
func sumLineTotals(items []*BillItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalPrice)
	}
	return total
}

func issueDate(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
