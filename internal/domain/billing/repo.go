package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BillRepository is the bill side of the record store. Lookups of a missing
// id return an error wrapping db.ErrNotFound.
type BillRepository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id string) (*Bill, error)
	// GetByIDForUpdate also locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*Bill, error)
	Update(ctx context.Context, b *Bill) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Bill, int, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Bill, int, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Bill, int, error)
	ListUnpaid(ctx context.Context, limit, offset int) ([]*Bill, int, error)
	ListUnpaidByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Bill, int, error)
	// ListByDateRange matches issue dates in [from, to], both inclusive.
	ListByDateRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*Bill, int, error)
	// TotalAmountByPatient is zero when the patient has no bills.
	TotalAmountByPatient(ctx context.Context, patientID string) (decimal.Decimal, error)
}

type BillItemRepository interface {
	Create(ctx context.Context, it *BillItem) error
	GetByID(ctx context.Context, id string) (*BillItem, error)
	Update(ctx context.Context, it *BillItem) error
	Delete(ctx context.Context, id string) error
	// ListByBill orders by item id so sums are reproducible.
	ListByBill(ctx context.Context, billID string) ([]*BillItem, error)
}
