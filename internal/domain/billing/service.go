package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/medcore/hms/internal/platform/db"
	"github.com/medcore/hms/pkg/ident"
)

// ErrStatusMismatch is returned when a patched status disagrees with the
// status derived from the bill's paid and total amounts.
var ErrStatusMismatch = errors.New("status does not match paid and total amounts")

// Service is the billing engine. Every read-modify-write of a bill holds the
// bill's in-process lock and runs in one transaction that row-locks the bill.
type Service struct {
	bills   BillRepository
	items   BillItemRepository
	tx      db.Transactor
	locks   *keyedMutex
	charges ChargeSource
	logger  zerolog.Logger
	now     func() time.Time
}

func NewService(bills BillRepository, items BillItemRepository, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{
		bills:  bills,
		items:  items,
		tx:     tx,
		locks:  newKeyedMutex(),
		logger: logger.With().Str("component", "billing").Logger(),
		now:    time.Now,
	}
}

// SetChargeSource enables GenerateBillFromPrescription.
func (s *Service) SetChargeSource(cs ChargeSource) {
	s.charges = cs
}

// -- Bills --

// GenerateBill stores a new bill dated today with zero amounts. The patient
// reference is not checked against the patient registry.
func (s *Service) GenerateBill(ctx context.Context, b *Bill) error {
	if strings.TrimSpace(b.PatientID) == "" {
		return fmt.Errorf("patient_id is required")
	}
	b.ID = ident.New(ident.PrefixBill)
	b.IssueDate = issueDate(s.now())
	b.TotalAmount = decimal.Zero
	b.PaidAmount = decimal.Zero
	b.Items = nil
	b.deriveStatus()
	return s.bills.Create(ctx, b)
}

// GenerateBillWithItems stores a bill and its items in one transaction. The
// total is the exact sum of the items' line totals in input order, and the
// draft's PaidAmount is kept as the opening paid amount.
func (s *Service) GenerateBillWithItems(ctx context.Context, b *Bill, items []*BillItem) error {
	if strings.TrimSpace(b.PatientID) == "" {
		return fmt.Errorf("patient_id is required")
	}
	for i, it := range items {
		if it == nil {
			return fmt.Errorf("item %d is nil", i)
		}
		if err := validateNewItem(it); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}

	b.ID = ident.New(ident.PrefixBill)
	b.IssueDate = issueDate(s.now())
	for _, it := range items {
		it.ID = ident.New(ident.PrefixBillItem)
		it.BillID = b.ID
	}
	b.TotalAmount = sumLineTotals(items)
	b.deriveStatus()

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.bills.Create(ctx, b); err != nil {
			return err
		}
		for _, it := range items {
			if err := s.items.Create(ctx, it); err != nil {
				return fmt.Errorf("create bill item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.Items = items
	return nil
}

// GenerateBillFromPrescription bills every line of a prescription through
// GenerateBillWithItems.
func (s *Service) GenerateBillFromPrescription(ctx context.Context, prescriptionID string) (*Bill, error) {
	if s.charges == nil {
		return nil, fmt.Errorf("no charge source configured")
	}
	patientID, charges, err := s.charges.ChargesForPrescription(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	if len(charges) == 0 {
		return nil, fmt.Errorf("prescription %s has no billable lines", prescriptionID)
	}
	items := make([]*BillItem, 0, len(charges))
	for _, ch := range charges {
		items = append(items, &BillItem{Description: ch.Description, Quantity: ch.Quantity, TotalPrice: ch.Amount})
	}
	b := &Bill{PatientID: patientID}
	if err := s.GenerateBillWithItems(ctx, b, items); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBill returns the bill with its items.
func (s *Service) GetBill(ctx context.Context, id string) (*Bill, error) {
	b, err := s.bills.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByBill(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return b, nil
}

// ProcessPayment adds amount to the paid amount and derives the status again.
// Any amount is accepted: refunds may move a bill back to PARTIAL or PENDING,
// and overpayments are kept verbatim.
func (s *Service) ProcessPayment(ctx context.Context, billID string, amount decimal.Decimal) (*Bill, error) {
	var out *Bill
	err := s.withBill(ctx, billID, func(ctx context.Context, b *Bill) error {
		before := b.Status
		b.PaidAmount = b.PaidAmount.Add(amount)
		b.deriveStatus()
		if err := s.bills.Update(ctx, b); err != nil {
			return err
		}
		s.logPayment(b, amount, before)
		out = b
		return nil
	})
	return out, err
}

func (s *Service) logPayment(b *Bill, amount decimal.Decimal, before Status) {
	switch {
	case amount.IsNegative():
		s.logger.Warn().
			Str("bill_id", b.ID).
			Str("amount", amount.String()).
			Str("from_status", string(before)).
			Str("to_status", string(b.Status)).
			Msg("negative payment applied")
	case b.PaidAmount.GreaterThan(b.TotalAmount):
		s.logger.Warn().
			Str("bill_id", b.ID).
			Str("amount", amount.String()).
			Str("overpaid_by", b.PaidAmount.Sub(b.TotalAmount).String()).
			Msg("bill overpaid")
	default:
		s.logger.Info().
			Str("bill_id", b.ID).
			Str("amount", amount.String()).
			Str("status", string(b.Status)).
			Msg("payment applied")
	}
}

// UpdateBill applies a partial update. The status is always derived from the
// paid and total amounts: a patched paid amount wins over a patched status,
// and a status patched on its own must equal the derived one.
func (s *Service) UpdateBill(ctx context.Context, billID string, p BillPatch) (*Bill, error) {
	if st, ok := p.Status.Get(); ok && !st.Valid() {
		return nil, fmt.Errorf("invalid bill status: %s", st)
	}
	var out *Bill
	err := s.withBill(ctx, billID, func(ctx context.Context, b *Bill) error {
		if paid, ok := p.PaidAmount.Get(); ok {
			if p.Status.Set {
				s.logger.Debug().Str("bill_id", b.ID).Msg("patched status ignored, derived from paid_amount")
			}
			b.PaidAmount = paid
		} else if st, ok := p.Status.Get(); ok {
			if want := DeriveStatus(b.PaidAmount, b.TotalAmount); st != want {
				return fmt.Errorf("%w: got %s, expected %s", ErrStatusMismatch, st, want)
			}
		}
		b.deriveStatus()
		if err := s.bills.Update(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

// DeleteBill removes a bill; the store removes its items.
func (s *Service) DeleteBill(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.bills.Delete(ctx, id)
}

func (s *Service) ListBills(ctx context.Context, limit, offset int) ([]*Bill, int, error) {
	return s.bills.List(ctx, limit, offset)
}

func (s *Service) ListBillsByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Bill, int, error) {
	return s.bills.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListBillsByStatus(ctx context.Context, status Status, limit, offset int) ([]*Bill, int, error) {
	if !status.Valid() {
		return nil, 0, fmt.Errorf("invalid bill status: %s", status)
	}
	return s.bills.ListByStatus(ctx, status, limit, offset)
}

// ListBillsByDateRange lists bills issued on any day from..to inclusive.
func (s *Service) ListBillsByDateRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*Bill, int, error) {
	from, to = issueDate(from), issueDate(to)
	if to.Before(from) {
		return nil, 0, fmt.Errorf("date range end %s is before start %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	return s.bills.ListByDateRange(ctx, from, to, limit, offset)
}

func (s *Service) ListUnpaidBills(ctx context.Context, limit, offset int) ([]*Bill, int, error) {
	return s.bills.ListUnpaid(ctx, limit, offset)
}

func (s *Service) ListUnpaidBillsByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Bill, int, error) {
	return s.bills.ListUnpaidByPatient(ctx, patientID, limit, offset)
}

// TotalAmountByPatient sums the totals of all the patient's bills; zero when
// there are none.
func (s *Service) TotalAmountByPatient(ctx context.Context, patientID string) (decimal.Decimal, error) {
	return s.bills.TotalAmountByPatient(ctx, patientID)
}

// -- Bill items --

func validateNewItem(it *BillItem) error {
	if strings.TrimSpace(it.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if it.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	return nil
}

// AddBillItem attaches a new item to an existing bill and recomputes the
// bill total.
func (s *Service) AddBillItem(ctx context.Context, it *BillItem) error {
	if strings.TrimSpace(it.BillID) == "" {
		return fmt.Errorf("bill_id is required")
	}
	if err := validateNewItem(it); err != nil {
		return err
	}
	return s.withBill(ctx, it.BillID, func(ctx context.Context, _ *Bill) error {
		it.ID = ident.New(ident.PrefixBillItem)
		if err := s.items.Create(ctx, it); err != nil {
			return err
		}
		_, err := s.recomputeTotal(ctx, it.BillID)
		return err
	})
}

func (s *Service) GetBillItem(ctx context.Context, id string) (*BillItem, error) {
	return s.items.GetByID(ctx, id)
}

func (s *Service) ListBillItems(ctx context.Context, billID string) ([]*BillItem, error) {
	if _, err := s.bills.GetByID(ctx, billID); err != nil {
		return nil, err
	}
	return s.items.ListByBill(ctx, billID)
}

// UpdateBillItem applies a partial update to an item, then recomputes its
// bill's total over the updated item set.
func (s *Service) UpdateBillItem(ctx context.Context, itemID string, p BillItemPatch) (*BillItem, error) {
	if d, ok := p.Description.Get(); ok && strings.TrimSpace(d) == "" {
		return nil, fmt.Errorf("description must not be empty")
	}
	if q, ok := p.Quantity.Get(); ok && q < 1 {
		return nil, fmt.Errorf("quantity must be at least 1")
	}
	current, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var out *BillItem
	err = s.withBill(ctx, current.BillID, func(ctx context.Context, _ *Bill) error {
		it, err := s.items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		p.Description.Apply(&it.Description)
		p.Quantity.Apply(&it.Quantity)
		p.TotalPrice.Apply(&it.TotalPrice)
		if err := s.items.Update(ctx, it); err != nil {
			return err
		}
		if _, err := s.recomputeTotal(ctx, it.BillID); err != nil {
			return err
		}
		out = it
		return nil
	})
	return out, err
}

// DeleteBillItem removes an item, then recomputes its bill's total.
func (s *Service) DeleteBillItem(ctx context.Context, itemID string) error {
	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	return s.withBill(ctx, it.BillID, func(ctx context.Context, _ *Bill) error {
		if err := s.items.Delete(ctx, itemID); err != nil {
			return err
		}
		_, err := s.recomputeTotal(ctx, it.BillID)
		return err
	})
}

// -- internals --

// withBill holds the bill's lock, opens a transaction, row-locks the bill
// and hands it to fn.
func (s *Service) withBill(ctx context.Context, billID string, fn func(ctx context.Context, b *Bill) error) error {
	unlock := s.locks.Lock(billID)
	defer unlock()

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		b, err := s.bills.GetByIDForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		return fn(ctx, b)
	})
}

// recomputeTotal sets the bill total to the exact sum of its current items
// and derives the status. Callers hold the bill lock.
func (s *Service) recomputeTotal(ctx context.Context, billID string) (*Bill, error) {
	b, err := s.bills.GetByIDForUpdate(ctx, billID)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	b.TotalAmount = sumLineTotals(items)
	b.deriveStatus()
	if err := s.bills.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}
