package billing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/medcore/hms/internal/platform/db"
)

// memStore backs both mock repositories so a transaction can snapshot and
// restore bills and items together. Reads and writes copy records.
type memStore struct {
	mu    sync.Mutex
	bills map[string]Bill
	items map[string]BillItem

	failItemCreateAfter int // fail the Nth item insert when > 0
	itemCreates         int
}

func newMemStore() *memStore {
	return &memStore{bills: make(map[string]Bill), items: make(map[string]BillItem)}
}

func (m *memStore) snapshot() (map[string]Bill, map[string]BillItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bills := make(map[string]Bill, len(m.bills))
	for k, v := range m.bills {
		bills[k] = v
	}
	items := make(map[string]BillItem, len(m.items))
	for k, v := range m.items {
		items[k] = v
	}
	return bills, items
}

func (m *memStore) restore(bills map[string]Bill, items map[string]BillItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bills, m.items = bills, items
}

// memTransactor rolls the store back when fn fails.
type memTransactor struct{ store *memStore }

func (t memTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	bills, items := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(bills, items)
		return err
	}
	return nil
}

var errNotFound = db.ErrNotFound

type mockBillRepo struct{ s *memStore }

func (r *mockBillRepo) Create(_ context.Context, b *Bill) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	c := *b
	c.Items = nil
	r.s.bills[b.ID] = c
	return nil
}

func (r *mockBillRepo) GetByID(_ context.Context, id string) (*Bill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bills[id]
	if !ok {
		return nil, errNotFound
	}
	return &b, nil
}

func (r *mockBillRepo) GetByIDForUpdate(ctx context.Context, id string) (*Bill, error) {
	return r.GetByID(ctx, id)
}

func (r *mockBillRepo) Update(_ context.Context, b *Bill) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bills[b.ID]; !ok {
		return errNotFound
	}
	b.UpdatedAt = time.Now()
	c := *b
	c.Items = nil
	r.s.bills[b.ID] = c
	return nil
}

func (r *mockBillRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bills[id]; !ok {
		return errNotFound
	}
	delete(r.s.bills, id)
	for k, it := range r.s.items {
		if it.BillID == id {
			delete(r.s.items, k)
		}
	}
	return nil
}

func (r *mockBillRepo) filter(keep func(Bill) bool, limit, offset int) ([]*Bill, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*Bill
	for _, b := range r.s.bills {
		if keep(b) {
			b := b
			all = append(all, &b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *mockBillRepo) List(_ context.Context, limit, offset int) ([]*Bill, int, error) {
	return r.filter(func(Bill) bool { return true }, limit, offset)
}

func (r *mockBillRepo) ListByPatient(_ context.Context, patientID string, limit, offset int) ([]*Bill, int, error) {
	return r.filter(func(b Bill) bool { return b.PatientID == patientID }, limit, offset)
}

func (r *mockBillRepo) ListByStatus(_ context.Context, status Status, limit, offset int) ([]*Bill, int, error) {
	return r.filter(func(b Bill) bool { return b.Status == status }, limit, offset)
}

func (r *mockBillRepo) ListUnpaid(_ context.Context, limit, offset int) ([]*Bill, int, error) {
	return r.filter(func(b Bill) bool { return b.Status != StatusPaid }, limit, offset)
}

func (r *mockBillRepo) ListUnpaidByPatient(_ context.Context, patientID string, limit, offset int) ([]*Bill, int, error) {
	return r.filter(func(b Bill) bool { return b.PatientID == patientID && b.Status != StatusPaid }, limit, offset)
}

func (r *mockBillRepo) ListByDateRange(_ context.Context, from, to time.Time, limit, offset int) ([]*Bill, int, error) {
	return r.filter(func(b Bill) bool {
		return !b.IssueDate.Before(from) && !b.IssueDate.After(to)
	}, limit, offset)
}

func (r *mockBillRepo) TotalAmountByPatient(_ context.Context, patientID string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sum := decimal.Zero
	for _, b := range r.s.bills {
		if b.PatientID == patientID {
			sum = sum.Add(b.TotalAmount)
		}
	}
	return sum, nil
}

type mockItemRepo struct{ s *memStore }

var errItemStore = errors.New("item store unavailable")

func (r *mockItemRepo) Create(_ context.Context, it *BillItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.itemCreates++
	if r.s.failItemCreateAfter > 0 && r.s.itemCreates >= r.s.failItemCreateAfter {
		return errItemStore
	}
	if _, ok := r.s.bills[it.BillID]; !ok {
		return errors.New("foreign key violation: bill does not exist")
	}
	r.s.items[it.ID] = *it
	return nil
}

func (r *mockItemRepo) GetByID(_ context.Context, id string) (*BillItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[id]
	if !ok {
		return nil, errNotFound
	}
	return &it, nil
}

func (r *mockItemRepo) Update(_ context.Context, it *BillItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[it.ID]; !ok {
		return errNotFound
	}
	r.s.items[it.ID] = *it
	return nil
}

func (r *mockItemRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[id]; !ok {
		return errNotFound
	}
	delete(r.s.items, id)
	return nil
}

func (r *mockItemRepo) ListByBill(_ context.Context, billID string) ([]*BillItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*BillItem
	for _, it := range r.s.items {
		if it.BillID == billID {
			it := it
			out = append(out, &it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func newTestServiceWithStore() (*Service, *memStore) {
	store := newMemStore()
	svc := NewService(&mockBillRepo{s: store}, &mockItemRepo{s: store}, memTransactor{store: store}, zerolog.Nop())
	return svc, store
}

func newTestService() *Service {
	svc, _ := newTestServiceWithStore()
	return svc
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
