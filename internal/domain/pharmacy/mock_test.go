package pharmacy

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medcore/hms/internal/platform/db"
)

type memStore struct {
	mu    sync.Mutex
	meds  map[string]Medication
	rxs   map[string]Prescription
	items map[string]PrescriptionItem

	failItemCreate bool
}

func newMemStore() *memStore {
	return &memStore{
		meds:  make(map[string]Medication),
		rxs:   make(map[string]Prescription),
		items: make(map[string]PrescriptionItem),
	}
}

var errItemStore = errors.New("item store unavailable")

type memTransactor struct{ s *memStore }

func (t memTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.s.mu.Lock()
	rxs := make(map[string]Prescription, len(t.s.rxs))
	for k, v := range t.s.rxs {
		rxs[k] = v
	}
	items := make(map[string]PrescriptionItem, len(t.s.items))
	for k, v := range t.s.items {
		items[k] = v
	}
	t.s.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.s.mu.Lock()
		t.s.rxs, t.s.items = rxs, items
		t.s.mu.Unlock()
		return err
	}
	return nil
}

type mockMedRepo struct{ s *memStore }

func (r *mockMedRepo) Create(_ context.Context, m *Medication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.meds[m.ID] = *m
	return nil
}

func (r *mockMedRepo) GetByID(_ context.Context, id string) (*Medication, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.meds[id]
	if !ok {
		return nil, db.NotFound(pgx.ErrNoRows, "medication", id)
	}
	return &m, nil
}

func (r *mockMedRepo) Update(_ context.Context, m *Medication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.meds[m.ID]; !ok {
		return db.NotFound(pgx.ErrNoRows, "medication", m.ID)
	}
	r.s.meds[m.ID] = *m
	return nil
}

func (r *mockMedRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.meds[id]; !ok {
		return db.NotFound(pgx.ErrNoRows, "medication", id)
	}
	delete(r.s.meds, id)
	return nil
}

func (r *mockMedRepo) List(_ context.Context, limit, offset int) ([]*Medication, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*Medication
	for _, m := range r.s.meds {
		m := m
		all = append(all, &m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

type mockRxRepo struct{ s *memStore }

func (r *mockRxRepo) Create(_ context.Context, p *Prescription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	cp.Items = nil
	r.s.rxs[p.ID] = cp
	return nil
}

func (r *mockRxRepo) GetByID(_ context.Context, id string) (*Prescription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.rxs[id]
	if !ok {
		return nil, db.NotFound(pgx.ErrNoRows, "prescription", id)
	}
	return &p, nil
}

func (r *mockRxRepo) SetStatus(_ context.Context, id string, from, to PrescriptionStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.rxs[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	r.s.rxs[id] = p
	return true, nil
}

func (r *mockRxRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rxs[id]; !ok {
		return db.NotFound(pgx.ErrNoRows, "prescription", id)
	}
	delete(r.s.rxs, id)
	for k, it := range r.s.items {
		if it.PrescriptionID == id {
			delete(r.s.items, k)
		}
	}
	return nil
}

func (r *mockRxRepo) filter(keep func(Prescription) bool, limit, offset int) ([]*Prescription, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []*Prescription
	for _, p := range r.s.rxs {
		if keep(p) {
			p := p
			all = append(all, &p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *mockRxRepo) List(_ context.Context, limit, offset int) ([]*Prescription, int, error) {
	return r.filter(func(Prescription) bool { return true }, limit, offset)
}

func (r *mockRxRepo) ListByPatient(_ context.Context, patientID string, limit, offset int) ([]*Prescription, int, error) {
	return r.filter(func(p Prescription) bool { return p.PatientID == patientID }, limit, offset)
}

type mockRxItemRepo struct{ s *memStore }

func (r *mockRxItemRepo) Create(_ context.Context, it *PrescriptionItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failItemCreate {
		return errItemStore
	}
	r.s.items[it.ID] = *it
	return nil
}

func (r *mockRxItemRepo) ListByPrescription(_ context.Context, prescriptionID string) ([]*PrescriptionItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*PrescriptionItem
	for _, it := range r.s.items {
		if it.PrescriptionID == prescriptionID {
			it := it
			out = append(out, &it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func newTestServiceWithStore() (*Service, *memStore) {
	s := newMemStore()
	svc := NewService(&mockMedRepo{s}, &mockRxRepo{s}, &mockRxItemRepo{s}, memTransactor{s}, zerolog.Nop())
	return svc, s
}

func newTestService() *Service {
	svc, _ := newTestServiceWithStore()
	return svc
}
