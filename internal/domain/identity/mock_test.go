package identity

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/medcore/hms/internal/platform/db"
)

func page[T any](all []*T, limit, offset int) ([]*T, int) {
	total := len(all)
	if offset >= total {
		return nil, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total
}

func sortedKeys[T any](m map[string]*T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// -- departments --

type mockDeptRepo struct{ store map[string]*Department }

func newMockDeptRepo() *mockDeptRepo { return &mockDeptRepo{store: make(map[string]*Department)} }

func (m *mockDeptRepo) Create(_ context.Context, d *Department) error {
	cp := *d
	m.store[d.ID] = &cp
	return nil
}

func (m *mockDeptRepo) GetByID(_ context.Context, id string) (*Department, error) {
	d, ok := m.store[id]
	if !ok {
		return nil, db.NotFound(pgx.ErrNoRows, "department", id)
	}
	cp := *d
	return &cp, nil
}

func (m *mockDeptRepo) Update(_ context.Context, d *Department) error {
	if _, ok := m.store[d.ID]; !ok {
		return db.NotFound(pgx.ErrNoRows, "department", d.ID)
	}
	cp := *d
	m.store[d.ID] = &cp
	return nil
}

func (m *mockDeptRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.store[id]; !ok {
		return db.NotFound(pgx.ErrNoRows, "department", id)
	}
	delete(m.store, id)
	return nil
}

func (m *mockDeptRepo) List(_ context.Context, limit, offset int) ([]*Department, int, error) {
	var all []*Department
	for _, k := range sortedKeys(m.store) {
		cp := *m.store[k]
		all = append(all, &cp)
	}
	items, total := page(all, limit, offset)
	return items, total, nil
}

// -- doctors --

type mockDoctorRepo struct{ store map[string]*Doctor }

func newMockDoctorRepo() *mockDoctorRepo { return &mockDoctorRepo{store: make(map[string]*Doctor)} }

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	cp := *d
	m.store[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id string) (*Doctor, error) {
	d, ok := m.store[id]
	if !ok {
		return nil, db.NotFound(pgx.ErrNoRows, "doctor", id)
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	if _, ok := m.store[d.ID]; !ok {
		return db.NotFound(pgx.ErrNoRows, "doctor", d.ID)
	}
	cp := *d
	m.store[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.store[id]; !ok {
		return db.NotFound(pgx.ErrNoRows, "doctor", id)
	}
	delete(m.store, id)
	return nil
}

func (m *mockDoctorRepo) filter(keep func(*Doctor) bool, limit, offset int) ([]*Doctor, int, error) {
	var all []*Doctor
	for _, k := range sortedKeys(m.store) {
		if d := m.store[k]; keep(d) {
			cp := *d
			all = append(all, &cp)
		}
	}
	items, total := page(all, limit, offset)
	return items, total, nil
}

func (m *mockDoctorRepo) List(_ context.Context, limit, offset int) ([]*Doctor, int, error) {
	return m.filter(func(*Doctor) bool { return true }, limit, offset)
}

func (m *mockDoctorRepo) ListByDepartment(_ context.Context, departmentID string, limit, offset int) ([]*Doctor, int, error) {
	return m.filter(func(d *Doctor) bool { return d.DepartmentID == departmentID }, limit, offset)
}

// -- patients --

type mockPatientRepo struct{ store map[string]*Patient }

func newMockPatientRepo() *mockPatientRepo { return &mockPatientRepo{store: make(map[string]*Patient)} }

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id string) (*Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, db.NotFound(pgx.ErrNoRows, "patient", id)
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.store[p.ID]; !ok {
		return db.NotFound(pgx.ErrNoRows, "patient", p.ID)
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.store[id]; !ok {
		return db.NotFound(pgx.ErrNoRows, "patient", id)
	}
	delete(m.store, id)
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var all []*Patient
	for _, k := range sortedKeys(m.store) {
		cp := *m.store[k]
		all = append(all, &cp)
	}
	items, total := page(all, limit, offset)
	return items, total, nil
}

// -- staff --

type mockStaffRepo struct{ store map[string]*Staff }

func newMockStaffRepo() *mockStaffRepo { return &mockStaffRepo{store: make(map[string]*Staff)} }

func (m *mockStaffRepo) Create(_ context.Context, s *Staff) error {
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *mockStaffRepo) GetByID(_ context.Context, kind StaffKind, id string) (*Staff, error) {
	s, ok := m.store[id]
	if !ok || s.Kind != kind {
		return nil, db.NotFound(pgx.ErrNoRows, string(kind), id)
	}
	cp := *s
	return &cp, nil
}

func (m *mockStaffRepo) Update(_ context.Context, s *Staff) error {
	if cur, ok := m.store[s.ID]; !ok || cur.Kind != s.Kind {
		return db.NotFound(pgx.ErrNoRows, string(s.Kind), s.ID)
	}
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *mockStaffRepo) Delete(_ context.Context, kind StaffKind, id string) error {
	if cur, ok := m.store[id]; !ok || cur.Kind != kind {
		return db.NotFound(pgx.ErrNoRows, string(kind), id)
	}
	delete(m.store, id)
	return nil
}

func (m *mockStaffRepo) List(_ context.Context, kind StaffKind, limit, offset int) ([]*Staff, int, error) {
	var all []*Staff
	for _, k := range sortedKeys(m.store) {
		if s := m.store[k]; s.Kind == kind {
			cp := *s
			all = append(all, &cp)
		}
	}
	items, total := page(all, limit, offset)
	return items, total, nil
}

type testRepos struct {
	depts    *mockDeptRepo
	doctors  *mockDoctorRepo
	patients *mockPatientRepo
	staff    *mockStaffRepo
}

func newTestService() (*Service, *testRepos) {
	r := &testRepos{
		depts:    newMockDeptRepo(),
		doctors:  newMockDoctorRepo(),
		patients: newMockPatientRepo(),
		staff:    newMockStaffRepo(),
	}
	return NewService(r.depts, r.doctors, r.patients, r.staff), r
}
