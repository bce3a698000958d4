package scheduling

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medcore/hms/internal/platform/db"
)

type mockApptRepo struct {
	store map[string]*Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{store: make(map[string]*Appointment)}
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id string) (*Appointment, error) {
	a, ok := m.store[id]
	if !ok {
		return nil, db.NotFound(pgx.ErrNoRows, "appointment", id)
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.store[a.ID]; !ok {
		return db.NotFound(pgx.ErrNoRows, "appointment", a.ID)
	}
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.store[id]; !ok {
		return db.NotFound(pgx.ErrNoRows, "appointment", id)
	}
	delete(m.store, id)
	return nil
}

func (m *mockApptRepo) filter(keep func(*Appointment) bool, limit, offset int) ([]*Appointment, int, error) {
	var all []*Appointment
	for _, a := range m.store {
		if keep(a) {
			cp := *a
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ScheduledAt.Before(all[j].ScheduledAt) })
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

func (m *mockApptRepo) List(_ context.Context, limit, offset int) ([]*Appointment, int, error) {
	return m.filter(func(*Appointment) bool { return true }, limit, offset)
}

func (m *mockApptRepo) ListByPatient(_ context.Context, patientID string, limit, offset int) ([]*Appointment, int, error) {
	return m.filter(func(a *Appointment) bool { return a.PatientID == patientID }, limit, offset)
}

func (m *mockApptRepo) ListByDoctor(_ context.Context, doctorID string, limit, offset int) ([]*Appointment, int, error) {
	return m.filter(func(a *Appointment) bool { return a.DoctorID == doctorID }, limit, offset)
}

func newTestService() (*Service, *mockApptRepo) {
	repo := newMockApptRepo()
	return NewService(repo, zerolog.Nop()), repo
}
