package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medcore/hms/pkg/ident"
)

// ErrNotScheduled is returned when cancelling, completing or rescheduling an
// appointment that is no longer SCHEDULED.
var ErrNotScheduled = errors.New("appointment is not scheduled")

type Service struct {
	appointments AppointmentRepository
	logger       zerolog.Logger
}

func NewService(appts AppointmentRepository, logger zerolog.Logger) *Service {
	return &Service{
		appointments: appts,
		logger:       logger.With().Str("component", "scheduling").Logger(),
	}
}

// CreateAppointment books a slot. Overlapping bookings for the same doctor
// are not detected.
func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if strings.TrimSpace(a.PatientID) == "" {
		return fmt.Errorf("patient_id is required")
	}
	if strings.TrimSpace(a.DoctorID) == "" {
		return fmt.Errorf("doctor_id is required")
	}
	if a.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at is required")
	}
	a.ID = ident.New(ident.PrefixAppointment)
	a.ScheduledAt = a.ScheduledAt.UTC()
	a.Status = StatusScheduled
	return s.appointments.Create(ctx, a)
}

func (s *Service) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) UpdateAppointment(ctx context.Context, id string, p AppointmentPatch) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled {
		return nil, fmt.Errorf("%s is %s: %w", id, a.Status, ErrNotScheduled)
	}
	p.apply(a)
	if a.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("scheduled_at is required")
	}
	a.ScheduledAt = a.ScheduledAt.UTC()
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id string) error {
	return s.appointments.Delete(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.List(ctx, limit, offset)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) Cancel(ctx context.Context, id string) (*Appointment, error) {
	return s.transition(ctx, id, StatusCancelled)
}

func (s *Service) Complete(ctx context.Context, id string) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted)
}

func (s *Service) transition(ctx context.Context, id string, to Status) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled {
		return nil, fmt.Errorf("%s is %s: %w", id, a.Status, ErrNotScheduled)
	}
	a.Status = to
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info().Str("appointment_id", id).Str("status", string(to)).Msg("appointment status changed")
	return a, nil
}
