package scheduling

import (
	"time"

	"github.com/medcore/hms/pkg/patch"
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID          string    `db:"id" json:"id"`
	PatientID   string    `db:"patient_id" json:"patient_id" validate:"required"`
	DoctorID    string    `db:"doctor_id" json:"doctor_id" validate:"required"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at" validate:"required"`
	Reason      string    `db:"reason" json:"reason,omitempty"`
	Status      Status    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AppointmentPatch reschedules or annotates an appointment. Status changes go
// through Cancel and Complete.
type AppointmentPatch struct {
	DoctorID    patch.Field[string]    `json:"doctor_id" validate:"omitempty,min=1"`
	ScheduledAt patch.Field[time.Time] `json:"scheduled_at"`
	Reason      patch.Field[string]    `json:"reason"`
}

func (p AppointmentPatch) apply(a *Appointment) {
	p.DoctorID.Apply(&a.DoctorID)
	p.ScheduledAt.Apply(&a.ScheduledAt)
	p.Reason.Apply(&a.Reason)
}
