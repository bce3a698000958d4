package identity

import (
	"time"

	"github.com/medcore/hms/pkg/patch"
)

type Department struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name" validate:"required"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type DepartmentPatch struct {
	Name        patch.Field[string] `json:"name" validate:"omitempty,min=1"`
	Description patch.Field[string] `json:"description"`
}

type Doctor struct {
	ID             string    `db:"id" json:"id"`
	FirstName      string    `db:"first_name" json:"first_name" validate:"required"`
	LastName       string    `db:"last_name" json:"last_name" validate:"required"`
	Email          string    `db:"email" json:"email" validate:"omitempty,email"`
	Phone          string    `db:"phone" json:"phone,omitempty"`
	Specialization string    `db:"specialization" json:"specialization,omitempty"`
	DepartmentID   string    `db:"department_id" json:"department_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type DoctorPatch struct {
	FirstName      patch.Field[string] `json:"first_name" validate:"omitempty,min=1"`
	LastName       patch.Field[string] `json:"last_name" validate:"omitempty,min=1"`
	Email          patch.Field[string] `json:"email" validate:"omitempty,email"`
	Phone          patch.Field[string] `json:"phone"`
	Specialization patch.Field[string] `json:"specialization"`
	DepartmentID   patch.Field[string] `json:"department_id"`
}

func (p DoctorPatch) apply(d *Doctor) {
	p.FirstName.Apply(&d.FirstName)
	p.LastName.Apply(&d.LastName)
	p.Email.Apply(&d.Email)
	p.Phone.Apply(&d.Phone)
	p.Specialization.Apply(&d.Specialization)
	p.DepartmentID.Apply(&d.DepartmentID)
}

type Patient struct {
	ID          string     `db:"id" json:"id"`
	FirstName   string     `db:"first_name" json:"first_name" validate:"required"`
	LastName    string     `db:"last_name" json:"last_name" validate:"required"`
	Email       string     `db:"email" json:"email" validate:"omitempty,email"`
	Phone       string     `db:"phone" json:"phone,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender      string     `db:"gender" json:"gender,omitempty" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Address     string     `db:"address" json:"address,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

type PatientPatch struct {
	FirstName   patch.Field[string]    `json:"first_name" validate:"omitempty,min=1"`
	LastName    patch.Field[string]    `json:"last_name" validate:"omitempty,min=1"`
	Email       patch.Field[string]    `json:"email" validate:"omitempty,email"`
	Phone       patch.Field[string]    `json:"phone"`
	DateOfBirth patch.Field[time.Time] `json:"date_of_birth"`
	Gender      patch.Field[string]    `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Address     patch.Field[string]    `json:"address"`
}

func (p PatientPatch) apply(pt *Patient) {
	p.FirstName.Apply(&pt.FirstName)
	p.LastName.Apply(&pt.LastName)
	p.Email.Apply(&pt.Email)
	p.Phone.Apply(&pt.Phone)
	if dob, ok := p.DateOfBirth.Get(); ok {
		pt.DateOfBirth = &dob
	}
	p.Gender.Apply(&pt.Gender)
	p.Address.Apply(&pt.Address)
}

// StaffKind distinguishes the non-clinical staff roles.
type StaffKind string

const (
	StaffReceptionist StaffKind = "RECEPTIONIST"
	StaffPharmacist   StaffKind = "PHARMACIST"
)

func (k StaffKind) Valid() bool {
	return k == StaffReceptionist || k == StaffPharmacist
}

type Staff struct {
	ID        string    `db:"id" json:"id"`
	Kind      StaffKind `db:"kind" json:"kind"`
	FirstName string    `db:"first_name" json:"first_name" validate:"required"`
	LastName  string    `db:"last_name" json:"last_name" validate:"required"`
	Email     string    `db:"email" json:"email" validate:"omitempty,email"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type StaffPatch struct {
	FirstName patch.Field[string] `json:"first_name" validate:"omitempty,min=1"`
	LastName  patch.Field[string] `json:"last_name" validate:"omitempty,min=1"`
	Email     patch.Field[string] `json:"email" validate:"omitempty,email"`
	Phone     patch.Field[string] `json:"phone"`
}

func (p StaffPatch) apply(s *Staff) {
	p.FirstName.Apply(&s.FirstName)
	p.LastName.Apply(&s.LastName)
	p.Email.Apply(&s.Email)
	p.Phone.Apply(&s.Phone)
}
