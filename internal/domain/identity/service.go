package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/medcore/hms/pkg/ident"
)

// ErrDepartmentInUse is returned when deleting a department that still has
// doctors assigned.
var ErrDepartmentInUse = errors.New("department still has doctors assigned")

type Service struct {
	depts    DepartmentRepository
	doctors  DoctorRepository
	patients PatientRepository
	staff    StaffRepository
}

func NewService(depts DepartmentRepository, doctors DoctorRepository, patients PatientRepository, staff StaffRepository) *Service {
	return &Service{depts: depts, doctors: doctors, patients: patients, staff: staff}
}

func requireNames(first, last string) error {
	if strings.TrimSpace(first) == "" {
		return fmt.Errorf("first_name is required")
	}
	if strings.TrimSpace(last) == "" {
		return fmt.Errorf("last_name is required")
	}
	return nil
}

// -- Departments --

func (s *Service) CreateDepartment(ctx context.Context, d *Department) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("name is required")
	}
	d.ID = ident.New(ident.PrefixDepartment)
	return s.depts.Create(ctx, d)
}

func (s *Service) GetDepartment(ctx context.Context, id string) (*Department, error) {
	return s.depts.GetByID(ctx, id)
}

func (s *Service) UpdateDepartment(ctx context.Context, id string, p DepartmentPatch) (*Department, error) {
	d, err := s.depts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name.Apply(&d.Name)
	p.Description.Apply(&d.Description)
	if strings.TrimSpace(d.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if err := s.depts.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) DeleteDepartment(ctx context.Context, id string) error {
	if _, err := s.depts.GetByID(ctx, id); err != nil {
		return err
	}
	_, n, err := s.doctors.ListByDepartment(ctx, id, 1, 0)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w (%d)", ErrDepartmentInUse, n)
	}
	return s.depts.Delete(ctx, id)
}

func (s *Service) ListDepartments(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	return s.depts.List(ctx, limit, offset)
}

// -- Doctors --

func (s *Service) checkDepartment(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := s.depts.GetByID(ctx, id)
	return err
}

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if err := requireNames(d.FirstName, d.LastName); err != nil {
		return err
	}
	if err := s.checkDepartment(ctx, d.DepartmentID); err != nil {
		return err
	}
	d.ID = ident.New(ident.PrefixDoctor)
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, id string, p DoctorPatch) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.apply(d)
	if err := requireNames(d.FirstName, d.LastName); err != nil {
		return nil, err
	}
	if p.DepartmentID.Set {
		if err := s.checkDepartment(ctx, d.DepartmentID); err != nil {
			return nil, err
		}
	}
	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) DeleteDoctor(ctx context.Context, id string) error {
	return s.doctors.Delete(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

func (s *Service) ListDoctorsByDepartment(ctx context.Context, departmentID string, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.ListByDepartment(ctx, departmentID, limit, offset)
}

// -- Patients --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := requireNames(p.FirstName, p.LastName); err != nil {
		return err
	}
	p.ID = ident.New(ident.PrefixPatient)
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, id string, p PatientPatch) (*Patient, error) {
	pt, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.apply(pt)
	if err := requireNames(pt.FirstName, pt.LastName); err != nil {
		return nil, err
	}
	if err := s.patients.Update(ctx, pt); err != nil {
		return nil, err
	}
	return pt, nil
}

// DeletePatient removes the patient record only. Bills and prescriptions
// that reference the patient are left in place.
func (s *Service) DeletePatient(ctx context.Context, id string) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

// -- Staff --

func staffPrefix(k StaffKind) ident.Prefix {
	if k == StaffPharmacist {
		return ident.PrefixPharmacist
	}
	return ident.PrefixReceptionist
}

func (s *Service) CreateStaff(ctx context.Context, st *Staff) error {
	if !st.Kind.Valid() {
		return fmt.Errorf("invalid staff kind %q", st.Kind)
	}
	if err := requireNames(st.FirstName, st.LastName); err != nil {
		return err
	}
	st.ID = ident.New(staffPrefix(st.Kind))
	return s.staff.Create(ctx, st)
}

func (s *Service) GetStaff(ctx context.Context, kind StaffKind, id string) (*Staff, error) {
	return s.staff.GetByID(ctx, kind, id)
}

func (s *Service) UpdateStaff(ctx context.Context, kind StaffKind, id string, p StaffPatch) (*Staff, error) {
	st, err := s.staff.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	p.apply(st)
	if err := requireNames(st.FirstName, st.LastName); err != nil {
		return nil, err
	}
	if err := s.staff.Update(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) DeleteStaff(ctx context.Context, kind StaffKind, id string) error {
	return s.staff.Delete(ctx, kind, id)
}

func (s *Service) ListStaff(ctx context.Context, kind StaffKind, limit, offset int) ([]*Staff, int, error) {
	return s.staff.List(ctx, kind, limit, offset)
}
