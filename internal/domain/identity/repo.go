package identity

import "context"

type DepartmentRepository interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id string) (*Department, error)
	Update(ctx context.Context, d *Department) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Department, int, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	ListByDepartment(ctx context.Context, departmentID string, limit, offset int) ([]*Doctor, int, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}

type StaffRepository interface {
	Create(ctx context.Context, s *Staff) error
	GetByID(ctx context.Context, kind StaffKind, id string) (*Staff, error)
	Update(ctx context.Context, s *Staff) error
	Delete(ctx context.Context, kind StaffKind, id string) error
	List(ctx context.Context, kind StaffKind, limit, offset int) ([]*Staff, int, error)
}
