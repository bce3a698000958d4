package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medcore/hms/internal/platform/db"
)

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func execOne(ctx context.Context, q db.Queryable, entity, id, sql string, args ...interface{}) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound(pgx.ErrNoRows, entity, id)
	}
	return nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()
	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// =========== Department Repository ===========

type departmentRepoPG struct{ pool *pgxpool.Pool }

func NewDepartmentRepoPG(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepoPG{pool: pool}
}

const deptCols = `id, name, description, created_at`

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt)
	return &d, err
}

func (r *departmentRepoPG) Create(ctx context.Context, d *Department) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO departments (id, name, description) VALUES ($1, $2, $3)
		RETURNING created_at`, d.ID, d.Name, d.Description).Scan(&d.CreatedAt)
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id string) (*Department, error) {
	d, err := scanDepartment(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+deptCols+` FROM departments WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err, "department", id)
	}
	return d, nil
}

func (r *departmentRepoPG) Update(ctx context.Context, d *Department) error {
	return execOne(ctx, db.Conn(ctx, r.pool), "department", d.ID,
		`UPDATE departments SET name = $2, description = $3 WHERE id = $1`, d.ID, d.Name, d.Description)
}

func (r *departmentRepoPG) Delete(ctx context.Context, id string) error {
	return execOne(ctx, db.Conn(ctx, r.pool), "department", id, `DELETE FROM departments WHERE id = $1`, id)
}

func (r *departmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM departments`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+deptCols+` FROM departments ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanDepartment)
	return items, total, err
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

const doctorCols = `id, first_name, last_name, email, phone, specialization, department_id, created_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	var deptID *string
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.Specialization, &deptID, &d.CreatedAt)
	d.DepartmentID = deref(deptID)
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO doctors (id, first_name, last_name, email, phone, specialization, department_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		d.ID, d.FirstName, d.LastName, d.Email, d.Phone, d.Specialization, nullable(d.DepartmentID),
	).Scan(&d.CreatedAt)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id string) (*Doctor, error) {
	d, err := scanDoctor(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err, "doctor", id)
	}
	return d, nil
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	return execOne(ctx, db.Conn(ctx, r.pool), "doctor", d.ID, `
		UPDATE doctors SET first_name = $2, last_name = $3, email = $4, phone = $5,
			specialization = $6, department_id = $7
		WHERE id = $1`,
		d.ID, d.FirstName, d.LastName, d.Email, d.Phone, d.Specialization, nullable(d.DepartmentID))
}

func (r *doctorRepoPG) Delete(ctx context.Context, id string) error {
	return execOne(ctx, db.Conn(ctx, r.pool), "doctor", id, `DELETE FROM doctors WHERE id = $1`, id)
}

func (r *doctorRepoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Doctor, int, error) {
	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM doctors `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	rows, err := q.Query(ctx,
		`SELECT `+doctorCols+` FROM doctors `+where+fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, n+1, n+2),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanDoctor)
	return items, total, err
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return r.list(ctx, ``, nil, limit, offset)
}

func (r *doctorRepoPG) ListByDepartment(ctx context.Context, departmentID string, limit, offset int) ([]*Doctor, int, error) {
	return r.list(ctx, `WHERE department_id = $1`, []interface{}{departmentID}, limit, offset)
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

const patientCols = `id, first_name, last_name, email, phone, date_of_birth, gender, address, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.DateOfBirth,
		&p.Gender, &p.Address, &p.CreatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patients (id, first_name, last_name, email, phone, date_of_birth, gender, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, p.Gender, p.Address,
	).Scan(&p.CreatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id string) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err, "patient", id)
	}
	return p, nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	return execOne(ctx, db.Conn(ctx, r.pool), "patient", p.ID, `
		UPDATE patients SET first_name = $2, last_name = $3, email = $4, phone = $5,
			date_of_birth = $6, gender = $7, address = $8
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, p.Gender, p.Address)
}

func (r *patientRepoPG) Delete(ctx context.Context, id string) error {
	return execOne(ctx, db.Conn(ctx, r.pool), "patient", id, `DELETE FROM patients WHERE id = $1`, id)
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanPatient)
	return items, total, err
}

// =========== Staff Repository ===========

type staffRepoPG struct{ pool *pgxpool.Pool }

func NewStaffRepoPG(pool *pgxpool.Pool) StaffRepository { return &staffRepoPG{pool: pool} }

const staffCols = `id, kind, first_name, last_name, email, phone, created_at`

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.Kind, &s.FirstName, &s.LastName, &s.Email, &s.Phone, &s.CreatedAt)
	return &s, err
}

func (r *staffRepoPG) Create(ctx context.Context, s *Staff) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO staff (id, kind, first_name, last_name, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		s.ID, s.Kind, s.FirstName, s.LastName, s.Email, s.Phone,
	).Scan(&s.CreatedAt)
}

func (r *staffRepoPG) GetByID(ctx context.Context, kind StaffKind, id string) (*Staff, error) {
	s, err := scanStaff(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+staffCols+` FROM staff WHERE id = $1 AND kind = $2`, id, kind))
	if err != nil {
		return nil, db.NotFound(err, string(kind), id)
	}
	return s, nil
}

func (r *staffRepoPG) Update(ctx context.Context, s *Staff) error {
	return execOne(ctx, db.Conn(ctx, r.pool), string(s.Kind), s.ID, `
		UPDATE staff SET first_name = $3, last_name = $4, email = $5, phone = $6
		WHERE id = $1 AND kind = $2`,
		s.ID, s.Kind, s.FirstName, s.LastName, s.Email, s.Phone)
}

func (r *staffRepoPG) Delete(ctx context.Context, kind StaffKind, id string) error {
	return execOne(ctx, db.Conn(ctx, r.pool), string(kind), id,
		`DELETE FROM staff WHERE id = $1 AND kind = $2`, id, kind)
}

func (r *staffRepoPG) List(ctx context.Context, kind StaffKind, limit, offset int) ([]*Staff, int, error) {
	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM staff WHERE kind = $1`, kind).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx,
		`SELECT `+staffCols+` FROM staff WHERE kind = $1 ORDER BY last_name, first_name LIMIT $2 OFFSET $3`,
		kind, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanStaff)
	return items, total, err
}
