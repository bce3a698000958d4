package pharmacy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medcore/hms/internal/platform/db"
)

// =========== Medication Repository ===========

type medicationRepoPG struct{ pool *pgxpool.Pool }

func NewMedicationRepoPG(pool *pgxpool.Pool) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

const medCols = `id, name, manufacturer, unit_price, stock_quantity, expiry_date, created_at`

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.Name, &m.Manufacturer, &m.UnitPrice, &m.StockQuantity, &m.ExpiryDate, &m.CreatedAt)
	return &m, err
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medications (id, name, manufacturer, unit_price, stock_quantity, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		m.ID, m.Name, m.Manufacturer, m.UnitPrice, m.StockQuantity, m.ExpiryDate,
	).Scan(&m.CreatedAt)
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id string) (*Medication, error) {
	m, err := scanMedication(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+medCols+` FROM medications WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err, "medication", id)
	}
	return m, nil
}

func (r *medicationRepoPG) Update(ctx context.Context, m *Medication) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE medications SET name = $2, manufacturer = $3, unit_price = $4,
			stock_quantity = $5, expiry_date = $6
		WHERE id = $1`,
		m.ID, m.Name, m.Manufacturer, m.UnitPrice, m.StockQuantity, m.ExpiryDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound(pgx.ErrNoRows, "medication", m.ID)
	}
	return nil
}

func (r *medicationRepoPG) Delete(ctx context.Context, id string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound(pgx.ErrNoRows, "medication", id)
	}
	return nil
}

func (r *medicationRepoPG) List(ctx context.Context, limit, offset int) ([]*Medication, int, error) {
	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM medications`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+medCols+` FROM medications ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

// =========== Prescription Repository ===========

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

const rxCols = `id, patient_id, doctor_id, issued_at, status, notes`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.IssuedAt, &p.Status, &p.Notes)
	return &p, err
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO prescriptions (id, patient_id, doctor_id, issued_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.PatientID, p.DoctorID, p.IssuedAt, p.Status, p.Notes)
	return err
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id string) (*Prescription, error) {
	p, err := scanPrescription(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+rxCols+` FROM prescriptions WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err, "prescription", id)
	}
	return p, nil
}

func (r *prescriptionRepoPG) SetStatus(ctx context.Context, id string, from, to PrescriptionStatus) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE prescriptions SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *prescriptionRepoPG) Delete(ctx context.Context, id string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM prescriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound(pgx.ErrNoRows, "prescription", id)
	}
	return nil
}

func (r *prescriptionRepoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Prescription, int, error) {
	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	rows, err := q.Query(ctx,
		`SELECT `+rxCols+` FROM prescriptions `+where+fmt.Sprintf(` ORDER BY issued_at DESC, id LIMIT $%d OFFSET $%d`, n+1, n+2),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *prescriptionRepoPG) List(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, ``, nil, limit, offset)
}

func (r *prescriptionRepoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, `WHERE patient_id = $1`, []interface{}{patientID}, limit, offset)
}

// =========== Prescription Item Repository ===========

type prescriptionItemRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionItemRepoPG(pool *pgxpool.Pool) PrescriptionItemRepository {
	return &prescriptionItemRepoPG{pool: pool}
}

func (r *prescriptionItemRepoPG) Create(ctx context.Context, it *PrescriptionItem) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO prescription_items (id, prescription_id, medication_id, quantity, dosage, instructions)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		it.ID, it.PrescriptionID, it.MedicationID, it.Quantity, it.Dosage, it.Instructions)
	return err
}

func (r *prescriptionItemRepoPG) ListByPrescription(ctx context.Context, prescriptionID string) ([]*PrescriptionItem, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, prescription_id, medication_id, quantity, dosage, instructions
		FROM prescription_items WHERE prescription_id = $1 ORDER BY id`, prescriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PrescriptionItem
	for rows.Next() {
		var it PrescriptionItem
		if err := rows.Scan(&it.ID, &it.PrescriptionID, &it.MedicationID, &it.Quantity, &it.Dosage, &it.Instructions); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}
