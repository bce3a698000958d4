package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/medcore/hms/internal/platform/db"
)

// =========== Bill Repository ===========

type billRepoPG struct{ pool *pgxpool.Pool }

func NewBillRepoPG(pool *pgxpool.Pool) BillRepository { return &billRepoPG{pool: pool} }

func (r *billRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const billCols = `id, patient_id, issue_date, total_amount, paid_amount, status, created_at, updated_at`

func (r *billRepoPG) scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.PatientID, &b.IssueDate, &b.TotalAmount, &b.PaidAmount,
		&b.Status, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *billRepoPG) Create(ctx context.Context, b *Bill) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bills (id, patient_id, issue_date, total_amount, paid_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		b.ID, b.PatientID, b.IssueDate, b.TotalAmount, b.PaidAmount, b.Status,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *billRepoPG) GetByID(ctx context.Context, id string) (*Bill, error) {
	b, err := r.scanBill(r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bills WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err, "bill", id)
	}
	return b, nil
}

func (r *billRepoPG) GetByIDForUpdate(ctx context.Context, id string) (*Bill, error) {
	b, err := r.scanBill(r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bills WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, db.NotFound(err, "bill", id)
	}
	return b, nil
}

func (r *billRepoPG) Update(ctx context.Context, b *Bill) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE bills SET total_amount = $2, paid_amount = $3, status = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		b.ID, b.TotalAmount, b.PaidAmount, b.Status,
	).Scan(&b.UpdatedAt)
	return db.NotFound(err, "bill", b.ID)
}

func (r *billRepoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound(pgx.ErrNoRows, "bill", id)
	}
	return nil
}

// listWhere runs a count and a page query sharing the same filter.
func (r *billRepoPG) listWhere(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Bill, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bills `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := `SELECT ` + billCols + ` FROM bills ` + where +
		fmt.Sprintf(` ORDER BY issue_date DESC, created_at DESC, id LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Bill
	for rows.Next() {
		b, err := r.scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

func (r *billRepoPG) List(ctx context.Context, limit, offset int) ([]*Bill, int, error) {
	return r.listWhere(ctx, ``, nil, limit, offset)
}

func (r *billRepoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Bill, int, error) {
	return r.listWhere(ctx, `WHERE patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *billRepoPG) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Bill, int, error) {
	return r.listWhere(ctx, `WHERE status = $1`, []interface{}{status}, limit, offset)
}

func (r *billRepoPG) ListUnpaid(ctx context.Context, limit, offset int) ([]*Bill, int, error) {
	return r.listWhere(ctx, `WHERE status <> $1`, []interface{}{StatusPaid}, limit, offset)
}

func (r *billRepoPG) ListUnpaidByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Bill, int, error) {
	return r.listWhere(ctx, `WHERE patient_id = $1 AND status <> $2`, []interface{}{patientID, StatusPaid}, limit, offset)
}

func (r *billRepoPG) ListByDateRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*Bill, int, error) {
	return r.listWhere(ctx, `WHERE issue_date BETWEEN $1::date AND $2::date`, []interface{}{from, to}, limit, offset)
}

func (r *billRepoPG) TotalAmountByPatient(ctx context.Context, patientID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM bills WHERE patient_id = $1`, patientID).Scan(&sum)
	return sum, err
}

// =========== Bill Item Repository ===========

type billItemRepoPG struct{ pool *pgxpool.Pool }

func NewBillItemRepoPG(pool *pgxpool.Pool) BillItemRepository { return &billItemRepoPG{pool: pool} }

func (r *billItemRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const itemCols = `id, bill_id, description, quantity, total_price`

func (r *billItemRepoPG) scanItem(row pgx.Row) (*BillItem, error) {
	var it BillItem
	err := row.Scan(&it.ID, &it.BillID, &it.Description, &it.Quantity, &it.TotalPrice)
	return &it, err
}

func (r *billItemRepoPG) Create(ctx context.Context, it *BillItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bill_items (id, bill_id, description, quantity, total_price)
		VALUES ($1, $2, $3, $4, $5)`,
		it.ID, it.BillID, it.Description, it.Quantity, it.TotalPrice)
	return err
}

func (r *billItemRepoPG) GetByID(ctx context.Context, id string) (*BillItem, error) {
	it, err := r.scanItem(r.conn(ctx).QueryRow(ctx, `SELECT `+itemCols+` FROM bill_items WHERE id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err, "bill item", id)
	}
	return it, nil
}

func (r *billItemRepoPG) Update(ctx context.Context, it *BillItem) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bill_items SET description = $2, quantity = $3, total_price = $4
		WHERE id = $1`,
		it.ID, it.Description, it.Quantity, it.TotalPrice)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound(pgx.ErrNoRows, "bill item", it.ID)
	}
	return nil
}

func (r *billItemRepoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM bill_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound(pgx.ErrNoRows, "bill item", id)
	}
	return nil
}

func (r *billItemRepoPG) ListByBill(ctx context.Context, billID string) ([]*BillItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+itemCols+` FROM bill_items WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*BillItem
	for rows.Next() {
		it, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
