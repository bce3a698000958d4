package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medcore/hms/internal/platform/db"
	"github.com/medcore/hms/pkg/ident"
)

const pgUniqueViolation = "23505"

type accountRepoPG struct{ pool *pgxpool.Pool }

func NewAccountRepoPG(pool *pgxpool.Pool) AccountRepository { return &accountRepoPG{pool: pool} }

const accountCols = `id, email, password_hash, role, profile_id, created_at`

func scanAccount(row pgx.Row, id string) (*Account, error) {
	var a Account
	var profileID *string
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &profileID, &a.CreatedAt)
	if err != nil {
		return nil, db.NotFound(err, "account", id)
	}
	if profileID != nil {
		a.ProfileID = *profileID
	}
	return &a, nil
}

func (r *accountRepoPG) Create(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = ident.New(ident.PrefixAccount)
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	var profileID *string
	if a.ProfileID != "" {
		profileID = &a.ProfileID
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO accounts (id, email, password_hash, role, profile_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		a.ID, a.Email, a.PasswordHash, a.Role, profileID).Scan(&a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}

func (r *accountRepoPG) GetByID(ctx context.Context, id string) (*Account, error) {
	return scanAccount(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id = $1`, id), id)
}

func (r *accountRepoPG) GetByEmail(ctx context.Context, email string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanAccount(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE email = $1`, email), email)
}

func (r *accountRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	return n, err
}
