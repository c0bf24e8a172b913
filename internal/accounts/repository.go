package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/meesalavenugopal/novacare247/internal/db"
)

// Repository persists users. It is cheap to construct so callers can bind one to a transaction.
type Repository struct {
	q db.Querier
}

// NewRepository binds a repository to q (a pool or a transaction).
func NewRepository(q db.Querier) *Repository {
	if q == nil {
		panic("accounts: querier cannot be nil")
	}
	return &Repository{q: q}
}

const userColumns = `id, email, password_hash, full_name, phone, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var (
		u    User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

// FindByEmail looks up a user case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email)))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("accounts: find by email: %w", err)
	}
	return u, err
}

// FindByID loads a user by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("accounts: find by id: %w", err)
	}
	return u, err
}

// Create inserts an active user. A duplicate email yields ErrEmailTaken.
func (r *Repository) Create(ctx context.Context, in NewUser) (*User, error) {
	if _, err := ParseRole(string(in.Role)); err != nil {
		return nil, err
	}
	u, err := scanUser(r.q.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, full_name, phone, role, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING `+userColumns,
		strings.TrimSpace(in.Email), in.PasswordHash, in.FullName, in.Phone, string(in.Role)))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("accounts: create: %w", err)
	}
	return u, nil
}

// Promote sets role and active flag on an existing user.
func (r *Repository) Promote(ctx context.Context, id int64, role Role, active bool) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET role = $2, is_active = $3, updated_at = now() WHERE id = $1`, id, string(role), active)
	if err != nil {
		return fmt.Errorf("accounts: promote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
