package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/meesalavenugopal/novacare247/internal/activitylog"
	"github.com/meesalavenugopal/novacare247/internal/db"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListFilter selects applications for admin listings.
type ListFilter struct {
	Statuses []string
	Skip     int
	Limit    int
}

func (f ListFilter) normalized() ListFilter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	return f
}

// MutateFunc changes app in place and returns the activity entries to record
// alongside it.
type MutateFunc[A any] func(q db.Querier, app *A) ([]activitylog.Entry, error)

// Store persists applications of one workflow.
type Store[A any] interface {
	// Create inserts app and records created against the new id.
	Create(ctx context.Context, app *A, created activitylog.Entry) (*A, error)
	// HasActive reports whether email has a non-terminal application.
	HasActive(ctx context.Context, email string) (bool, error)
	Get(ctx context.Context, id int64) (*A, error)
	List(ctx context.Context, f ListFilter) ([]A, error)
	// GetByLink returns the application linked to a provisioned doctor or branch.
	GetByLink(ctx context.Context, linkedID int64) (*A, error)
	// Mutate locks the row, runs fn and persists the result atomically.
	Mutate(ctx context.Context, id int64, fn MutateFunc[A]) (*A, error)
	Logs(ctx context.Context, id int64) ([]activitylog.Entry, error)
}

// tableDef maps an application type onto its table. scan reads id, the
// listed columns, created_at and updated_at in that order.
type tableDef[A any] struct {
	workflow    string
	table       string
	columns     []string
	linkColumn  string
	activeIndex string
	terminal    []string
	scan        func(row pgx.Row, dec *jsonDecoder) (*A, error)
	values      func(app *A) ([]any, error)
	id          func(app *A) int64
}

func (t tableDef[A]) selectList() string {
	return "id, " + strings.Join(t.columns, ", ") + ", created_at, updated_at"
}

// PostgresStore is a Store over one application table.
type PostgresStore[A any] struct {
	db     db.DB
	def    tableDef[A]
	logger *logging.Logger
}

func newPostgresStore[A any](database db.DB, def tableDef[A], logger *logging.Logger) *PostgresStore[A] {
	if database == nil {
		panic("onboarding: database cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PostgresStore[A]{db: database, def: def, logger: logger.Component("onboarding-store")}
}

func (s *PostgresStore[A]) decoder() *jsonDecoder {
	return &jsonDecoder{logger: s.logger, table: s.def.table}
}

func (s *PostgresStore[A]) scanOne(row pgx.Row) (*A, error) {
	app, err := s.def.scan(row, s.decoder())
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("onboarding: scan %s: %w", s.def.table, err)
	}
	return app, nil
}

func (s *PostgresStore[A]) Create(ctx context.Context, app *A, created activitylog.Entry) (*A, error) {
	values, err := s.def.values(app)
	if err != nil {
		return nil, err
	}
	placeholders := make([]string, len(s.def.columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		s.def.table, strings.Join(s.def.columns, ", "), strings.Join(placeholders, ", "), s.def.selectList())

	var out *A
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		inserted, err := s.scanOne(tx.QueryRow(ctx, query, values...))
		if err != nil {
			return err
		}
		created.Workflow = s.def.workflow
		created.ApplicationID = s.def.id(inserted)
		if _, err := activitylog.Append(ctx, tx, created); err != nil {
			return err
		}
		out = inserted
		return nil
	})
	if db.IsUniqueViolation(err, s.def.activeIndex) {
		return nil, ErrDuplicateApplication
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore[A]) HasActive(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE lower(email) = lower($1) AND status <> ALL($2))`, s.def.table),
		strings.TrimSpace(email), s.def.terminal,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("onboarding: check active %s application: %w", s.def.workflow, err)
	}
	return exists, nil
}

func (s *PostgresStore[A]) Get(ctx context.Context, id int64) (*A, error) {
	return s.scanOne(s.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", s.def.selectList(), s.def.table), id))
}

func (s *PostgresStore[A]) GetByLink(ctx context.Context, linkedID int64) (*A, error) {
	return s.scanOne(s.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 ORDER BY id DESC LIMIT 1", s.def.selectList(), s.def.table, s.def.linkColumn),
		linkedID))
}

func (s *PostgresStore[A]) List(ctx context.Context, f ListFilter) ([]A, error) {
	f = f.normalized()
	var statuses []string
	if len(f.Statuses) > 0 {
		statuses = f.Statuses
	}
	rows, err := s.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM %s
		WHERE ($1::text[] IS NULL OR status = ANY($1))
		ORDER BY updated_at DESC, id DESC
		OFFSET $2 LIMIT $3`, s.def.selectList(), s.def.table),
		statuses, f.Skip, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("onboarding: list %s applications: %w", s.def.workflow, err)
	}
	defer rows.Close()

	out := []A{}
	dec := s.decoder()
	for rows.Next() {
		app, err := s.def.scan(rows, dec)
		if err != nil {
			return nil, fmt.Errorf("onboarding: scan %s: %w", s.def.table, err)
		}
		out = append(out, *app)
	}
	return out, rows.Err()
}

func (s *PostgresStore[A]) Mutate(ctx context.Context, id int64, fn MutateFunc[A]) (*A, error) {
	sel := s.def.selectList()
	assignments := make([]string, len(s.def.columns))
	for i, col := range s.def.columns {
		assignments[i] = fmt.Sprintf("%s = $%d", col, i+2)
	}
	update := fmt.Sprintf("UPDATE %s SET %s, updated_at = now() WHERE id = $1 RETURNING %s",
		s.def.table, strings.Join(assignments, ", "), sel)

	var out *A
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		app, err := s.scanOne(tx.QueryRow(ctx,
			fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 FOR UPDATE", sel, s.def.table), id))
		if err != nil {
			return err
		}
		entries, err := fn(tx, app)
		if err != nil {
			return err
		}
		values, err := s.def.values(app)
		if err != nil {
			return err
		}
		updated, err := s.scanOne(tx.QueryRow(ctx, update, append([]any{id}, values...)...))
		if err != nil {
			return err
		}
		for _, e := range entries {
			e.Workflow = s.def.workflow
			e.ApplicationID = id
			if _, err := activitylog.Append(ctx, tx, e); err != nil {
				return err
			}
		}
		out = updated
		return nil
	})
	if db.IsUniqueViolation(err, s.def.activeIndex) {
		return nil, ErrDuplicateApplication
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore[A]) Logs(ctx context.Context, id int64) ([]activitylog.Entry, error) {
	return activitylog.List(ctx, s.db, s.def.workflow, id)
}

// jsonDecoder decodes JSONB columns, logging and degrading to the zero value
// when stored data is malformed.
type jsonDecoder struct {
	logger *logging.Logger
	table  string
}

func (d *jsonDecoder) warn(column string, err error) {
	if d == nil || d.logger == nil {
		return
	}
	d.logger.Warn("undecodable json column, using empty value", "table", d.table, "column", column, "error", err)
}

func decodeSlice[T any](d *jsonDecoder, raw []byte, column string) []T {
	out := []T{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		d.warn(column, err)
		return []T{}
	}
	return out
}

func decodePtr[T any](d *jsonDecoder, raw []byte, column string) *T {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		d.warn(column, err)
		return nil
	}
	return &out
}

func encodeSlice[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("onboarding: encode json: %w", err)
	}
	return string(b), nil
}

func encodePtr[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("onboarding: encode json: %w", err)
	}
	return string(b), nil
}
