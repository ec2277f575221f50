package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/research-catalog/internal/domain"
)

// Key addresses a single row by the values of its key columns, in order.
type Key []string

// ID returns a single-column key.
func ID(id string) Key {
	return Key{id}
}

// String joins the key parts for messages.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// Resource is the CRUD contract shared by every catalog table.
type Resource[T any] interface {
	// List returns every row in the table's list order.
	List(ctx context.Context) ([]*T, error)

	// Get returns the row addressed by key.
	// Returns domain.ErrNotFound if no matching row exists.
	Get(ctx context.Context, key Key) (*T, error)

	// Create inserts a row. For tables with an idempotent create contract an
	// existing row with the same key is returned instead, with created=false.
	Create(ctx context.Context, v *T) (row *T, created bool, err error)

	// Update replaces the non-key columns of the row addressed by key.
	// Returns domain.ErrNotFound if no matching row exists.
	Update(ctx context.Context, key Key, v *T) (*T, error)

	// Delete removes the row addressed by key.
	// Returns domain.ErrNotFound if no matching row exists.
	Delete(ctx context.Context, key Key) error
}

// tableSpec describes how one entity maps onto its table.
type tableSpec[T any] struct {
	entity  string
	table   string
	columns []string // select list; scan reads them in this order
	key     []string
	insert  []string
	update  []string
	orderBy string
	// upsert makes Create insert-or-fetch instead of failing on a duplicate key.
	upsert bool
	// placeholders wraps the parameter of an insert column, e.g. "COALESCE(%s, NOW())".
	placeholders map[string]string

	// prepare fills derived defaults (typically the slug id) before insert.
	prepare func(v *T)

	scan       func(row pgx.Row) (*T, error)
	insertArgs func(v *T) []any
	updateArgs func(v *T) []any
	keyOf      func(v *T) Key
	// keyArgs converts a key into query arguments; defaults to the raw strings.
	keyArgs func(k Key) ([]any, error)
}

// PgTable is a PostgreSQL implementation of Resource for one table.
type PgTable[T any] struct {
	db   DBTX
	spec tableSpec[T]

	listSQL   string
	getSQL    string
	insertSQL string
	updateSQL string
	deleteSQL string
}

func newPgTable[T any](db DBTX, spec tableSpec[T]) *PgTable[T] {
	cols := strings.Join(spec.columns, ", ")

	keyClause := make([]string, len(spec.key))
	for i, k := range spec.key {
		keyClause[i] = fmt.Sprintf("%s = $%d", k, i+1)
	}

	t := &PgTable[T]{db: db, spec: spec}

	t.listSQL = fmt.Sprintf("SELECT %s FROM %s", cols, spec.table)
	if spec.orderBy != "" {
		t.listSQL += " ORDER BY " + spec.orderBy
	}
	t.getSQL = fmt.Sprintf("SELECT %s FROM %s WHERE %s", cols, spec.table, strings.Join(keyClause, " AND "))
	t.deleteSQL = fmt.Sprintf("DELETE FROM %s WHERE %s", spec.table, strings.Join(keyClause, " AND "))

	values := make([]string, len(spec.insert))
	for i, c := range spec.insert {
		values[i] = fmt.Sprintf("$%d", i+1)
		if wrap, ok := spec.placeholders[c]; ok {
			values[i] = fmt.Sprintf(wrap, values[i])
		}
	}
	t.insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		spec.table, strings.Join(spec.insert, ", "), strings.Join(values, ", "))
	if spec.upsert {
		t.insertSQL += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(spec.key, ", "))
	}
	t.insertSQL += " RETURNING " + cols

	if len(spec.update) > 0 {
		sets := make([]string, len(spec.update))
		for i, c := range spec.update {
			sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
		}
		where := make([]string, len(spec.key))
		for i, k := range spec.key {
			where[i] = fmt.Sprintf("%s = $%d", k, len(spec.update)+i+1)
		}
		t.updateSQL = fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING %s",
			spec.table, strings.Join(sets, ", "), strings.Join(where, " AND "), cols)
	}

	return t
}

// List returns every row in the table's list order.
func (t *PgTable[T]) List(ctx context.Context) ([]*T, error) {
	rows, err := t.db.Query(ctx, t.listSQL)
	if err != nil {
		return nil, translateError(t.spec.entity, "list", err)
	}
	return t.collect(rows)
}

func (t *PgTable[T]) collect(rows pgx.Rows) ([]*T, error) {
	defer rows.Close()

	items := make([]*T, 0)
	for rows.Next() {
		item, err := t.spec.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t.spec.entity, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(t.spec.entity, "list", err)
	}
	return items, nil
}

// Get returns the row addressed by key.
func (t *PgTable[T]) Get(ctx context.Context, key Key) (*T, error) {
	args, err := t.keyArgs(key)
	if err != nil {
		return nil, err
	}

	item, err := t.spec.scan(t.db.QueryRow(ctx, t.getSQL, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(t.spec.entity, key.String())
		}
		return nil, translateError(t.spec.entity, "get", err)
	}
	return item, nil
}

// Create inserts v. Upsert tables return the existing row with created=false
// when the key is already taken.
func (t *PgTable[T]) Create(ctx context.Context, v *T) (*T, bool, error) {
	if v == nil {
		return nil, false, domain.NewValidationError(t.spec.entity, "body is required")
	}
	if t.spec.prepare != nil {
		t.spec.prepare(v)
	}

	item, err := t.spec.scan(t.db.QueryRow(ctx, t.insertSQL, t.spec.insertArgs(v)...))
	if err == nil {
		return item, true, nil
	}
	if !t.spec.upsert || !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, translateError(t.spec.entity, "create", err)
	}

	existing, err := t.Get(ctx, t.spec.keyOf(v))
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Update replaces the non-key columns of the row addressed by key.
func (t *PgTable[T]) Update(ctx context.Context, key Key, v *T) (*T, error) {
	if t.updateSQL == "" {
		return nil, domain.NewValidationError(t.spec.entity, "rows cannot be updated")
	}
	if v == nil {
		return nil, domain.NewValidationError(t.spec.entity, "body is required")
	}
	keyArgs, err := t.keyArgs(key)
	if err != nil {
		return nil, err
	}

	args := append(t.spec.updateArgs(v), keyArgs...)
	item, err := t.spec.scan(t.db.QueryRow(ctx, t.updateSQL, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(t.spec.entity, key.String())
		}
		return nil, translateError(t.spec.entity, "update", err)
	}
	return item, nil
}

// Delete removes the row addressed by key.
func (t *PgTable[T]) Delete(ctx context.Context, key Key) error {
	args, err := t.keyArgs(key)
	if err != nil {
		return err
	}

	tag, err := t.db.Exec(ctx, t.deleteSQL, args...)
	if err != nil {
		return translateError(t.spec.entity, "delete", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError(t.spec.entity, key.String())
	}
	return nil
}

func (t *PgTable[T]) keyArgs(key Key) ([]any, error) {
	if len(key) != len(t.spec.key) {
		return nil, domain.NewValidationError(strings.Join(t.spec.key, ","),
			fmt.Sprintf("expected %d key parts, got %d", len(t.spec.key), len(key)))
	}
	for i, part := range key {
		if strings.TrimSpace(part) == "" {
			return nil, domain.NewValidationError(t.spec.key[i], "is required")
		}
	}
	if t.spec.keyArgs != nil {
		return t.spec.keyArgs(key)
	}
	args := make([]any, len(key))
	for i, part := range key {
		args[i] = part
	}
	return args, nil
}

// findOne returns the first row matching where, which may reference $1.. args.
func (t *PgTable[T]) findOne(ctx context.Context, where string, args ...any) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", strings.Join(t.spec.columns, ", "), t.spec.table, where)
	item, err := t.spec.scan(t.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(t.spec.entity, fmt.Sprintf("%v", args))
		}
		return nil, translateError(t.spec.entity, "get", err)
	}
	return item, nil
}

// queueList adds the list query to a batch; readBatchList reads its result.
func (t *PgTable[T]) queueList(b *pgx.Batch) {
	b.Queue(t.listSQL)
}

func (t *PgTable[T]) readBatchList(br pgx.BatchResults) ([]*T, error) {
	rows, err := br.Query()
	if err != nil {
		return nil, translateError(t.spec.entity, "list", err)
	}
	return t.collect(rows)
}
