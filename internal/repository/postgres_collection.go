package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// postgresCollection stores each document as a JSONB row:
//
//	id TEXT PRIMARY KEY, doc JSONB NOT NULL, created_at TIMESTAMPTZ NOT NULL
//
// Unique fields are backed by expression indexes named <table>_<field>_key
// (see migrations/).
type postgresCollection[T Document] struct {
	pool    *pgxpool.Pool
	table   string
	timeout time.Duration
}

// NewPostgresCollection returns a Postgres-backed implementation.
func NewPostgresCollection[T Document](pool *pgxpool.Pool, table string, timeout time.Duration) Collection[T] {
	return &postgresCollection[T]{pool: pool, table: table, timeout: timeout}
}

func (c *postgresCollection[T]) ident() string {
	return pgx.Identifier{c.table}.Sanitize()
}

func (c *postgresCollection[T]) FindOne(ctx context.Context, filter Filter) (*T, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	where, args := buildWhere(filter, nil)
	query := "SELECT doc FROM " + c.ident() + where + " ORDER BY created_at DESC, id ASC LIMIT 1"

	var raw []byte
	if err := c.pool.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decode[T](raw)
}

func (c *postgresCollection[T]) Find(ctx context.Context, filter Filter, opts FindOptions) ([]T, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	query, args := buildSelect(c.ident(), filter, opts)
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		item, err := decode[T](raw)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}

func (c *postgresCollection[T]) Count(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	where, args := buildWhere(filter, nil)
	var total int64
	if err := c.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+c.ident()+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (c *postgresCollection[T]) Insert(ctx context.Context, doc *T) error {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	query := "INSERT INTO " + c.ident() + " (id, doc, created_at) VALUES ($1, $2::jsonb, $3)"
	_, err = c.pool.Exec(ctx, query, (*doc).DocumentID(), string(raw), (*doc).CreatedTime())
	return c.translate(err)
}

func (c *postgresCollection[T]) Update(ctx context.Context, id string, changes Changes) error {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	patch, err := json.Marshal(changes)
	if err != nil {
		return err
	}
	query := "UPDATE " + c.ident() + " SET doc = doc || $1::jsonb WHERE id = $2"
	cmd, err := c.pool.Exec(ctx, query, string(patch), id)
	if err != nil {
		return c.translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *postgresCollection[T]) DeleteOne(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	cmd, err := c.pool.Exec(ctx, "DELETE FROM "+c.ident()+" WHERE id = $1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *postgresCollection[T]) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	where, args := buildWhere(filter, nil)
	cmd, err := c.pool.Exec(ctx, "DELETE FROM "+c.ident()+where, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (c *postgresCollection[T]) translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &DuplicateKeyError{
			Collection: c.table,
			Field:      fieldFromConstraint(c.table, pgErr.ConstraintName),
			Err:        err,
		}
	}
	return err
}

// fieldFromConstraint maps "<table>_<field>_key" and "<table>_pkey" back
// to the field name.
func fieldFromConstraint(table, constraint string) string {
	if constraint == table+"_pkey" {
		return FieldID
	}
	name := strings.TrimPrefix(constraint, table+"_")
	if name == constraint || !strings.HasSuffix(name, "_key") {
		return ""
	}
	return strings.TrimSuffix(name, "_key")
}

func buildSelect(table string, filter Filter, opts FindOptions) (string, []any) {
	where, args := buildWhere(filter, nil)
	query := "SELECT doc FROM " + table + where

	var order string
	order, args = fieldExpr(opts.SortBy, args)
	direction := "ASC"
	if opts.Descending {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC", order, direction)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Skip > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Skip)
	}
	return query, args
}

func buildWhere(filter Filter, args []any) (string, []any) {
	clauses := make([]string, 0, len(filter.All)+1)
	for _, cond := range filter.All {
		var clause string
		clause, args = buildCondition(cond, args)
		clauses = append(clauses, clause)
	}
	if len(filter.Any) > 0 {
		ors := make([]string, 0, len(filter.Any))
		for _, cond := range filter.Any {
			var clause string
			clause, args = buildCondition(cond, args)
			ors = append(ors, clause)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildCondition(cond Condition, args []any) (string, []any) {
	expr, args := fieldExpr(cond.Field, args)
	switch cond.Op {
	case OpNe:
		args = append(args, cond.value())
		return fmt.Sprintf("%s IS DISTINCT FROM $%d", expr, len(args)), args
	case OpIn:
		values := cond.Values
		if values == nil {
			values = []string{}
		}
		args = append(args, values)
		return fmt.Sprintf("%s = ANY($%d)", expr, len(args)), args
	case OpContains:
		args = append(args, "%"+escapeLike(cond.value())+"%")
		return fmt.Sprintf("%s ILIKE $%d", expr, len(args)), args
	default:
		args = append(args, cond.value())
		return fmt.Sprintf("%s = $%d", expr, len(args)), args
	}
}

func fieldExpr(field string, args []any) (string, []any) {
	switch field {
	case "", FieldCreatedAt:
		return "created_at", args
	case FieldID:
		return "id", args
	}
	args = append(args, field)
	return fmt.Sprintf("doc->>$%d", len(args)), args
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
