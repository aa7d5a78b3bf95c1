package runs

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type row interface {
	Scan(dest ...any) error
}

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// querier is the statement surface shared by a pool, a *sql.DB and their transactions
type querier interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	QueryRow(ctx context.Context, query string, args ...any) row
	Query(ctx context.Context, query string, args ...any) (rows, error)
}

// backend adapts one driver. Queries are written with $N placeholders.
type backend interface {
	querier
	WithTx(ctx context.Context, fn func(q querier) error) error
	IsNoRows(err error) bool
	IsUniqueViolation(err error) bool
	Driver() string
}

// ============================================================================
// PostgreSQL (pgx)
// ============================================================================

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgxConn struct {
	q pgxQuerier
}

func (c pgxConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := c.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c pgxConn) QueryRow(ctx context.Context, query string, args ...any) row {
	return c.q.QueryRow(ctx, query, args...)
}

func (c pgxConn) Query(ctx context.Context, query string, args ...any) (rows, error) {
	return c.q.Query(ctx, query, args...)
}

type pgxBackend struct {
	pgxConn
	pool *pgxpool.Pool
}

func newPgxBackend(pool *pgxpool.Pool) *pgxBackend {
	return &pgxBackend{pgxConn: pgxConn{q: pool}, pool: pool}
}

func (b *pgxBackend) WithTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(pgxConn{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (b *pgxBackend) IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (b *pgxBackend) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (b *pgxBackend) Driver() string { return "postgres" }

// ============================================================================
// SQLite (database/sql + modernc.org/sqlite)
// ============================================================================

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type sqlConn struct {
	q sqlQuerier
}

func (c sqlConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.q.ExecContext(ctx, rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c sqlConn) QueryRow(ctx context.Context, query string, args ...any) row {
	return c.q.QueryRowContext(ctx, rebind(query), args...)
}

func (c sqlConn) Query(ctx context.Context, query string, args ...any) (rows, error) {
	r, err := c.q.QueryContext(ctx, rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{r}, nil
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() {
	_ = r.Rows.Close()
}

type sqlBackend struct {
	sqlConn
	db *sql.DB
}

func newSQLBackend(db *sql.DB) *sqlBackend {
	return &sqlBackend{sqlConn: sqlConn{q: db}, db: db}
}

func (b *sqlBackend) WithTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(sqlConn{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (b *sqlBackend) IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func (b *sqlBackend) IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (b *sqlBackend) Driver() string { return "sqlite" }

// rebind rewrites $N placeholders to ? (each $N must appear once, in order)
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		if query[i] == '$' {
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j > i+1 {
				if _, err := strconv.Atoi(query[i+1 : j]); err == nil {
					b.WriteByte('?')
					i = j - 1
					continue
				}
			}
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
