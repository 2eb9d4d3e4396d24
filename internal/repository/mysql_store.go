package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// queryer is the subset of *sql.DB and *sql.Tx the repositories use.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// MySQLStore implements Store on top of a MySQL connection pool. The
// value handed to RunInTx callbacks is a copy bound to the open *sql.Tx,
// so every repository method issued through it joins the transaction.
type MySQLStore struct {
	db       *sql.DB // db is the underlying connection pool
	q        queryer // q is db outside a transaction and the *sql.Tx inside one
	tx       bool    // tx reports whether q is a transaction
	readOnly bool    // readOnly is set inside View
}

// NewMySQLStore constructs a MySQLStore with the provided DB handle.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, q: db}
}

// DB exposes the underlying sql.DB for health checks.
func (s *MySQLStore) DB() *sql.DB {
	return s.db
}

// RunInTx begins a transaction, runs fn and commits when fn returns nil.
// Any error, or a panic, rolls the transaction back. Calls nested inside
// an open transaction join it.
func (s *MySQLStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, nil, fn)
}

// View runs fn inside a read-only transaction.
func (s *MySQLStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return s.run(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (s *MySQLStore) run(ctx context.Context, opts *sql.TxOptions, fn func(tx Tx) error) (err error) {
	if s.tx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	inner := &MySQLStore{db: s.db, q: tx, tx: true, readOnly: opts != nil && opts.ReadOnly}
	if err = fn(inner); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapError(err))
	}
	committed = true
	return nil
}

// forUpdate appends a locking clause when running inside a writable
// transaction.
func (s *MySQLStore) forUpdate(q string) string {
	if s.tx && !s.readOnly {
		return q + " FOR UPDATE"
	}
	return q
}

// forShare is forUpdate with a shared lock.
func (s *MySQLStore) forShare(q string) string {
	if s.tx && !s.readOnly {
		return q + " FOR SHARE"
	}
	return q
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// exec runs a statement and maps driver errors.
func (s *MySQLStore) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	res, err := s.q.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

// insert runs an INSERT and returns the auto-incremented id.
func (s *MySQLStore) insert(ctx context.Context, q string, args ...any) (uint64, error) {
	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// exists runs a SELECT EXISTS(...) query.
func (s *MySQLStore) exists(ctx context.Context, q string, args ...any) (bool, error) {
	var ok bool
	if err := s.q.QueryRowContext(ctx, q, args...).Scan(&ok); err != nil {
		return false, mapError(err)
	}
	return ok, nil
}

// count runs a SELECT COUNT(*) query.
func (s *MySQLStore) count(ctx context.Context, q string, args ...any) (int, error) {
	var n int
	if err := s.q.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

var (
	_ Store = (*MySQLStore)(nil)
	_ Tx    = (*MySQLStore)(nil)
)
