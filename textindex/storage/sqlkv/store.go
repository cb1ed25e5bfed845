// Package sqlkv implements storage.Store as a single key/value table in a
// database/sql database. Dialects supply the SQL.
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nonibytes/textindex/textindex/storage"
	"github.com/nonibytes/textindex/textindex/storage/sqlbuilder"
)

// SQL holds the statements a dialect must provide. Keys are stored as
// binary so that ORDER BY follows byte order.
type SQL struct {
	DDL []string

	Get          string
	Put          string
	Delete       string
	NextSequence string

	// ScanPrefix selects (key, value) for bucket and lo <= key < hi. The
	// store appends ORDER BY and LIMIT.
	ScanPrefix string
}

// Rebind returns the statements with '?' placeholders rewritten to style.
func (q SQL) Rebind(style sqlbuilder.PlaceholderStyle) SQL {
	q.Get = sqlbuilder.Rebind(style, q.Get)
	q.Put = sqlbuilder.Rebind(style, q.Put)
	q.Delete = sqlbuilder.Rebind(style, q.Delete)
	q.NextSequence = sqlbuilder.Rebind(style, q.NextSequence)
	q.ScanPrefix = sqlbuilder.Rebind(style, q.ScanPrefix)
	return q
}

// Dialect binds statements to a backend.
type Dialect struct {
	Backend    storage.Backend
	Style      sqlbuilder.PlaceholderStyle
	SQL        SQL
	ReadOnlyTx bool
}

type Store struct {
	db     *sql.DB
	d      Dialect
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// New creates the tables if needed and returns a store owning db.
func New(ctx context.Context, db *sql.DB, d Dialect, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, stmt := range d.SQL.DDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("apply ddl: %w", err)
		}
	}
	return &Store{db: db, d: d, logger: logger.With("component", "sqlkv", "backend", string(d.Backend))}, nil
}

func (s *Store) Backend() storage.Backend { return s.d.Backend }

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.run(ctx, &sql.TxOptions{ReadOnly: s.d.ReadOnlyTx}, false, fn)
}

func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.run(ctx, nil, true, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, commit bool, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = stx.Rollback() }()

	if err := fn(&tx{ctx: ctx, tx: stx, d: s.d}); err != nil {
		return err
	}
	if !commit {
		return nil
	}
	if err := stx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type tx struct {
	ctx context.Context
	tx  *sql.Tx
	d   Dialect
}

func (t *tx) Get(b storage.Bucket, key []byte) ([]byte, error) {
	var v []byte
	err := t.tx.QueryRowContext(t.ctx, t.d.SQL.Get, string(b), key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", b, err)
	}
	return v, nil
}

func (t *tx) Put(b storage.Bucket, key, value []byte) error {
	if _, err := t.tx.ExecContext(t.ctx, t.d.SQL.Put, string(b), key, value); err != nil {
		return fmt.Errorf("put %s: %w", b, err)
	}
	return nil
}

func (t *tx) Delete(b storage.Bucket, key []byte) error {
	if _, err := t.tx.ExecContext(t.ctx, t.d.SQL.Delete, string(b), key); err != nil {
		return fmt.Errorf("delete %s: %w", b, err)
	}
	return nil
}

type kv struct{ k, v []byte }

// Scan drains the result set before calling fn so fn may issue further
// statements on the same transaction.
func (t *tx) Scan(b storage.Bucket, lo, hi []byte, limit int, fn func(key, value []byte) error) error {
	q := sqlbuilder.New(t.d.Style)
	q.Write(t.d.SQL.ScanPrefix)
	q.Arg(string(b))
	q.Arg(lo)
	q.Arg(hi)
	q.Write(" ORDER BY key")
	if limit > 0 {
		q.Write(" LIMIT ").WriteArg(limit)
	}

	rows, err := t.tx.QueryContext(t.ctx, q.String(), q.Args()...)
	if err != nil {
		return fmt.Errorf("scan %s: %w", b, err)
	}
	var out []kv
	for rows.Next() {
		var item kv
		if err := rows.Scan(&item.k, &item.v); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan %s: %w", b, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("scan %s: %w", b, err)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, item := range out {
		if err := t.ctx.Err(); err != nil {
			return err
		}
		if err := fn(item.k, item.v); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) NextSequence(b storage.Bucket) (uint64, error) {
	var n int64
	if err := t.tx.QueryRowContext(t.ctx, t.d.SQL.NextSequence, string(b)).Scan(&n); err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", b, err)
	}
	return uint64(n), nil
}
