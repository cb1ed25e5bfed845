// Package postgres opens a sqlkv store inside a dedicated PostgreSQL schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/nonibytes/textindex/textindex/storage"
	"github.com/nonibytes/textindex/textindex/storage/sqlbuilder"
	"github.com/nonibytes/textindex/textindex/storage/sqlkv"
)

type Adapter struct {
	DSN    string
	Schema string // used as dedicated schema via search_path
	Logger *slog.Logger
}

func New(dsn, schema string) *Adapter {
	return &Adapter{DSN: dsn, Schema: schema}
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) Dialect() sqlkv.Dialect {
	return sqlkv.Dialect{
		Backend:    storage.BackendPostgres,
		Style:      sqlbuilder.PlaceholderDollar,
		SQL:        SQLTemplates.Rebind(sqlbuilder.PlaceholderDollar),
		ReadOnlyTx: true,
	}
}

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(ident string) string {
	// ident is validated to contain no quotes
	return `"` + ident + `"`
}

func (a *Adapter) validSchema() error {
	if a.Schema == "" || !schemaNameRe.MatchString(a.Schema) {
		return fmt.Errorf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String())
	}
	return nil
}

func (a *Adapter) ensureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(a.Schema))
	return err
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	if err := a.validSchema(); err != nil {
		return nil, err
	}

	// Connect without search_path first so the schema can be created.
	cfg0, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	db0 := stdlib.OpenDB(*cfg0)
	if err := db0.PingContext(ctx); err != nil {
		_ = db0.Close()
		return nil, err
	}
	if err := a.ensureSchema(ctx, db0); err != nil {
		_ = db0.Close()
		return nil, err
	}
	_ = db0.Close()

	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", quoteIdent(a.Schema))

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Open connects and returns a ready store.
func (a *Adapter) Open(ctx context.Context) (*sqlkv.Store, error) {
	db, err := a.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := sqlkv.New(ctx, db, a.Dialect(), a.Logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}
