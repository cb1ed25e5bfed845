// Package sqlite opens a sqlkv store on a SQLite file. The default driver is
// the pure-Go modernc.org/sqlite ("sqlite"); NewWithDriver("...", "sqlite3")
// selects github.com/mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/nonibytes/textindex/textindex/storage"
	"github.com/nonibytes/textindex/textindex/storage/sqlbuilder"
	"github.com/nonibytes/textindex/textindex/storage/sqlkv"
)

const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

type Adapter struct {
	Path       string
	DriverName string
	Logger     *slog.Logger
}

func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DriverModernc}
}

func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) Dialect() sqlkv.Dialect {
	return sqlkv.Dialect{
		Backend: storage.BackendSQLite,
		Style:   sqlbuilder.PlaceholderQuestion,
		SQL:     SQLTemplates,
	}
}

func (a *Adapter) dsn() string {
	var params []string
	switch a.DriverName {
	case DriverMattn:
		params = []string{"_busy_timeout=5000", "_journal_mode=WAL", "_synchronous=NORMAL"}
	default:
		params = []string{"_pragma=busy_timeout(5000)", "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)"}
	}
	sep := "?"
	if strings.Contains(a.Path, "?") {
		sep = "&"
	}
	return a.Path + sep + strings.Join(params, "&")
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	if dir := filepath.Dir(a.Path); dir != "" && !strings.HasPrefix(a.Path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open(a.DriverName, a.dsn())
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY on
	// lock upgrades.
	db.SetMaxOpenConns(1)
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
		return nil, fmt.Errorf("connect sqlite %s: %w", a.Path, err)
	}
	s, err := sqlkv.New(ctx, db, a.Dialect(), a.Logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Optimize compacts the database file.
func Optimize(ctx context.Context, s *sqlkv.Store) error {
	_, err := s.DB().ExecContext(ctx, "VACUUM")
	return err
}
