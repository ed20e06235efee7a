package sqliteengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	_ "modernc.org/sqlite"                              // pure go sqlite driver

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/adapters"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/sqlstore"
)

const (
	engineName       = "sqlite"
	driverName       = "sqlite"
	dialectSQLite    = "sqlite3"
	operationMigrate = "migrate"
	busyTimeoutMS    = 5000
)

// ErrOpeningDatabaseFailed is returned by Open if the database file cannot be created or opened.
var ErrOpeningDatabaseFailed = errors.New("opening the sqlite database failed")

// Store is the SQLite allocation.Store.
type Store struct {
	*sqlstore.Allocations
	cfg   *sqlstore.Config
	db    *sql.DB
	owned bool
}

// Directory is the SQLite user directory and resource catalog. It shares the connection of its Store.
type Directory struct {
	*sqlstore.Directory
}

// Open opens (or creates) the database file at path, migrates the schema, and returns a Store that owns
// the connection. ":memory:" gives a private in-memory database.
//
// The pool is limited to one connection, SQLite serializes writers anyway.
func Open(ctx context.Context, path string, options ...Option) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, errors.Join(ErrOpeningDatabaseFailed, err)
		}

		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, busyTimeoutMS)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrOpeningDatabaseFailed, err)
	}

	db.SetMaxOpenConns(1)

	s, err := NewStoreFromSQLDB(db, options...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s.owned = true

	if err = s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// NewStoreFromSQLDB creates a new Store on a sql.DB opened with the "sqlite" driver.
// The caller keeps ownership of db and has to call Migrate.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, allocation.ErrNilDatabaseConnection
	}

	s := &settings{tables: sqlstore.DefaultTables()}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	cfg := &sqlstore.Config{
		Engine:            engineName,
		DB:                adapters.NewSQLAdapter(db),
		Dialect:           goqu.Dialect(dialectSQLite),
		Tables:            s.tables,
		Times:             sqlstore.UnixNanoTimes{},
		IsUniqueViolation: adapters.IsSQLiteUniqueViolation,
		Instruments:       &s.instruments,
	}

	return &Store{Allocations: sqlstore.NewAllocations(cfg), cfg: cfg, db: db}, nil
}

// Directory returns the users and resources of the same database.
func (s *Store) Directory() *Directory {
	return &Directory{Directory: sqlstore.NewDirectory(s.cfg)}
}

// Migrate creates the tables and indexes if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	return s.cfg.ExecStatements(ctx, operationMigrate, schemaStatements(s.cfg.Tables))
}

// Ping checks that the database can still be used.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection if the Store was created with Open.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}

	return s.db.Close()
}
