package postgresengine

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/adapters"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/sqlstore"
)

const (
	engineName       = "postgres"
	dialectPostgres  = "postgres"
	operationMigrate = "migrate"
)

// Store is the PostgreSQL allocation.Store.
type Store struct {
	*sqlstore.Allocations
	cfg *sqlstore.Config
}

// Directory is the PostgreSQL user directory and resource catalog. It shares the connection of its Store.
type Directory struct {
	*sqlstore.Directory
}

// NewStoreFromPGXPool creates a new Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, allocation.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options)
}

// NewStoreFromPGXPoolWithReplica creates a new Store that may serve eventually consistent reads from the replica.
func NewStoreFromPGXPoolWithReplica(primary *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Store, error) {
	if primary == nil || replica == nil {
		return nil, allocation.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapterWithReplica(primary, replica), options)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB (lib/pq or pgx stdlib driver) with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, allocation.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, allocation.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options)
}

func newStore(db adapters.DBAdapter, options []Option) (*Store, error) {
	s := &settings{tables: sqlstore.DefaultTables()}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	cfg := &sqlstore.Config{
		Engine:            engineName,
		DB:                db,
		Dialect:           goqu.Dialect(dialectPostgres),
		Tables:            s.tables,
		Times:             sqlstore.NativeTimes{},
		IsUniqueViolation: adapters.IsPostgresUniqueViolation,
		Instruments:       &s.instruments,
	}

	return &Store{Allocations: sqlstore.NewAllocations(cfg), cfg: cfg}, nil
}

// Directory returns the users and resources of the same database.
func (s *Store) Directory() *Directory {
	return &Directory{Directory: sqlstore.NewDirectory(s.cfg)}
}

// Migrate creates the tables and indexes if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	return s.cfg.ExecStatements(ctx, operationMigrate, schemaStatements(s.cfg.Tables))
}
