// Package postgreswrapper creates PostgreSQL stores on freshly migrated, uniquely named tables,
// using the adapter type chosen by the ADAPTER_TYPE environment variable.
package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/resource-allocations-go/allocation/postgresengine"
	"github.com/AntonStoeckl/resource-allocations-go/testutil/helper"
)

// DSNEnv names the environment variable holding the DSN of a disposable test database.
const DSNEnv = "ALLOCATIONS_TEST_POSTGRES_DSN"

// Adapter type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLX    = "sqlx.db"
)

// Wrapper holds a Store and the raw connection it runs on.
type Wrapper struct {
	Store  *postgresengine.Store
	exec   func(ctx context.Context, statement string) error
	close  func()
	tables []string
}

// New connects, migrates uniquely named tables, and registers their removal with t.Cleanup.
// It skips the test if no DSN is configured.
func New(t *testing.T, options ...postgresengine.Option) *Wrapper {
	t.Helper()

	dsn := helper.EnvOrSkip(t, DSNEnv)
	ctx := context.Background()
	prefix := helper.GivenUniqueTablePrefix()
	w := &Wrapper{tables: []string{prefix + "allocations", prefix + "resources", prefix + "users"}}

	options = append([]postgresengine.Option{
		postgresengine.WithAllocationsTable(w.tables[0]),
		postgresengine.WithResourcesTable(w.tables[1]),
		postgresengine.WithUsersTable(w.tables[2]),
	}, options...)

	var err error

	switch adapterType := strings.ToLower(os.Getenv("ADAPTER_TYPE")); adapterType {
	case typePGXPool, "":
		pool, errConnect := pgxpool.New(ctx, dsn)
		require.NoError(t, errConnect, "error connecting to DB pool in test setup")
		w.exec = func(ctx context.Context, statement string) error {
			_, execErr := pool.Exec(ctx, statement)
			return execErr
		}
		w.close = pool.Close
		w.Store, err = postgresengine.NewStoreFromPGXPool(pool, options...)

	case typeSQLDB:
		db, errOpen := sql.Open("postgres", dsn)
		require.NoError(t, errOpen, "error opening DB in test setup")
		w.exec = func(ctx context.Context, statement string) error {
			_, execErr := db.ExecContext(ctx, statement)
			return execErr
		}
		w.close = func() { _ = db.Close() }
		w.Store, err = postgresengine.NewStoreFromSQLDB(db, options...)

	case typeSQLX:
		db, errOpen := sqlx.Open("postgres", dsn)
		require.NoError(t, errOpen, "error opening DB in test setup")
		w.exec = func(ctx context.Context, statement string) error {
			_, execErr := db.ExecContext(ctx, statement)
			return execErr
		}
		w.close = func() { _ = db.Close() }
		w.Store, err = postgresengine.NewStoreFromSQLX(db, options...)

	default:
		t.Fatalf("unsupported adapter type from env: %s", adapterType)
	}

	require.NoError(t, err, "error creating the store in test setup")
	t.Cleanup(w.cleanUp)
	require.NoError(t, w.Store.Migrate(ctx), "error migrating the schema in test setup")

	return w
}

// AllocationsTable returns the unique name of the allocations table.
func (w *Wrapper) AllocationsTable() string {
	return w.tables[0]
}

// Exec runs a raw statement, e.g., to break the data on purpose.
func (w *Wrapper) Exec(t testing.TB, statement string) {
	t.Helper()

	require.NoError(t, w.exec(context.Background(), statement))
}

func (w *Wrapper) cleanUp() {
	for _, table := range w.tables {
		_ = w.exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s", pq.QuoteIdentifier(table)))
	}

	w.close()
}
