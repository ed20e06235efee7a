package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/resource-allocations-go/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "allocationd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func Test_Load_WithoutFileReturnsDefaults(t *testing.T) {
	// act
	cfg, err := config.Load("")

	// assert
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, config.EngineMemory, cfg.Storage.Engine)
	assert.Equal(t, config.GranularityResource, cfg.Locking.Granularity)
}

func Test_Load_FileOverridesDefaults(t *testing.T) {
	// setup
	path := writeConfigFile(t, `
http:
  addr: ":9090"
storage:
  engine: postgres
  postgres:
    dsn: postgres://localhost/allocations
    adapter: sqlx.db
    migrate: false
locking:
  granularity: global
log:
  level: debug
  format: text
observability:
  enabled: true
`)

	// act
	cfg, err := config.Load(path)

	// assert
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, config.EnginePostgres, cfg.Storage.Engine)
	assert.Equal(t, "postgres://localhost/allocations", cfg.Storage.Postgres.DSN)
	assert.Equal(t, config.AdapterSQLX, cfg.Storage.Postgres.Adapter)
	assert.False(t, cfg.Storage.Postgres.Migrate)
	assert.Equal(t, config.GranularityGlobal, cfg.Locking.Granularity)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, config.FormatText, cfg.Log.Format)
	assert.True(t, cfg.Observability.Enabled)
	assert.Equal(t, "allocations.db", cfg.Storage.SQLite.Path, "keys missing in the file keep their defaults")
}

func Test_Load_EnvironmentOverridesFile(t *testing.T) {
	// setup
	path := writeConfigFile(t, "storage:\n  engine: memory\n")
	t.Setenv("ALLOCATIONS_STORAGE_ENGINE", "sqlite")
	t.Setenv("ALLOCATIONS_SQLITE_PATH", "/var/lib/allocations/db.sqlite")
	t.Setenv("ALLOCATIONS_OBSERVABILITY_ENABLED", "true")
	t.Setenv("ALLOCATIONS_LOG_LEVEL", "WARN")

	// act
	cfg, err := config.Load(path)

	// assert
	require.NoError(t, err)
	assert.Equal(t, config.EngineSQLite, cfg.Storage.Engine)
	assert.Equal(t, "/var/lib/allocations/db.sqlite", cfg.Storage.SQLite.Path)
	assert.True(t, cfg.Observability.Enabled)
	assert.Equal(t, "WARN", cfg.Log.Level)
}

func Test_Load_Failures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, config.ErrReadingConfigFailed)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := config.Load(writeConfigFile(t, "http: [unclosed"))
		assert.ErrorIs(t, err, config.ErrReadingConfigFailed)
	})

	t.Run("malformed boolean in the environment", func(t *testing.T) {
		t.Setenv("ALLOCATIONS_POSTGRES_MIGRATE", "sometimes")

		_, err := config.Load("")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
		assert.ErrorContains(t, err, "ALLOCATIONS_POSTGRES_MIGRATE")
	})
}

func Test_Config_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(cfg *config.Config)
		message string
	}{
		{"empty addr", func(cfg *config.Config) { cfg.HTTP.Addr = "" }, "http.addr"},
		{"unknown engine", func(cfg *config.Config) { cfg.Storage.Engine = "redis" }, `storage.engine "redis"`},
		{"postgres without dsn", func(cfg *config.Config) { cfg.Storage.Engine = config.EnginePostgres }, "storage.postgres.dsn"},
		{"unknown adapter", func(cfg *config.Config) {
			cfg.Storage.Engine = config.EnginePostgres
			cfg.Storage.Postgres.DSN = "postgres://localhost/db"
			cfg.Storage.Postgres.Adapter = "odbc"
		}, `adapter "odbc"`},
		{"replica without pgx", func(cfg *config.Config) {
			cfg.Storage.Engine = config.EnginePostgres
			cfg.Storage.Postgres.DSN = "postgres://localhost/db"
			cfg.Storage.Postgres.ReplicaDSN = "postgres://replica/db"
			cfg.Storage.Postgres.Adapter = config.AdapterSQLDB
		}, "replica_dsn"},
		{"sqlite without path", func(cfg *config.Config) {
			cfg.Storage.Engine = config.EngineSQLite
			cfg.Storage.SQLite.Path = ""
		}, "storage.sqlite.path"},
		{"mongo without uri", func(cfg *config.Config) { cfg.Storage.Engine = config.EngineMongo }, "storage.mongo.uri"},
		{"unknown granularity", func(cfg *config.Config) { cfg.Locking.Granularity = "table" }, "locking.granularity"},
		{"unknown level", func(cfg *config.Config) { cfg.Log.Level = "verbose" }, "log.level"},
		{"unknown format", func(cfg *config.Config) { cfg.Log.Format = "xml" }, "log.format"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			cfg := config.Default()
			tc.mutate(&cfg)

			// act
			err := cfg.Validate()

			// assert
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
			assert.ErrorContains(t, err, tc.message)
		})
	}
}
