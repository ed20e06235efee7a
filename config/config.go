package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EngineMemory   = "memory"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
	EngineMongo    = "mongo"

	AdapterPGXPool = "pgx.pool"
	AdapterSQLDB   = "sql.db"
	AdapterSQLX    = "sqlx.db"

	GranularityResource = "resource"
	GranularityGlobal   = "global"

	FormatJSON = "json"
	FormatText = "text"

	envPrefix = "ALLOCATIONS_"
)

var (
	// ErrReadingConfigFailed is returned if the config file exists but cannot be read or parsed.
	ErrReadingConfigFailed = errors.New("reading the config file failed")

	// ErrInvalidConfig is returned by Validate and by Load for malformed environment overrides.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the complete allocationd configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Storage       StorageConfig       `yaml:"storage"`
	Locking       LockingConfig       `yaml:"locking"`
	Log           LogConfig           `yaml:"log"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type StorageConfig struct {
	Engine   string         `yaml:"engine"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Mongo    MongoConfig    `yaml:"mongo"`
}

type PostgresConfig struct {
	DSN        string `yaml:"dsn"`
	ReplicaDSN string `yaml:"replica_dsn"`
	Adapter    string `yaml:"adapter"`
	Migrate    bool   `yaml:"migrate"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type LockingConfig struct {
	Granularity string `yaml:"granularity"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ObservabilityConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a configuration that runs without any external service.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Addr: ":8080"},
		Storage: StorageConfig{
			Engine:   EngineMemory,
			Postgres: PostgresConfig{Adapter: AdapterPGXPool, Migrate: true},
			SQLite:   SQLiteConfig{Path: "allocations.db"},
			Mongo:    MongoConfig{Database: "allocations"},
		},
		Locking: LockingConfig{Granularity: GranularityResource},
		Log:     LogConfig{Level: "info", Format: FormatJSON},
	}
}

// Load reads path (if not empty) over the defaults, applies environment overrides, and validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Join(ErrReadingConfigFailed, err)
		}

		if err = yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, errors.Join(ErrReadingConfigFailed, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"HTTP_ADDR":            &c.HTTP.Addr,
		"STORAGE_ENGINE":       &c.Storage.Engine,
		"POSTGRES_DSN":         &c.Storage.Postgres.DSN,
		"POSTGRES_REPLICA_DSN": &c.Storage.Postgres.ReplicaDSN,
		"POSTGRES_ADAPTER":     &c.Storage.Postgres.Adapter,
		"SQLITE_PATH":          &c.Storage.SQLite.Path,
		"MONGO_URI":            &c.Storage.Mongo.URI,
		"MONGO_DATABASE":       &c.Storage.Mongo.Database,
		"LOCKING_GRANULARITY":  &c.Locking.Granularity,
		"LOG_LEVEL":            &c.Log.Level,
		"LOG_FORMAT":           &c.Log.Format,
	}

	for name, target := range strs {
		if value, ok := lookup(envPrefix + name); ok {
			*target = value
		}
	}

	bools := map[string]*bool{
		"POSTGRES_MIGRATE":      &c.Storage.Postgres.Migrate,
		"OBSERVABILITY_ENABLED": &c.Observability.Enabled,
	}

	for name, target := range bools {
		value, ok := lookup(envPrefix + name)
		if !ok {
			continue
		}

		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not a boolean", ErrInvalidConfig, envPrefix, name, value)
		}

		*target = parsed
	}

	return nil
}

// Validate checks the enumerations and that the selected engine has what it needs to connect.
func (c Config) Validate() error {
	var problems []string

	if c.HTTP.Addr == "" {
		problems = append(problems, "http.addr must not be empty")
	}

	switch c.Storage.Engine {
	case EngineMemory:
	case EnginePostgres:
		if c.Storage.Postgres.DSN == "" {
			problems = append(problems, "storage.postgres.dsn is required for engine postgres")
		}

		switch c.Storage.Postgres.Adapter {
		case AdapterPGXPool:
		case AdapterSQLDB, AdapterSQLX:
			if c.Storage.Postgres.ReplicaDSN != "" {
				problems = append(problems, "storage.postgres.replica_dsn needs adapter "+AdapterPGXPool)
			}
		default:
			problems = append(problems, fmt.Sprintf("storage.postgres.adapter %q is unknown", c.Storage.Postgres.Adapter))
		}
	case EngineSQLite:
		if c.Storage.SQLite.Path == "" {
			problems = append(problems, "storage.sqlite.path is required for engine sqlite")
		}
	case EngineMongo:
		if c.Storage.Mongo.URI == "" || c.Storage.Mongo.Database == "" {
			problems = append(problems, "storage.mongo.uri and storage.mongo.database are required for engine mongo")
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.engine %q is unknown", c.Storage.Engine))
	}

	if c.Locking.Granularity != GranularityResource && c.Locking.Granularity != GranularityGlobal {
		problems = append(problems, fmt.Sprintf("locking.granularity %q is unknown", c.Locking.Granularity))
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}

	if c.Log.Format != FormatJSON && c.Log.Format != FormatText {
		problems = append(problems, fmt.Sprintf("log.format %q is unknown", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	return nil
}
