package sqliteengine

import (
	"fmt"
	"strings"

	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/sqlstore"
)

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func schemaStatements(tables sqlstore.Tables) []string {
	users := quoteIdentifier(tables.Users)
	resources := quoteIdentifier(tables.Resources)
	allocations := quoteIdentifier(tables.Allocations)

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			login TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1
		)`, users),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT ''
		)`, resources),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER NULL CHECK (end_time IS NULL OR end_time >= start_time)
		)`, allocations),

		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (resource_id) WHERE end_time IS NULL`,
			quoteIdentifier(tables.Allocations+"_one_open_per_resource"), allocations),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (user_id)`,
			quoteIdentifier(tables.Allocations+"_user_id_idx"), allocations),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (resource_id)`,
			quoteIdentifier(tables.Allocations+"_resource_id_idx"), allocations),
	}
}
