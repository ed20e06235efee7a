package postgresengine

import (
	"fmt"

	"github.com/lib/pq"

	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/sqlstore"
)

func schemaStatements(tables sqlstore.Tables) []string {
	users := pq.QuoteIdentifier(tables.Users)
	resources := pq.QuoteIdentifier(tables.Resources)
	allocations := pq.QuoteIdentifier(tables.Allocations)

	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			login TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE
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
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NULL,
			CONSTRAINT %s CHECK (end_time IS NULL OR end_time >= start_time)
		)`, allocations, pq.QuoteIdentifier(tables.Allocations+"_end_after_start")),

		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (resource_id) WHERE end_time IS NULL`,
			pq.QuoteIdentifier(tables.Allocations+"_one_open_per_resource"), allocations),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (user_id)`,
			pq.QuoteIdentifier(tables.Allocations+"_user_id_idx"), allocations),

		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (resource_id)`,
			pq.QuoteIdentifier(tables.Allocations+"_resource_id_idx"), allocations),
	}
}
