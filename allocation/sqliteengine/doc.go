// Package sqliteengine provides an embedded SQLite implementation of allocation.Store together with a
// Directory for users and resources, built on the pure Go driver modernc.org/sqlite.
//
// It shares its SQL with postgresengine; timestamps are stored as INTEGER nanoseconds since the epoch.
// The schema carries the same partial unique index on resource_id for rows without end_time.
//
// Example:
//
//	store, err := sqliteengine.Open(ctx, "allocations.db")
//	if err != nil { ... }
//	defer store.Close()
//	directory := store.Directory()
package sqliteengine
