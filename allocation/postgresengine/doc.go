// Package postgresengine provides a PostgreSQL implementation of allocation.Store together with a Directory
// for users and resources.
//
// It runs on pgxpool.Pool (optionally with a replica pool), sql.DB, or sqlx.DB. All SQL is built with goqu.
// Reads go to the replica only when the context carries allocation.WithEventualConsistency, so the
// exclusivity check of the lifecycle manager always sees the primary.
//
// Migrate creates the tables and a partial unique index on resource_id for rows without end_time.
// The index backs up the lifecycle manager's critical section when several processes share one database:
// a second open allocation for the same resource is rejected with allocation.ErrResourceUnavailable.
//
// Example:
//
//	store, err := postgresengine.NewStoreFromPGXPool(pool, postgresengine.WithLogger(slog.Default()))
//	if err != nil { ... }
//	if err = store.Migrate(ctx); err != nil { ... }
//	directory := store.Directory()
package postgresengine
