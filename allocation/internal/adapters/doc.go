// Package adapters hides the differences between the database libraries the SQL engines run on:
// pgxpool.Pool, sql.DB, and sqlx.DB.
//
// Every adapter executes parameterized statements through the same DBAdapter interface. The pgx adapter
// can route reads to a replica pool, but only for contexts that ask for eventual consistency.
package adapters
