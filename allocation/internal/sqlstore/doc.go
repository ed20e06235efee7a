// Package sqlstore holds the goqu-built SQL shared by the PostgreSQL and the SQLite engine.
//
// The engines contribute the connection (as an adapters.DBAdapter), the goqu dialect, the encoding of
// timestamps, and the detection of unique violations. Allocation ids are UUIDs (version 7, so the primary key
// order follows insertion order); an id that does not parse as a UUID is reported as not found.
package sqlstore
