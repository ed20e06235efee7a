// Package config loads the allocationd configuration and builds what it describes: database connections,
// the log handler, and a startup ping that waits for the database with exponential backoff.
//
// Configuration is layered: built-in defaults, then an optional YAML file, then ALLOCATIONS_* environment
// variables. Validate runs last.
package config
