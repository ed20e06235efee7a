// Package helper provides test doubles for the observability interfaces of the allocation packages
// and small fixtures shared by the engine and lifecycle tests.
package helper
