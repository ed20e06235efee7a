// Package mongoengine provides a MongoDB implementation of allocation.Store together with a Directory
// for users and resources, on top of go.mongodb.org/mongo-driver.
//
// Allocation ids are ObjectIDs in hex form; an id that is not valid hex is reported as not found.
// Timestamps are stored as BSON dates and therefore keep millisecond precision only.
//
// MongoDB offers no check-then-write without transactions, so the lifecycle manager's critical section
// is the primary guard. EnsureIndexes adds a partial unique index on resourceId over open allocations
// that rejects a second open allocation written by another process.
package mongoengine
