package allocation

import "context"

// ConsistencyLevel defines the consistency requirements for Store reads.
type ConsistencyLevel int

const (
	// StrongConsistency requires reads from the primary database to ensure read-after-write consistency.
	// This is the default, and the exclusivity check of an allocation creation always uses it.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from replica databases, trading consistency for
	// performance. Suitable for listing allocations where slightly stale data is acceptable.
	EventualConsistency
)

// contextKey is a private type to prevent context key collisions.
type contextKey string

// ConsistencyLevelKey is the context key used to store consistency level preferences.
const ConsistencyLevelKey contextKey = "allocation.consistency_level"

// WithStrongConsistency returns a context that signals Store reads must go to the primary database.
//
// Example usage:
//
//	ctx = allocation.WithStrongConsistency(ctx)
//	held, err := store.ExistsOpenForResource(ctx, resourceID)
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that signals Store reads may be served by a replica.
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context.
// If no consistency level is set, it returns StrongConsistency as the safe default.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

// String provides a string representation of ConsistencyLevel for logging and debugging.
func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
