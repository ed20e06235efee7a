package allocation

import (
	"context"
	"time"
)

// Store is the persistence contract for allocation records.
//
// Implementations are not expected to offer multi-document transactions; the lifecycle package
// provides the serialization boundary for check-then-write sequences.
type Store interface {
	// Insert persists a new allocation and returns it with the store-assigned ID.
	Insert(ctx context.Context, a Allocation) (Allocation, error)

	// FindByID returns ErrAllocationNotFound if no allocation has the given ID.
	FindByID(ctx context.Context, id string) (Allocation, error)

	// FindAll, FindByUserID, and FindByResourceID list in insertion order, not by start time.
	// Persistent engines derive that order from time-ordered ids (UUIDv7 or ObjectID) assigned by Insert.
	FindAll(ctx context.Context) (Allocations, error)
	FindByUserID(ctx context.Context, userID string) (Allocations, error)
	FindByResourceID(ctx context.Context, resourceID string) (Allocations, error)

	// ExistsOpenForResource reports whether an allocation with no end time references the resource.
	ExistsOpenForResource(ctx context.Context, resourceID string) (bool, error)

	// UpdateEndTime sets the end time of an open allocation. It returns ErrAllocationNotFound if absent and
	// ErrAllocationAlreadyEnded if the end time is already set, so an end time is never overwritten.
	UpdateEndTime(ctx context.Context, id string, endTime time.Time) error

	// DeleteByID returns ErrAllocationNotFound if no allocation has the given ID.
	DeleteByID(ctx context.Context, id string) error
}

// User is the engine's view of an externally managed user.
type User struct {
	ID     string `json:"id"`
	Login  string `json:"login"`
	Active bool   `json:"active"`
}

// ResourceKind names the variant of a resource. The engine does not depend on it.
type ResourceKind string

const (
	ResourceKindBook       ResourceKind = "book"
	ResourceKindPeriodical ResourceKind = "periodical"
	ResourceKindNewspaper  ResourceKind = "newspaper"
)

// Resource is the engine's view of an externally managed resource.
type Resource struct {
	ID   string       `json:"id"`
	Kind ResourceKind `json:"kind"`
	Name string       `json:"name"`
}

// UserDirectory resolves users. FindUser returns ErrUserNotFound if the user does not exist.
type UserDirectory interface {
	FindUser(ctx context.Context, id string) (User, error)
}

// ResourceCatalog resolves and removes resources.
// FindResource and DeleteResource return ErrResourceNotFound if the resource does not exist.
type ResourceCatalog interface {
	FindResource(ctx context.Context, id string) (Resource, error)
	DeleteResource(ctx context.Context, id string) error
}
