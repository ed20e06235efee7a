// Package lifecycle implements the allocation lifecycle manager: creation, termination, deletion,
// and listing of allocations.
//
// The manager guarantees that a resource has at most one open allocation at any time, even when
// CreateAllocation is called concurrently for the same resource and the Store offers no transactions.
// The exclusivity check and the insert run inside the critical section of the resource, obtained from
// the guard's keylock.Locker.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/observe"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/keylock"
)

// ErrNilCollaborator is returned by NewManager if the store or the guard is nil.
var ErrNilCollaborator = errors.New("manager collaborators must not be nil")

// ErrNilClock is returned by WithClock for a nil clock.
var ErrNilClock = errors.New("clock must not be nil")

const (
	operationCreate             = "create_allocation"
	operationEnd                = "end_allocation"
	operationDelete             = "delete_allocation"
	operationFindByID           = "find_allocation"
	operationFindAll            = "list_allocations"
	operationCurrentForUser     = "list_current_for_user"
	operationPastForUser        = "list_past_for_user"
	operationCurrentForResource = "list_current_for_resource"
	operationPastForResource    = "list_past_for_resource"

	spanAttrAllocationID = "allocation_id"
	spanAttrUserID       = "user_id"
	spanAttrResourceID   = "resource_id"
)

// Guard is what the manager needs from the consistency guard.
type Guard interface {
	ValidateUserEligible(ctx context.Context, userID string) (allocation.User, error)
	ValidateResourceExists(ctx context.Context, resourceID string) (allocation.Resource, error)
	Locker() keylock.Locker
}

// Manager creates, ends, deletes, and lists allocations.
type Manager struct {
	store allocation.Store
	guard Guard
	clock func() time.Time
	obs   observe.Instruments
}

// NewManager creates a Manager. The critical sections come from guard.Locker().
func NewManager(store allocation.Store, guard Guard, options ...Option) (*Manager, error) {
	if store == nil || guard == nil {
		return nil, ErrNilCollaborator
	}

	m := &Manager{
		store: store,
		guard: guard,
		clock: defaultClock,
	}

	for _, option := range options {
		if err := option(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func defaultClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// CreateAllocation opens a new allocation of the resource for the user.
//
// Failures, in the order they are checked:
// ErrBlankUserID / ErrBlankResourceID, ErrUserNotFound, ErrUserInactive, ErrResourceNotFound,
// and ErrResourceUnavailable if the resource already has an open allocation.
// Store errors are returned unchanged.
func (m *Manager) CreateAllocation(ctx context.Context, userID, resourceID string) (created allocation.Allocation, err error) {
	ctx, op := m.obs.Begin(ctx, operationCreate, map[string]string{
		spanAttrUserID:     userID,
		spanAttrResourceID: resourceID,
	})
	defer func() { op.Finish(err) }()

	if allocation.IsBlank(userID) {
		return allocation.Allocation{}, allocation.ErrBlankUserID
	}

	if allocation.IsBlank(resourceID) {
		return allocation.Allocation{}, allocation.ErrBlankResourceID
	}

	if _, err = m.guard.ValidateUserEligible(ctx, userID); err != nil {
		return allocation.Allocation{}, err
	}

	unlock := m.guard.Locker().Lock(resourceID)
	defer unlock()

	if _, err = m.guard.ValidateResourceExists(ctx, resourceID); err != nil {
		return allocation.Allocation{}, err
	}

	ctx = allocation.WithStrongConsistency(ctx)

	held, err := m.store.ExistsOpenForResource(ctx, resourceID)
	if err != nil {
		return allocation.Allocation{}, err
	}

	if held {
		return allocation.Allocation{}, fmt.Errorf("%w: resource with id %s", allocation.ErrResourceUnavailable, resourceID)
	}

	toInsert, err := allocation.BuildAllocation(userID, resourceID, m.clock())
	if err != nil {
		return allocation.Allocation{}, err
	}

	return m.store.Insert(ctx, toInsert)
}

// EndAllocation closes an open allocation and returns the closed record as stored.
// It fails with ErrBlankAllocationID, ErrAllocationNotFound, or ErrAllocationAlreadyEnded.
func (m *Manager) EndAllocation(ctx context.Context, id string) (ended allocation.Allocation, err error) {
	ctx, op := m.obs.Begin(ctx, operationEnd, map[string]string{spanAttrAllocationID: id})
	defer func() { op.Finish(err) }()

	current, unlock, err := m.lockAllocation(ctx, id)
	if err != nil {
		return allocation.Allocation{}, err
	}
	defer unlock()

	closed, err := current.End(m.clock())
	if err != nil {
		return allocation.Allocation{}, err
	}

	ctx = allocation.WithStrongConsistency(ctx)

	if err = m.store.UpdateEndTime(ctx, id, *closed.EndTime); err != nil {
		return allocation.Allocation{}, err
	}

	// Stores may keep a coarser time than the clock, so return what was stored.
	return m.store.FindByID(ctx, id)
}

// DeleteAllocation removes an open allocation, e.g., one that was created by mistake.
// Closed allocations are history and cannot be deleted: ErrCannotDeleteClosed.
// It also fails with ErrBlankAllocationID or ErrAllocationNotFound.
func (m *Manager) DeleteAllocation(ctx context.Context, id string) (err error) {
	ctx, op := m.obs.Begin(ctx, operationDelete, map[string]string{spanAttrAllocationID: id})
	defer func() { op.Finish(err) }()

	current, unlock, err := m.lockAllocation(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if !current.IsOpen() {
		return fmt.Errorf("%w: allocation with id %s", allocation.ErrCannotDeleteClosed, id)
	}

	return m.store.DeleteByID(allocation.WithStrongConsistency(ctx), id)
}

// lockAllocation enters the critical section of the allocation's resource and returns the record as it
// is inside the section. Stores without compare-and-swap need the re-read to stay correct.
func (m *Manager) lockAllocation(ctx context.Context, id string) (allocation.Allocation, func(), error) {
	if allocation.IsBlank(id) {
		return allocation.Allocation{}, nil, allocation.ErrBlankAllocationID
	}

	ctx = allocation.WithStrongConsistency(ctx)

	seen, err := m.store.FindByID(ctx, id)
	if err != nil {
		return allocation.Allocation{}, nil, err
	}

	unlock := m.guard.Locker().Lock(seen.ResourceID)

	current, err := m.store.FindByID(ctx, id)
	if err != nil {
		unlock()
		return allocation.Allocation{}, nil, err
	}

	return current, unlock, nil
}
