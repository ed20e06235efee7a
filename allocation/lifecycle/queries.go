package lifecycle

import (
	"context"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

// FindByID returns the allocation or fails with ErrBlankAllocationID or ErrAllocationNotFound.
func (m *Manager) FindByID(ctx context.Context, id string) (found allocation.Allocation, err error) {
	ctx, op := m.obs.Begin(ctx, operationFindByID, map[string]string{spanAttrAllocationID: id})
	defer func() { op.Finish(err) }()

	if allocation.IsBlank(id) {
		return allocation.Allocation{}, allocation.ErrBlankAllocationID
	}

	return m.store.FindByID(ctx, id)
}

// FindAll lists every allocation, open and closed.
func (m *Manager) FindAll(ctx context.Context) (all allocation.Allocations, err error) {
	ctx, op := m.obs.Begin(ctx, operationFindAll, nil)
	defer func() { op.Finish(err) }()

	return m.store.FindAll(listingContext(ctx))
}

// CurrentForUser lists the open allocations of the user.
func (m *Manager) CurrentForUser(ctx context.Context, userID string) (allocation.Allocations, error) {
	return m.listForUser(ctx, operationCurrentForUser, userID, allocation.Allocations.Open)
}

// PastForUser lists the closed allocations of the user.
func (m *Manager) PastForUser(ctx context.Context, userID string) (allocation.Allocations, error) {
	return m.listForUser(ctx, operationPastForUser, userID, allocation.Allocations.Closed)
}

// CurrentForResource lists the open allocations of the resource, which is at most one.
func (m *Manager) CurrentForResource(ctx context.Context, resourceID string) (allocation.Allocations, error) {
	return m.listForResource(ctx, operationCurrentForResource, resourceID, allocation.Allocations.Open)
}

// PastForResource lists the closed allocations of the resource.
func (m *Manager) PastForResource(ctx context.Context, resourceID string) (allocation.Allocations, error) {
	return m.listForResource(ctx, operationPastForResource, resourceID, allocation.Allocations.Closed)
}

func (m *Manager) listForUser(
	ctx context.Context,
	operation string,
	userID string,
	subset func(allocation.Allocations) allocation.Allocations,
) (result allocation.Allocations, err error) {
	ctx, op := m.obs.Begin(ctx, operation, map[string]string{spanAttrUserID: userID})
	defer func() { op.Finish(err) }()

	if allocation.IsBlank(userID) {
		return nil, allocation.ErrBlankUserID
	}

	all, err := m.store.FindByUserID(listingContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	return subset(all), nil
}

func (m *Manager) listForResource(
	ctx context.Context,
	operation string,
	resourceID string,
	subset func(allocation.Allocations) allocation.Allocations,
) (result allocation.Allocations, err error) {
	ctx, op := m.obs.Begin(ctx, operation, map[string]string{spanAttrResourceID: resourceID})
	defer func() { op.Finish(err) }()

	if allocation.IsBlank(resourceID) {
		return nil, allocation.ErrBlankResourceID
	}

	all, err := m.store.FindByResourceID(listingContext(ctx), resourceID)
	if err != nil {
		return nil, err
	}

	return subset(all), nil
}

// listingContext allows listings to be served by a replica unless the caller asked otherwise.
func listingContext(ctx context.Context) context.Context {
	if _, explicit := ctx.Value(allocation.ConsistencyLevelKey).(allocation.ConsistencyLevel); explicit {
		return ctx
	}

	return allocation.WithEventualConsistency(ctx)
}
