// Package guard implements the consistency guard of the allocation engine.
//
// The guard validates the users and resources an allocation refers to and refuses to delete resources
// that still have allocation history. It owns the keylock.Locker that the lifecycle manager uses as well,
// so a resource deletion and an allocation creation for the same resource never interleave.
package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/observe"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/keylock"
)

// ErrNilCollaborator is returned by New if the store, the user directory, or the resource catalog is nil.
var ErrNilCollaborator = errors.New("guard collaborators must not be nil")

// ErrNilLocker is returned by WithLocker for a nil Locker.
var ErrNilLocker = errors.New("locker must not be nil")

const (
	operationValidateUserEligible   = "validate_user_eligible"
	operationValidateResourceExists = "validate_resource_exists"
	operationGuardResourceDeletion  = "guard_resource_deletion"
	operationDeleteResource         = "delete_resource"

	spanAttrUserID     = "user_id"
	spanAttrResourceID = "resource_id"
)

// Guard mediates between allocations and the users and resources they reference.
type Guard struct {
	store     allocation.Store
	users     allocation.UserDirectory
	resources allocation.ResourceCatalog
	locker    keylock.Locker
	obs       observe.Instruments
}

// New creates a Guard with a per-resource Locker unless WithLocker says otherwise.
func New(
	store allocation.Store,
	users allocation.UserDirectory,
	resources allocation.ResourceCatalog,
	options ...Option,
) (*Guard, error) {
	if store == nil || users == nil || resources == nil {
		return nil, ErrNilCollaborator
	}

	g := &Guard{
		store:     store,
		users:     users,
		resources: resources,
		locker:    keylock.NewKeyed(),
	}

	for _, option := range options {
		if err := option(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Locker returns the critical sections keyed by resource id.
func (g *Guard) Locker() keylock.Locker {
	return g.locker
}

// ValidateUserEligible resolves the user and checks that it may receive new allocations.
//
// It fails with ErrBlankUserID, ErrUserNotFound, or ErrUserInactive.
// Eligibility is only checked when an allocation is created; deactivating a user later
// leaves the user's open allocations untouched.
func (g *Guard) ValidateUserEligible(ctx context.Context, userID string) (user allocation.User, err error) {
	ctx, op := g.obs.Begin(ctx, operationValidateUserEligible, map[string]string{spanAttrUserID: userID})
	defer func() { op.Finish(err) }()

	if allocation.IsBlank(userID) {
		return allocation.User{}, allocation.ErrBlankUserID
	}

	user, err = g.users.FindUser(ctx, userID)
	if err != nil {
		return allocation.User{}, err
	}

	if !user.Active {
		return allocation.User{}, fmt.Errorf("%w: user with id %s", allocation.ErrUserInactive, userID)
	}

	return user, nil
}

// ValidateResourceExists resolves the resource. It fails with ErrBlankResourceID or ErrResourceNotFound.
func (g *Guard) ValidateResourceExists(ctx context.Context, resourceID string) (resource allocation.Resource, err error) {
	ctx, op := g.obs.Begin(ctx, operationValidateResourceExists, map[string]string{spanAttrResourceID: resourceID})
	defer func() { op.Finish(err) }()

	if allocation.IsBlank(resourceID) {
		return allocation.Resource{}, allocation.ErrBlankResourceID
	}

	return g.resources.FindResource(ctx, resourceID)
}

// GuardResourceDeletion fails with ErrResourceInUse if any allocation, open or closed, references the resource.
func (g *Guard) GuardResourceDeletion(ctx context.Context, resourceID string) (err error) {
	ctx, op := g.obs.Begin(ctx, operationGuardResourceDeletion, map[string]string{spanAttrResourceID: resourceID})
	defer func() { op.Finish(err) }()

	if allocation.IsBlank(resourceID) {
		return allocation.ErrBlankResourceID
	}

	return g.checkUnreferenced(ctx, resourceID)
}

// DeleteResource removes the resource from the catalog if nothing references it.
//
// The check and the deletion run inside the critical section of the resource, so no allocation can be
// created for it in between.
func (g *Guard) DeleteResource(ctx context.Context, resourceID string) (err error) {
	ctx, op := g.obs.Begin(ctx, operationDeleteResource, map[string]string{spanAttrResourceID: resourceID})
	defer func() { op.Finish(err) }()

	if allocation.IsBlank(resourceID) {
		return allocation.ErrBlankResourceID
	}

	unlock := g.locker.Lock(resourceID)
	defer unlock()

	if _, err = g.resources.FindResource(ctx, resourceID); err != nil {
		return err
	}

	if err = g.checkUnreferenced(ctx, resourceID); err != nil {
		return err
	}

	return g.resources.DeleteResource(ctx, resourceID)
}

func (g *Guard) checkUnreferenced(ctx context.Context, resourceID string) error {
	referencing, err := g.store.FindByResourceID(allocation.WithStrongConsistency(ctx), resourceID)
	if err != nil {
		return err
	}

	if len(referencing) > 0 {
		return fmt.Errorf("%w: resource with id %s has %d allocations", allocation.ErrResourceInUse, resourceID, len(referencing))
	}

	return nil
}
