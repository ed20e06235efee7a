// Package allocation provides the core types and abstractions of the resource allocation engine.
//
// An Allocation links one user to one resource for a period of time. While its end time is unset the
// allocation is open and the resource is held; once the end time is set the allocation is closed and
// becomes immutable history.
//
// The package defines:
//   - Allocation, User and Resource, the records the engine works with
//   - Store, the persistence contract every storage engine implements
//   - UserDirectory and ResourceCatalog, the collaborators that own users and resources
//   - the error taxonomy (Kind) shared by all engines and the transport layer
//   - consistency-level context helpers and dependency-free observability interfaces
//
// The exclusivity invariant (at most one open allocation per resource) is enforced by the
// lifecycle package on top of these abstractions, see package lifecycle.
//
// Typical wiring:
//
//	store := memengine.NewStore()
//	directory := memengine.NewDirectory()
//	g, _ := guard.New(store, directory, directory)
//	manager, _ := lifecycle.NewManager(store, g)
//
//	a, err := manager.CreateAllocation(ctx, userID, resourceID)
//	if allocation.KindOf(err) == allocation.KindConflict {
//		// the resource is held by somebody else
//	}
package allocation
