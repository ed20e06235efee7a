// Package storetest is the behavior every storage engine shares: the allocation.Store contract, the directory
// contract, and the exclusivity guarantee of the lifecycle manager on top of the engine.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/guard"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/lifecycle"
	"github.com/AntonStoeckl/resource-allocations-go/testutil/helper"
)

// Directory is what the suites need from an engine's directory.
type Directory interface {
	allocation.UserDirectory
	allocation.ResourceCatalog
	helper.DirectoryWriter
	SetUserActive(ctx context.Context, id string, active bool) error
}

// Engine is one freshly created, empty engine.
type Engine struct {
	Store     allocation.Store
	Directory Directory

	// MalformedID is an allocation id the engine cannot even parse.
	MalformedID string

	// EnforcesOneOpenPerResource is true if the engine rejects a second open allocation on its own.
	EnforcesOneOpenPerResource bool
}

// Factory creates an Engine for one test. It registers its own cleanup.
type Factory func(t *testing.T) Engine

// Run runs all suites against the engine.
func Run(t *testing.T, newEngine Factory) {
	t.Run("store", func(t *testing.T) { RunStoreSuite(t, newEngine) })
	t.Run("directory", func(t *testing.T) { RunDirectorySuite(t, newEngine) })
	t.Run("exclusivity", func(t *testing.T) { RunExclusivitySuite(t, newEngine) })
}

// at returns a timestamp every engine stores without loss.
func at(offset time.Duration) time.Time {
	return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC).Add(offset)
}

// RunStoreSuite checks the allocation.Store contract.
func RunStoreSuite(t *testing.T, newEngine Factory) {
	t.Run("Insert assigns an id and FindByID returns the record", func(t *testing.T) {
		// setup
		ctx := context.Background()
		e := newEngine(t)

		// act
		inserted, err := e.Store.Insert(ctx, allocation.Allocation{UserID: "u1", ResourceID: "r1", StartTime: at(0)})

		// assert
		require.NoError(t, err)
		assert.NotEmpty(t, inserted.ID)

		found, err := e.Store.FindByID(ctx, inserted.ID)
		require.NoError(t, err)
		assert.Equal(t, inserted.ID, found.ID)
		assert.Equal(t, "u1", found.UserID)
		assert.Equal(t, "r1", found.ResourceID)
		assert.True(t, at(0).Equal(found.StartTime))
		assert.Equal(t, time.UTC, found.StartTime.Location())
		assert.Nil(t, found.EndTime)
	})

	t.Run("unknown and malformed ids are not found", func(t *testing.T) {
		// setup
		ctx := context.Background()
		e := newEngine(t)
		inserted, err := e.Store.Insert(ctx, allocation.Allocation{UserID: "u1", ResourceID: "r1", StartTime: at(0)})
		require.NoError(t, err)
		require.NoError(t, e.Store.DeleteByID(ctx, inserted.ID))

		for _, id := range []string{inserted.ID, e.MalformedID} {
			// act
			_, errFind := e.Store.FindByID(ctx, id)
			errUpdate := e.Store.UpdateEndTime(ctx, id, at(time.Hour))
			errDelete := e.Store.DeleteByID(ctx, id)

			// assert
			assert.ErrorIs(t, errFind, allocation.ErrAllocationNotFound, id)
			assert.ErrorIs(t, errUpdate, allocation.ErrAllocationNotFound, id)
			assert.ErrorIs(t, errDelete, allocation.ErrAllocationNotFound, id)
		}
	})

	t.Run("listings filter and keep insertion order", func(t *testing.T) {
		// setup
		ctx := context.Background()
		e := newEngine(t)
		a1 := mustInsert(t, e.Store, "u1", "r1", at(0))
		a2 := mustInsert(t, e.Store, "u2", "r2", at(time.Minute))
		a3 := mustInsert(t, e.Store, "u1", "r3", at(2*time.Minute))

		// act
		all, errAll := e.Store.FindAll(ctx)
		byUser, errUser := e.Store.FindByUserID(ctx, "u1")
		byResource, errResource := e.Store.FindByResourceID(ctx, "r2")
		none, errNone := e.Store.FindByUserID(ctx, "nobody")

		// assert
		require.NoError(t, errAll)
		require.NoError(t, errUser)
		require.NoError(t, errResource)
		require.NoError(t, errNone)
		assert.Equal(t, []string{a1.ID, a2.ID, a3.ID}, ids(all))
		assert.Equal(t, []string{a1.ID, a3.ID}, ids(byUser))
		assert.Equal(t, []string{a2.ID}, ids(byResource))
		assert.Empty(t, none)
	})

	t.Run("listings ignore start time and keep insertion order", func(t *testing.T) {
		// setup
		ctx := context.Background()
		e := newEngine(t)
		late := mustInsert(t, e.Store, "u1", "r1", at(2*time.Minute))
		middle := mustInsert(t, e.Store, "u1", "r2", at(time.Minute))
		early := mustInsert(t, e.Store, "u1", "r3", at(0))

		// act
		all, errAll := e.Store.FindAll(ctx)
		byUser, errUser := e.Store.FindByUserID(ctx, "u1")

		// assert
		require.NoError(t, errAll)
		require.NoError(t, errUser)
		assert.Equal(t, []string{late.ID, middle.ID, early.ID}, ids(all))
		assert.Equal(t, []string{late.ID, middle.ID, early.ID}, ids(byUser))
	})

	t.Run("ExistsOpenForResource only counts open allocations", func(t *testing.T) {
		// setup
		ctx := context.Background()
		e := newEngine(t)
		open := mustInsert(t, e.Store, "u1", "r1", at(0))
		closed := mustInsert(t, e.Store, "u1", "r2", at(0))
		require.NoError(t, e.Store.UpdateEndTime(ctx, closed.ID, at(time.Hour)))

		// act
		heldR1, err1 := e.Store.ExistsOpenForResource(ctx, open.ResourceID)
		heldR2, err2 := e.Store.ExistsOpenForResource(ctx, closed.ResourceID)
		heldR3, err3 := e.Store.ExistsOpenForResource(ctx, "r3")

		// assert
		require.NoError(t, err1)
		require.NoError(t, err2)
		require.NoError(t, err3)
		assert.True(t, heldR1)
		assert.False(t, heldR2)
		assert.False(t, heldR3)
	})

	t.Run("UpdateEndTime sets the end time once", func(t *testing.T) {
		// setup
		ctx := context.Background()
		e := newEngine(t)
		a := mustInsert(t, e.Store, "u1", "r1", at(0))

		// act
		errFirst := e.Store.UpdateEndTime(ctx, a.ID, at(time.Hour))
		errSecond := e.Store.UpdateEndTime(ctx, a.ID, at(2*time.Hour))

		// assert
		require.NoError(t, errFirst)
		assert.ErrorIs(t, errSecond, allocation.ErrAllocationAlreadyEnded)

		found, err := e.Store.FindByID(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, found.EndTime)
		assert.True(t, at(time.Hour).Equal(*found.EndTime))
	})

	t.Run("DeleteByID removes only the given record", func(t *testing.T) {
		// setup
		ctx := context.Background()
		e := newEngine(t)
		a1 := mustInsert(t, e.Store, "u1", "r1", at(0))
		a2 := mustInsert(t, e.Store, "u1", "r2", at(0))

		// act
		err := e.Store.DeleteByID(ctx, a1.ID)

		// assert
		require.NoError(t, err)
		all, err := e.Store.FindAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{a2.ID}, ids(all))
	})

	t.Run("a second open allocation for a resource is rejected by the engine", func(t *testing.T) {
		// setup
		ctx := context.Background()
		e := newEngine(t)
		if !e.EnforcesOneOpenPerResource {
			t.Skip("engine relies on the lifecycle manager for exclusivity")
		}

		first := mustInsert(t, e.Store, "u1", "r1", at(0))

		// act
		_, err := e.Store.Insert(ctx, allocation.Allocation{UserID: "u2", ResourceID: "r1", StartTime: at(time.Minute)})

		// assert
		assert.ErrorIs(t, err, allocation.ErrResourceUnavailable)
		assert.Equal(t, allocation.KindConflict, allocation.KindOf(err))

		require.NoError(t, e.Store.UpdateEndTime(ctx, first.ID, at(time.Hour)))
		_, err = e.Store.Insert(ctx, allocation.Allocation{UserID: "u2", ResourceID: "r1", StartTime: at(2 * time.Hour)})
		assert.NoError(t, err, "closed allocations do not block")
	})
}

// RunDirectorySuite checks the directory contract.
func RunDirectorySuite(t *testing.T, newEngine Factory) {
	t.Run("users", func(t *testing.T) {
		// setup
		ctx := context.Background()
		e := newEngine(t)
		u := helper.GivenActiveUser(t, ctx, e.Directory)

		// act + assert
		found, err := e.Directory.FindUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u, found)

		require.NoError(t, e.Directory.SetUserActive(ctx, u.ID, false))
		found, err = e.Directory.FindUser(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, found.Active)

		u.Login = "renamed"
		require.NoError(t, e.Directory.SaveUser(ctx, u))
		found, err = e.Directory.FindUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u, found)

		_, err = e.Directory.FindUser(ctx, "unknown")
		assert.ErrorIs(t, err, allocation.ErrUserNotFound)
		assert.ErrorIs(t, e.Directory.SetUserActive(ctx, "unknown", true), allocation.ErrUserNotFound)
	})

	t.Run("resources", func(t *testing.T) {
		// setup
		ctx := context.Background()
		e := newEngine(t)
		r := helper.GivenBook(t, ctx, e.Directory)

		// act + assert
		found, err := e.Directory.FindResource(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r, found)

		require.NoError(t, e.Directory.DeleteResource(ctx, r.ID))
		_, err = e.Directory.FindResource(ctx, r.ID)
		assert.ErrorIs(t, err, allocation.ErrResourceNotFound)
		assert.ErrorIs(t, e.Directory.DeleteResource(ctx, r.ID), allocation.ErrResourceNotFound)
	})
}

// RunExclusivitySuite runs the lifecycle manager on top of the engine.
func RunExclusivitySuite(t *testing.T, newEngine Factory) {
	t.Run("concurrent creations for one resource yield exactly one allocation", func(t *testing.T) {
		// setup
		const n = 16
		ctx := context.Background()
		e := newEngine(t)
		manager := newManager(t, e)
		r := helper.GivenBook(t, ctx, e.Directory)

		users := make([]allocation.User, n)
		for i := range users {
			users[i] = helper.GivenActiveUser(t, ctx, e.Directory)
		}

		// act
		errs := make([]error, n)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, errs[i] = manager.CreateAllocation(ctx, users[i].ID, r.ID)
			}(i)
		}
		close(start)
		wg.Wait()

		// assert
		successes, conflicts := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				successes++
			case allocation.KindOf(err) == allocation.KindConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}

		assert.Equal(t, 1, successes)
		assert.Equal(t, n-1, conflicts)

		open, err := manager.CurrentForResource(allocation.WithStrongConsistency(ctx), r.ID)
		require.NoError(t, err)
		assert.Len(t, open, 1)
	})

	t.Run("scenario: create, conflict, end, create", func(t *testing.T) {
		// setup
		ctx := context.Background()
		e := newEngine(t)
		manager := newManager(t, e)
		u := helper.GivenActiveUser(t, ctx, e.Directory)
		u2 := helper.GivenActiveUser(t, ctx, e.Directory)
		r := helper.GivenBook(t, ctx, e.Directory)

		// act + assert
		first, err := manager.CreateAllocation(ctx, u.ID, r.ID)
		require.NoError(t, err)
		assert.Nil(t, first.EndTime)

		_, err = manager.CreateAllocation(ctx, u2.ID, r.ID)
		assert.ErrorIs(t, err, allocation.ErrResourceUnavailable)

		ended, err := manager.EndAllocation(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, ended.EndTime)

		_, err = manager.EndAllocation(ctx, first.ID)
		assert.ErrorIs(t, err, allocation.ErrAllocationAlreadyEnded)
		assert.ErrorIs(t, manager.DeleteAllocation(ctx, first.ID), allocation.ErrCannotDeleteClosed)

		_, err = manager.CreateAllocation(ctx, u2.ID, r.ID)
		assert.NoError(t, err)
	})
}

func newManager(t *testing.T, e Engine) *lifecycle.Manager {
	t.Helper()

	g, err := guard.New(e.Store, e.Directory, e.Directory)
	require.NoError(t, err)

	manager, err := lifecycle.NewManager(e.Store, g, lifecycle.WithClock(func() time.Time {
		return time.Now().UTC().Truncate(time.Millisecond)
	}))
	require.NoError(t, err)

	return manager
}

func mustInsert(t *testing.T, store allocation.Store, userID, resourceID string, startTime time.Time) allocation.Allocation {
	t.Helper()

	a, err := store.Insert(context.Background(), allocation.Allocation{UserID: userID, ResourceID: resourceID, StartTime: startTime})
	require.NoError(t, err)

	return a
}

func ids(as allocation.Allocations) []string {
	result := make([]string, 0, len(as))
	for _, a := range as {
		result = append(result, a.ID)
	}

	return result
}
