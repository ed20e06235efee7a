package memengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/memengine"
)

func Test_Store_InsertAssignsIDAndFindByIDReturnsIt(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memengine.NewStore()
	start := time.Unix(1000, 0).UTC()

	// act
	inserted, err := store.Insert(ctx, allocation.Allocation{UserID: "u1", ResourceID: "r1", StartTime: start})

	// assert
	require.NoError(t, err)
	assert.NotEmpty(t, inserted.ID)

	found, err := store.FindByID(ctx, inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, inserted, found)
}

func Test_Store_FindByID_UnknownIDIsNotFound(t *testing.T) {
	_, err := memengine.NewStore().FindByID(context.Background(), "nope")

	assert.ErrorIs(t, err, allocation.ErrAllocationNotFound)
}

func Test_Store_ReturnedValuesAreCopies(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memengine.NewStore()
	inserted, _ := store.Insert(ctx, allocation.Allocation{UserID: "u1", ResourceID: "r1", StartTime: time.Unix(1, 0)})
	require.NoError(t, store.UpdateEndTime(ctx, inserted.ID, time.Unix(2, 0)))

	// act
	found, _ := store.FindByID(ctx, inserted.ID)
	*found.EndTime = time.Unix(99, 0)

	// assert
	again, _ := store.FindByID(ctx, inserted.ID)
	assert.Equal(t, time.Unix(2, 0), *again.EndTime)
}

func Test_Store_QueriesAndOpenCheck(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memengine.NewStore()
	a1, _ := store.Insert(ctx, allocation.Allocation{UserID: "u1", ResourceID: "r1", StartTime: time.Unix(1, 0)})
	a2, _ := store.Insert(ctx, allocation.Allocation{UserID: "u2", ResourceID: "r2", StartTime: time.Unix(2, 0)})
	a3, _ := store.Insert(ctx, allocation.Allocation{UserID: "u1", ResourceID: "r2", StartTime: time.Unix(3, 0)})
	require.NoError(t, store.UpdateEndTime(ctx, a2.ID, time.Unix(5, 0)))

	// act
	all, _ := store.FindAll(ctx)
	byUser, _ := store.FindByUserID(ctx, "u1")
	byResource, _ := store.FindByResourceID(ctx, "r2")
	openR1, _ := store.ExistsOpenForResource(ctx, "r1")
	openR3, _ := store.ExistsOpenForResource(ctx, "r3")

	// assert
	assert.Len(t, all, 3)
	assert.Equal(t, []string{a1.ID, a3.ID}, []string{byUser[0].ID, byUser[1].ID})
	assert.Equal(t, []string{a2.ID, a3.ID}, []string{byResource[0].ID, byResource[1].ID})
	assert.True(t, openR1)
	assert.False(t, openR3)
}

func Test_Store_DeleteByID(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memengine.NewStore()
	a1, _ := store.Insert(ctx, allocation.Allocation{UserID: "u1", ResourceID: "r1", StartTime: time.Unix(1, 0)})
	a2, _ := store.Insert(ctx, allocation.Allocation{UserID: "u1", ResourceID: "r2", StartTime: time.Unix(2, 0)})

	// act
	err := store.DeleteByID(ctx, a1.ID)

	// assert
	require.NoError(t, err)
	_, err = store.FindByID(ctx, a1.ID)
	assert.ErrorIs(t, err, allocation.ErrAllocationNotFound)
	found, err := store.FindByID(ctx, a2.ID)
	require.NoError(t, err)
	assert.Equal(t, a2, found)
	assert.ErrorIs(t, store.DeleteByID(ctx, a1.ID), allocation.ErrAllocationNotFound)
	assert.ErrorIs(t, store.UpdateEndTime(ctx, a1.ID, time.Now()), allocation.ErrAllocationNotFound)
}

func Test_Store_UpdateEndTime_NeverOverwrites(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memengine.NewStore()
	a, _ := store.Insert(ctx, allocation.Allocation{UserID: "u1", ResourceID: "r1", StartTime: time.Unix(1, 0)})
	require.NoError(t, store.UpdateEndTime(ctx, a.ID, time.Unix(2, 0)))

	// act
	err := store.UpdateEndTime(ctx, a.ID, time.Unix(3, 0))

	// assert
	assert.ErrorIs(t, err, allocation.ErrAllocationAlreadyEnded)
	found, _ := store.FindByID(ctx, a.ID)
	assert.Equal(t, time.Unix(2, 0), *found.EndTime)
}

func Test_Directory(t *testing.T) {
	// setup
	ctx := context.Background()
	directory := memengine.NewDirectory()
	require.NoError(t, directory.SaveUser(ctx, allocation.User{ID: "u1", Login: "ada", Active: true}))
	require.NoError(t, directory.SaveResource(ctx, allocation.Resource{ID: "r1", Kind: allocation.ResourceKindBook, Name: "SICP"}))

	// act + assert
	u, err := directory.FindUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.Active)

	require.NoError(t, directory.SetUserActive(ctx, "u1", false))
	u, _ = directory.FindUser(ctx, "u1")
	assert.False(t, u.Active)

	_, err = directory.FindUser(ctx, "u2")
	assert.ErrorIs(t, err, allocation.ErrUserNotFound)
	assert.ErrorIs(t, directory.SetUserActive(ctx, "u2", true), allocation.ErrUserNotFound)

	r, err := directory.FindResource(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "SICP", r.Name)

	require.NoError(t, directory.DeleteResource(ctx, "r1"))
	_, err = directory.FindResource(ctx, "r1")
	assert.ErrorIs(t, err, allocation.ErrResourceNotFound)
	assert.ErrorIs(t, directory.DeleteResource(ctx, "r1"), allocation.ErrResourceNotFound)
}
