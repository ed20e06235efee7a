package guard_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/guard"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/keylock"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/memengine"
	"github.com/AntonStoeckl/resource-allocations-go/testutil/helper"
)

var errConnectionLost = errors.New("connection lost")

type failingStore struct {
	*memengine.Store
}

func (s failingStore) FindByResourceID(context.Context, string) (allocation.Allocations, error) {
	return nil, errConnectionLost
}

func newGuard(t *testing.T, options ...guard.Option) (*guard.Guard, *memengine.Store, *memengine.Directory) {
	t.Helper()

	store := memengine.NewStore()
	directory := memengine.NewDirectory()
	g, err := guard.New(store, directory, directory, options...)
	require.NoError(t, err)

	return g, store, directory
}

func Test_New_RejectsNilCollaborators(t *testing.T) {
	directory := memengine.NewDirectory()

	_, err := guard.New(nil, directory, directory)

	assert.ErrorIs(t, err, guard.ErrNilCollaborator)
}

func Test_WithLocker_RejectsNil(t *testing.T) {
	store := memengine.NewStore()
	directory := memengine.NewDirectory()

	_, err := guard.New(store, directory, directory, guard.WithLocker(nil))

	assert.ErrorIs(t, err, guard.ErrNilLocker)
}

func Test_WithLocker_IsSharedThroughLocker(t *testing.T) {
	locker := keylock.NewGlobal()

	g, _, _ := newGuard(t, guard.WithLocker(locker))

	assert.Same(t, locker, g.Locker())
}

func Test_ValidateUserEligible(t *testing.T) {
	// setup
	ctx := context.Background()
	g, _, directory := newGuard(t)
	active := helper.GivenActiveUser(t, ctx, directory)
	inactive := helper.GivenInactiveUser(t, ctx, directory)

	tests := []struct {
		name        string
		userID      string
		expectedErr error
	}{
		{name: "active user", userID: active.ID},
		{name: "inactive user", userID: inactive.ID, expectedErr: allocation.ErrUserInactive},
		{name: "unknown user", userID: "unknown", expectedErr: allocation.ErrUserNotFound},
		{name: "blank id", userID: "  ", expectedErr: allocation.ErrBlankUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// act
			user, err := g.ValidateUserEligible(ctx, tt.userID)

			// assert
			if tt.expectedErr == nil {
				require.NoError(t, err)
				assert.Equal(t, active, user)

				return
			}

			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func Test_ValidateResourceExists(t *testing.T) {
	// setup
	ctx := context.Background()
	g, _, directory := newGuard(t)
	book := helper.GivenBook(t, ctx, directory)

	// act
	found, err := g.ValidateResourceExists(ctx, book.ID)
	_, errUnknown := g.ValidateResourceExists(ctx, "unknown")
	_, errBlank := g.ValidateResourceExists(ctx, "")

	// assert
	require.NoError(t, err)
	assert.Equal(t, book, found)
	assert.ErrorIs(t, errUnknown, allocation.ErrResourceNotFound)
	assert.Equal(t, allocation.KindNotFound, allocation.KindOf(errUnknown))
	assert.ErrorIs(t, errBlank, allocation.ErrBlankResourceID)
}

func Test_GuardResourceDeletion_RefusesWhenAnyAllocationReferencesTheResource(t *testing.T) {
	// setup
	ctx := context.Background()
	g, store, directory := newGuard(t)
	openBook := helper.GivenBook(t, ctx, directory)
	closedBook := helper.GivenBook(t, ctx, directory)
	freeBook := helper.GivenBook(t, ctx, directory)

	// arrange
	_, err := store.Insert(ctx, allocation.Allocation{UserID: "u1", ResourceID: openBook.ID, StartTime: time.Now()})
	require.NoError(t, err)
	closed, err := store.Insert(ctx, allocation.Allocation{UserID: "u1", ResourceID: closedBook.ID, StartTime: time.Now()})
	require.NoError(t, err)
	require.NoError(t, store.UpdateEndTime(ctx, closed.ID, time.Now()))

	// act + assert
	err = g.GuardResourceDeletion(ctx, openBook.ID)
	assert.ErrorIs(t, err, allocation.ErrResourceInUse)
	assert.Equal(t, allocation.KindConflict, allocation.KindOf(err))

	assert.ErrorIs(t, g.GuardResourceDeletion(ctx, closedBook.ID), allocation.ErrResourceInUse)
	assert.NoError(t, g.GuardResourceDeletion(ctx, freeBook.ID))
	assert.ErrorIs(t, g.GuardResourceDeletion(ctx, ""), allocation.ErrBlankResourceID)
}

func Test_GuardResourceDeletion_SurfacesStoreErrorsUnchanged(t *testing.T) {
	// setup
	directory := memengine.NewDirectory()
	g, err := guard.New(failingStore{memengine.NewStore()}, directory, directory)
	require.NoError(t, err)

	// act
	err = g.GuardResourceDeletion(context.Background(), "r1")

	// assert
	assert.ErrorIs(t, err, errConnectionLost)
	assert.Equal(t, allocation.KindInternal, allocation.KindOf(err))
}

func Test_DeleteResource(t *testing.T) {
	// setup
	ctx := context.Background()
	g, store, directory := newGuard(t)
	usedBook := helper.GivenBook(t, ctx, directory)
	freeBook := helper.GivenBook(t, ctx, directory)
	_, err := store.Insert(ctx, allocation.Allocation{UserID: "u1", ResourceID: usedBook.ID, StartTime: time.Now()})
	require.NoError(t, err)

	// act + assert
	assert.ErrorIs(t, g.DeleteResource(ctx, usedBook.ID), allocation.ErrResourceInUse)
	_, err = directory.FindResource(ctx, usedBook.ID)
	assert.NoError(t, err, "a referenced resource must survive a refused deletion")

	require.NoError(t, g.DeleteResource(ctx, freeBook.ID))
	_, err = directory.FindResource(ctx, freeBook.ID)
	assert.ErrorIs(t, err, allocation.ErrResourceNotFound)

	assert.ErrorIs(t, g.DeleteResource(ctx, freeBook.ID), allocation.ErrResourceNotFound)
	assert.ErrorIs(t, g.DeleteResource(ctx, " "), allocation.ErrBlankResourceID)
}

func Test_Guard_Observability(t *testing.T) {
	// setup
	ctx := context.Background()
	logHandler := helper.NewLogHandlerSpy(false)
	metrics := helper.NewMetricsCollectorSpy()
	tracing := helper.NewTracingCollectorSpy()
	g, _, directory := newGuard(t,
		guard.WithLogger(slog.New(logHandler)),
		guard.WithMetrics(metrics),
		guard.WithTracing(tracing),
	)
	inactive := helper.GivenInactiveUser(t, ctx, directory)

	// act
	_, err := g.ValidateUserEligible(ctx, inactive.ID)

	// assert
	require.ErrorIs(t, err, allocation.ErrUserInactive)

	assert.True(t, metrics.HasCounterRecordForMetric(allocation.MetricOperationsTotal).
		WithOperation("validate_user_eligible").
		WithStatus(allocation.StatusRejected).
		Assert())
	assert.True(t, metrics.HasDurationRecordForMetric(allocation.MetricOperationDuration).
		WithOperation("validate_user_eligible").
		Assert())

	span, found := tracing.FindSpan("validate_user_eligible")
	require.True(t, found)
	assert.True(t, span.Finished)
	assert.Equal(t, allocation.StatusRejected, span.Status)
	assert.Equal(t, inactive.ID, span.StartAttributes["user_id"])
	assert.Equal(t, "invalid_state", span.EndAttributes["error_kind"])

	assert.True(t, logHandler.HasInfoLogWithMessage("allocation operation rejected").
		WithAttr("operation", "validate_user_eligible").
		WithDurationMS().
		Assert())
}
