package allocation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

func Test_BuildAllocation_Success(t *testing.T) {
	start := time.Unix(1000, 0).UTC()

	a, err := allocation.BuildAllocation("user-1", "resource-1", start)

	require.NoError(t, err)
	assert.Empty(t, a.ID, "the store assigns the ID")
	assert.Equal(t, "user-1", a.UserID)
	assert.Equal(t, "resource-1", a.ResourceID)
	assert.Equal(t, start, a.StartTime)
	assert.Nil(t, a.EndTime)
	assert.True(t, a.IsOpen())
}

func Test_BuildAllocation_ErrorCases(t *testing.T) {
	tests := []struct {
		name        string
		userID      string
		resourceID  string
		expectedErr error
	}{
		{name: "empty user id", userID: "", resourceID: "r", expectedErr: allocation.ErrBlankUserID},
		{name: "whitespace user id", userID: "  \t", resourceID: "r", expectedErr: allocation.ErrBlankUserID},
		{name: "empty resource id", userID: "u", resourceID: "", expectedErr: allocation.ErrBlankResourceID},
		{name: "whitespace resource id", userID: "u", resourceID: " ", expectedErr: allocation.ErrBlankResourceID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := allocation.BuildAllocation(tt.userID, tt.resourceID, time.Now())

			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Equal(t, allocation.KindInvalidInput, allocation.KindOf(err))
		})
	}
}

func Test_Allocation_End_ClosesAnOpenAllocation(t *testing.T) {
	start := time.Unix(1000, 0).UTC()
	a, _ := allocation.BuildAllocation("u", "r", start)

	ended, err := a.End(start.Add(time.Hour))

	require.NoError(t, err)
	require.NotNil(t, ended.EndTime)
	assert.Equal(t, start.Add(time.Hour), *ended.EndTime)
	assert.False(t, ended.IsOpen())
	assert.True(t, a.IsOpen(), "End must not mutate the receiver")
}

func Test_Allocation_End_FailsWhenAlreadyEnded(t *testing.T) {
	start := time.Unix(1000, 0).UTC()
	a, _ := allocation.BuildAllocation("u", "r", start)
	ended, _ := a.End(start.Add(time.Minute))

	again, err := ended.End(start.Add(time.Hour))

	assert.ErrorIs(t, err, allocation.ErrAllocationAlreadyEnded)
	assert.Equal(t, allocation.KindInvalidState, allocation.KindOf(err))
	assert.Equal(t, start.Add(time.Minute), *again.EndTime, "end time must never change once set")
}

func Test_Allocation_End_ClampsEndTimeToStartTime(t *testing.T) {
	start := time.Unix(1000, 0).UTC()
	a, _ := allocation.BuildAllocation("u", "r", start)

	ended, err := a.End(start.Add(-time.Second))

	require.NoError(t, err)
	assert.Equal(t, start, *ended.EndTime)
}

func Test_Allocations_OpenAndClosedSubsets(t *testing.T) {
	end := time.Unix(2000, 0).UTC()
	all := allocation.Allocations{
		{ID: "1", EndTime: nil},
		{ID: "2", EndTime: &end},
		{ID: "3", EndTime: nil},
		{ID: "4", EndTime: &end},
	}

	open := all.Open()
	closed := all.Closed()

	assert.Equal(t, []string{"1", "3"}, ids(open))
	assert.Equal(t, []string{"2", "4"}, ids(closed))
	assert.Empty(t, allocation.Allocations{}.Open())
}

func ids(as allocation.Allocations) []string {
	result := make([]string, 0, len(as))
	for _, a := range as {
		result = append(result, a.ID)
	}

	return result
}
