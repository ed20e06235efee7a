package allocation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

func Test_GetConsistencyLevel_DefaultsToStrong(t *testing.T) {
	assert.Equal(t, allocation.StrongConsistency, allocation.GetConsistencyLevel(context.Background()))
}

func Test_GetConsistencyLevel_ReturnsWhatWasSet(t *testing.T) {
	ctx := allocation.WithEventualConsistency(context.Background())
	assert.Equal(t, allocation.EventualConsistency, allocation.GetConsistencyLevel(ctx))

	ctx = allocation.WithStrongConsistency(ctx)
	assert.Equal(t, allocation.StrongConsistency, allocation.GetConsistencyLevel(ctx))
}

func Test_ConsistencyLevel_String(t *testing.T) {
	assert.Equal(t, "strong", allocation.StrongConsistency.String())
	assert.Equal(t, "eventual", allocation.EventualConsistency.String())
	assert.Equal(t, "unknown", allocation.ConsistencyLevel(42).String())
}
