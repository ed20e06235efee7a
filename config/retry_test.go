package config_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/resource-allocations-go/config"
	"github.com/AntonStoeckl/resource-allocations-go/testutil/helper"
)

var errUnreachable = errors.New("connection refused")

func Test_PingWithBackoff_SucceedsAfterFailures(t *testing.T) {
	// setup
	logHandler := helper.NewLogHandlerSpy(false)
	calls := 0
	ping := func(context.Context) error {
		calls++
		if calls < 3 {
			return errUnreachable
		}

		return nil
	}

	// act
	err := config.PingWithBackoff(context.Background(), ping,
		config.WithBaseDelay(time.Millisecond),
		config.WithRetryLogger(slog.New(logHandler)))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, logHandler.HasWarnLogWithMessage("database not reachable yet, retrying").
		WithAttr("error", errUnreachable.Error()).
		Assert())
}

func Test_PingWithBackoff_GivesUpAfterMaxAttempts(t *testing.T) {
	// setup
	calls := 0
	ping := func(context.Context) error {
		calls++
		return errUnreachable
	}

	// act
	err := config.PingWithBackoff(context.Background(), ping,
		config.WithMaxAttempts(4),
		config.WithBaseDelay(0),
		config.WithJitterFactor(0))

	// assert
	assert.ErrorIs(t, err, errUnreachable)
	assert.Equal(t, 4, calls)
}

func Test_PingWithBackoff_StopsWhenContextIsDone(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	ping := func(context.Context) error {
		calls++
		cancel()

		return errUnreachable
	}

	// act
	err := config.PingWithBackoff(ctx, ping, config.WithBaseDelay(time.Hour))

	// assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errUnreachable)
	assert.Equal(t, 1, calls)
}

func Test_PingWithBackoff_RejectsInvalidOptions(t *testing.T) {
	ping := func(context.Context) error { return nil }

	assert.ErrorIs(t, config.PingWithBackoff(context.Background(), ping, config.WithMaxAttempts(0)),
		config.ErrInvalidMaxAttempts)
	assert.ErrorIs(t, config.PingWithBackoff(context.Background(), ping, config.WithBaseDelay(-time.Second)),
		config.ErrNegativeBaseDelay)
	assert.ErrorIs(t, config.PingWithBackoff(context.Background(), ping, config.WithJitterFactor(1.5)),
		config.ErrInvalidJitterFactor)
}
