package helper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

// DirectoryWriter is implemented by the Directory of every engine.
type DirectoryWriter interface {
	SaveUser(ctx context.Context, u allocation.User) error
	SaveResource(ctx context.Context, r allocation.Resource) error
}

// GivenActiveUser saves an active user with a fresh id.
func GivenActiveUser(t testing.TB, ctx context.Context, d DirectoryWriter) allocation.User {
	t.Helper()

	return givenUser(t, ctx, d, true)
}

// GivenInactiveUser saves an inactive user with a fresh id.
func GivenInactiveUser(t testing.TB, ctx context.Context, d DirectoryWriter) allocation.User {
	t.Helper()

	return givenUser(t, ctx, d, false)
}

// GivenBook saves a book resource with a fresh id.
func GivenBook(t testing.TB, ctx context.Context, d DirectoryWriter) allocation.Resource {
	t.Helper()

	id := uuid.NewString()
	r := allocation.Resource{ID: id, Kind: allocation.ResourceKindBook, Name: "book-" + id[:8]}
	require.NoError(t, d.SaveResource(ctx, r), "saving a resource in test setup")

	return r
}

func givenUser(t testing.TB, ctx context.Context, d DirectoryWriter, active bool) allocation.User {
	t.Helper()

	id := uuid.NewString()
	u := allocation.User{ID: id, Login: "user-" + id[:8], Active: active}
	require.NoError(t, d.SaveUser(ctx, u), "saving a user in test setup")

	return u
}
