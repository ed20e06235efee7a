package helper

import (
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// GivenUniqueTablePrefix returns a prefix that keeps parallel test runs on one database apart.
func GivenUniqueTablePrefix() string {
	return "t" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12] + "_"
}

// EnvOrSkip returns the value of the environment variable or skips the test if it is not set.
func EnvOrSkip(t testing.TB, name string) string {
	t.Helper()

	value := os.Getenv(name)
	if value == "" {
		t.Skipf("%s is not set", name)
	}

	return value
}
