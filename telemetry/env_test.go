package telemetry

import (
	"os"
	"testing"
)

// unsetForTest removes an environment variable for the duration of a test.
func unsetForTest(t *testing.T, key string) {
	t.Helper()

	t.Setenv(key, "")

	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}
