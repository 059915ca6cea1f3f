package utils //nolint:revive // utils is an appropriate package name for utility functions

import (
	"errors"
	"testing"

	lifecycleErrors "github.com/amp-labs/amp-lifecycle/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPanicRecoveryError(t *testing.T) {
	t.Parallel()

	t.Run("returns nil for nil panic value", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, GetPanicRecoveryError(nil, nil))
	})

	t.Run("wraps error panic value", func(t *testing.T) {
		t.Parallel()

		original := errors.New("boom") //nolint:err113
		err := GetPanicRecoveryError(original, nil)

		require.ErrorIs(t, err, lifecycleErrors.ErrPanicRecovery)
		require.ErrorIs(t, err, original)
	})

	t.Run("formats non-error panic value with stack", func(t *testing.T) {
		t.Parallel()

		err := GetPanicRecoveryError("kaput", []byte("goroutine 1 [running]"))

		require.ErrorIs(t, err, lifecycleErrors.ErrPanicRecovery)
		assert.Contains(t, err.Error(), "kaput")
		assert.Contains(t, err.Error(), "stack trace:")
		assert.Contains(t, err.Error(), "goroutine 1")
	})
}
