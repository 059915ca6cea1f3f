package envutil_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/amp-labs/amp-lifecycle/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRequired = errors.New("required") //nolint:err113

//nolint:tparallel // Cannot use t.Parallel() with subtests that call t.Setenv()
func TestString(t *testing.T) {
	t.Run("present value", func(t *testing.T) {
		t.Setenv("TEST_LIFECYCLE_STRING", "hello")

		reader := envutil.String("TEST_LIFECYCLE_STRING")
		value, err := reader.Value()
		require.NoError(t, err)
		assert.Equal(t, "hello", value)
		assert.True(t, reader.HasValue())
		assert.Equal(t, "TEST_LIFECYCLE_STRING=hello", reader.String())
	})

	t.Run("missing value", func(t *testing.T) {
		t.Parallel()

		reader := envutil.String("TEST_LIFECYCLE_STRING_MISSING")
		_, err := reader.Value()
		require.ErrorIs(t, err, envutil.ErrEnvVarMissing)
		assert.False(t, reader.HasValue())
	})

	t.Run("with default", func(t *testing.T) {
		t.Parallel()

		value, err := envutil.String("TEST_LIFECYCLE_STRING_MISSING", envutil.Default("default")).Value()
		require.NoError(t, err)
		assert.Equal(t, "default", value)
	})

	t.Run("if missing", func(t *testing.T) {
		t.Parallel()

		reader := envutil.String("TEST_LIFECYCLE_STRING_MISSING", envutil.IfMissing[string](errRequired))
		assert.True(t, reader.HasError())
		require.ErrorIs(t, reader.Error(), errRequired)
	})
}

func TestBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{"true lowercase", "true", true},
		{"true uppercase", "TRUE", true},
		{"one", "1", true},
		{"false lowercase", "false", false},
		{"zero", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_LIFECYCLE_BOOL", tt.value)

			value, err := envutil.Bool("TEST_LIFECYCLE_BOOL").Value()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		t.Setenv("TEST_LIFECYCLE_BOOL", "maybe")

		reader := envutil.Bool("TEST_LIFECYCLE_BOOL")
		_, err := reader.Value()
		require.ErrorIs(t, err, envutil.ErrBadEnvVar)
		assert.True(t, reader.ValueOrElse(true))
	})
}

func TestInt(t *testing.T) {
	t.Setenv("TEST_LIFECYCLE_INT", "42")

	value, err := envutil.Int("TEST_LIFECYCLE_INT", envutil.Validate(envutil.Positive[int])).Value()
	require.NoError(t, err)
	assert.Equal(t, 42, value)

	t.Setenv("TEST_LIFECYCLE_INT", "-3")

	_, err = envutil.Int("TEST_LIFECYCLE_INT", envutil.Validate(envutil.Positive[int])).Value()
	require.ErrorIs(t, err, envutil.ErrNotPositive)
}

func TestDuration(t *testing.T) {
	t.Setenv("TEST_LIFECYCLE_DURATION", "150ms")

	value := envutil.Duration("TEST_LIFECYCLE_DURATION", envutil.Default(time.Second)).ValueOrPanic()
	assert.Equal(t, 150*time.Millisecond, value)

	value = envutil.Duration("TEST_LIFECYCLE_DURATION_MISSING", envutil.Default(time.Second)).ValueOrPanic()
	assert.Equal(t, time.Second, value)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		value    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("TEST_LIFECYCLE_LEVEL", tt.value)

			value, err := envutil.SlogLevel("TEST_LIFECYCLE_LEVEL").Value()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}

	t.Run("unknown level", func(t *testing.T) {
		t.Setenv("TEST_LIFECYCLE_LEVEL", "verbose")

		_, err := envutil.SlogLevel("TEST_LIFECYCLE_LEVEL").Value()
		require.ErrorIs(t, err, envutil.ErrInvalidLogLevel)
	})
}

func TestMap(t *testing.T) {
	t.Parallel()

	rdr := envutil.NewReader("KEY", true, nil, "7")
	mapped := envutil.Map(rdr, func(s string) (int, error) { return len(s) + 1, nil })

	value, err := mapped.Value()
	require.NoError(t, err)
	assert.Equal(t, 2, value)
	assert.Equal(t, "KEY", mapped.Key())

	missing := envutil.Map(envutil.NewReader("KEY", false, nil, ""), func(s string) (int, error) {
		t.Fatal("mapper must not run for missing values")

		return 0, nil
	})
	assert.False(t, missing.HasValue())
}
