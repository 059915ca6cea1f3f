package lazy

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLazy(t *testing.T) {
	t.Parallel()

	count := 0
	fail := true

	val := New[string](func() string {
		if fail {
			panic("not ready")
		}

		count++

		return "foo"
	})

	assert.False(t, val.Initialized())

	// Panics don't memoize.
	assert.Panics(t, func() {
		val.Get()
	})
	assert.False(t, val.Initialized())

	fail = false

	assert.Equal(t, "foo", val.Get())
	assert.Equal(t, "foo", val.Get())
	assert.Equal(t, 1, count)
	assert.True(t, val.Initialized())
}

func TestLazySet(t *testing.T) {
	t.Parallel()

	val := New[int](func() int {
		panic("constructor must not run after Set")
	})

	val.Set(7)

	assert.True(t, val.Initialized())
	assert.Equal(t, 7, val.Get())
}

func TestLazyConcurrent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	val := New[int](func() int {
		calls.Add(1)

		return 42
	})

	var wg sync.WaitGroup

	for range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.Equal(t, 42, val.Get())
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}
