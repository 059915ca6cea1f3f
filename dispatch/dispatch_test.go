package dispatch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestInline(t *testing.T) {
	t.Parallel()

	ran := false

	Inline{}.Execute(func() {
		ran = true
	})

	assert.True(t, ran)
}

func TestSerialPreservesOrder(t *testing.T) {
	t.Parallel()

	serial := NewSerial("test")
	defer serial.Stop()

	var (
		mu    sync.Mutex
		order []int
	)

	for i := range 100 {
		serial.Execute(func() {
			mu.Lock()
			defer mu.Unlock()

			order = append(order, i)
		})
	}

	serial.Flush()

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, order, 100)

	for i, v := range order {
		assert.Equal(t, i, v)
	}

	assert.Equal(t, int64(100), serial.Submitted())
	assert.Equal(t, int64(100), serial.Executed())
	assert.Zero(t, serial.Fallbacks())
}

func TestSerialNeverRunsInlineWhileBusy(t *testing.T) {
	t.Parallel()

	serial := NewSerial("busy")
	defer serial.Stop()

	const burst = 5000

	var (
		running  atomic.Int32
		overlaps atomic.Int32
		mu       sync.Mutex
		order    []int
	)

	release := make(chan struct{})

	serial.Execute(func() {
		<-release
	})

	for i := range burst {
		serial.Execute(func() {
			if running.Inc() > 1 {
				overlaps.Inc()
			}
			defer running.Dec()

			mu.Lock()
			defer mu.Unlock()

			order = append(order, i)
		})
	}

	// Nothing may run while the worker is blocked.
	mu.Lock()
	assert.Empty(t, order)
	mu.Unlock()

	close(release)
	serial.Flush()

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, order, burst)

	for i, v := range order {
		require.Equal(t, i, v)
	}

	assert.Zero(t, overlaps.Load())
	assert.Zero(t, serial.Fallbacks())
}

func TestSerialNestedExecute(t *testing.T) {
	t.Parallel()

	serial := NewSerial("nested")
	defer serial.Stop()

	var (
		mu    sync.Mutex
		order []string
	)

	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()

		order = append(order, s)
	}

	done := make(chan struct{})

	serial.Execute(func() {
		record("outer")

		serial.Execute(func() {
			record("inner")
			close(done)
		})

		record("outer done")
	})

	<-done

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []string{"outer", "outer done", "inner"}, order)
}

func TestSerialRunsInlineWhenStopped(t *testing.T) {
	t.Parallel()

	serial := NewSerial("stopped")
	serial.Stop()

	assert.True(t, serial.Stopped())

	ran := false

	serial.Execute(func() {
		ran = true
	})

	assert.True(t, ran)
	assert.Equal(t, int64(1), serial.Fallbacks())
	assert.Equal(t, int64(1), serial.Executed())
}

func TestDefault(t *testing.T) {
	t.Parallel()

	first := Default()
	second := Default()

	assert.Same(t, first, second)

	done := make(chan struct{})

	first.Execute(func() {
		close(done)
	})

	<-done
}
