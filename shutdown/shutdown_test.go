package shutdown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	mut.Lock()
	defer mut.Unlock()

	hooks = nil
	channel = nil
}

func TestBeforeShutdown(t *testing.T) { //nolint:paralleltest
	reset()

	var (
		order []string
		lock  sync.Mutex
	)

	record := func(name string) func() {
		return func() {
			lock.Lock()
			defer lock.Unlock()

			order = append(order, name)
		}
	}

	BeforeShutdown(record("telemetry"))
	BeforeShutdown(record("dispatch"))

	mut.Lock()
	assert.Len(t, hooks, 2)
	mut.Unlock()

	cleanup()

	assert.Equal(t, []string{"dispatch", "telemetry"}, order)

	mut.Lock()
	assert.Nil(t, hooks)
	mut.Unlock()
}

func TestShutdownWithoutHandler(t *testing.T) { //nolint:paralleltest
	reset()

	assert.NotPanics(t, Shutdown)
}

func TestSetupHandler(t *testing.T) { //nolint:paralleltest
	reset()

	ctx := SetupHandler()

	called := make(chan struct{})

	BeforeShutdown(func() {
		close(called)
	})

	Shutdown()

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "shutdown hook was not called")
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		require.FailNow(t, "context was not cancelled")
	}
}
