package statemachine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/amp-lifecycle/logger"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hookRecorder is a Logger that records which hooks fired.
type hookRecorder struct {
	mu    sync.Mutex
	hooks []string
}

func (r *hookRecorder) add(hook string, info TransitionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks = append(r.hooks, hook+":"+info.Transition)
}

func (r *hookRecorder) TransitionRequested(_ context.Context, info TransitionInfo) {
	r.add("requested", info)
}

func (r *hookRecorder) TransitionQueued(_ context.Context, info TransitionInfo) {
	r.add("queued", info)
}

func (r *hookRecorder) TransitionRejected(_ context.Context, info TransitionInfo, _ error) {
	r.add("rejected", info)
}

func (r *hookRecorder) TransitionStarted(_ context.Context, info TransitionInfo) {
	r.add("started", info)
}

func (r *hookRecorder) TransitionCompleted(_ context.Context, info TransitionInfo, _ time.Duration, _ bool, _ error) {
	r.add("completed", info)
}

func (r *hookRecorder) CallbackPanicked(_ context.Context, info TransitionInfo, callback string, _ error) {
	r.add("panicked_"+callback, info)
}

func (r *hookRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.hooks...)
}

func TestLoggerHooks(t *testing.T) {
	t.Parallel()

	recorder := &hookRecorder{}

	machine, err := New(testTable(), testClosed, &parkingDelegate{}, WithLogger(recorder))
	require.NoError(t, err)

	machine.RequestTransition(t.Context(), testOpening, nil)
	machine.RequestTransition(t.Context(), testClosing, nil)
	machine.RequestTransition(t.Context(), testClosing, nil)
	require.NoError(t, machine.OnTransitionCompleted(true, nil))

	assert.Equal(t, []string{
		"requested:opening",
		"started:opening",
		"requested:closing",
		"queued:closing",
		"requested:closing",
		"rejected:closing",
		"completed:opening",
		"started:closing",
	}, recorder.recorded())
}

func TestLoggerCallbackPanic(t *testing.T) {
	t.Parallel()

	recorder := &hookRecorder{}

	machine, err := New(testTable(), testClosed, succeedingDelegate(), WithLogger(recorder))
	require.NoError(t, err)

	machine.RequestTransition(t.Context(), testOpening, func(bool, error) {
		panic("completion exploded")
	})

	assert.Contains(t, recorder.recorded(), "panicked_completion:opening")
	assert.Equal(t, testOpened, machine.CurrentState())
	assert.False(t, machine.IsPerforming())
}

func TestSlogLogger(t *testing.T) {
	t.Parallel()

	machine, err := New(testTable(), testClosed, succeedingDelegate(),
		WithName("slogt-door"), WithLogger(NewSlogLogger(slogt.New(t))))
	require.NoError(t, err)

	machine.RequestTransition(t.Context(), testOpening, nil)
	machine.RequestTransition(t.Context(), testOpening, nil)

	assert.Equal(t, testOpened, machine.CurrentState())
}

//nolint:paralleltest // Test replaces the default slog logger
func TestDefaultLoggerUsesContextValues(t *testing.T) {
	var buf bytes.Buffer

	previous := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(previous)
	})

	logger.ConfigureLoggingWithOptions(logger.Options{
		Subsystem: "statemachine-test",
		JSON:      true,
		MinLevel:  slog.LevelDebug,
		Output:    &buf,
	})

	machine, err := New(testTable(), testClosed,
		DelegateFunc(func(_ context.Context, sender *Machine, _ *Request) {
			_ = sender.OnTransitionCompleted(false, errors.New("jammed")) //nolint:err113
		}),
		WithName("logged-door"))
	require.NoError(t, err)

	ctx := logger.With(t.Context(), "door_id", "front")
	machine.RequestTransition(ctx, testOpening, nil)

	var messages []string

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))

		assert.Equal(t, "front", rec["door_id"])
		assert.Equal(t, "logged-door", rec["machine"])
		assert.Equal(t, "opening", rec["transition"])

		messages = append(messages, rec["msg"].(string)) //nolint:forcetypeassert
	}

	assert.Equal(t, []string{"Transition requested", "Transition started", "Transition failed"}, messages)
}
