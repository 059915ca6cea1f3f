// Package dispatch provides the executors machines use to run delegate calls
// and completions off the caller's goroutine.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/amp-lifecycle/lazy"
	"github.com/amp-labs/amp-lifecycle/shutdown"
	"go.uber.org/atomic"
)

// Inline runs every function on the calling goroutine.
type Inline struct{}

func (Inline) Execute(f func()) {
	f()
}

// Serial runs functions one at a time, in submission order, on a single
// background worker. Its queue is unbounded.
type Serial struct {
	name string
	pool pond.Pool

	submitted atomic.Int64
	executed  atomic.Int64
	fallbacks atomic.Int64
}

// NewSerial creates a serial executor. The caller must call Stop.
func NewSerial(name string) *Serial {
	return &Serial{
		name: name,
		pool: pond.NewPool(1),
	}
}

// Execute queues f. Once the executor is stopped, f runs on the calling
// goroutine instead so that it is never lost; ordering is only guaranteed
// for functions queued before Stop.
func (s *Serial) Execute(f func()) {
	s.submitted.Inc()

	err := s.pool.Go(func() {
		defer s.executed.Inc()

		f()
	})
	if err == nil {
		return
	}

	s.fallbacks.Inc()

	slog.Log(context.Background(), slog.LevelDebug, "Dispatch queue stopped, running inline",
		"executor", s.name, "error", err)

	defer s.executed.Inc()

	f()
}

// Flush blocks until every function queued before the call has run.
func (s *Serial) Flush() {
	task := s.pool.Submit(func() {})

	_ = task.Wait()
}

// Stop waits for queued functions and stops the worker. Later calls to
// Execute run inline.
func (s *Serial) Stop() {
	s.pool.StopAndWait()
}

// Stopped reports whether Stop has been called.
func (s *Serial) Stopped() bool {
	return s.pool.Stopped()
}

// Submitted returns the number of functions passed to Execute.
func (s *Serial) Submitted() int64 {
	return s.submitted.Load()
}

// Executed returns the number of functions that have finished running.
func (s *Serial) Executed() int64 {
	return s.executed.Load()
}

// Fallbacks returns the number of functions that ran inline.
func (s *Serial) Fallbacks() int64 {
	return s.fallbacks.Load()
}

// defaultSerial is shared by machines that do not bring their own executor.
// It stops on shutdown.
var defaultSerial = lazy.New[*Serial](func() *Serial { //nolint:gochecknoglobals
	slog.Debug("Initializing default dispatch queue")

	serial := NewSerial("default")

	shutdown.BeforeShutdown(func() {
		slog.Debug("Stopping default dispatch queue")
		serial.Stop()
		slog.Debug("Default dispatch queue stopped")
	})

	return serial
})

// Default returns the process-wide serial executor.
func Default() *Serial {
	return defaultSerial.Get()
}
