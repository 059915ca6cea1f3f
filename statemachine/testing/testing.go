// Package testing provides a recording delegate and assertions for tests of
// code built on statemachine.Machine.
//
//nolint:varnamelen // Short names idiomatic
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/amp-lifecycle/statemachine"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// EventKind identifies a recorded callback.
type EventKind string

const (
	EventWillPerform EventKind = "will"
	EventPerform     EventKind = "perform"
	EventDidPerform  EventKind = "did"
	EventCompletion  EventKind = "completion"
)

// Event is one callback observed by a RecordingDelegate.
type Event struct {
	Kind       EventKind
	Label      string
	RequestID  string
	Transition statemachine.Transition
	Payload    any
	Succeeded  bool
	Err        error
}

// Outcome decides synchronously how a transition ends. Returning
// park=true leaves the transition in flight until Succeed or Fail is called.
type Outcome func(req *statemachine.Request) (succeeded bool, err error, park bool)

// Park leaves every transition in flight.
func Park(*statemachine.Request) (bool, error, bool) { //nolint:revive
	return false, nil, true
}

// Succeed completes every transition successfully from within PerformTransition.
func Succeed(*statemachine.Request) (bool, error, bool) { //nolint:revive
	return true, nil, false
}

// FailWith fails every transition with err from within PerformTransition.
func FailWith(err error) Outcome {
	return func(*statemachine.Request) (bool, error, bool) {
		return false, err, false
	}
}

// RecordingDelegate implements the delegate hooks and records every call in
// one journal, together with completions created through Completion.
type RecordingDelegate struct {
	mu      sync.Mutex
	events  []Event
	outcome Outcome
	parked  []parked
	changed chan struct{}

	wills    atomic.Int64
	performs atomic.Int64
	dids     atomic.Int64
}

type parked struct {
	sender *statemachine.Machine
	req    *statemachine.Request
}

// NewRecordingDelegate creates a delegate. A nil outcome parks every transition.
func NewRecordingDelegate(outcome Outcome) *RecordingDelegate {
	if outcome == nil {
		outcome = Park
	}

	return &RecordingDelegate{
		outcome: outcome,
		changed: make(chan struct{}),
	}
}

// SetOutcome changes how later transitions end.
func (d *RecordingDelegate) SetOutcome(outcome Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.outcome = outcome
}

func (d *RecordingDelegate) WillPerformTransition(_ context.Context, _ *statemachine.Machine, req *statemachine.Request) {
	d.wills.Inc()
	d.record(Event{Kind: EventWillPerform, RequestID: req.ID(), Transition: req.Transition(), Payload: req.Payload()})
}

func (d *RecordingDelegate) PerformTransition(_ context.Context, sender *statemachine.Machine, req *statemachine.Request) {
	d.performs.Inc()
	d.record(Event{Kind: EventPerform, RequestID: req.ID(), Transition: req.Transition(), Payload: req.Payload()})

	d.mu.Lock()
	outcome := d.outcome
	d.mu.Unlock()

	succeeded, err, park := outcome(req)
	if park {
		d.mu.Lock()
		d.parked = append(d.parked, parked{sender: sender, req: req})
		d.notifyLocked()
		d.mu.Unlock()

		return
	}

	_ = sender.Complete(req, succeeded, err)
}

func (d *RecordingDelegate) DidPerformTransition(
	_ context.Context,
	_ *statemachine.Machine,
	req *statemachine.Request,
	succeeded bool,
) {
	d.dids.Inc()
	d.record(Event{Kind: EventDidPerform, RequestID: req.ID(), Transition: req.Transition(), Succeeded: succeeded})
}

// Completion returns a completion that records its invocation under label.
func (d *RecordingDelegate) Completion(label string) statemachine.Completion {
	return func(succeeded bool, err error) {
		d.record(Event{Kind: EventCompletion, Label: label, Succeeded: succeeded, Err: err})
	}
}

// Succeed completes the oldest parked transition successfully.
func (d *RecordingDelegate) Succeed(t *testing.T) {
	t.Helper()

	d.finish(t, true, nil)
}

// Fail completes the oldest parked transition with a failure.
func (d *RecordingDelegate) Fail(t *testing.T, err error) {
	t.Helper()

	d.finish(t, false, err)
}

func (d *RecordingDelegate) finish(t *testing.T, succeeded bool, err error) {
	t.Helper()

	d.mu.Lock()

	if len(d.parked) == 0 {
		d.mu.Unlock()
		require.FailNow(t, "no parked transition to complete")

		return
	}

	next := d.parked[0]
	d.parked = d.parked[1:]
	d.mu.Unlock()

	require.NoError(t, next.sender.Complete(next.req, succeeded, err))
}

// Parked returns the requests waiting for Succeed or Fail, oldest first.
func (d *RecordingDelegate) Parked() []*statemachine.Request {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*statemachine.Request, len(d.parked))
	for i, p := range d.parked {
		out[i] = p.req
	}

	return out
}

// WaitParked blocks until at least n transitions are parked.
func (d *RecordingDelegate) WaitParked(t *testing.T, n int) {
	t.Helper()

	d.waitFor(t, fmt.Sprintf("%d parked transition(s)", n), func() bool {
		return len(d.parked) >= n
	})
}

// WaitEvents blocks until at least n events have been recorded.
func (d *RecordingDelegate) WaitEvents(t *testing.T, n int) {
	t.Helper()

	d.waitFor(t, fmt.Sprintf("%d event(s)", n), func() bool {
		return len(d.events) >= n
	})
}

func (d *RecordingDelegate) waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.After(5 * time.Second)

	for {
		d.mu.Lock()
		ok := cond()
		changed := d.changed
		d.mu.Unlock()

		if ok {
			return
		}

		select {
		case <-changed:
		case <-deadline:
			require.FailNow(t, "timed out waiting for "+what)

			return
		}
	}
}

// Events returns a copy of the journal.
func (d *RecordingDelegate) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]Event(nil), d.events...)
}

// Kinds returns the kind of every recorded event, with completion labels
// appended ("completion:first").
func (d *RecordingDelegate) Kinds() []string {
	events := d.Events()
	out := make([]string, len(events))

	for i, event := range events {
		out[i] = string(event.Kind)
		if event.Label != "" {
			out[i] += ":" + event.Label
		}
	}

	return out
}

// Performed returns the transitions handed to PerformTransition, in order.
func (d *RecordingDelegate) Performed() []statemachine.Transition {
	var out []statemachine.Transition

	for _, event := range d.Events() {
		if event.Kind == EventPerform {
			out = append(out, event.Transition)
		}
	}

	return out
}

// CompletionFor returns the first completion recorded under label.
func (d *RecordingDelegate) CompletionFor(label string) (Event, bool) {
	for _, event := range d.Events() {
		if event.Kind == EventCompletion && event.Label == label {
			return event, true
		}
	}

	return Event{}, false
}

// Counts returns how many will, perform and did callbacks ran.
func (d *RecordingDelegate) Counts() (wills, performs, dids int64) {
	return d.wills.Load(), d.performs.Load(), d.dids.Load()
}

func (d *RecordingDelegate) record(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events = append(d.events, event)
	d.notifyLocked()
}

func (d *RecordingDelegate) notifyLocked() {
	close(d.changed)
	d.changed = make(chan struct{})
}

// NewMachine builds a machine around a RecordingDelegate with logging
// disabled unless a logger option is passed.
func NewMachine(
	t *testing.T,
	def statemachine.Definition,
	initial statemachine.State,
	outcome Outcome,
	opts ...statemachine.Option,
) (*statemachine.Machine, *RecordingDelegate) {
	t.Helper()

	delegate := NewRecordingDelegate(outcome)

	machine, err := statemachine.New(def, initial, delegate,
		append([]statemachine.Option{statemachine.WithLogger(nil), statemachine.WithName(t.Name())}, opts...)...)
	require.NoError(t, err, "failed to create machine")

	return machine, delegate
}

// AssertState fails the test if the machine is not in the expected state.
func AssertState(t *testing.T, machine *statemachine.Machine, expected statemachine.State) {
	t.Helper()

	actual := machine.CurrentState()
	require.Equal(t, expected, actual, "expected state %s, got %s",
		machine.DebugStringForState(expected), machine.DebugStringForState(actual))
}

// AssertIdle fails the test if a transition is running or pending.
func AssertIdle(t *testing.T, machine *statemachine.Machine) {
	t.Helper()

	require.False(t, machine.IsPerforming(), "machine should not be performing a transition")
	require.False(t, machine.HasPendingRequest(), "machine should have no pending request")
}
