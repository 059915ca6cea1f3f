package statemachine

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/amp-labs/amp-lifecycle/utils"
	"go.opentelemetry.io/otel/trace"
)

// queuedRequest is a request together with the context it was submitted with.
type queuedRequest struct {
	ctx context.Context //nolint:containedctx // Held until the queued request runs
	req *Request
}

// activeTransition is the bookkeeping for the transition being performed.
type activeTransition struct {
	request    *queuedRequest
	ctx        context.Context //nolint:containedctx // Carries the transition span
	span       trace.Span
	from       State
	to         State
	started    time.Time
	completing bool
	done       chan struct{}
}

func (a *activeTransition) elapsed() time.Duration {
	return time.Since(a.started)
}

// Machine serializes the transitions of one logical entity. It validates
// requests against its Definition, asks its Delegate to perform them one at a
// time and reports every outcome through the request's Completion.
//
// Machine is safe for concurrent use. No callback is ever invoked while the
// machine's lock is held, so delegates and completions may call back into it.
type Machine struct {
	name       string
	definition Definition
	logger     Logger
	executor   Executor
	policy     PendingPolicy

	mu         sync.Mutex
	delegate   Delegate
	state      State
	transition Transition
	active     *activeTransition
	pending    *queuedRequest
	idle       chan struct{}
	idleClosed bool

	gaugedActive  bool
	gaugedPending bool
}

// New creates a machine in the given initial state. The delegate is required.
func New(definition Definition, initial State, delegate Delegate, opts ...Option) (*Machine, error) {
	if delegate == nil {
		return nil, ErrMissingDelegate
	}

	if definition == nil {
		return nil, ErrMissingDefinition
	}

	if !slices.Contains(definition.States(), initial) {
		return nil, fmt.Errorf("%w: initial state %s", ErrStateNotValid, initial)
	}

	options := machineOptions{
		name:   "statemachine",
		logger: NewDefaultLogger(),
		policy: PendingReject,
	}

	for _, opt := range opts {
		opt(&options)
	}

	idle := make(chan struct{})
	close(idle)

	return &Machine{
		name:       options.name,
		definition: definition,
		logger:     options.logger,
		executor:   options.executor,
		policy:     options.policy,
		delegate:   delegate,
		state:      initial,
		transition: TransitionNone,
		idle:       idle,
		idleClosed: true,
	}, nil
}

// Name returns the machine name.
func (m *Machine) Name() string {
	return m.name
}

// Definition returns the vocabulary the machine was built with.
func (m *Machine) Definition() Definition { //nolint:ireturn
	return m.definition
}

// CurrentState returns the committed state. While a transition runs this is
// still the pre-transition state.
func (m *Machine) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// CurrentTransition returns the transition being performed, or TransitionNone.
func (m *Machine) CurrentTransition() Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.transition
}

// IsPerforming reports whether a transition is in flight.
func (m *Machine) IsPerforming() bool {
	return m.CurrentTransition() != TransitionNone
}

// HasPendingRequest reports whether a request is waiting in the pending slot.
func (m *Machine) HasPendingRequest() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pending != nil
}

// RequestTransition asks the machine to perform a transition. The completion
// may be nil ("fire and forget").
func (m *Machine) RequestTransition(ctx context.Context, transition Transition, completion Completion) {
	m.Perform(ctx, NewRequest(transition, WithCompletion(completion)))
}

// Perform submits a request. It never blocks on the transition itself:
//   - while a transition runs the request goes to the pending slot, subject to
//     the machine's PendingPolicy;
//   - otherwise it is validated against the current state and, if legal,
//     handed to the delegate.
//
// Rejections are reported through the request's completion before Perform
// returns, unless an Executor is configured.
//
// The context is only used for its values and trace; cancelling it does not
// cancel the transition.
func (m *Machine) Perform(ctx context.Context, req *Request) {
	if req == nil {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	queued := &queuedRequest{
		ctx: context.WithoutCancel(ctx),
		req: req,
	}

	if m.logger != nil {
		m.logger.TransitionRequested(queued.ctx, m.info(req))
	}

	if req.Transition().IsReserved() {
		m.dispatch(m.rejection(queued, m.wrapTransitionError(req.Transition(), StateNotAvailable,
			ErrTransitionNotValid)))

		return
	}

	m.mu.Lock()

	if m.delegate == nil {
		m.mu.Unlock()
		m.dispatch(m.rejection(queued, m.wrapTransitionError(req.Transition(), StateNotAvailable,
			ErrMissingDelegate)))

		return
	}

	if m.active != nil {
		displaced, err := m.enqueueLocked(queued)
		m.recordSlotsLocked()
		m.mu.Unlock()

		switch {
		case err != nil:
			m.dispatch(m.rejection(queued, err))
		case displaced != nil:
			m.queued(queued)
			m.dispatch(m.rejection(displaced, m.wrapTransitionError(displaced.req.Transition(),
				StateNotAvailable, ErrTransitionCancelled)))
		default:
			m.queued(queued)
		}

		return
	}

	effects := m.startLocked(queued)
	m.mu.Unlock()

	m.dispatch(effects...)
}

// OnTransitionCompleted is called by the delegate when the transition it was
// asked to perform has finished. On success the transition's final state is
// committed; on failure the state is left untouched. Either way the did-hook
// and the request's completion fire, then the next request (chained or
// pending) is started.
//
// It returns ErrNoTransitionInProgress if no transition is awaiting an outcome.
// The report is applied to whatever transition is in flight; delegates that
// may report late or more than once should use Complete instead.
func (m *Machine) OnTransitionCompleted(succeeded bool, err error) error {
	return m.complete(nil, nil, succeeded, err)
}

// Complete reports the outcome of the transition performed for req. It
// returns ErrNoTransitionInProgress, and changes nothing, unless req is the
// request currently being performed and no outcome has been reported for it.
func (m *Machine) Complete(req *Request, succeeded bool, err error) error {
	if req == nil {
		return ErrNoTransitionInProgress
	}

	return m.complete(nil, req, succeeded, err)
}

// ClearDelegate unsets the delegate and cancels the pending request. A
// transition already in flight still completes, but the delegate's hooks are
// no longer invoked and every later request fails with ErrMissingDelegate.
func (m *Machine) ClearDelegate() {
	m.mu.Lock()
	m.delegate = nil
	pending := m.pending
	m.pending = nil
	m.recordSlotsLocked()
	m.mu.Unlock()

	if pending != nil {
		m.dispatch(m.rejection(pending, m.wrapTransitionError(pending.req.Transition(), StateNotAvailable,
			ErrTransitionCancelled)))
	}
}

// WaitIdle blocks until the machine has no transition in flight and nothing
// pending, or until ctx is done.
func (m *Machine) WaitIdle(ctx context.Context) error {
	m.mu.Lock()
	idle := m.idle
	m.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitCurrent blocks until the transition in flight when it was called has
// finished and its completion has fired, or until ctx is done. It returns
// immediately if no transition is running. Unlike WaitIdle it does not wait
// for the request that starts next.
func (m *Machine) WaitCurrent(ctx context.Context) error {
	m.mu.Lock()
	act := m.active
	m.mu.Unlock()

	if act == nil {
		return nil
	}

	select {
	case <-act.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestAndWait performs the transition and blocks until its completion
// fires or ctx is done. A failure reported without an error is returned as
// ErrTransitionFailed. Cancelling ctx stops the wait, not the transition.
func (m *Machine) RequestAndWait(ctx context.Context, transition Transition, opts ...RequestOption) error {
	done := make(chan error, 1)

	req := NewRequest(transition, opts...)
	inner := req.completion
	req.completion = func(succeeded bool, err error) {
		if inner != nil {
			inner(succeeded, err)
		}

		switch {
		case succeeded:
			done <- nil
		case err == nil:
			done <- m.wrapTransitionError(transition, StateNotAvailable, ErrTransitionFailed)
		default:
			done <- err
		}
	}

	m.Perform(ctx, req)

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DebugStringForState returns the definition's name for the state.
func (m *Machine) DebugStringForState(state State) string {
	if name := m.definition.DebugStringForState(state); name != "" {
		return name
	}

	return state.String()
}

// DebugStringForTransition returns the definition's name for the transition.
func (m *Machine) DebugStringForTransition(transition Transition) string {
	if transition.IsReserved() {
		return transition.String()
	}

	if name := m.definition.DebugStringForTransition(transition); name != "" {
		return name
	}

	return transition.String()
}

// InitialStateForTransition returns where the transition starts, or StateNotAvailable.
func (m *Machine) InitialStateForTransition(transition Transition) State {
	if transition.IsReserved() {
		return StateNotAvailable
	}

	return m.definition.InitialStateForTransition(transition)
}

// FinalStateForTransition returns where the transition ends, or StateNotAvailable.
func (m *Machine) FinalStateForTransition(transition Transition) State {
	if transition.IsReserved() {
		return StateNotAvailable
	}

	return m.definition.FinalStateForTransition(transition)
}

// TransitionFromState returns the first declared transition leading from one
// state to the other, or TransitionNotAvailable. It does not depend on the
// machine's history.
func (m *Machine) TransitionFromState(from, to State) Transition {
	if finder, ok := m.definition.(transitionFinder); ok {
		return finder.TransitionFromState(from, to)
	}

	for _, transition := range m.definition.Transitions() {
		if m.definition.InitialStateForTransition(transition) == from &&
			m.definition.FinalStateForTransition(transition) == to {
			return transition
		}
	}

	return TransitionNotAvailable
}

// enqueueLocked stores a request in the pending slot. It returns the request
// displaced by PendingReplace, or an error if the request was refused.
func (m *Machine) enqueueLocked(queued *queuedRequest) (*queuedRequest, error) {
	if m.pending == nil {
		m.pending = queued

		return nil, nil
	}

	if m.policy == PendingReplace {
		displaced := m.pending
		m.pending = queued

		return displaced, nil
	}

	return nil, m.wrapTransitionError(queued.req.Transition(), StateNotAvailable, ErrBusy)
}

// validateLocked checks that the transition can start from the current state.
func (m *Machine) validateLocked(transition Transition) error {
	var err error

	switch {
	case m.delegate == nil:
		err = ErrMissingDelegate
	case transition.IsReserved():
		err = ErrTransitionNotValid
	case m.definition.InitialStateForTransition(transition) == StateNotAvailable:
		err = ErrBeginningStateNotValid
	case m.definition.FinalStateForTransition(transition) == StateNotAvailable:
		err = ErrEndingStateNotValid
	case m.definition.InitialStateForTransition(transition) != m.state:
		err = ErrTransitionNotAllowed
	}

	return m.wrapTransitionError(transition, m.state, err)
}

// startLocked starts the request, falling back to the pending request while
// candidates fail validation. It returns the callbacks to run once unlocked.
func (m *Machine) startLocked(next *queuedRequest) []func() {
	var effects []func()

	for next != nil {
		err := m.validateLocked(next.req.resolve(m.state))
		if err == nil {
			effects = append(effects, m.beginLocked(next)...)

			break
		}

		effects = append(effects, m.rejection(next, err))

		next = m.pending
		m.pending = nil
	}

	m.recordSlotsLocked()

	return effects
}

// beginLocked makes the request the current transition.
func (m *Machine) beginLocked(queued *queuedRequest) []func() {
	transition := queued.req.Transition()
	info := m.info(queued.req)
	delegate := m.delegate

	act := &activeTransition{
		request: queued,
		from:    m.state,
		to:      m.definition.FinalStateForTransition(transition),
		started: time.Now(),
		done:    make(chan struct{}),
	}
	act.ctx, act.span = startTransitionSpan(queued.ctx, info)

	m.transition = transition
	m.active = act

	if m.idleClosed {
		m.idle = make(chan struct{})
		m.idleClosed = false
	}

	m.recordRequest(queued.req, outcomeAccepted)

	return []func(){
		func() {
			if m.logger != nil {
				m.logger.TransitionStarted(act.ctx, info)
			}

			if will, ok := delegate.(TransitionWillPerformer); ok {
				act.span.AddEvent("will_perform")
				m.safely(act.ctx, info, "will_perform", func() {
					will.WillPerformTransition(act.ctx, m, queued.req)
				})
			}
		},
		func() {
			m.perform(delegate, act, info)
		},
	}
}

// perform hands the transition to the delegate. A panicking delegate fails
// the transition instead of leaving the machine stuck.
func (m *Machine) perform(delegate Delegate, act *activeTransition, info TransitionInfo) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %w", ErrDelegatePanicked, utils.GetPanicRecoveryError(r, debug.Stack()))

			if m.logger != nil {
				m.logger.CallbackPanicked(act.ctx, info, "perform", err)
			}

			_ = m.complete(act, nil, false, err)
		}
	}()

	act.span.AddEvent("perform")
	delegate.PerformTransition(act.ctx, m, act.request.req)
}

// complete records the outcome of the active transition. When expected or
// req is non-nil, only the matching transition may be completed.
func (m *Machine) complete(expected *activeTransition, req *Request, succeeded bool, err error) error {
	m.mu.Lock()

	act := m.active
	if act == nil || act.completing ||
		(expected != nil && act != expected) ||
		(req != nil && act.request.req != req) {
		m.mu.Unlock()

		return ErrNoTransitionInProgress
	}

	act.completing = true

	if succeeded {
		m.state = act.to
	}

	delegate := m.delegate
	m.mu.Unlock()

	info := m.info(act.request.req)

	m.recordCompleted(act, succeeded)
	endTransitionSpan(act.span, succeeded, err)

	if m.logger != nil {
		m.logger.TransitionCompleted(act.ctx, info, act.elapsed(), succeeded, err)
	}

	var effects []func()

	if did, ok := delegate.(TransitionDidPerformer); ok {
		effects = append(effects, func() {
			m.safely(act.ctx, info, "did_perform", func() {
				did.DidPerformTransition(act.ctx, m, act.request.req, succeeded)
			})
		})
	}

	effects = append(effects,
		func() {
			m.safely(act.ctx, info, "completion", func() {
				act.request.req.complete(succeeded, err)
			})
		},
		func() {
			m.advance(act, succeeded)
		},
	)

	m.dispatch(effects...)

	return nil
}

// advance clears the finished transition and starts the next request: the
// request chained on the outcome if there is one, otherwise the pending one.
func (m *Machine) advance(act *activeTransition, succeeded bool) {
	m.mu.Lock()

	if m.active == act {
		m.active = nil
		m.transition = TransitionNone
	}

	close(act.done)

	var next *queuedRequest

	if chained := act.request.req.Next(succeeded); chained != nil {
		next = &queuedRequest{ctx: act.request.ctx, req: chained}
	} else {
		next = m.pending
		m.pending = nil
	}

	effects := m.startLocked(next)
	m.mu.Unlock()

	m.dispatch(append(effects, m.signalIdle)...)
}

// signalIdle releases WaitIdle callers if nothing is running or pending.
func (m *Machine) signalIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil && m.pending == nil && !m.idleClosed {
		close(m.idle)
		m.idleClosed = true
	}
}

// rejection returns the callback that reports a refused request.
func (m *Machine) rejection(queued *queuedRequest, err error) func() {
	return func() {
		info := m.info(queued.req)

		m.recordRequest(queued.req, outcomeRejected)
		addRejectionEvent(queued.ctx, info, err)

		if m.logger != nil {
			m.logger.TransitionRejected(queued.ctx, info, err)
		}

		m.safely(queued.ctx, info, "completion", func() {
			queued.req.complete(false, err)
		})
	}
}

// queued records a request that is waiting in the pending slot.
func (m *Machine) queued(queued *queuedRequest) {
	m.recordRequest(queued.req, outcomeQueued)

	if m.logger != nil {
		m.logger.TransitionQueued(queued.ctx, m.info(queued.req))
	}
}

// dispatch runs callbacks in order, on the executor if one is configured.
func (m *Machine) dispatch(effects ...func()) {
	if len(effects) == 0 {
		return
	}

	run := func() {
		for _, effect := range effects {
			effect()
		}
	}

	if m.executor == nil {
		run()

		return
	}

	m.executor.Execute(run)
}

// safely runs a client callback, logging instead of propagating panics.
func (m *Machine) safely(ctx context.Context, info TransitionInfo, callback string, f func()) {
	defer func() {
		if r := recover(); r != nil {
			if m.logger != nil {
				m.logger.CallbackPanicked(ctx, info, callback, utils.GetPanicRecoveryError(r, debug.Stack()))
			}
		}
	}()

	f()
}
