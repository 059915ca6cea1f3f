package statemachine

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	// ErrMissingDelegate indicates a machine without a delegate, either at
	// construction or after ClearDelegate.
	ErrMissingDelegate = errors.New("state machine has no delegate")
	// ErrMissingDefinition indicates a machine constructed without a definition.
	ErrMissingDefinition = errors.New("state machine has no definition")
	// ErrStateNotValid indicates a state the definition does not declare.
	ErrStateNotValid = errors.New("state is not valid")

	// ErrTransitionNotValid indicates a request for TransitionNone or TransitionNotAvailable.
	ErrTransitionNotValid = errors.New("transition is not valid")
	// ErrTransitionNotAllowed indicates the current state does not support the requested transition.
	ErrTransitionNotAllowed = errors.New("current state does not support requested transition")
	// ErrBeginningStateNotValid indicates a transition with no registered initial state.
	ErrBeginningStateNotValid = errors.New("transition has no beginning state")
	// ErrEndingStateNotValid indicates a transition with no registered final state.
	ErrEndingStateNotValid = errors.New("transition has no ending state")

	// ErrBusy indicates the pending slot was already occupied.
	ErrBusy = errors.New("state machine is busy")
	// ErrTransitionCancelled indicates a queued request that was dropped before it ran.
	ErrTransitionCancelled = errors.New("transition cancelled")
	// ErrTransitionFailed is reported by RequestAndWait when the delegate failed without an error.
	ErrTransitionFailed = errors.New("transition failed")
	// ErrNoTransitionInProgress indicates a completion report without a running transition.
	ErrNoTransitionInProgress = errors.New("no transition in progress")
	// ErrDelegatePanicked indicates the delegate panicked while performing a transition.
	ErrDelegatePanicked = errors.New("delegate panicked while performing transition")

	// ErrTableNameRequired indicates that a table name is required.
	ErrTableNameRequired = errors.New("table name is required")
	// ErrStateRequired indicates that at least one state is required.
	ErrStateRequired = errors.New("at least one state is required")
	// ErrStateNameRequired indicates that a state name is required.
	ErrStateNameRequired = errors.New("state name is required")
	// ErrReservedState indicates the use of StateNotAvailable as a state id.
	ErrReservedState = errors.New("state id is reserved")
	// ErrDuplicateState indicates a duplicate state id or name.
	ErrDuplicateState = errors.New("duplicate state")
	// ErrTransitionNameRequired indicates that a transition name is required.
	ErrTransitionNameRequired = errors.New("transition name is required")
	// ErrReservedTransition indicates the use of a reserved transition id.
	ErrReservedTransition = errors.New("transition id is reserved")
	// ErrDuplicateTransition indicates a duplicate transition id or name.
	ErrDuplicateTransition = errors.New("duplicate transition")
	// ErrUnknownState indicates a transition endpoint that is not a declared state.
	ErrUnknownState = errors.New("unknown state")
	// ErrInitialStateRequired indicates that a config has no initial state.
	ErrInitialStateRequired = errors.New("initial state is required")
)

// TransitionError wraps an error with the machine, transition and state that
// produced it.
type TransitionError struct {
	Machine    string
	Transition string
	State      string
	Err        error
}

func (e *TransitionError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("%s: transition %s: %v", e.Machine, e.Transition, e.Err)
	}

	return fmt.Sprintf("%s: transition %s from state %s: %v", e.Machine, e.Transition, e.State, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// wrapTransitionError wraps an error with transition context.
func (m *Machine) wrapTransitionError(transition Transition, state State, err error) error {
	if err == nil {
		return nil
	}

	stateName := ""
	if state != StateNotAvailable {
		stateName = m.DebugStringForState(state)
	}

	return &TransitionError{
		Machine:    m.name,
		Transition: m.DebugStringForTransition(transition),
		State:      stateName,
		Err:        err,
	}
}
