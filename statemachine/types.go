package statemachine

import "strconv"

// State identifies one of the states a machine's Definition declares.
type State int

// Transition identifies a named, directed edge between exactly one initial
// state and one final state.
type Transition int

const (
	// StateNotAvailable denotes "no state". It is used for error reporting
	// only and is never the current state of a machine.
	StateNotAvailable State = -1

	// TransitionNone is the current transition of an idle machine.
	TransitionNone Transition = 0

	// TransitionNotAvailable is returned by lookups that find no transition.
	TransitionNotAvailable Transition = -1
)

// String returns the numeric form of the state; machines render names through
// their Definition.
func (s State) String() string {
	if s == StateNotAvailable {
		return "not_available"
	}

	return "state(" + strconv.Itoa(int(s)) + ")"
}

// String returns the numeric form of the transition.
func (t Transition) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionNotAvailable:
		return "not_available"
	default:
		return "transition(" + strconv.Itoa(int(t)) + ")"
	}
}

// IsReserved reports whether the transition is one of the reserved values
// that can never be requested.
func (t Transition) IsReserved() bool {
	return t == TransitionNone || t == TransitionNotAvailable
}

// Completion is invoked exactly once for every request that reaches a machine,
// whether it was rejected, failed or succeeded. It may be called from any
// goroutine.
type Completion func(succeeded bool, err error)

// Definition fixes the state and transition vocabulary of a machine. The core
// never interprets states; it only asks the definition where a transition
// starts and ends.
type Definition interface {
	// InitialStateForTransition returns the state the transition starts from,
	// or StateNotAvailable if the transition is unknown.
	InitialStateForTransition(transition Transition) State

	// FinalStateForTransition returns the state committed when the transition
	// succeeds, or StateNotAvailable if the transition is unknown.
	FinalStateForTransition(transition Transition) State

	// DebugStringForState returns a human-readable state name for logs.
	DebugStringForState(state State) string

	// DebugStringForTransition returns a human-readable transition name for logs.
	DebugStringForTransition(transition Transition) string

	// States lists every state the definition knows, in declaration order.
	States() []State

	// Transitions lists every transition the definition knows, in declaration order.
	Transitions() []Transition
}

// transitionFinder is implemented by definitions that index their edges.
type transitionFinder interface {
	TransitionFromState(from, to State) Transition
}
