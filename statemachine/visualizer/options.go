package visualizer

import "github.com/amp-labs/amp-lifecycle/statemachine"

// Options configures the visualization output.
type Options struct {
	// Direction controls diagram flow: "TD" (top-down) or "LR" (left-right).
	Direction string

	// ShowTransitionNames labels edges with transition names.
	ShowTransitionNames bool

	// Initial draws the entry marker pointing at this state. Use
	// statemachine.StateNotAvailable for no marker.
	Initial statemachine.State

	// Current highlights the state a machine is in.
	Current statemachine.State

	// Active highlights the edge of a transition in flight.
	Active statemachine.Transition
}

// DefaultOptions returns top-down diagrams with labelled edges and no markers.
func DefaultOptions() Options {
	return Options{
		Direction:           "TD",
		ShowTransitionNames: true,
		Initial:             statemachine.StateNotAvailable,
		Current:             statemachine.StateNotAvailable,
		Active:              statemachine.TransitionNone,
	}
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithShowTransitionNames enables or disables edge labels.
func (o Options) WithShowTransitionNames(show bool) Options {
	o.ShowTransitionNames = show

	return o
}

// WithInitial sets the state the entry marker points at.
func (o Options) WithInitial(state statemachine.State) Options {
	o.Initial = state

	return o
}

// WithCurrent sets the state to highlight.
func (o Options) WithCurrent(state statemachine.State) Options {
	o.Current = state

	return o
}

// WithActive sets the transition to highlight.
func (o Options) WithActive(transition statemachine.Transition) Options {
	o.Active = transition

	return o
}
