package statemachine

import (
	"fmt"

	"github.com/amp-labs/amp-lifecycle/errors"
)

// StateSpec declares one state of a Table.
type StateSpec struct {
	State State
	Name  string
}

// TransitionSpec declares one transition of a Table.
type TransitionSpec struct {
	Transition Transition
	Name       string
	From       State
	To         State
}

// edge is a (from, to) pair used for reverse lookups.
type edge struct {
	from State
	to   State
}

// Table is a Definition built from static state and transition lists. It is
// immutable and safe for concurrent use.
type Table struct {
	name        string
	states      []StateSpec
	transitions []TransitionSpec

	stateIndex      map[State]int
	transitionIndex map[Transition]int
	edges           map[edge]Transition
}

// NewTable validates the lists and builds a table. Every problem found is
// reported in the returned error, not just the first one.
func NewTable(name string, states []StateSpec, transitions []TransitionSpec) (*Table, error) {
	var errs errors.Collection

	if name == "" {
		errs.Add(ErrTableNameRequired)
	}

	if len(states) == 0 {
		errs.Add(ErrStateRequired)
	}

	table := &Table{
		name:            name,
		states:          append([]StateSpec(nil), states...),
		transitions:     append([]TransitionSpec(nil), transitions...),
		stateIndex:      make(map[State]int, len(states)),
		transitionIndex: make(map[Transition]int, len(transitions)),
		edges:           make(map[edge]Transition, len(transitions)),
	}

	stateNames := make(map[string]bool, len(states))

	for i, state := range states {
		switch {
		case state.State == StateNotAvailable:
			errs.Add(fmt.Errorf("state %d: %w", i, ErrReservedState))
		case state.Name == "":
			errs.Add(fmt.Errorf("state %d: %w", i, ErrStateNameRequired))
		case stateNames[state.Name]:
			errs.Add(fmt.Errorf("state %d: %w: name %q", i, ErrDuplicateState, state.Name))
		}

		if _, exists := table.stateIndex[state.State]; exists {
			errs.Add(fmt.Errorf("state %d: %w: id %d", i, ErrDuplicateState, int(state.State)))

			continue
		}

		stateNames[state.Name] = true
		table.stateIndex[state.State] = i
	}

	transitionNames := make(map[string]bool, len(transitions))

	for i, transition := range transitions {
		switch {
		case transition.Transition.IsReserved():
			errs.Add(fmt.Errorf("transition %d: %w", i, ErrReservedTransition))
		case transition.Name == "":
			errs.Add(fmt.Errorf("transition %d: %w", i, ErrTransitionNameRequired))
		case transitionNames[transition.Name]:
			errs.Add(fmt.Errorf("transition %d: %w: name %q", i, ErrDuplicateTransition, transition.Name))
		}

		if _, ok := table.stateIndex[transition.From]; !ok {
			errs.Add(fmt.Errorf("transition %s: from %w %d", transition.Name, ErrUnknownState, int(transition.From)))
		}

		if _, ok := table.stateIndex[transition.To]; !ok {
			errs.Add(fmt.Errorf("transition %s: to %w %d", transition.Name, ErrUnknownState, int(transition.To)))
		}

		if _, exists := table.transitionIndex[transition.Transition]; exists {
			errs.Add(fmt.Errorf("transition %d: %w: id %d", i, ErrDuplicateTransition, int(transition.Transition)))

			continue
		}

		transitionNames[transition.Name] = true
		table.transitionIndex[transition.Transition] = i

		key := edge{from: transition.From, to: transition.To}
		if _, exists := table.edges[key]; !exists {
			table.edges[key] = transition.Transition
		}
	}

	if errs.HasError() {
		return nil, fmt.Errorf("table %q: %w", name, errs.GetError())
	}

	return table, nil
}

// MustNewTable is like NewTable but panics on error. Use it for package-level
// definitions.
func MustNewTable(name string, states []StateSpec, transitions []TransitionSpec) *Table {
	table, err := NewTable(name, states, transitions)
	if err != nil {
		panic(err)
	}

	return table
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

func (t *Table) InitialStateForTransition(transition Transition) State {
	spec, ok := t.transition(transition)
	if !ok {
		return StateNotAvailable
	}

	return spec.From
}

func (t *Table) FinalStateForTransition(transition Transition) State {
	spec, ok := t.transition(transition)
	if !ok {
		return StateNotAvailable
	}

	return spec.To
}

func (t *Table) DebugStringForState(state State) string {
	idx, ok := t.stateIndex[state]
	if !ok {
		return ""
	}

	return t.states[idx].Name
}

func (t *Table) DebugStringForTransition(transition Transition) string {
	spec, ok := t.transition(transition)
	if !ok {
		return ""
	}

	return spec.Name
}

func (t *Table) States() []State {
	states := make([]State, len(t.states))
	for i, spec := range t.states {
		states[i] = spec.State
	}

	return states
}

func (t *Table) Transitions() []Transition {
	transitions := make([]Transition, len(t.transitions))
	for i, spec := range t.transitions {
		transitions[i] = spec.Transition
	}

	return transitions
}

// TransitionFromState returns the first declared transition from one state to
// the other, or TransitionNotAvailable.
func (t *Table) TransitionFromState(from, to State) Transition {
	transition, ok := t.edges[edge{from: from, to: to}]
	if !ok {
		return TransitionNotAvailable
	}

	return transition
}

// StateByName looks a state up by its name.
func (t *Table) StateByName(name string) (State, bool) {
	for _, spec := range t.states {
		if spec.Name == name {
			return spec.State, true
		}
	}

	return StateNotAvailable, false
}

// TransitionByName looks a transition up by its name.
func (t *Table) TransitionByName(name string) (Transition, bool) {
	for _, spec := range t.transitions {
		if spec.Name == name {
			return spec.Transition, true
		}
	}

	return TransitionNotAvailable, false
}

func (t *Table) transition(transition Transition) (TransitionSpec, bool) {
	idx, ok := t.transitionIndex[transition]
	if !ok {
		return TransitionSpec{}, false
	}

	return t.transitions[idx], true
}
