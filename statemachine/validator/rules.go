package validator

import (
	"fmt"
	"slices"

	"github.com/amp-labs/amp-lifecycle/statemachine"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule checks a definition for one kind of issue.
type Rule interface {
	Name() string
	Severity() Severity
	Check(subject Subject) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&danglingTransitionRule{},
		&unreachableStateRule{},
		&deadEndRule{},
		&parallelTransitionRule{},
		&missingNameRule{},
	}
}

func stateName(def statemachine.Definition, state statemachine.State) string {
	if name := def.DebugStringForState(state); name != "" {
		return name
	}

	return state.String()
}

func transitionName(def statemachine.Definition, transition statemachine.Transition) string {
	if name := def.DebugStringForTransition(transition); name != "" {
		return name
	}

	return transition.String()
}

// danglingTransitionRule flags transitions whose endpoints are not declared states.
type danglingTransitionRule struct{}

func (r *danglingTransitionRule) Name() string {
	return "DanglingTransition"
}

func (r *danglingTransitionRule) Severity() Severity {
	return SeverityError
}

func (r *danglingTransitionRule) Check(subject Subject) RuleResult {
	var result RuleResult

	def := subject.Definition
	states := def.States()

	for _, transition := range def.Transitions() {
		if transition.IsReserved() {
			result.Errors = append(result.Errors, ValidationError{
				Code:     "RESERVED_TRANSITION",
				Message:  fmt.Sprintf("Transition id %d is reserved", int(transition)),
				Location: Location{Transition: transitionName(def, transition)},
			})

			continue
		}

		from := def.InitialStateForTransition(transition)
		to := def.FinalStateForTransition(transition)

		if !slices.Contains(states, from) || !slices.Contains(states, to) {
			result.Errors = append(result.Errors, ValidationError{
				Code:     "DANGLING_TRANSITION",
				Message:  fmt.Sprintf("Transition '%s' starts or ends outside the declared states", transitionName(def, transition)),
				Location: Location{Transition: transitionName(def, transition)},
			})
		}
	}

	return result
}

// unreachableStateRule flags states that no sequence of transitions reaches
// from the initial state.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string {
	return "UnreachableState"
}

func (r *unreachableStateRule) Severity() Severity {
	return SeverityError
}

func (r *unreachableStateRule) Check(subject Subject) RuleResult {
	var result RuleResult

	def := subject.Definition
	states := def.States()

	if !slices.Contains(states, subject.Initial) {
		result.Errors = append(result.Errors, ValidationError{
			Code:    "INVALID_INITIAL_STATE",
			Message: fmt.Sprintf("Initial state %s is not declared", subject.Initial),
		})

		return result
	}

	reachable := map[statemachine.State]bool{subject.Initial: true}
	queue := []statemachine.State{subject.Initial}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, transition := range def.Transitions() {
			if def.InitialStateForTransition(transition) != current {
				continue
			}

			to := def.FinalStateForTransition(transition)
			if to != statemachine.StateNotAvailable && !reachable[to] {
				reachable[to] = true
				queue = append(queue, to)
			}
		}
	}

	for _, state := range states {
		if !reachable[state] {
			result.Errors = append(result.Errors, ValidationError{
				Code: "UNREACHABLE_STATE",
				Message: fmt.Sprintf("State '%s' cannot be reached from initial state '%s'",
					stateName(def, state), stateName(def, subject.Initial)),
				Location: Location{State: stateName(def, state)},
			})
		}
	}

	return result
}

// deadEndRule flags states with no outgoing transition. A lifecycle that
// enters one can never leave it.
type deadEndRule struct{}

func (r *deadEndRule) Name() string {
	return "DeadEnd"
}

func (r *deadEndRule) Severity() Severity {
	return SeverityWarning
}

func (r *deadEndRule) Check(subject Subject) RuleResult {
	var result RuleResult

	def := subject.Definition
	outgoing := make(map[statemachine.State]int)

	for _, transition := range def.Transitions() {
		outgoing[def.InitialStateForTransition(transition)]++
	}

	for _, state := range def.States() {
		if outgoing[state] == 0 {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Code:     "DEAD_END_STATE",
				Message:  fmt.Sprintf("State '%s' has no outgoing transitions", stateName(def, state)),
				Location: Location{State: stateName(def, state)},
			})
		}
	}

	return result
}

// parallelTransitionRule flags transitions sharing both endpoints. Reverse
// lookups only ever return the first of them.
type parallelTransitionRule struct{}

func (r *parallelTransitionRule) Name() string {
	return "ParallelTransition"
}

func (r *parallelTransitionRule) Severity() Severity {
	return SeverityWarning
}

func (r *parallelTransitionRule) Check(subject Subject) RuleResult {
	var result RuleResult

	type edge struct {
		from, to statemachine.State
	}

	def := subject.Definition
	first := make(map[edge]statemachine.Transition)

	for _, transition := range def.Transitions() {
		key := edge{from: def.InitialStateForTransition(transition), to: def.FinalStateForTransition(transition)}

		existing, seen := first[key]
		if !seen {
			first[key] = transition

			continue
		}

		result.Warnings = append(result.Warnings, ValidationWarning{
			Code: "PARALLEL_TRANSITION",
			Message: fmt.Sprintf("Transition '%s' duplicates the endpoints of '%s' (%s -> %s)",
				transitionName(def, transition), transitionName(def, existing),
				stateName(def, key.from), stateName(def, key.to)),
			Location: Location{Transition: transitionName(def, transition)},
		})
	}

	return result
}

// missingNameRule flags states and transitions without a debug name.
type missingNameRule struct{}

func (r *missingNameRule) Name() string {
	return "MissingName"
}

func (r *missingNameRule) Severity() Severity {
	return SeverityWarning
}

func (r *missingNameRule) Check(subject Subject) RuleResult {
	var result RuleResult

	def := subject.Definition

	for _, state := range def.States() {
		if def.DebugStringForState(state) == "" {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Code:     "MISSING_STATE_NAME",
				Message:  fmt.Sprintf("State %d has no name; logs will show %s", int(state), state),
				Location: Location{State: state.String()},
			})
		}
	}

	for _, transition := range def.Transitions() {
		if def.DebugStringForTransition(transition) == "" {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Code:     "MISSING_TRANSITION_NAME",
				Message:  fmt.Sprintf("Transition %d has no name; logs will show %s", int(transition), transition),
				Location: Location{Transition: transition.String()},
			})
		}
	}

	return result
}
