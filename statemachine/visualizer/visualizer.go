// Package visualizer renders a machine's definition as a Mermaid or
// Graphviz DOT state diagram.
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amp-labs/amp-lifecycle/statemachine"
)

// ErrDefinitionNil is returned when no definition is given.
var ErrDefinitionNil = errors.New("definition cannot be nil")

// GenerateMermaid renders the definition with the default options.
func GenerateMermaid(def statemachine.Definition) (string, error) {
	return GenerateMermaidWithOptions(def, DefaultOptions())
}

// GenerateMermaidFromFile loads a YAML config and renders it, marking the
// configured initial state.
func GenerateMermaidFromFile(path string) (string, error) {
	config, err := statemachine.LoadConfig(path)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	table, initial, err := config.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build table: %w", err)
	}

	return GenerateMermaidWithOptions(table, DefaultOptions().WithInitial(initial))
}

// GenerateMermaidForMachine renders the machine's definition with its
// current state and in-flight transition highlighted.
func GenerateMermaidForMachine(machine *statemachine.Machine) (string, error) {
	opts := DefaultOptions().
		WithCurrent(machine.CurrentState()).
		WithActive(machine.CurrentTransition())

	return GenerateMermaidWithOptions(machine.Definition(), opts)
}

// GenerateMermaidWithOptions renders the definition as a Mermaid stateDiagram.
func GenerateMermaidWithOptions(def statemachine.Definition, opts Options) (string, error) {
	if def == nil {
		return "", ErrDefinitionNil
	}

	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString(fmt.Sprintf("stateDiagram-%s\n", direction(opts)))

	if opts.Initial != statemachine.StateNotAvailable {
		sb.WriteString(fmt.Sprintf("    [*] --> %s\n", stateID(def, opts.Initial)))
	}

	for _, state := range def.States() {
		id := stateID(def, state)
		if name := def.DebugStringForState(state); name != "" && name != id {
			sb.WriteString(fmt.Sprintf("    state %q as %s\n", name, id))
		}
	}

	for _, transition := range def.Transitions() {
		from := def.InitialStateForTransition(transition)
		to := def.FinalStateForTransition(transition)

		if from == statemachine.StateNotAvailable || to == statemachine.StateNotAvailable {
			continue
		}

		label := ""
		if opts.ShowTransitionNames {
			label = ": " + transitionLabel(def, transition)
			if transition == opts.Active {
				label += " (in progress)"
			}
		}

		sb.WriteString(fmt.Sprintf("    %s --> %s%s\n", stateID(def, from), stateID(def, to), label))
	}

	if opts.Current != statemachine.StateNotAvailable {
		sb.WriteString(fmt.Sprintf("    class %s current\n", stateID(def, opts.Current)))
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef current fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")
	sb.WriteString("```\n")

	return sb.String(), nil
}

// GenerateDOT renders the definition as a Graphviz digraph.
func GenerateDOT(def statemachine.Definition, opts Options) (string, error) {
	if def == nil {
		return "", ErrDefinitionNil
	}

	rankdir := "TB"
	if direction(opts) == "LR" {
		rankdir = "LR"
	}

	var sb strings.Builder

	sb.WriteString("digraph statemachine {\n")
	sb.WriteString(fmt.Sprintf("    rankdir=%s;\n", rankdir))
	sb.WriteString("    node [shape=box, style=rounded];\n")

	if opts.Initial != statemachine.StateNotAvailable {
		sb.WriteString("    __start [shape=point];\n")
		sb.WriteString(fmt.Sprintf("    __start -> %s;\n", stateID(def, opts.Initial)))
	}

	for _, state := range def.States() {
		attrs := fmt.Sprintf("label=%q", stateLabel(def, state))
		if state == opts.Current {
			attrs += ", style=\"rounded,filled\", fillcolor=\"#fff9c4\""
		}

		sb.WriteString(fmt.Sprintf("    %s [%s];\n", stateID(def, state), attrs))
	}

	for _, transition := range def.Transitions() {
		from := def.InitialStateForTransition(transition)
		to := def.FinalStateForTransition(transition)

		if from == statemachine.StateNotAvailable || to == statemachine.StateNotAvailable {
			continue
		}

		var attrs []string
		if opts.ShowTransitionNames {
			attrs = append(attrs, fmt.Sprintf("label=%q", transitionLabel(def, transition)))
		}

		if transition == opts.Active {
			attrs = append(attrs, "style=bold", "color=\"#f57f17\"")
		}

		edge := fmt.Sprintf("    %s -> %s", stateID(def, from), stateID(def, to))
		if len(attrs) > 0 {
			edge += " [" + strings.Join(attrs, ", ") + "]"
		}

		sb.WriteString(edge + ";\n")
	}

	sb.WriteString("}\n")

	return sb.String(), nil
}

func direction(opts Options) string {
	if opts.Direction == "" {
		return "TD"
	}

	return opts.Direction
}

func stateLabel(def statemachine.Definition, state statemachine.State) string {
	if name := def.DebugStringForState(state); name != "" {
		return name
	}

	return state.String()
}

func transitionLabel(def statemachine.Definition, transition statemachine.Transition) string {
	if name := def.DebugStringForTransition(transition); name != "" {
		return name
	}

	return transition.String()
}

// stateID turns a state name into an identifier both Mermaid and DOT accept.
func stateID(def statemachine.Definition, state statemachine.State) string {
	label := stateLabel(def, state)

	var sb strings.Builder

	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}

	id := sb.String()
	if id == "" || (id[0] >= '0' && id[0] <= '9') {
		id = "s_" + id
	}

	return id
}
