package visualizer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/amp-labs/amp-lifecycle/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stateClosed statemachine.State = iota
	stateOpened
)

const (
	transitionOpening statemachine.Transition = iota + 1
	transitionClosing
)

func doorTable() *statemachine.Table {
	return statemachine.MustNewTable("door",
		[]statemachine.StateSpec{
			{State: stateClosed, Name: "closed"},
			{State: stateOpened, Name: "opened"},
		},
		[]statemachine.TransitionSpec{
			{Transition: transitionOpening, Name: "opening", From: stateClosed, To: stateOpened},
			{Transition: transitionClosing, Name: "closing", From: stateOpened, To: stateClosed},
		})
}

func TestGenerateMermaid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		opts           Options
		wantContain    []string
		wantNotContain []string
	}{
		{
			name: "default options",
			opts: DefaultOptions(),
			wantContain: []string{
				"```mermaid",
				"stateDiagram-TD",
				"closed --> opened: opening",
				"opened --> closed: closing",
			},
			wantNotContain: []string{"[*]", "class "},
		},
		{
			name: "initial and current state",
			opts: DefaultOptions().WithInitial(stateClosed).WithCurrent(stateOpened).WithDirection("LR"),
			wantContain: []string{
				"stateDiagram-LR",
				"[*] --> closed",
				"class opened current",
			},
		},
		{
			name:           "without transition names",
			opts:           DefaultOptions().WithShowTransitionNames(false),
			wantContain:    []string{"closed --> opened\n"},
			wantNotContain: []string{": opening"},
		},
		{
			name:        "active transition",
			opts:        DefaultOptions().WithActive(transitionClosing),
			wantContain: []string{"opened --> closed: closing (in progress)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := GenerateMermaidWithOptions(doorTable(), tt.opts)
			require.NoError(t, err)

			for _, want := range tt.wantContain {
				assert.Contains(t, result, want)
			}

			for _, notWant := range tt.wantNotContain {
				assert.NotContains(t, result, notWant)
			}
		})
	}
}

func TestGenerateMermaidNilDefinition(t *testing.T) {
	t.Parallel()

	_, err := GenerateMermaid(nil)
	require.ErrorIs(t, err, ErrDefinitionNil)

	_, err = GenerateDOT(nil, DefaultOptions())
	require.ErrorIs(t, err, ErrDefinitionNil)
}

func TestGenerateMermaidSanitizesNames(t *testing.T) {
	t.Parallel()

	table := statemachine.MustNewTable("conn",
		[]statemachine.StateSpec{
			{State: 0, Name: "not connected"},
			{State: 1, Name: "connected"},
		},
		[]statemachine.TransitionSpec{
			{Transition: 1, Name: "connect", From: 0, To: 1},
		})

	result, err := GenerateMermaid(table)
	require.NoError(t, err)

	assert.Contains(t, result, `state "not connected" as not_connected`)
	assert.Contains(t, result, "not_connected --> connected: connect")
}

func TestGenerateDOT(t *testing.T) {
	t.Parallel()

	result, err := GenerateDOT(doorTable(), DefaultOptions().
		WithDirection("LR").
		WithInitial(stateClosed).
		WithCurrent(stateClosed).
		WithActive(transitionOpening))
	require.NoError(t, err)

	assert.Contains(t, result, "digraph statemachine {")
	assert.Contains(t, result, "rankdir=LR;")
	assert.Contains(t, result, "__start -> closed;")
	assert.Contains(t, result, `closed [label="closed", style="rounded,filled"`)
	assert.Contains(t, result, `closed -> opened [label="opening", style=bold`)
	assert.Contains(t, result, `opened -> closed [label="closing"];`)
}

func TestGenerateMermaidFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "door.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: door
initialState: closed
states:
  - name: closed
  - name: opened
transitions:
  - name: opening
    from: closed
    to: opened
`), 0o600))

	result, err := GenerateMermaidFromFile(path)
	require.NoError(t, err)

	assert.Contains(t, result, "[*] --> closed")
	assert.Contains(t, result, "closed --> opened: opening")

	_, err = GenerateMermaidFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestGenerateMermaidForMachine(t *testing.T) {
	t.Parallel()

	var pending *statemachine.Machine

	machine, err := statemachine.New(doorTable(), stateClosed,
		statemachine.DelegateFunc(func(_ context.Context, sender *statemachine.Machine, _ *statemachine.Request) {
			pending = sender
		}),
		statemachine.WithLogger(nil))
	require.NoError(t, err)

	machine.RequestTransition(t.Context(), transitionOpening, nil)
	require.NotNil(t, pending)

	result, err := GenerateMermaidForMachine(machine)
	require.NoError(t, err)

	assert.Contains(t, result, "class closed current")
	assert.Contains(t, result, "closed --> opened: opening (in progress)")

	require.NoError(t, machine.OnTransitionCompleted(true, nil))

	result, err = GenerateMermaidForMachine(machine)
	require.NoError(t, err)

	assert.Contains(t, result, "class opened current")
	assert.NotContains(t, result, "in progress")
}
