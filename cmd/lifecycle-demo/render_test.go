package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(t.Context(), append([]string{appName}, args...))

	return out.String(), err
}

func TestDiagramBuiltin(t *testing.T) {
	t.Parallel()

	out, err := runApp(t, "diagram", "--machine", "openclose")
	require.NoError(t, err)
	assert.Contains(t, out, "stateDiagram-TD")
	assert.Contains(t, out, "[*] --> closed")
	assert.Contains(t, out, "closed --> opened: opening")

	out, err = runApp(t, "diagram", "--format", "dot", "--direction", "LR")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph statemachine {")
	assert.Contains(t, out, "rankdir=LR;")
	assert.Contains(t, out, "__start -> ready;")
}

func TestDiagramErrors(t *testing.T) {
	t.Parallel()

	_, err := runApp(t, "diagram", "--machine", "elevator")
	require.ErrorIs(t, err, errUnknownMachine)

	_, err = runApp(t, "diagram", "--format", "svg")
	require.ErrorIs(t, err, errUnknownFormat)

	_, err = runApp(t, "diagram", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDiagramFromFile(t *testing.T) {
	t.Parallel()

	out, err := runApp(t, "diagram", filepath.Join("vocabularies", "session.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "[*] --> anonymous")
	assert.Contains(t, out, "expired --> authenticated: refreshing")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	out, err := runApp(t, "validate", filepath.Join("vocabularies", "session.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Definition is valid")

	_, err = runApp(t, "validate")
	require.ErrorIs(t, err, errConfigRequired)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: broken
initialState: a
states:
  - name: a
  - name: b
transitions: []
`), 0o600))

	out, err = runApp(t, "validate", path)
	require.ErrorIs(t, err, errInvalidConfig)
	assert.Contains(t, out, "UNREACHABLE_STATE")
}
