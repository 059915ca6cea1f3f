package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/amp-labs/amp-lifecycle/connection"
	"github.com/amp-labs/amp-lifecycle/openclose"
	"github.com/amp-labs/amp-lifecycle/statemachine"
	"github.com/amp-labs/amp-lifecycle/statemachine/validator"
	"github.com/amp-labs/amp-lifecycle/statemachine/visualizer"
	"github.com/urfave/cli/v3"
)

const (
	formatMermaid = "mermaid"
	formatDOT     = "dot"
)

var (
	errUnknownFormat  = errors.New("unknown diagram format")
	errUnknownMachine = errors.New("unknown machine")
	errConfigRequired = errors.New("config file path required")
	errInvalidConfig  = errors.New("validation failed")
)

type builtin struct {
	definition *statemachine.Table
	initial    statemachine.State
}

var builtins = map[string]builtin{ //nolint:gochecknoglobals
	"connection": {definition: connection.Definition(), initial: connection.StateReady},
	"openclose":  {definition: openclose.Definition(), initial: openclose.StateClosed},
}

func builtinNames() string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}

	slices.Sort(names)

	return strings.Join(names, ", ")
}

func diagram(_ context.Context, cmd *cli.Command) error {
	def, initial, err := loadDefinition(cmd)
	if err != nil {
		return err
	}

	out, err := render(def, initial, cmd.String("format"), cmd.String("direction"))
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.Root().Writer, out)

	return nil
}

func loadDefinition(cmd *cli.Command) (statemachine.Definition, statemachine.State, error) {
	if cmd.Args().Len() > 0 {
		config, err := statemachine.LoadConfig(cmd.Args().First())
		if err != nil {
			return nil, statemachine.StateNotAvailable, fmt.Errorf("failed to load config: %w", err)
		}

		table, initial, err := config.Build()
		if err != nil {
			return nil, statemachine.StateNotAvailable, fmt.Errorf("failed to build table: %w", err)
		}

		return table, initial, nil
	}

	known, ok := builtins[cmd.String("machine")]
	if !ok {
		return nil, statemachine.StateNotAvailable, fmt.Errorf("%w: %q", errUnknownMachine, cmd.String("machine"))
	}

	return known.definition, known.initial, nil
}

func render(def statemachine.Definition, initial statemachine.State, format, direction string) (string, error) {
	opts := visualizer.DefaultOptions().
		WithInitial(initial).
		WithDirection(direction)

	switch format {
	case formatMermaid:
		return visualizer.GenerateMermaidWithOptions(def, opts)
	case formatDOT:
		return visualizer.GenerateDOT(def, opts)
	default:
		return "", fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

func validate(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return errConfigRequired
	}

	path := cmd.Args().First()

	result, err := validator.ValidateFileWithOptions(path, cmd.Bool("strict"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Fprint(cmd.Root().Writer, result.String())

	if !result.Valid {
		return fmt.Errorf("%w: %s", errInvalidConfig, path)
	}

	return nil
}
