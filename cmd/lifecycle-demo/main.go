// Command lifecycle-demo drives the connection and open/close machines
// against a simulated network, and renders or validates machine
// vocabularies declared in YAML.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// Version is set during build using ldflags.
var Version = "dev" //nolint:gochecknoglobals

const appName = "lifecycle-demo"

func newApp() *cli.Command {
	return &cli.Command{
		Name:    appName,
		Version: Version,
		Usage:   "Exercise lifecycle state machines",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "linger",
				Usage: "keep serving metrics after the scenario until interrupted",
			},
		},
		Action: runDemo,
		Commands: []*cli.Command{
			{
				Name:      "diagram",
				Usage:     "Render a vocabulary as a Mermaid or DOT diagram",
				ArgsUsage: "[config.yaml]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: formatMermaid,
						Usage: "output format: mermaid or dot",
					},
					&cli.StringFlag{
						Name:  "direction",
						Value: "TD",
						Usage: "diagram direction: TD or LR",
					},
					&cli.StringFlag{
						Name:  "machine",
						Value: "connection",
						Usage: "built-in vocabulary to render when no file is given: " + builtinNames(),
					},
				},
				Action: diagram,
			},
			{
				Name:      "validate",
				Usage:     "Check a vocabulary file for structural problems",
				ArgsUsage: "<config.yaml>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "treat warnings as errors",
					},
				},
				Action: validate,
			},
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
