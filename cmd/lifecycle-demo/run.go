package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/amp-labs/amp-lifecycle/connection"
	"github.com/amp-labs/amp-lifecycle/dispatch"
	"github.com/amp-labs/amp-lifecycle/envutil"
	"github.com/amp-labs/amp-lifecycle/logger"
	"github.com/amp-labs/amp-lifecycle/openclose"
	"github.com/amp-labs/amp-lifecycle/shutdown"
	"github.com/amp-labs/amp-lifecycle/statemachine"
	"github.com/amp-labs/amp-lifecycle/statemachine/visualizer"
	"github.com/amp-labs/amp-lifecycle/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

const (
	defaultLatency      = 50 * time.Millisecond
	defaultMetricsAddr  = ":9090"
	readHeaderTimeout   = 5 * time.Second
	serverStopTimeout   = 5 * time.Second
	telemetryStopTimeout = 10 * time.Second
)

//go:embed vocabularies/*.yaml
var vocabularies embed.FS

// step is one request made against a machine during the scenario.
type step struct {
	name    string
	request func(context.Context, statemachine.Completion)
}

func runDemo(_ context.Context, cmd *cli.Command) error {
	logger.ConfigureLogging(appName)

	ctx := shutdown.SetupHandler()
	ctx = logger.WithSubsystem(ctx, appName)

	setupTelemetry(ctx)

	srv := serveMetrics(ctx)

	latency := envutil.Duration("LIFECYCLE_DEMO_LATENCY",
		envutil.Default(defaultLatency),
		envutil.Validate(envutil.Positive[time.Duration])).
		ValueOrFatal()

	failReconnect := envutil.Bool("LIFECYCLE_DEMO_FAIL_RECONNECT",
		envutil.Default(false)).
		ValueOrFatal()

	network := newSimulatedNetwork(latency, failReconnect)
	out := cmd.Root().Writer

	err := runScenario(ctx, out, network)

	logger.Get(ctx).Info("Scenario finished",
		"performed", network.Performed(),
		"failed", network.Failed(),
		"dispatched", dispatch.Default().Executed(),
		"error", err)

	if cmd.Bool("linger") && srv != nil {
		logger.Get(ctx).Info("Serving metrics until interrupted", "addr", srv.Addr)
	} else {
		shutdown.Shutdown()
	}

	<-ctx.Done()

	return err
}

func runScenario(ctx context.Context, out io.Writer, network *simulatedNetwork) error {
	executor := statemachine.WithExecutor(dispatch.Default())

	conn, err := connection.New(network, executor)
	if err != nil {
		return err
	}

	err = runSteps(ctx, out, conn.Machine, []step{
		{"connect", conn.ConnectWithCompletion},
		{"lose connection", conn.LoseConnectionWithCompletion},
		{"reconnect", conn.ReconnectWithCompletion},
		{"disconnect", conn.DisconnectWithCompletion},
		{"reset", conn.ResetWithCompletion},
	})
	if err != nil {
		return err
	}

	door, err := openclose.New(network, executor)
	if err != nil {
		return err
	}

	err = runSteps(ctx, out, door.Machine, []step{
		{"open", door.OpenWithCompletion},
		{"close", door.CloseWithCompletion},
		{"close again", door.CloseWithCompletion},
	})
	if err != nil {
		return err
	}

	return runSession(ctx, out, network)
}

// runSession drives a machine whose vocabulary is loaded from YAML, naming
// transitions instead of using constants.
func runSession(ctx context.Context, out io.Writer, network *simulatedNetwork) error {
	config, err := statemachine.LoadConfigFromFS(vocabularies, "vocabularies/session.yaml")
	if err != nil {
		return err
	}

	table, initial, err := config.Build()
	if err != nil {
		return err
	}

	session, err := statemachine.New(table, initial, network,
		statemachine.WithName(table.Name()),
		statemachine.WithExecutor(dispatch.Default()))
	if err != nil {
		return err
	}

	var steps []step

	for _, name := range []string{"signing_in", "expiring", "refreshing", "signing_out"} {
		transition, ok := table.TransitionByName(name)
		if !ok {
			return fmt.Errorf("%w: %s", statemachine.ErrTransitionNotValid, name)
		}

		steps = append(steps, step{
			name: name,
			request: func(ctx context.Context, completion statemachine.Completion) {
				session.RequestTransition(ctx, transition, completion)
			},
		})
	}

	return runSteps(ctx, out, session, steps)
}

// runSteps makes each request in turn, waits for its completion and prints
// the machine afterwards. Rejected or failed steps are logged, not returned.
func runSteps(ctx context.Context, out io.Writer, machine *statemachine.Machine, steps []step) error {
	for _, s := range steps {
		err := await(ctx, s.request)

		switch {
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			logger.Get(ctx).Warn("Step failed", "machine", machine.Name(), "step", s.name, "error", err)
		default:
			logger.Get(ctx).Info("Step succeeded", "machine", machine.Name(), "step", s.name,
				"state", machine.DebugStringForState(machine.CurrentState()))
		}

		diagram, err := visualizer.GenerateMermaidForMachine(machine)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s after %s:\n%s\n", machine.Name(), s.name, diagram)
	}

	return nil
}

// await makes the request and blocks until its completion fires.
func await(ctx context.Context, request func(context.Context, statemachine.Completion)) error {
	done := make(chan error, 1)

	request(ctx, func(succeeded bool, err error) {
		if !succeeded && err == nil {
			err = statemachine.ErrTransitionFailed
		}

		done <- err
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func setupTelemetry(ctx context.Context) {
	environment := envutil.String("ENVIRONMENT", envutil.Default("local")).ValueOrElse("local")

	config, err := telemetry.LoadConfigFromEnv(environment)
	if err != nil {
		logger.Get(ctx).Error("Failed to load telemetry config", "error", err)

		return
	}

	logsActive, err := telemetry.Initialize(ctx, config)
	if err != nil {
		logger.Get(ctx).Error("Failed to initialize telemetry", "error", err)

		return
	}

	if logsActive {
		logger.ConfigureLogging(appName, logger.WithOTel(true))
	}

	shutdown.BeforeShutdown(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), telemetryStopTimeout)
		defer cancel()

		if err := telemetry.Shutdown(stopCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	})
}

// serveMetrics exposes the Prometheus registry. It returns nil when
// METRICS_ADDR is set to an empty string.
func serveMetrics(ctx context.Context) *http.Server {
	addr := envutil.String("METRICS_ADDR", envutil.Default(defaultMetricsAddr)).ValueOrElse(defaultMetricsAddr)
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get(ctx).Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()

	shutdown.BeforeShutdown(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
		defer cancel()

		if err := srv.Shutdown(stopCtx); err != nil {
			slog.Error("Failed to stop metrics server", "error", err)
		}
	})

	return srv
}
