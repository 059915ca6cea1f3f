package main

import (
	"context"
	"errors"
	"time"

	"github.com/amp-labs/amp-lifecycle/connection"
	"github.com/amp-labs/amp-lifecycle/logger"
	"github.com/amp-labs/amp-lifecycle/statemachine"
	"go.uber.org/atomic"
)

var errReconnectRefused = errors.New("peer refused reconnect")

// simulatedNetwork performs every transition after a fixed latency. It can
// be told to refuse reconnects, which leaves a connection machine Lost.
type simulatedNetwork struct {
	latency       time.Duration
	failReconnect bool

	performed atomic.Int64
	failed    atomic.Int64
}

func newSimulatedNetwork(latency time.Duration, failReconnect bool) *simulatedNetwork {
	return &simulatedNetwork{
		latency:       latency,
		failReconnect: failReconnect,
	}
}

func (n *simulatedNetwork) WillPerformTransition(
	ctx context.Context,
	sender *statemachine.Machine,
	req *statemachine.Request,
) {
	logger.Get(ctx).Debug("Preparing transition",
		"machine", sender.Name(),
		"transition", sender.DebugStringForTransition(req.Transition()))
}

func (n *simulatedNetwork) PerformTransition(ctx context.Context, sender *statemachine.Machine, req *statemachine.Request) {
	n.performed.Inc()

	succeeded, err := n.outcome(sender, req)

	time.AfterFunc(n.latency, func() {
		if !succeeded {
			n.failed.Inc()
		}

		if completeErr := sender.Complete(req, succeeded, err); completeErr != nil {
			logger.Get(ctx).Error("Failed to report transition outcome", "error", completeErr)
		}
	})
}

func (n *simulatedNetwork) DidPerformTransition(
	ctx context.Context,
	sender *statemachine.Machine,
	req *statemachine.Request,
	succeeded bool,
) {
	logger.Get(ctx).Debug("Transition finished",
		"machine", sender.Name(),
		"transition", sender.DebugStringForTransition(req.Transition()),
		"succeeded", succeeded,
		"state", sender.DebugStringForState(sender.CurrentState()))
}

func (n *simulatedNetwork) outcome(sender *statemachine.Machine, req *statemachine.Request) (bool, error) {
	if n.failReconnect &&
		sender.Definition() == connection.Definition() &&
		req.Transition() == connection.TransitionReconnecting {
		return false, errReconnectRefused
	}

	return true, nil
}

// Performed returns how many transitions the network was asked to perform.
func (n *simulatedNetwork) Performed() int64 {
	return n.performed.Load()
}

// Failed returns how many of them it reported as failed.
func (n *simulatedNetwork) Failed() int64 {
	return n.failed.Load()
}
