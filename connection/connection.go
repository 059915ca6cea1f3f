// Package connection provides a state machine for the lifecycle of a
// connection that can be established, lost, re-established and reset.
//
//	Ready --Connecting--> Connected --LosingConnection--> Lost
//	Connected --DisconnectingFromConnected--> Disconnected
//	Lost --Reconnecting--> Connected
//	Lost --DisconnectingFromLost--> Disconnected
//	Disconnected --ResettingFromDisconnected--> Ready
//	Dirty --ResettingFromDirty--> Ready
package connection

import (
	"context"

	"github.com/amp-labs/amp-lifecycle/statemachine"
)

// States.
const (
	StateReady statemachine.State = iota
	StateConnected
	StateDisconnected
	StateLost
	StateDirty
)

// Transitions.
const (
	TransitionConnecting statemachine.Transition = iota + 1
	TransitionDisconnectingFromConnected
	TransitionDisconnectingFromLost
	TransitionLosingConnection
	TransitionReconnecting
	TransitionResettingFromDisconnected
	TransitionResettingFromDirty
)

var definition = statemachine.MustNewTable("connection", //nolint:gochecknoglobals
	[]statemachine.StateSpec{
		{State: StateReady, Name: "ready"},
		{State: StateConnected, Name: "connected"},
		{State: StateDisconnected, Name: "disconnected"},
		{State: StateLost, Name: "lost"},
		{State: StateDirty, Name: "dirty"},
	},
	[]statemachine.TransitionSpec{
		{Transition: TransitionConnecting, Name: "connecting", From: StateReady, To: StateConnected},
		{
			Transition: TransitionDisconnectingFromConnected, Name: "disconnecting_from_connected",
			From: StateConnected, To: StateDisconnected,
		},
		{
			Transition: TransitionDisconnectingFromLost, Name: "disconnecting_from_lost",
			From: StateLost, To: StateDisconnected,
		},
		{Transition: TransitionLosingConnection, Name: "losing_connection", From: StateConnected, To: StateLost},
		{Transition: TransitionReconnecting, Name: "reconnecting", From: StateLost, To: StateConnected},
		{
			Transition: TransitionResettingFromDisconnected, Name: "resetting_from_disconnected",
			From: StateDisconnected, To: StateReady,
		},
		{Transition: TransitionResettingFromDirty, Name: "resetting_from_dirty", From: StateDirty, To: StateReady},
	})

// Definition returns the connection vocabulary.
func Definition() *statemachine.Table {
	return definition
}

// Machine drives a connection through its lifecycle. The delegate performs
// the actual networking.
type Machine struct {
	*statemachine.Machine
}

// New creates a machine in StateReady.
func New(delegate statemachine.Delegate, opts ...statemachine.Option) (*Machine, error) {
	return NewWithState(StateReady, delegate, opts...)
}

// NewWithState creates a machine in the given state. It is how a machine
// starts out StateDirty, which no transition leads to.
func NewWithState(initial statemachine.State, delegate statemachine.Delegate, opts ...statemachine.Option) (*Machine, error) {
	machine, err := statemachine.New(definition, initial, delegate,
		append([]statemachine.Option{statemachine.WithName("connection")}, opts...)...)
	if err != nil {
		return nil, err
	}

	return &Machine{Machine: machine}, nil
}

// Connect requests TransitionConnecting.
func (m *Machine) Connect(ctx context.Context) {
	m.ConnectWithCompletion(ctx, nil)
}

// ConnectWithCompletion requests TransitionConnecting.
func (m *Machine) ConnectWithCompletion(ctx context.Context, completion statemachine.Completion) {
	m.RequestTransition(ctx, TransitionConnecting, completion)
}

// Disconnect requests the disconnecting transition matching the state the
// machine is in when the request starts.
func (m *Machine) Disconnect(ctx context.Context) {
	m.DisconnectWithCompletion(ctx, nil)
}

// DisconnectWithCompletion requests TransitionDisconnectingFromLost when the
// machine is Lost as the request starts and TransitionDisconnectingFromConnected
// otherwise, leaving illegal requests for the machine to reject. A disconnect
// queued behind LoseConnection therefore disconnects from Lost.
func (m *Machine) DisconnectWithCompletion(ctx context.Context, completion statemachine.Completion) {
	m.Perform(ctx, statemachine.NewRequest(TransitionDisconnectingFromConnected,
		statemachine.WithCompletion(completion),
		statemachine.WithResolver(disconnectingFrom)))
}

func disconnectingFrom(state statemachine.State) statemachine.Transition {
	if state == StateLost {
		return TransitionDisconnectingFromLost
	}

	return TransitionDisconnectingFromConnected
}

// LoseConnection requests TransitionLosingConnection.
func (m *Machine) LoseConnection(ctx context.Context) {
	m.LoseConnectionWithCompletion(ctx, nil)
}

// LoseConnectionWithCompletion requests TransitionLosingConnection.
func (m *Machine) LoseConnectionWithCompletion(ctx context.Context, completion statemachine.Completion) {
	m.RequestTransition(ctx, TransitionLosingConnection, completion)
}

// Reconnect requests TransitionReconnecting.
func (m *Machine) Reconnect(ctx context.Context) {
	m.ReconnectWithCompletion(ctx, nil)
}

// ReconnectWithCompletion requests TransitionReconnecting.
func (m *Machine) ReconnectWithCompletion(ctx context.Context, completion statemachine.Completion) {
	m.RequestTransition(ctx, TransitionReconnecting, completion)
}

// Reset requests the resetting transition matching the state the machine is
// in when the request starts.
func (m *Machine) Reset(ctx context.Context) {
	m.ResetWithCompletion(ctx, nil)
}

// ResetWithCompletion requests TransitionResettingFromDirty when the machine is
// Dirty as the request starts and TransitionResettingFromDisconnected
// otherwise.
func (m *Machine) ResetWithCompletion(ctx context.Context, completion statemachine.Completion) {
	m.Perform(ctx, statemachine.NewRequest(TransitionResettingFromDisconnected,
		statemachine.WithCompletion(completion),
		statemachine.WithResolver(resettingFrom)))
}

func resettingFrom(state statemachine.State) statemachine.Transition {
	if state == StateDirty {
		return TransitionResettingFromDirty
	}

	return TransitionResettingFromDisconnected
}

func (m *Machine) IsReady() bool {
	return m.CurrentState() == StateReady
}

func (m *Machine) IsConnected() bool {
	return m.CurrentState() == StateConnected
}

func (m *Machine) IsDisconnected() bool {
	return m.CurrentState() == StateDisconnected
}

func (m *Machine) IsLost() bool {
	return m.CurrentState() == StateLost
}

func (m *Machine) IsDirty() bool {
	return m.CurrentState() == StateDirty
}

func (m *Machine) IsConnecting() bool {
	return m.CurrentTransition() == TransitionConnecting
}

// IsDisconnecting reports whether either disconnecting transition is running.
func (m *Machine) IsDisconnecting() bool {
	transition := m.CurrentTransition()

	return transition == TransitionDisconnectingFromConnected || transition == TransitionDisconnectingFromLost
}

func (m *Machine) IsLosingConnection() bool {
	return m.CurrentTransition() == TransitionLosingConnection
}

func (m *Machine) IsReconnecting() bool {
	return m.CurrentTransition() == TransitionReconnecting
}

// IsResetting reports whether either resetting transition is running.
func (m *Machine) IsResetting() bool {
	transition := m.CurrentTransition()

	return transition == TransitionResettingFromDisconnected || transition == TransitionResettingFromDirty
}
