// Package openclose provides the smallest useful lifecycle: something that
// is either closed or opened.
package openclose

import (
	"context"

	"github.com/amp-labs/amp-lifecycle/statemachine"
)

const (
	StateClosed statemachine.State = iota
	StateOpened
)

const (
	TransitionClosing statemachine.Transition = iota + 1
	TransitionOpening
)

var definition = statemachine.MustNewTable("openclose", //nolint:gochecknoglobals
	[]statemachine.StateSpec{
		{State: StateClosed, Name: "closed"},
		{State: StateOpened, Name: "opened"},
	},
	[]statemachine.TransitionSpec{
		{Transition: TransitionClosing, Name: "closing", From: StateOpened, To: StateClosed},
		{Transition: TransitionOpening, Name: "opening", From: StateClosed, To: StateOpened},
	})

// Definition returns the open/close vocabulary.
func Definition() *statemachine.Table {
	return definition
}

// Machine is an open/close state machine starting in StateClosed.
type Machine struct {
	*statemachine.Machine
}

func New(delegate statemachine.Delegate, opts ...statemachine.Option) (*Machine, error) {
	machine, err := statemachine.New(definition, StateClosed, delegate,
		append([]statemachine.Option{statemachine.WithName("openclose")}, opts...)...)
	if err != nil {
		return nil, err
	}

	return &Machine{Machine: machine}, nil
}

func (m *Machine) Open(ctx context.Context) {
	m.OpenWithCompletion(ctx, nil)
}

func (m *Machine) OpenWithCompletion(ctx context.Context, completion statemachine.Completion) {
	m.RequestTransition(ctx, TransitionOpening, completion)
}

func (m *Machine) Close(ctx context.Context) {
	m.CloseWithCompletion(ctx, nil)
}

func (m *Machine) CloseWithCompletion(ctx context.Context, completion statemachine.Completion) {
	m.RequestTransition(ctx, TransitionClosing, completion)
}

func (m *Machine) IsOpened() bool {
	return m.CurrentState() == StateOpened
}

func (m *Machine) IsClosed() bool {
	return m.CurrentState() == StateClosed
}

func (m *Machine) IsOpening() bool {
	return m.CurrentTransition() == TransitionOpening
}

func (m *Machine) IsClosing() bool {
	return m.CurrentTransition() == TransitionClosing
}
