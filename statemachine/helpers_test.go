package statemachine

import "context"

const (
	testClosed State = iota
	testOpened
)

const (
	testOpening Transition = iota + 1
	testClosing
)

func testTable() *Table {
	return MustNewTable("door",
		[]StateSpec{
			{State: testClosed, Name: "closed"},
			{State: testOpened, Name: "opened"},
		},
		[]TransitionSpec{
			{Transition: testOpening, Name: "opening", From: testClosed, To: testOpened},
			{Transition: testClosing, Name: "closing", From: testOpened, To: testClosed},
		})
}

// parkingDelegate keeps every transition in flight until the test completes it.
type parkingDelegate struct {
	performed []Transition
}

func (d *parkingDelegate) PerformTransition(_ context.Context, _ *Machine, req *Request) {
	d.performed = append(d.performed, req.Transition())
}

func succeedingDelegate() Delegate {
	return DelegateFunc(func(_ context.Context, sender *Machine, req *Request) {
		_ = sender.Complete(req, true, nil)
	})
}
