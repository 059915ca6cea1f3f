package statemachine

import "context"

// Delegate performs the side effect of a transition. It is supplied by the
// client and never owned by the machine.
//
// PerformTransition must eventually call sender.Complete(req, ...) exactly
// once, from any goroutine. It should not block: long running work belongs on
// another goroutine.
type Delegate interface {
	PerformTransition(ctx context.Context, sender *Machine, req *Request)
}

// TransitionWillPerformer is an optional Delegate hook invoked just before
// PerformTransition.
type TransitionWillPerformer interface {
	WillPerformTransition(ctx context.Context, sender *Machine, req *Request)
}

// TransitionDidPerformer is an optional Delegate hook invoked once the outcome
// is known, before the request's completion.
type TransitionDidPerformer interface {
	DidPerformTransition(ctx context.Context, sender *Machine, req *Request, succeeded bool)
}

// DelegateFunc adapts a plain function to the Delegate interface.
type DelegateFunc func(ctx context.Context, sender *Machine, req *Request)

func (f DelegateFunc) PerformTransition(ctx context.Context, sender *Machine, req *Request) {
	f(ctx, sender, req)
}
