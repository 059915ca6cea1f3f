package statemachine

import (
	"sync"

	"github.com/google/uuid"
)

// Request captures a requested transition and its completion. A Request is
// immutable once built, except that a request with a resolver settles its
// transition when it starts. It is held by the machine until the transition
// it describes finishes and its completion has fired.
type Request struct {
	id         string
	payload    any
	completion Completion
	onSuccess  *Request
	onFailure  *Request
	resolver   func(State) Transition

	mu         sync.Mutex
	transition Transition

	once sync.Once
}

// RequestOption configures a Request at construction time.
type RequestOption func(*Request)

// WithPayload attaches an arbitrary value that the delegate receives with the request.
func WithPayload(payload any) RequestOption {
	return func(r *Request) {
		r.payload = payload
	}
}

// WithCompletion sets the callback invoked when the request finishes.
func WithCompletion(completion Completion) RequestOption {
	return func(r *Request) {
		r.completion = completion
	}
}

// OnSuccess chains a request that runs right after this one succeeds, ahead of
// any pending request.
func OnSuccess(next *Request) RequestOption {
	return func(r *Request) {
		r.onSuccess = next
	}
}

// OnFailure chains a request that runs right after this one fails, ahead of
// any pending request.
func OnFailure(next *Request) RequestOption {
	return func(r *Request) {
		r.onFailure = next
	}
}

// WithResolver picks the transition from the machine's state at the moment
// the request starts, rather than when it is submitted. Until then, and
// whenever the resolver returns a reserved transition, the transition given
// to NewRequest is used. The resolver runs with the machine's lock held and
// must not call back into the machine.
func WithResolver(resolver func(State) Transition) RequestOption {
	return func(r *Request) {
		r.resolver = resolver
	}
}

// NewRequest builds a request for the given transition.
func NewRequest(transition Transition, opts ...RequestOption) *Request {
	req := &Request{
		id:         uuid.NewString(),
		transition: transition,
	}

	for _, opt := range opts {
		opt(req)
	}

	return req
}

// ID returns the unique identifier of the request, used in logs and spans.
func (r *Request) ID() string {
	return r.id
}

// Transition returns the requested transition.
func (r *Request) Transition() Transition {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.transition
}

// resolve settles the transition for the given state and returns it.
func (r *Request) resolve(state State) Transition {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolver != nil {
		if transition := r.resolver(state); !transition.IsReserved() {
			r.transition = transition
		}
	}

	return r.transition
}

// Payload returns the value attached with WithPayload, or nil.
func (r *Request) Payload() any {
	return r.payload
}

// Next returns the request chained on the given outcome, or nil.
func (r *Request) Next(succeeded bool) *Request {
	if succeeded {
		return r.onSuccess
	}

	return r.onFailure
}

// complete invokes the completion at most once. Returns false if it had
// already been invoked.
func (r *Request) complete(succeeded bool, err error) bool {
	fired := false

	r.once.Do(func() {
		fired = true

		if r.completion != nil {
			r.completion(succeeded, err)
		}
	})

	return fired
}
