package statemachine

// PendingPolicy decides what happens to a request that arrives while a
// transition is running and the pending slot is already occupied.
type PendingPolicy int

const (
	// PendingReject rejects the newer request with ErrBusy and keeps the one
	// already queued.
	PendingReject PendingPolicy = iota
	// PendingReplace queues the newer request and cancels the older one with
	// ErrTransitionCancelled.
	PendingReplace
)

func (p PendingPolicy) String() string {
	switch p {
	case PendingReject:
		return "reject"
	case PendingReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Executor runs callback batches. Implementations must run submitted
// functions one at a time, in submission order.
type Executor interface {
	Execute(f func())
}

type machineOptions struct {
	name     string
	logger   Logger
	executor Executor
	policy   PendingPolicy
}

// Option configures a Machine.
type Option func(*machineOptions)

// WithName sets the machine name used in logs, spans, metrics and errors.
func WithName(name string) Option {
	return func(o *machineOptions) {
		o.name = name
	}
}

// WithLogger sets the logger hooks. Passing nil disables logging.
func WithLogger(logger Logger) Option {
	return func(o *machineOptions) {
		o.logger = logger
	}
}

// WithExecutor routes every delegate call and completion through the executor
// instead of the calling goroutine.
func WithExecutor(executor Executor) Option {
	return func(o *machineOptions) {
		o.executor = executor
	}
}

// WithPendingPolicy sets the pending slot policy. The default is PendingReject.
func WithPendingPolicy(policy PendingPolicy) Option {
	return func(o *machineOptions) {
		o.policy = policy
	}
}
