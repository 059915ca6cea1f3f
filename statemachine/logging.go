package statemachine

import (
	"context"
	"log/slog"
	"time"

	"github.com/amp-labs/amp-lifecycle/logger"
)

// TransitionInfo describes a transition request for the logging hooks.
type TransitionInfo struct {
	Machine    string
	RequestID  string
	Transition string
	From       string
	To         string
}

// Logger provides logging hooks for state machine execution.
type Logger interface {
	TransitionRequested(ctx context.Context, info TransitionInfo)
	TransitionQueued(ctx context.Context, info TransitionInfo)
	TransitionRejected(ctx context.Context, info TransitionInfo, err error)
	TransitionStarted(ctx context.Context, info TransitionInfo)
	TransitionCompleted(ctx context.Context, info TransitionInfo, duration time.Duration, succeeded bool, err error)
	CallbackPanicked(ctx context.Context, info TransitionInfo, callback string, err error)
}

// DefaultLogger implements Logger on top of logger.Get, so subsystem and
// context values set with logger.With end up on every line.
type DefaultLogger struct {
	base *slog.Logger
}

// NewDefaultLogger creates a new default logger.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

// NewSlogLogger creates a Logger writing to the given slog.Logger instead of
// the process default. Context values added with logger.With are not included.
func NewSlogLogger(base *slog.Logger) *DefaultLogger {
	return &DefaultLogger{base: base}
}

func (l *DefaultLogger) get(ctx context.Context) *slog.Logger {
	if l.base != nil {
		return l.base
	}

	return logger.Get(ctx)
}

func (l *DefaultLogger) TransitionRequested(ctx context.Context, info TransitionInfo) {
	l.get(ctx).DebugContext(ctx, "Transition requested", info.fields()...)
}

func (l *DefaultLogger) TransitionQueued(ctx context.Context, info TransitionInfo) {
	l.get(ctx).InfoContext(ctx, "Transition queued behind running transition", info.fields()...)
}

func (l *DefaultLogger) TransitionRejected(ctx context.Context, info TransitionInfo, err error) {
	l.get(ctx).WarnContext(ctx, "Transition rejected", append(info.fields(), "error", err)...)
}

func (l *DefaultLogger) TransitionStarted(ctx context.Context, info TransitionInfo) {
	l.get(ctx).InfoContext(ctx, "Transition started", info.fields()...)
}

func (l *DefaultLogger) TransitionCompleted(
	ctx context.Context,
	info TransitionInfo,
	duration time.Duration,
	succeeded bool,
	err error,
) {
	fields := append(info.fields(), "duration_ms", duration.Milliseconds())

	if succeeded {
		l.get(ctx).InfoContext(ctx, "Transition completed", fields...)

		return
	}

	if err != nil {
		fields = append(fields, "error", err)
	}

	l.get(ctx).WarnContext(ctx, "Transition failed", fields...)
}

func (l *DefaultLogger) CallbackPanicked(ctx context.Context, info TransitionInfo, callback string, err error) {
	l.get(ctx).ErrorContext(ctx, "Panic in state machine callback",
		append(info.fields(), "callback", callback, "error", err)...)
}

func (i TransitionInfo) fields() []any {
	fields := []any{
		"machine", i.Machine,
		"request_id", i.RequestID,
		"transition", i.Transition,
	}

	if i.From != "" {
		fields = append(fields, "from", i.From)
	}

	if i.To != "" {
		fields = append(fields, "to", i.To)
	}

	return fields
}

// info builds the logging view of a request.
func (m *Machine) info(req *Request) TransitionInfo {
	transition := req.Transition()

	info := TransitionInfo{
		Machine:    m.name,
		RequestID:  req.ID(),
		Transition: m.DebugStringForTransition(transition),
	}

	if transition.IsReserved() {
		return info
	}

	if from := m.definition.InitialStateForTransition(transition); from != StateNotAvailable {
		info.From = m.DebugStringForState(from)
	}

	if to := m.definition.FinalStateForTransition(transition); to != StateNotAvailable {
		info.To = m.DebugStringForState(to)
	}

	return info
}
