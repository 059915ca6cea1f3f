package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes.
const (
	outcomeAccepted = "accepted"
	outcomeQueued   = "queued"
	outcomeRejected = "rejected"
)

// Transition outcomes.
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Metric definitions with appropriate labels.
var (
	// transitionRequestsTotal tracks requests by what the machine did with them.
	transitionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transition_requests_total",
		Help: "Total number of transition requests by machine, transition and outcome (accepted, queued or rejected)",
	}, []string{"machine", "transition", "outcome"})

	// transitionsTotal tracks finished transitions.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transitions_total",
		Help: "Total number of finished transitions by machine, transition, from_state, resulting to_state and outcome",
	}, []string{"machine", "transition", "from_state", "to_state", "outcome"})

	// transitionDuration tracks how long delegates take to perform transitions.
	transitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_transition_duration_seconds",
		Help:    "Duration between a transition starting and its delegate reporting the outcome",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"machine", "transition", "outcome"})

	// transitionsInFlight counts machines performing a transition.
	transitionsInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statemachine_transitions_in_flight",
		Help: "Number of machines with this name currently performing a transition",
	}, []string{"machine"})

	// pendingRequests counts occupied pending slots.
	pendingRequests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statemachine_pending_requests",
		Help: "Number of machines with this name whose pending request slot is occupied",
	}, []string{"machine"})
)

func sanitizeMachine(name string) string {
	if name == "" {
		return "unnamed"
	}

	return name
}

// adjustGauge moves gauge by one when the tracked flag changes, so machines
// sharing a name add up instead of overwriting each other.
func adjustGauge(gauge prometheus.Gauge, was *bool, now bool) {
	if *was == now {
		return
	}

	*was = now

	if now {
		gauge.Inc()
	} else {
		gauge.Dec()
	}
}

func (m *Machine) recordRequest(req *Request, outcome string) {
	transitionRequestsTotal.WithLabelValues(
		sanitizeMachine(m.name),
		m.DebugStringForTransition(req.Transition()),
		outcome,
	).Inc()
}

func (m *Machine) recordCompleted(act *activeTransition, succeeded bool) {
	outcome := outcomeSuccess
	if !succeeded {
		outcome = outcomeError
	}

	transition := m.DebugStringForTransition(act.request.req.Transition())

	// A failed transition leaves the machine where it started.
	to := act.to
	if !succeeded {
		to = act.from
	}

	transitionsTotal.WithLabelValues(
		sanitizeMachine(m.name),
		transition,
		m.DebugStringForState(act.from),
		m.DebugStringForState(to),
		outcome,
	).Inc()

	transitionDuration.WithLabelValues(
		sanitizeMachine(m.name),
		transition,
		outcome,
	).Observe(act.elapsed().Seconds())
}

func (m *Machine) recordSlotsLocked() {
	adjustGauge(transitionsInFlight.WithLabelValues(sanitizeMachine(m.name)), &m.gaugedActive, m.active != nil)
	adjustGauge(pendingRequests.WithLabelValues(sanitizeMachine(m.name)), &m.gaugedPending, m.pending != nil)
}
