package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts order lifecycle outcomes.
type OrderMetrics struct {
	created       prometheus.Counter
	confirmations *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	restocked     prometheus.Counter
	cancelErrors  prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Pending orders created by checkout.",
	})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirmations_total",
		Help: "Payment confirmation attempts by outcome.",
	}, []string{"outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"path", "to"})
	restocked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_restocked_units_total",
		Help: "Units returned to stock by refunds and compensation.",
	})
	cancelErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_gateway_cancel_failures_total",
		Help: "Compensating gateway cancellations that returned an error.",
	})
	reg.MustRegister(created, confirmations, transitions, restocked, cancelErrors)
	return &OrderMetrics{
		created:       created,
		confirmations: confirmations,
		transitions:   transitions,
		restocked:     restocked,
		cancelErrors:  cancelErrors,
	}
}

func (m *OrderMetrics) AddCreated(n int) {
	if m == nil || m.created == nil || n <= 0 {
		return
	}
	m.created.Add(float64(n))
}

func (m *OrderMetrics) IncConfirmation(outcome string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncTransition records a status change; path is "normal", "override",
// "payment" or "expiry".
func (m *OrderMetrics) IncTransition(path, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(path), normalizeLabel(to)).Inc()
}

func (m *OrderMetrics) AddRestocked(units int) {
	if m == nil || m.restocked == nil || units <= 0 {
		return
	}
	m.restocked.Add(float64(units))
}

func (m *OrderMetrics) IncCancelFailure() {
	if m == nil || m.cancelErrors == nil {
		return
	}
	m.cancelErrors.Inc()
}
