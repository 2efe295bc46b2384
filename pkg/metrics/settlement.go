package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records counters for the order settlement flow.
type SettlementMetrics struct {
	ordersCreated    prometheus.Counter
	orderTransitions *prometheus.CounterVec
	paymentsVerified *prometheus.CounterVec
	payoutsRequested prometheus.Counter
	gatewayDuration  *prometheus.HistogramVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders accepted by the settlement pipeline.",
	})
	orderTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order state transitions by target status.",
	}, []string{"status"})
	paymentsVerified := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Payment verification outcomes by gateway.",
	}, []string{"gateway", "outcome"})
	payoutsRequested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payouts_requested_total",
		Help: "Vendor payout requests accepted.",
	})
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of outbound payment gateway calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway"})
	reg.MustRegister(ordersCreated, orderTransitions, paymentsVerified, payoutsRequested, gatewayDuration)
	return &SettlementMetrics{
		ordersCreated:    ordersCreated,
		orderTransitions: orderTransitions,
		paymentsVerified: paymentsVerified,
		payoutsRequested: payoutsRequested,
		gatewayDuration:  gatewayDuration,
	}
}

// IncOrderCreated increments the created-orders counter.
func (s *SettlementMetrics) IncOrderCreated() {
	if s == nil || s.ordersCreated == nil {
		return
	}
	s.ordersCreated.Inc()
}

// IncOrderTransition increments the transition counter for the target status.
func (s *SettlementMetrics) IncOrderTransition(status string) {
	if s == nil || s.orderTransitions == nil {
		return
	}
	s.orderTransitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncPaymentVerified increments the verification counter for a gateway outcome.
func (s *SettlementMetrics) IncPaymentVerified(gateway, outcome string) {
	if s == nil || s.paymentsVerified == nil {
		return
	}
	s.paymentsVerified.WithLabelValues(normalizeLabel(gateway), normalizeLabel(outcome)).Inc()
}

// IncPayoutRequested increments the payout-request counter.
func (s *SettlementMetrics) IncPayoutRequested() {
	if s == nil || s.payoutsRequested == nil {
		return
	}
	s.payoutsRequested.Inc()
}

// ObserveGatewayDuration records the wall time of one gateway call.
func (s *SettlementMetrics) ObserveGatewayDuration(gateway string, duration time.Duration) {
	if s == nil || s.gatewayDuration == nil {
		return
	}
	s.gatewayDuration.WithLabelValues(normalizeLabel(gateway)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
