package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Gateway outcomes recorded by PaymentMetrics.
const (
	GatewayOutcomeSuccess       = "success"
	GatewayOutcomeRejected      = "rejected"
	GatewayOutcomeUnavailable   = "unavailable"
	GatewayOutcomeMisconfigured = "misconfigured"
)

// PaymentMetrics tracks calls to the payment gateway and inbound notifications.
type PaymentMetrics struct {
	gatewayDuration *prometheus.HistogramVec
	gatewayOutcomes *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokoflow_payment_gateway_request_duration_seconds",
		Help:    "Latency of payment gateway requests.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
	}, []string{"gateway"})
	gatewayOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokoflow_payment_gateway_requests_total",
		Help: "Payment gateway requests by outcome.",
	}, []string{"gateway", "outcome"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokoflow_payment_notifications_total",
		Help: "Gateway notifications applied, by mapped payment status.",
	}, []string{"gateway", "status"})
	reg.MustRegister(gatewayDuration, gatewayOutcomes, notifications)
	return &PaymentMetrics{
		gatewayDuration: gatewayDuration,
		gatewayOutcomes: gatewayOutcomes,
		notifications:   notifications,
	}
}

// ObserveGatewayCall records latency and outcome of one gateway request.
func (m *PaymentMetrics) ObserveGatewayCall(gateway, outcome string, duration time.Duration) {
	if m == nil || m.gatewayDuration == nil {
		return
	}
	gateway = normalizeLabel(gateway)
	m.gatewayDuration.WithLabelValues(gateway).Observe(duration.Seconds())
	m.gatewayOutcomes.WithLabelValues(gateway, normalizeLabel(outcome)).Inc()
}

func (m *PaymentMetrics) IncNotification(gateway, status string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(gateway), normalizeLabel(status)).Inc()
}
