package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics counts order lifecycle events.
type OrderMetrics struct {
	created           prometheus.Counter
	cancelled         *prometheus.CounterVec
	insufficientStock prometheus.Counter
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tokoflow_orders_created_total",
		Help: "Orders created.",
	})
	cancelled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokoflow_orders_cancelled_total",
		Help: "Orders cancelled, by actor.",
	}, []string{"actor"})
	insufficientStock := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tokoflow_orders_insufficient_stock_total",
		Help: "Order attempts rejected for insufficient stock.",
	})
	reg.MustRegister(created, cancelled, insufficientStock)
	return &OrderMetrics{created: created, cancelled: cancelled, insufficientStock: insufficientStock}
}

func (m *OrderMetrics) IncCreated() {
	if m == nil || m.created == nil {
		return
	}
	m.created.Inc()
}

func (m *OrderMetrics) IncCancelled(actor string) {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.WithLabelValues(normalizeLabel(actor)).Inc()
}

func (m *OrderMetrics) IncInsufficientStock() {
	if m == nil || m.insufficientStock == nil {
		return
	}
	m.insufficientStock.Inc()
}
