package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPaymentMetricsRecordsGatewayAndNotifications(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.ObserveGatewayCall("midtrans", GatewayOutcomeSuccess, 120*time.Millisecond)
	m.ObserveGatewayCall("midtrans", GatewayOutcomeUnavailable, 2*time.Second)
	m.IncNotification("midtrans", "success")
	m.IncNotification("midtrans", "success")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	sum, err := fetchHistogramSum(mfs, "tokoflow_payment_gateway_request_duration_seconds", "gateway", "midtrans")
	require.NoError(t, err)
	require.InDelta(t, 2.12, sum, 0.001)

	got, err := fetchCounterValue(mfs, "tokoflow_payment_notifications_total", "status", "success")
	require.NoError(t, err)
	require.Equal(t, float64(2), got)

	got, err = fetchCounterValue(mfs, "tokoflow_payment_gateway_requests_total", "outcome", GatewayOutcomeUnavailable)
	require.NoError(t, err)
	require.Equal(t, float64(1), got)
}

func TestOrderMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.IncCreated()
	m.IncCancelled("system")
	m.IncInsufficientStock()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	got, err := fetchCounterValue(mfs, "tokoflow_orders_cancelled_total", "actor", "system")
	require.NoError(t, err)
	require.Equal(t, float64(1), got)
	require.NotNil(t, findMetricFamily(mfs, "tokoflow_orders_created_total"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var p *PaymentMetrics
	var o *OrderMetrics
	var c *CronJobMetrics
	p.ObserveGatewayCall("midtrans", GatewayOutcomeSuccess, time.Second)
	p.IncNotification("midtrans", "failed")
	o.IncCreated()
	o.IncCancelled("customer")
	c.ObserveRun("job", time.Second, nil)
	c.IncCycleSkipped()
	NewPaymentMetrics(nil).IncNotification("midtrans", "pending")
}

func TestEmptyLabelsRecordAsUnknown(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.IncCancelled("")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	got, err := fetchCounterValue(mfs, "tokoflow_orders_cancelled_total", "actor", "unknown")
	require.NoError(t, err)
	require.Equal(t, float64(1), got)
}
