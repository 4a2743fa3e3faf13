package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_ExposesRecordedValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("orders_test", reg)

	c.OrdersSubmitted.WithLabelValues(ResultSuccess).Inc()
	c.OrdersSubmitted.WithLabelValues(ResultSuccess).Inc()
	c.OrdersSubmitted.WithLabelValues(ResultPublishFailure).Inc()
	c.ListenerDeliveries.Inc()

	assert.InDelta(t, 2, testutil.ToFloat64(c.OrdersSubmitted.WithLabelValues(ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.OrdersSubmitted.WithLabelValues(ResultPublishFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.ListenerDeliveries), 0)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `orders_test_ingest_orders_submitted_total{result="success"} 2`)
	assert.Contains(t, rec.Body.String(), "orders_test_listener_deliveries_total 1")
}

func TestNewCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollector("orders_test", prometheus.NewRegistry())
		NewCollector("orders_test", prometheus.NewRegistry())
	})
}
