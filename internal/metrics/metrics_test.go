package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.TradesImported(3)
	m.TradesImported(2)
	m.ImportFailed("field")
	m.TradeMutated("created")

	assert.Equal(t, 5.0, testutil.ToFloat64(m.tradesImported))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.importFailures.WithLabelValues("field")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.importFailures.WithLabelValues("business")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tradeMutations.WithLabelValues("created")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.TradesImported(1)
		m.ImportFailed("coercion")
		m.TradeMutated("deleted")
		m.ObserveImport(0.5)
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.TradesImported(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "logitrades_trades_imported_total 1")
}
