package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestRecordHTTPRequest(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordHTTPRequest("GET", "/api/directories", 200, 0.01)
	m.RecordHTTPRequest("GET", "/api/directories", 200, 0.02)
	m.RecordHTTPRequest("GET", "/api/directories", 500, 0.03)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/directories", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/directories", "500")))
}

func TestRecordDeletionAndAuditErrors(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordDeletion("model")
	m.RecordAuditPublishError()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.deletionsTotal.WithLabelValues("model")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.auditPublishErrors))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	m.RecordDeletion("clash_file")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `revit_qc_deletions_total{entity="clash_file"} 1`))
}
