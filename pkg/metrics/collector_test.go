package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/users/:id", "404"))

	RecordRequest("GET", "/api/users/:id", http.StatusNotFound, 5*time.Millisecond)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/users/:id", "404"))
	assert.Equal(t, before+1, after)
}

func TestRecordStoreOperation_DefaultsLabels(t *testing.T) {
	before := testutil.ToFloat64(storeOperationsTotal.WithLabelValues("unknown", "get", "unknown"))

	RecordStoreOperation("", "get", "", time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(storeOperationsTotal.WithLabelValues("unknown", "get", "unknown")))
}

func TestRecordErrorAndGauge(t *testing.T) {
	RecordError("E404", "low")
	SetUsersTotal(50)

	assert.GreaterOrEqual(t, testutil.ToFloat64(errorsTotal.WithLabelValues("E404", "low")), 1.0)
	assert.Equal(t, 50.0, testutil.ToFloat64(usersTotal))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordRequest("POST", "/api/users", http.StatusCreated, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "http_requests_total")
}
