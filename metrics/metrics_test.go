package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistryExposesCollectors(t *testing.T) {
	reg := NewRegistry()
	reg.Checkouts.WithLabelValues("completed").Inc()
	reg.MergedLines.WithLabelValues("guest").Add(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Checkouts.WithLabelValues("completed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(reg.MergedLines.WithLabelValues("guest")))

	w := httptest.NewRecorder()
	reg.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `shopcart_checkouts_total{outcome="completed"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
