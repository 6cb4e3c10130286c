package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"cargroup/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/v1/groupings/{id}", routeLabel("/v1/groupings/3f2a/table.csv"))
	assert.Equal(t, "/v1/groupings/", routeLabel("/v1/groupings/"))
	assert.Equal(t, "/healthz", routeLabel("/healthz"))
}

func TestLogMiddlewareRecordsStatus(t *testing.T) {
	h := logMiddleware(zaptest.NewLogger(t), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/brew", "418"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/brew", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/brew", "418")))
}
