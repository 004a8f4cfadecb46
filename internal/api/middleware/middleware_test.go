package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/l5yth/potato-mesh/internal/metrics"
)

func TestExtractToken_Priority(t *testing.T) {
	req := httptest.NewRequest("PUT", "/transactions/1?access_token=query", nil)
	req.Header.Set("Authorization", "Bearer bearer")
	req.Header.Set(LegacyTokenHeader, "header")

	token, source := ExtractToken(req)
	assert.Equal(t, "bearer", token)
	assert.Equal(t, "bearer", source)

	req.Header.Del("Authorization")
	token, source = ExtractToken(req)
	assert.Equal(t, "header", token)
	assert.Equal(t, "header", source)

	req.Header.Del(LegacyTokenHeader)
	token, source = ExtractToken(req)
	assert.Equal(t, "query", token)
	assert.Equal(t, "query", source)
}

func TestExtractToken_IgnoresOtherSchemes(t *testing.T) {
	req := httptest.NewRequest("PUT", "/transactions/1?access_token=query", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	token, source := ExtractToken(req)
	assert.Equal(t, "query", token)
	assert.Equal(t, "query", source)

	empty := httptest.NewRequest("PUT", "/transactions/1", nil)
	empty.Header.Set("Authorization", "Bearer ")
	token, _ = ExtractToken(empty)
	assert.Empty(t, token)
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Put("/transactions/{txnID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	hit := metrics.HTTPRequestsTotal.WithLabelValues("PUT", "/transactions/{txnID}", "200")
	miss := metrics.HTTPRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")
	hitBefore, missBefore := testutil.ToFloat64(hit), testutil.ToFloat64(miss)

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/transactions/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-login.php", nil))

	assert.Equal(t, hitBefore+3, testutil.ToFloat64(hit))
	assert.Equal(t, missBefore+1, testutil.ToFloat64(miss))
}
