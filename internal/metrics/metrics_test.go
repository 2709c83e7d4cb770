package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/filecheck/internal/core"
)

func TestObserveRun(t *testing.T) {
	c := New()

	c.ObserveRun(core.Outcome{
		Status: core.StatusRejected,
		Verdicts: []core.Verdict{
			{Rule: core.RuleFileName, Passed: false},
			{Rule: core.RuleFileSize, Passed: true},
		},
	}, 20*time.Millisecond)
	c.ObserveRun(core.Outcome{Status: core.StatusError}, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.verdictsTotal.WithLabelValues(core.RuleFileName, "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.verdictsTotal.WithLabelValues(core.RuleFileSize, "true")))

	// Only the started run is timed.
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "filecheck_run_duration_seconds_count 1\n")
}

func TestMiddleware_RoutePattern(t *testing.T) {
	c := New()

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/results/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/results/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(
		c.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/results/{id}", "418")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.httpRequestsInFlight))
}

func TestMiddleware_ImplicitOK(t *testing.T) {
	c := New()

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues(http.MethodGet, "/", "200")))
}

func TestHandler(t *testing.T) {
	c := New()
	c.RateLimited()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "filecheck_rate_limit_rejects_total 1"), body)
	assert.Contains(t, body, "go_goroutines")
}
