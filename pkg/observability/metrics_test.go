package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry.
func TestMetricsRegistered(t *testing.T) {
	expected := map[string]bool{
		"alertbridge_http_requests_total":           false,
		"alertbridge_http_request_duration_seconds": false,
		"alertbridge_auth_decisions_total":          false,
		"alertbridge_tokens_minted_total":           false,
		"alertbridge_broker_connected":              false,
		"alertbridge_broker_publishes_total":        false,
		"alertbridge_ratelimit_rejected_total":      false,
	}

	// Vectors only appear after their first observation.
	RequestsTotal.WithLabelValues("GET", "/healthz", "2xx").Inc()
	RequestDuration.WithLabelValues("GET", "/healthz").Observe(0.001)
	AuthDecisionsTotal.WithLabelValues("acl", "allow").Inc()
	TokensMintedTotal.WithLabelValues("user").Inc()
	BrokerPublishesTotal.WithLabelValues("sent").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

// TestMiddlewareRecordsRequestCount verifies that the middleware increments
// the request counter for each served request.
func TestMiddlewareRecordsRequestCount(t *testing.T) {
	before := counterValue(t, RequestsTotal, "POST", unmatchedRoute, "2xx")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/mqtt/acl", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	after := counterValue(t, RequestsTotal, "POST", unmatchedRoute, "2xx")
	if after-before != 1 {
		t.Errorf("expected request count to increase by 1, got delta=%f", after-before)
	}
}

// TestMiddlewareRecordsDuration verifies that the middleware records
// a request duration observation.
func TestMiddlewareRecordsDuration(t *testing.T) {
	before := histogramCount(t, RequestDuration, "PUT", unmatchedRoute)

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
	}))

	req := httptest.NewRequest("PUT", "/mqtt/user", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	after := histogramCount(t, RequestDuration, "PUT", unmatchedRoute)
	if after-before != 1 {
		t.Errorf("expected histogram sample count to increase by 1, got delta=%d", after-before)
	}
}

// TestMiddlewareCapturesStatusCode verifies that deny and bad-request
// statuses land in the 4xx class.
func TestMiddlewareCapturesStatusCode(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusForbidden} {
		before := counterValue(t, RequestsTotal, "POST", unmatchedRoute, "4xx")

		handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.WriteHeader(http.StatusOK) // ignored
		}))

		req := httptest.NewRequest("POST", "/mqtt/superuser", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		after := counterValue(t, RequestsTotal, "POST", unmatchedRoute, "4xx")
		if after-before != 1 {
			t.Errorf("status %d: expected 4xx count to increase by 1, got delta=%f", status, after-before)
		}
	}
}

func TestMiddlewareLabelsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Route("/mqtt", func(r chi.Router) {
		r.Post("/acl", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
	})

	before := counterValue(t, RequestsTotal, "POST", "/mqtt/acl", "4xx")
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/mqtt/acl", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/mqtt/acl", nil))

	if got := counterValue(t, RequestsTotal, "POST", "/mqtt/acl", "4xx") - before; got != 2 {
		t.Errorf("route-labelled count delta = %f, want 2", got)
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}
