package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry.
func TestMetricsRegistered(t *testing.T) {
	RequestsTotal.WithLabelValues("GET", "2xx", "/healthz").Inc()
	RequestDuration.WithLabelValues("GET", "/healthz").Observe(0.1)
	ResponsesTotal.WithLabelValues("test", "sync", "completed").Inc()
	AgentLatency.WithLabelValues("test", "sync").Observe(0.1)
	AgentTokensTotal.WithLabelValues("test", "input").Add(1)
	StreamEventsTotal.WithLabelValues("response.created").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	expected := map[string]bool{
		"antwort_requests_total":               false,
		"antwort_request_duration_seconds":     false,
		"antwort_streaming_connections_active": false,
		"antwort_responses_total":              false,
		"antwort_agent_latency_seconds":        false,
		"antwort_agent_tokens_total":           false,
		"antwort_stream_events_total":          false,
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

func TestRecordResponse(t *testing.T) {
	before := testutil.ToFloat64(ResponsesTotal.WithLabelValues("recorder", "stream", "completed"))
	inputBefore := testutil.ToFloat64(AgentTokensTotal.WithLabelValues("recorder", "input"))

	RecordResponse("recorder", "stream", "completed", 250*time.Millisecond, TokenCounts{Input: 10, Output: 4})

	if got := testutil.ToFloat64(ResponsesTotal.WithLabelValues("recorder", "stream", "completed")); got != before+1 {
		t.Errorf("responses_total = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(AgentTokensTotal.WithLabelValues("recorder", "input")); got != inputBefore+10 {
		t.Errorf("tokens_total{input} = %v, want %v", got, inputBefore+10)
	}

	m := &dto.Metric{}
	if err := AgentLatency.WithLabelValues("recorder", "stream").(prometheus.Histogram).Write(m); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if m.GetHistogram().GetSampleCount() == 0 {
		t.Error("agent latency histogram has no samples")
	}
}

func TestMetricsMiddleware(t *testing.T) {
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("POST", "2xx", "/{agent}/v1/responses"))

	req := httptest.NewRequest(http.MethodPost, "/writer/v1/responses", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if got := testutil.ToFloat64(RequestsTotal.WithLabelValues("POST", "2xx", "/{agent}/v1/responses")); got != before+1 {
		t.Errorf("requests_total = %v, want %v", got, before+1)
	}
}

func TestMetricsMiddlewareStreamingGauge(t *testing.T) {
	var during float64
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		during = testutil.ToFloat64(StreamingConnections)
	}))

	before := testutil.ToFloat64(StreamingConnections)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/responses", nil))

	if during != before+1 {
		t.Errorf("gauge during stream = %v, want %v", during, before+1)
	}
	if after := testutil.ToFloat64(StreamingConnections); after != before {
		t.Errorf("gauge after stream = %v, want %v", after, before)
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/v1/responses":            "/v1/responses",
		"/v1/responses/resp_123":   "/v1/responses/{id}",
		"/lorem/v1/responses":      "/{agent}/v1/responses",
		"/v1/agents":               "/v1/agents",
		"/healthz":                 "/healthz",
		"/something/else/entirely": "other",
	}
	for path, want := range tests {
		if got := routeLabel(path); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}
