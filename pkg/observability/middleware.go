package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MetricsMiddleware wraps an HTTP handler to record request metrics.
//
// It captures:
//   - antwort_requests_total (counter): incremented per request with method, status class, and route labels
//   - antwort_request_duration_seconds (histogram): request duration with method and route labels
//   - antwort_streaming_connections_active (gauge): incremented while an SSE streaming response is in flight
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer sw.done()
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		route := routeLabel(r.URL.Path)
		statusStr := strconv.Itoa(sw.status/100) + "xx"

		RequestsTotal.WithLabelValues(r.Method, statusStr, route).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(duration)
	})
}

// routeLabel collapses request paths into a small label set so agent names
// and response IDs do not create unbounded series.
func routeLabel(path string) string {
	switch {
	case path == "/v1/responses":
		return "/v1/responses"
	case strings.HasPrefix(path, "/v1/responses/"):
		return "/v1/responses/{id}"
	case strings.HasSuffix(path, "/v1/responses"):
		return "/{agent}/v1/responses"
	case path == "/v1/agents":
		return "/v1/agents"
	case path == "/healthz":
		return "/healthz"
	}
	return "other"
}

// statusWriter wraps http.ResponseWriter to capture the status code and
// track streaming responses.
type statusWriter struct {
	http.ResponseWriter
	status    int
	written   bool
	streaming bool
}

// WriteHeader captures the status code and delegates to the underlying writer.
// An event-stream content type marks the connection as streaming.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
		if strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream") {
			w.streaming = true
			StreamingConnections.Inc()
		}
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write delegates to the underlying writer and marks the status as written.
func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements http.Flusher.
// This is essential for SSE streaming support.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter, enabling http.ResponseController
// and similar utilities to access the original writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// done releases the streaming gauge.
func (w *statusWriter) done() {
	if w.streaming {
		StreamingConnections.Dec()
		w.streaming = false
	}
}
