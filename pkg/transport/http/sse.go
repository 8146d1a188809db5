package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/rhuss/antwort-agents/pkg/transport"
)

// writerState tracks the state of an SSE ResponseWriter.
type writerState int

const (
	writerIdle      writerState = iota // no writes yet
	writerStreaming                    // at least one event written
	writerCompleted                    // terminal event sent or WriteResponse called
)

var (
	errWriterCompleted  = errors.New("writer is completed")
	errAlreadyStreaming = errors.New("streaming has already started")
)

// sseResponseWriter implements transport.ResponseWriter for HTTP. Streaming
// responses are written as server-sent events, non-streaming ones as JSON.
type sseResponseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu        sync.Mutex
	state     writerState
	streamed  bool
	nextSeq   int
	onCreated func(id string)
}

var _ transport.ResponseWriter = (*sseResponseWriter)(nil)

// newSSEResponseWriter wraps w. onCreated, when non-nil, is called once with
// the response ID carried by the first response.created event.
func newSSEResponseWriter(w http.ResponseWriter, onCreated func(id string)) *sseResponseWriter {
	return &sseResponseWriter{
		w:         w,
		rc:        http.NewResponseController(w),
		onCreated: onCreated,
	}
}

// WriteEvent sends a single event framed as
//
//	event: {type}\n
//	data: {json}\n
//	\n
//
// and follows a terminal event with
//
//	data: [DONE]\n
//	\n
func (s *sseResponseWriter) WriteEvent(_ context.Context, event api.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return fmt.Errorf("cannot write %s event: %w", event.Type, errWriterCompleted)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	if s.state == writerIdle {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.state = writerStreaming
		s.streamed = true
	}

	if event.Type == api.EventResponseCreated && event.Response != nil && s.onCreated != nil {
		s.onCreated(event.Response.ID)
		s.onCreated = nil
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("write %s event: %w", event.Type, err)
	}

	s.nextSeq = event.SequenceNumber + 1

	if event.Type.IsTerminal() {
		if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
			return fmt.Errorf("write [DONE]: %w", err)
		}
		s.state = writerCompleted
	}

	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// WriteResponse sends a complete non-streaming JSON response.
func (s *sseResponseWriter) WriteResponse(_ context.Context, resp *api.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case writerStreaming:
		return fmt.Errorf("cannot write response: %w", errAlreadyStreaming)
	case writerCompleted:
		return fmt.Errorf("cannot write response: %w", errWriterCompleted)
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.w.WriteHeader(http.StatusOK)
	s.state = writerCompleted

	if err := json.NewEncoder(s.w).Encode(resp); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}

// Flush ensures buffered data is sent to the client.
func (s *sseResponseWriter) Flush() error {
	return s.rc.Flush()
}

// started reports whether any bytes of the response body were written.
func (s *sseResponseWriter) started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != writerIdle
}

// nextSequence returns the sequence number following the last event written.
func (s *sseResponseWriter) nextSequence() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq
}

// streaming reports whether the response is an event stream that has not
// yet seen a terminal event.
func (s *sseResponseWriter) streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamed && s.state == writerStreaming
}
