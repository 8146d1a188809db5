package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/rhuss/antwort-agents/pkg/idgen"
	"github.com/rhuss/antwort-agents/pkg/transport"
)

// mockCreator is a configurable mock ResponseCreator for testing.
type mockCreator struct {
	response *api.Response
	err      error
	events   []api.StreamEvent

	gotAgent string
	gotReq   *api.CreateResponseRequest
}

func (m *mockCreator) CreateResponse(ctx context.Context, req *api.CreateResponseRequest, w transport.ResponseWriter) error {
	m.gotAgent = transport.AgentFromContext(ctx)
	m.gotReq = req
	for _, event := range m.events {
		if err := w.WriteEvent(ctx, event); err != nil {
			return err
		}
	}
	if m.err != nil {
		return m.err
	}
	if m.response != nil {
		return w.WriteResponse(ctx, m.response)
	}
	return nil
}

type staticLister []api.AgentInfo

func (l staticLister) ListAgents(context.Context) []api.AgentInfo { return l }

func newTestServer(t *testing.T, creator transport.ResponseCreator) (*Adapter, *httptest.Server) {
	t.Helper()
	adapter := NewAdapter(creator, nil, DefaultConfig())
	srv := httptest.NewServer(adapter.Handler())
	t.Cleanup(srv.Close)
	return adapter, srv
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) *api.APIError {
	t.Helper()
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Error == nil {
		t.Fatal("error response has no error object")
	}
	return errResp.Error
}

func TestNonStreamingPostReturnsJSON(t *testing.T) {
	id := idgen.New().ResponseID()
	creator := &mockCreator{
		response: &api.Response{ID: id, Object: "response", Status: api.ResponseStatusCompleted, Model: "lorem"},
	}
	_, srv := newTestServer(t, creator)

	resp := post(t, srv.URL+"/v1/responses", map[string]any{"model": "lorem", "input": "hi"})

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	var got api.Response
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.ID != id {
		t.Errorf("response ID = %q, want %q", got.ID, id)
	}
	if creator.gotAgent != "" {
		t.Errorf("agent from context = %q, want empty on /v1/responses", creator.gotAgent)
	}
	if len(creator.gotReq.Input) != 1 || creator.gotReq.Input[0].Message.Role != api.RoleUser {
		t.Errorf("string input not decoded as one user message: %+v", creator.gotReq.Input)
	}
}

func TestAgentPathSetsAgent(t *testing.T) {
	creator := &mockCreator{response: &api.Response{Object: "response"}}
	_, srv := newTestServer(t, creator)

	resp := post(t, srv.URL+"/writer/v1/responses", map[string]any{"input": "hi"})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if creator.gotAgent != "writer" {
		t.Errorf("agent from context = %q, want writer", creator.gotAgent)
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	creator := &mockCreator{response: &api.Response{Object: "response"}}
	_, srv := newTestServer(t, creator)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/responses", strings.NewReader(`{"input":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}

func TestRequestRejections(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		maxBody     int64
		wantStatus  int
	}{
		{"invalid JSON", "application/json", "{invalid", 0, http.StatusBadRequest},
		{"wrong content type", "text/plain", "{}", 0, http.StatusUnsupportedMediaType},
		{"oversized body", "application/json", `{"model":"lorem","input":"a long enough input"}`, 10, http.StatusRequestEntityTooLarge},
		{"bad input type", "application/json", `{"input":42}`, 0, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.maxBody > 0 {
				cfg.MaxBodySize = tt.maxBody
			}
			srv := httptest.NewServer(NewAdapter(&mockCreator{}, nil, cfg).Handler())
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/v1/responses", tt.contentType, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := decodeError(t, resp); got.Type != api.ErrorTypeInvalidRequest {
				t.Errorf("error type = %q, want %q", got.Type, api.ErrorTypeInvalidRequest)
			}
		})
	}
}

func TestContentTypeWithCharsetAccepted(t *testing.T) {
	creator := &mockCreator{response: &api.Response{Object: "response"}}
	_, srv := newTestServer(t, creator)

	resp, err := http.Post(srv.URL+"/v1/responses", "application/json; charset=utf-8", strings.NewReader(`{"input":"hi"}`))
	if err != nil {
		t.Fatalf("POST error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestUnknownPathAndMethod(t *testing.T) {
	_, srv := newTestServer(t, &mockCreator{})

	resp, err := http.Get(srv.URL + "/v1/nonexistent")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/responses", strings.NewReader("{}"))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("PUT status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   api.ErrorType
	}{
		{"invalid_request -> 400", api.NewInvalidRequestError("input", "required"), http.StatusBadRequest, api.ErrorTypeInvalidRequest},
		{"not_found -> 404", api.NewNotFoundError("agent not found"), http.StatusNotFound, api.ErrorTypeNotFound},
		{"server_error -> 500", api.NewServerError("internal"), http.StatusInternalServerError, api.ErrorTypeServerError},
		{"agent failure -> 502", api.NewAgentError("lorem", errors.New("down")), http.StatusBadGateway, api.ErrorTypeModelError},
		{"plain error -> 500", errors.New("boom"), http.StatusInternalServerError, api.ErrorTypeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newTestServer(t, &mockCreator{err: tt.err})

			resp := post(t, srv.URL+"/v1/responses", map[string]any{"input": "hi"})

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := decodeError(t, resp); got.Type != tt.wantType {
				t.Errorf("error type = %q, want %q", got.Type, tt.wantType)
			}
		})
	}
}

func TestStreamingPostReturnsSSE(t *testing.T) {
	id := idgen.New().ResponseID()
	creator := &mockCreator{
		events: []api.StreamEvent{
			{Type: api.EventResponseCreated, SequenceNumber: 0, Response: &api.Response{ID: id, Status: api.ResponseStatusInProgress}},
			{Type: api.EventOutputTextDelta, SequenceNumber: 1, Delta: "Hello"},
			{Type: api.EventResponseCompleted, SequenceNumber: 2, Response: &api.Response{ID: id, Status: api.ResponseStatusCompleted}},
		},
	}
	_, srv := newTestServer(t, creator)

	resp := post(t, srv.URL+"/v1/responses", map[string]any{"input": "hi", "stream": true})

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	events, done := readSSE(t, resp)
	if !done {
		t.Error("missing [DONE] sentinel")
	}
	want := []api.StreamEventType{api.EventResponseCreated, api.EventOutputTextDelta, api.EventResponseCompleted}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, ev.Type, want[i])
		}
	}
}

func TestStreamingErrorBeforeEventsReturnsJSON(t *testing.T) {
	_, srv := newTestServer(t, &mockCreator{err: api.NewNotFoundError("agent \"x\" not found")})

	resp := post(t, srv.URL+"/x/v1/responses", map[string]any{"input": "hi", "stream": true})

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestStreamingErrorAfterEventsEmitsErrorEvent(t *testing.T) {
	creator := &mockCreator{
		events: []api.StreamEvent{
			{Type: api.EventResponseCreated, SequenceNumber: 0, Response: &api.Response{ID: idgen.New().ResponseID()}},
			{Type: api.EventResponseInProgress, SequenceNumber: 1, Response: &api.Response{}},
		},
		err: errors.New("writer broke"),
	}
	_, srv := newTestServer(t, creator)

	resp := post(t, srv.URL+"/v1/responses", map[string]any{"input": "hi", "stream": true})

	events, done := readSSE(t, resp)
	if !done {
		t.Error("missing [DONE] sentinel after error event")
	}
	last := events[len(events)-1]
	if last.Type != api.EventError {
		t.Fatalf("last event = %s, want error", last.Type)
	}
	if last.Error == nil || last.Error.Type != api.ErrorTypeServerError {
		t.Errorf("error event payload = %+v", last.Error)
	}
	for i, ev := range events {
		if ev.SequenceNumber != i {
			t.Errorf("event[%d] %s sequence_number = %d, want %d", i, ev.Type, ev.SequenceNumber, i)
		}
	}
}

func TestStreamingCancelledWritesNoTerminalEvent(t *testing.T) {
	creator := &mockCreator{
		events: []api.StreamEvent{
			{Type: api.EventResponseCreated, Response: &api.Response{ID: idgen.New().ResponseID()}},
		},
		err: context.Canceled,
	}
	_, srv := newTestServer(t, creator)

	resp := post(t, srv.URL+"/v1/responses", map[string]any{"input": "hi", "stream": true})

	events, done := readSSE(t, resp)
	if done {
		t.Error("cancelled stream must not end with [DONE]")
	}
	if len(events) != 1 {
		t.Errorf("got %d events, want only response.created", len(events))
	}
}

func TestStreamingInFlightCleanedUp(t *testing.T) {
	id := idgen.New().ResponseID()
	creator := &mockCreator{
		events: []api.StreamEvent{
			{Type: api.EventResponseCreated, Response: &api.Response{ID: id}},
			{Type: api.EventResponseCompleted, Response: &api.Response{ID: id}},
		},
	}
	adapter, srv := newTestServer(t, creator)

	resp := post(t, srv.URL+"/v1/responses", map[string]any{"input": "hi", "stream": true})
	readSSE(t, resp)

	if adapter.InFlight().Len() != 0 {
		t.Error("in-flight entry should be removed after the stream ends")
	}
}

func TestStreamingExplicitCancellation(t *testing.T) {
	id := idgen.New().ResponseID()
	started := make(chan struct{})
	done := make(chan error, 1)

	creator := transport.ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponseRequest, w transport.ResponseWriter) error {
		w.WriteEvent(ctx, api.StreamEvent{
			Type:     api.EventResponseCreated,
			Response: &api.Response{ID: id, Status: api.ResponseStatusInProgress},
		})
		close(started)

		select {
		case <-ctx.Done():
			done <- ctx.Err()
			return ctx.Err()
		case <-time.After(10 * time.Second):
			done <- errors.New("not cancelled")
			return nil
		}
	})
	adapter, srv := newTestServer(t, creator)

	go func() {
		resp, err := http.Post(srv.URL+"/lorem/v1/responses", "application/json", strings.NewReader(`{"input":"hi","stream":true}`))
		if err != nil {
			return
		}
		defer resp.Body.Close()
		new(bytes.Buffer).ReadFrom(resp.Body)
	}()

	<-started

	list := adapter.InFlight().List()
	if len(list) != 1 || list[0].ResponseID != id || list[0].Agent != "lorem" {
		t.Errorf("in-flight list = %+v", list)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/responses/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("handler ended with %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not complete after cancellation")
	}
}

func TestCancelUnknownAndMalformedIDs(t *testing.T) {
	_, srv := newTestServer(t, &mockCreator{})

	tests := []struct {
		name       string
		id         string
		wantStatus int
		wantCode   string
	}{
		{"not in flight", idgen.New().ResponseID(), http.StatusNotFound, ""},
		{"malformed", "resp_short", http.StatusBadRequest, api.CodeMalformedID},
		{"wrong prefix", idgen.New().MessageID(), http.StatusBadRequest, api.CodeMalformedID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/responses/"+tt.id, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("DELETE error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := decodeError(t, resp); got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestListAgents(t *testing.T) {
	lister := staticLister{
		{Object: "agent", Name: "lorem", Description: "placeholder text", Default: true},
		{Object: "agent", Name: "openai"},
	}
	srv := httptest.NewServer(NewAdapter(&mockCreator{}, lister, DefaultConfig()).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/agents")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	var list api.AgentList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if list.Object != "list" || len(list.Data) != 2 {
		t.Fatalf("list = %+v", list)
	}
	if list.Data[0].Name != "lorem" || !list.Data[0].Default {
		t.Errorf("first agent = %+v", list.Data[0])
	}
}

func TestListAgentsWithoutLister(t *testing.T) {
	_, srv := newTestServer(t, &mockCreator{})

	resp, err := http.Get(srv.URL + "/v1/agents")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	var list api.AgentList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if list.Data == nil || len(list.Data) != 0 {
		t.Errorf("data = %v, want empty list", list.Data)
	}
}

// readSSE reads the whole stream and returns the decoded events and whether
// the [DONE] sentinel was seen.
func readSSE(t *testing.T, resp *http.Response) ([]api.StreamEvent, bool) {
	t.Helper()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}

	var (
		events []api.StreamEvent
		done   bool
	)
	for _, frame := range strings.Split(buf.String(), "\n\n") {
		if frame == "" {
			continue
		}
		var eventType, data string
		for _, line := range strings.Split(frame, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				eventType = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
		if data == "[DONE]" {
			done = true
			continue
		}
		var ev api.StreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decode event %q: %v", data, err)
		}
		if string(ev.Type) != eventType {
			t.Errorf("event line %q does not match payload type %q", eventType, ev.Type)
		}
		events = append(events, ev)
	}
	return events, done
}
