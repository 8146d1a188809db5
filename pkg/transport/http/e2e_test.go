package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/agent/lorem"
	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/rhuss/antwort-agents/pkg/engine"
)

// newLoremServer serves a real engine with two lorem agents.
func newLoremServer(t *testing.T) *httptest.Server {
	t.Helper()
	plain, err := lorem.New(lorem.Config{Name: "lorem", Words: 5})
	if err != nil {
		t.Fatal(err)
	}
	counter, err := lorem.New(lorem.Config{Name: "counter", Words: 3, CountWords: true})
	if err != nil {
		t.Fatal(err)
	}
	reg, err := agent.NewRegistry(plain, counter)
	if err != nil {
		t.Fatal(err)
	}
	eng, err := engine.New(reg, engine.Config{DefaultAgent: "lorem"})
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(NewServer(eng, eng).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestEndToEndNonStreaming(t *testing.T) {
	srv := newLoremServer(t)

	resp := post(t, srv.URL+"/lorem/v1/responses", map[string]any{"input": "Hello, how are you?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out api.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Status != api.ResponseStatusCompleted || !api.ValidateResponseID(out.ID) {
		t.Errorf("status = %q id = %q", out.Status, out.ID)
	}
	if len(out.Output) != 1 || out.Output[0].Type != api.ItemTypeMessage {
		t.Fatalf("output = %+v", out.Output)
	}
	text := out.Output[0].Message.Content[0].Text
	if got := len(strings.Fields(text)); got != 5 {
		t.Errorf("answer %q has %d words, want 5", text, got)
	}
	if out.Usage == nil || out.Usage.InputTokens != 4 || out.Usage.OutputTokens != 5 || out.Usage.TotalTokens != 9 {
		t.Errorf("usage = %+v", out.Usage)
	}
}

func TestEndToEndStreamingWithToolCall(t *testing.T) {
	srv := newLoremServer(t)

	resp := post(t, srv.URL+"/v1/responses", map[string]any{
		"model":  "counter",
		"input":  "count these words",
		"stream": true,
	})
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	events, done := readSSE(t, resp)
	if !done {
		t.Error("stream did not end with [DONE]")
	}

	want := []api.StreamEventType{
		api.EventResponseCreated,
		api.EventResponseInProgress,
		api.EventOutputItemAdded,
		api.EventFunctionCallArgsDelta,
		api.EventFunctionCallArgsDone,
		api.EventOutputItemDone,
		api.EventOutputItemAdded,
		api.EventContentPartAdded,
		api.EventContentPartDone,
		api.EventOutputItemDone,
		api.EventOutputItemAdded,
		api.EventContentPartAdded,
		api.EventOutputTextDelta,
		api.EventOutputTextDelta,
		api.EventOutputTextDelta,
		api.EventOutputTextDone,
		api.EventContentPartDone,
		api.EventOutputItemDone,
		api.EventResponseCompleted,
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, ev.Type, want[i])
		}
		if ev.SequenceNumber != i {
			t.Errorf("event[%d] sequence_number = %d", i, ev.SequenceNumber)
		}
	}

	final := events[len(events)-1].Response
	if len(final.Output) != 3 {
		t.Fatalf("final output has %d items, want 3", len(final.Output))
	}
	call, result := final.Output[0], final.Output[1]
	if call.Type != api.ItemTypeFunctionCall || call.FunctionCall.Name != lorem.CountWordsTool {
		t.Errorf("first item = %+v", call)
	}
	if result.Type != api.ItemTypeFunctionCallOutput || result.FunctionCallOutput.Output != `{"words":3}` {
		t.Errorf("second item = %+v", result.FunctionCallOutput)
	}
	if result.FunctionCallOutput.CallID != call.FunctionCall.CallID {
		t.Error("function result does not reference the call")
	}
	if final.Agent == nil || final.Agent.Name != "counter" {
		t.Errorf("agent = %+v", final.Agent)
	}
}

func TestEndToEndUnknownAgent(t *testing.T) {
	srv := newLoremServer(t)

	resp := post(t, srv.URL+"/v1/responses", map[string]any{"model": "missing", "input": "hi"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if apiErr := decodeError(t, resp); apiErr.Code != api.CodeAgentNotFound || apiErr.Param != "model" {
		t.Errorf("error = %+v", apiErr)
	}
}

func TestEndToEndListAgents(t *testing.T) {
	srv := newLoremServer(t)

	resp, err := http.Get(srv.URL + "/v1/agents")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var list api.AgentList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 2 {
		t.Fatalf("got %d agents, want 2", len(list.Data))
	}
	counter, plain := list.Data[0], list.Data[1]
	if counter.Name != "counter" || len(counter.Tools) != 1 || counter.Tools[0].Name != lorem.CountWordsTool {
		t.Errorf("counter = %+v", counter)
	}
	if plain.Name != "lorem" || !plain.Default || len(plain.Tools) != 0 {
		t.Errorf("lorem = %+v", plain)
	}
}
