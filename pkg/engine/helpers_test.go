package engine

import (
	"context"
	"testing"

	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/rhuss/antwort-agents/pkg/idgen"
	"github.com/rhuss/antwort-agents/pkg/transport"
)

// recordingWriter captures everything the engine writes.
type recordingWriter struct {
	response *api.Response
	events   []api.StreamEvent

	// onEvent, when set, runs after each event is recorded.
	onEvent func(api.StreamEvent)
}

var _ transport.ResponseWriter = (*recordingWriter)(nil)

func (w *recordingWriter) WriteResponse(_ context.Context, resp *api.Response) error {
	w.response = resp
	return nil
}

func (w *recordingWriter) WriteEvent(_ context.Context, event api.StreamEvent) error {
	w.events = append(w.events, event)
	if w.onEvent != nil {
		w.onEvent(event)
	}
	return nil
}

func (w *recordingWriter) Flush() error { return nil }

func newTestProjector() *streamProjector {
	ids := idgen.New()
	req := &api.CreateResponseRequest{Input: api.Input{api.NewUserMessage("hi")}}
	return newStreamProjector(buildResponse(req, "test", ids.ResponseID(), nil), ids)
}

// project runs updates through a fresh projector and returns every event
// including the header and terminal events.
func project(t *testing.T, updates ...agent.Update) []api.StreamEvent {
	t.Helper()
	p := newTestProjector()
	events := p.start()
	for _, u := range updates {
		evs, err := p.handle(u)
		if err != nil {
			t.Fatalf("handle: %v", err)
		}
		events = append(events, evs...)
	}
	return append(events, p.finish()...)
}

func eventTypes(events []api.StreamEvent) []api.StreamEventType {
	out := make([]api.StreamEventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func assertTypes(t *testing.T, events []api.StreamEvent, want ...api.StreamEventType) {
	t.Helper()
	got := eventTypes(events)
	if len(got) != len(want) {
		t.Fatalf("got %d events %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func assertSequential(t *testing.T, events []api.StreamEvent) {
	t.Helper()
	for i, ev := range events {
		if ev.SequenceNumber != i {
			t.Fatalf("event[%d] (%s) has sequence_number %d", i, ev.Type, ev.SequenceNumber)
		}
	}
}

func text(s string) agent.Update {
	return agent.Update{Role: agent.RoleAssistant, Contents: []agent.Content{agent.TextContent{Text: s}}}
}

func textIn(messageID, s string) agent.Update {
	u := text(s)
	u.MessageID = messageID
	return u
}
