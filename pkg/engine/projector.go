package engine

import (
	"fmt"
	"time"

	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/rhuss/antwort-agents/pkg/debug"
	"github.com/rhuss/antwort-agents/pkg/idgen"
)

// messageKey identifies the message an update belongs to.
type messageKey struct {
	author    string
	role      agent.Role
	messageID string
}

// startsNewMessage reports whether next belongs to a different message than
// prev. Only fields that were set on prev are compared.
func (prev messageKey) startsNewMessage(next messageKey) bool {
	return (prev.author != "" && prev.author != next.author) ||
		(prev.role != "" && prev.role != next.role) ||
		(prev.messageID != "" && prev.messageID != next.messageID)
}

// streamProjector converts the update stream of one agent run into Responses
// stream events and keeps the response snapshot those events carry. One
// projector serves exactly one response and is not safe for concurrent use.
type streamProjector struct {
	ids  *idgen.Generator
	seq  sequence
	base api.Response

	status api.ResponseStatus
	output []api.Item
	usage  api.Usage

	gen       eventGenerator
	nextIndex int

	prev    messageKey
	hasPrev bool

	finishReason agent.FinishReason
}

func newStreamProjector(base api.Response, ids *idgen.Generator) *streamProjector {
	return &streamProjector{ids: ids, base: base}
}

// start emits response.created and response.in_progress.
func (p *streamProjector) start() []api.StreamEvent {
	p.mustTransition(api.ResponseStatusInProgress)
	return []api.StreamEvent{
		p.envelope(api.EventResponseCreated),
		p.envelope(api.EventResponseInProgress),
	}
}

// handle processes one update. Errors indicate a routing bug in the
// projector, never bad agent output.
func (p *streamProjector) handle(u agent.Update) ([]api.StreamEvent, error) {
	var events []api.StreamEvent

	key := messageKey{author: u.AuthorName, role: u.Role, messageID: u.MessageID}
	if p.hasPrev && p.prev.startsNewMessage(key) {
		events = append(events, p.closeItem()...)
	}
	p.prev, p.hasPrev = key, true

	if u.FinishReason != "" {
		p.finishReason = u.FinishReason
	}

	for _, c := range u.Contents {
		kind := agent.KindOf(c)
		if kind == agent.KindUsage {
			p.usage = p.usage.Add(toAPIUsage(deref(c).(agent.UsageContent).Details))
			continue
		}

		factory, ok := generators[kind]
		if !ok {
			debug.Log(debug.Engine, "dropping content without wire mapping", "kind", kind.String())
			continue
		}

		if p.gen == nil || p.gen.Completed() || !p.gen.Supports(c) {
			events = append(events, p.closeItem()...)
			p.gen = factory(p.ids, &p.seq, p.nextIndex)
			p.nextIndex++
		}

		evs, err := p.gen.Process(c)
		if err != nil {
			return events, fmt.Errorf("processing %s content: %w", kind, err)
		}
		events = append(events, p.commit(evs)...)
	}
	return events, nil
}

// finish closes the open item and emits the terminal event:
// response.incomplete when the agent stopped at a limit or content filter,
// response.completed otherwise.
func (p *streamProjector) finish() []api.StreamEvent {
	events := p.closeItem()

	switch p.finishReason {
	case agent.FinishReasonLength, agent.FinishReasonContentFilter:
		p.mustTransition(api.ResponseStatusIncomplete)
		return append(events, p.envelope(api.EventResponseIncomplete))
	default:
		p.mustTransition(api.ResponseStatusCompleted)
		return append(events, p.envelope(api.EventResponseCompleted))
	}
}

// fail emits response.failed carrying apiErr. The open item, if any, is
// abandoned rather than completed.
func (p *streamProjector) fail(apiErr *api.APIError) []api.StreamEvent {
	p.mustTransition(api.ResponseStatusFailed)
	p.gen = nil
	ev := p.envelope(api.EventResponseFailed)
	ev.Response.Error = apiErr
	return []api.StreamEvent{ev}
}

// closeItem completes the active generator and commits its item.
func (p *streamProjector) closeItem() []api.StreamEvent {
	if p.gen == nil {
		return nil
	}
	events := p.commit(p.gen.Complete())
	p.gen = nil
	return events
}

// commit appends the item of every output_item.done event to the output.
func (p *streamProjector) commit(events []api.StreamEvent) []api.StreamEvent {
	for _, ev := range events {
		if ev.Type == api.EventOutputItemDone && ev.Item != nil {
			p.output = append(p.output, *ev.Item)
		}
	}
	return events
}

// mustTransition moves the snapshot status. The projector's own call order
// guarantees a valid transition, so a failure is a bug.
func (p *streamProjector) mustTransition(to api.ResponseStatus) {
	if apiErr := api.ValidateResponseTransition(p.status, to); apiErr != nil {
		panic(fmt.Sprintf("response %s: %v", p.base.ID, apiErr))
	}
	p.status = to
}

// envelope builds an envelope event around a fresh snapshot.
func (p *streamProjector) envelope(t api.StreamEventType) api.StreamEvent {
	return api.StreamEvent{
		Type:           t,
		SequenceNumber: p.seq.Next(),
		Response:       p.snapshot(),
	}
}

// snapshot copies the current response state. Events never share a
// Response value, so emitted events stay immutable.
func (p *streamProjector) snapshot() *api.Response {
	resp := p.base
	resp.Status = p.status
	resp.Output = make([]api.Item, len(p.output))
	copy(resp.Output, p.output)

	if p.status.IsTerminal() {
		usage := p.usage
		resp.Usage = &usage
		if p.status == api.ResponseStatusCompleted {
			now := time.Now().Unix()
			resp.CompletedAt = &now
		}
	}
	if p.status == api.ResponseStatusIncomplete {
		resp.IncompleteDetails = &api.IncompleteDetails{Reason: incompleteReason(p.finishReason)}
	}
	return &resp
}

func incompleteReason(r agent.FinishReason) string {
	if r == agent.FinishReasonContentFilter {
		return "content_filter"
	}
	return "max_output_tokens"
}
