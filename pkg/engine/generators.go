package engine

import (
	"errors"
	"fmt"

	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/rhuss/antwort-agents/pkg/idgen"
)

var (
	// ErrGeneratorCompleted is returned by Process once a generator has
	// emitted its output_item.done event.
	ErrGeneratorCompleted = errors.New("event generator already completed")

	// ErrUnsupportedContent is returned by Process for content the
	// generator does not handle.
	ErrUnsupportedContent = errors.New("content not supported by event generator")
)

// eventGenerator turns the content of one output item into stream events.
// A generator is single use: it owns exactly one output item at a fixed
// output index and content index 0.
type eventGenerator interface {
	// Supports reports whether c belongs to this generator's kind. It has
	// no side effects and may be called after completion.
	Supports(c agent.Content) bool

	// Process consumes one fragment of the item.
	Process(c agent.Content) ([]api.StreamEvent, error)

	// Complete finalizes the item. Calls after the first return nil.
	Complete() []api.StreamEvent

	// Completed reports whether the item has been closed.
	Completed() bool
}

type generatorFactory func(ids *idgen.Generator, seq *sequence, outputIndex int) eventGenerator

// generators maps each content kind that has a wire representation to its
// event generator. Kinds without an entry are dropped from the stream.
var generators = map[agent.Kind]generatorFactory{
	agent.KindText:           newTextGenerator,
	agent.KindFunctionCall:   newFunctionCallGenerator,
	agent.KindFunctionResult: newFunctionResultGenerator,
	agent.KindImage:          newPartGenerator(agent.KindImage, inputPartItem),
	agent.KindAudio:          newPartGenerator(agent.KindAudio, inputPartItem),
	agent.KindFile:           newPartGenerator(agent.KindFile, inputPartItem),
	agent.KindHostedFile:     newPartGenerator(agent.KindHostedFile, inputPartItem),
	agent.KindError:          newPartGenerator(agent.KindError, refusalItem),
}

func intp(i int) *int                          { return &i }
func strp(s string) *string                    { return &s }
func itemp(item api.Item) *api.Item            { return &item }
func partp(p api.ContentPart) *api.ContentPart { return &p }

func unsupported(kind agent.Kind, c agent.Content) error {
	return fmt.Errorf("%w: %s generator received %s content", ErrUnsupportedContent, kind, agent.KindOf(c))
}

// ---------------------------------------------------------------------------
// Text
// ---------------------------------------------------------------------------

// textGenerator streams an assistant message with one output_text part.
// The item stays open across fragments until Complete.
type textGenerator struct {
	ids         *idgen.Generator
	seq         *sequence
	outputIndex int

	itemID    string
	text      string
	started   bool
	completed bool
}

func newTextGenerator(ids *idgen.Generator, seq *sequence, outputIndex int) eventGenerator {
	return &textGenerator{ids: ids, seq: seq, outputIndex: outputIndex}
}

func (g *textGenerator) Supports(c agent.Content) bool {
	return agent.KindOf(c) == agent.KindText
}

func (g *textGenerator) Completed() bool { return g.completed }

func (g *textGenerator) Process(c agent.Content) ([]api.StreamEvent, error) {
	if g.completed {
		return nil, ErrGeneratorCompleted
	}
	if !g.Supports(c) {
		return nil, unsupported(agent.KindText, c)
	}
	delta := deref(c).(agent.TextContent).Text

	var events []api.StreamEvent
	if !g.started {
		g.started = true
		g.itemID = g.ids.MessageID()
		events = append(events,
			api.StreamEvent{
				Type:           api.EventOutputItemAdded,
				SequenceNumber: g.seq.Next(),
				OutputIndex:    intp(g.outputIndex),
				Item:           itemp(g.item(api.ItemStatusInProgress, nil)),
			},
			api.StreamEvent{
				Type:           api.EventContentPartAdded,
				SequenceNumber: g.seq.Next(),
				ItemID:         g.itemID,
				OutputIndex:    intp(g.outputIndex),
				ContentIndex:   intp(0),
				Part:           partp(api.ContentPart{Type: api.PartTypeOutputText}),
			},
		)
	}

	if delta != "" {
		g.text += delta
		events = append(events, api.StreamEvent{
			Type:           api.EventOutputTextDelta,
			SequenceNumber: g.seq.Next(),
			ItemID:         g.itemID,
			OutputIndex:    intp(g.outputIndex),
			ContentIndex:   intp(0),
			Delta:          delta,
		})
	}
	return events, nil
}

func (g *textGenerator) Complete() []api.StreamEvent {
	if g.completed {
		return nil
	}
	g.completed = true
	if !g.started {
		return nil
	}

	part := api.ContentPart{Type: api.PartTypeOutputText, Text: g.text}
	return []api.StreamEvent{
		{
			Type:           api.EventOutputTextDone,
			SequenceNumber: g.seq.Next(),
			ItemID:         g.itemID,
			OutputIndex:    intp(g.outputIndex),
			ContentIndex:   intp(0),
			Text:           strp(g.text),
		},
		{
			Type:           api.EventContentPartDone,
			SequenceNumber: g.seq.Next(),
			ItemID:         g.itemID,
			OutputIndex:    intp(g.outputIndex),
			ContentIndex:   intp(0),
			Part:           partp(part),
		},
		{
			Type:           api.EventOutputItemDone,
			SequenceNumber: g.seq.Next(),
			OutputIndex:    intp(g.outputIndex),
			Item:           itemp(g.item(api.ItemStatusCompleted, []api.ContentPart{part})),
		},
	}
}

func (g *textGenerator) item(status api.ItemStatus, parts []api.ContentPart) api.Item {
	return api.Item{
		ID:      g.itemID,
		Type:    api.ItemTypeMessage,
		Status:  status,
		Message: &api.MessageData{Role: api.RoleAssistant, Content: parts},
	}
}

// ---------------------------------------------------------------------------
// Function call
// ---------------------------------------------------------------------------

// functionCallGenerator emits a function_call item whose arguments arrive
// in a single delta.
type functionCallGenerator struct {
	ids         *idgen.Generator
	seq         *sequence
	outputIndex int
	completed   bool
}

func newFunctionCallGenerator(ids *idgen.Generator, seq *sequence, outputIndex int) eventGenerator {
	return &functionCallGenerator{ids: ids, seq: seq, outputIndex: outputIndex}
}

func (g *functionCallGenerator) Supports(c agent.Content) bool {
	return agent.KindOf(c) == agent.KindFunctionCall
}

func (g *functionCallGenerator) Completed() bool { return g.completed }

func (g *functionCallGenerator) Process(c agent.Content) ([]api.StreamEvent, error) {
	if g.completed {
		return nil, ErrGeneratorCompleted
	}
	if !g.Supports(c) {
		return nil, unsupported(agent.KindFunctionCall, c)
	}
	call := deref(c).(agent.FunctionCallContent)

	args, err := functionArguments(call.Arguments)
	if err != nil {
		return nil, err
	}

	itemID := g.ids.FunctionCallID()
	callID := call.CallID
	if callID == "" {
		callID = itemID
	}
	item := api.Item{
		ID:     itemID,
		Type:   api.ItemTypeFunctionCall,
		Status: api.ItemStatusInProgress,
		FunctionCall: &api.FunctionCallData{
			Name:   call.Name,
			CallID: callID,
		},
	}
	done := item
	done.Status = api.ItemStatusCompleted
	done.FunctionCall = &api.FunctionCallData{Name: call.Name, CallID: callID, Arguments: args}

	g.completed = true
	return []api.StreamEvent{
		{
			Type:           api.EventOutputItemAdded,
			SequenceNumber: g.seq.Next(),
			OutputIndex:    intp(g.outputIndex),
			Item:           itemp(item),
		},
		{
			Type:           api.EventFunctionCallArgsDelta,
			SequenceNumber: g.seq.Next(),
			ItemID:         itemID,
			OutputIndex:    intp(g.outputIndex),
			Delta:          args,
		},
		{
			Type:           api.EventFunctionCallArgsDone,
			SequenceNumber: g.seq.Next(),
			ItemID:         itemID,
			OutputIndex:    intp(g.outputIndex),
			Name:           call.Name,
			Arguments:      strp(args),
		},
		{
			Type:           api.EventOutputItemDone,
			SequenceNumber: g.seq.Next(),
			OutputIndex:    intp(g.outputIndex),
			Item:           itemp(done),
		},
	}, nil
}

func (g *functionCallGenerator) Complete() []api.StreamEvent {
	g.completed = true
	return nil
}

// ---------------------------------------------------------------------------
// Single-part items
// ---------------------------------------------------------------------------

// itemBuilder converts one fragment into a finished item and its single
// content part.
type itemBuilder func(ids *idgen.Generator, c agent.Content) (api.Item, api.ContentPart, error)

// partGenerator emits the four-event lifecycle for kinds that produce a
// complete item from one fragment: item added, part added, part done,
// item done.
type partGenerator struct {
	kind        agent.Kind
	build       itemBuilder
	ids         *idgen.Generator
	seq         *sequence
	outputIndex int
	completed   bool
}

func newPartGenerator(kind agent.Kind, build itemBuilder) generatorFactory {
	return func(ids *idgen.Generator, seq *sequence, outputIndex int) eventGenerator {
		return &partGenerator{kind: kind, build: build, ids: ids, seq: seq, outputIndex: outputIndex}
	}
}

func newFunctionResultGenerator(ids *idgen.Generator, seq *sequence, outputIndex int) eventGenerator {
	return newPartGenerator(agent.KindFunctionResult, functionResultItem)(ids, seq, outputIndex)
}

func (g *partGenerator) Supports(c agent.Content) bool {
	return agent.KindOf(c) == g.kind
}

func (g *partGenerator) Completed() bool { return g.completed }

func (g *partGenerator) Process(c agent.Content) ([]api.StreamEvent, error) {
	if g.completed {
		return nil, ErrGeneratorCompleted
	}
	if !g.Supports(c) {
		return nil, unsupported(g.kind, c)
	}

	item, part, err := g.build(g.ids, deref(c))
	if err != nil {
		return nil, err
	}
	added := item
	added.Status = api.ItemStatusInProgress
	item.Status = api.ItemStatusCompleted

	g.completed = true
	return []api.StreamEvent{
		{
			Type:           api.EventOutputItemAdded,
			SequenceNumber: g.seq.Next(),
			OutputIndex:    intp(g.outputIndex),
			Item:           itemp(added),
		},
		{
			Type:           api.EventContentPartAdded,
			SequenceNumber: g.seq.Next(),
			ItemID:         item.ID,
			OutputIndex:    intp(g.outputIndex),
			ContentIndex:   intp(0),
			Part:           partp(part),
		},
		{
			Type:           api.EventContentPartDone,
			SequenceNumber: g.seq.Next(),
			ItemID:         item.ID,
			OutputIndex:    intp(g.outputIndex),
			ContentIndex:   intp(0),
			Part:           partp(part),
		},
		{
			Type:           api.EventOutputItemDone,
			SequenceNumber: g.seq.Next(),
			OutputIndex:    intp(g.outputIndex),
			Item:           itemp(item),
		},
	}, nil
}

func (g *partGenerator) Complete() []api.StreamEvent {
	g.completed = true
	return nil
}

func messageItem(id string, part api.ContentPart) api.Item {
	return api.Item{
		ID:      id,
		Type:    api.ItemTypeMessage,
		Message: &api.MessageData{Role: api.RoleAssistant, Content: []api.ContentPart{part}},
	}
}

func inputPartItem(ids *idgen.Generator, c agent.Content) (api.Item, api.ContentPart, error) {
	part, err := inputPart(c)
	if err != nil {
		return api.Item{}, api.ContentPart{}, err
	}
	return messageItem(ids.MessageID(), part), part, nil
}

func refusalItem(ids *idgen.Generator, c agent.Content) (api.Item, api.ContentPart, error) {
	part := refusalPart(c.(agent.ErrorContent))
	return messageItem(ids.MessageID(), part), part, nil
}

func functionResultItem(ids *idgen.Generator, c agent.Content) (api.Item, api.ContentPart, error) {
	result := c.(agent.FunctionResultContent)
	output := functionOutput(result)
	item := api.Item{
		ID:   ids.FunctionOutputID(),
		Type: api.ItemTypeFunctionCallOutput,
		FunctionCallOutput: &api.FunctionCallOutputData{
			CallID: result.CallID,
			Output: output,
		},
	}
	return item, api.ContentPart{Type: api.PartTypeInputText, Text: output}, nil
}
