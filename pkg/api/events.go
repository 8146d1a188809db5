package api

// StreamEventType identifies the type of a streaming event.
type StreamEventType string

// Item-level events convey output items and their content.
const (
	EventOutputItemAdded       StreamEventType = "response.output_item.added"
	EventContentPartAdded      StreamEventType = "response.content_part.added"
	EventOutputTextDelta       StreamEventType = "response.output_text.delta"
	EventOutputTextDone        StreamEventType = "response.output_text.done"
	EventFunctionCallArgsDelta StreamEventType = "response.function_call_arguments.delta"
	EventFunctionCallArgsDone  StreamEventType = "response.function_call_arguments.done"
	EventContentPartDone       StreamEventType = "response.content_part.done"
	EventOutputItemDone        StreamEventType = "response.output_item.done"
)

// Envelope events carry a full response snapshot.
const (
	EventResponseCreated    StreamEventType = "response.created"
	EventResponseInProgress StreamEventType = "response.in_progress"
	EventResponseCompleted  StreamEventType = "response.completed"
	EventResponseIncomplete StreamEventType = "response.incomplete"
	EventResponseFailed     StreamEventType = "response.failed"
)

// EventError reports a transport-level failure that happened before any
// response snapshot could be produced.
const EventError StreamEventType = "error"

// IsEnvelope reports whether events of this type carry a response snapshot.
func (t StreamEventType) IsEnvelope() bool {
	switch t {
	case EventResponseCreated, EventResponseInProgress, EventResponseCompleted,
		EventResponseIncomplete, EventResponseFailed:
		return true
	}
	return false
}

// IsTerminal reports whether an event of this type ends the stream.
func (t StreamEventType) IsTerminal() bool {
	switch t {
	case EventResponseCompleted, EventResponseIncomplete, EventResponseFailed, EventError:
		return true
	}
	return false
}

// StreamEvent represents a single server-sent event in a streaming response.
// OutputIndex and ContentIndex are always serialized because index 0 is
// meaningful for item-level events.
type StreamEvent struct {
	Type           StreamEventType `json:"type"`
	SequenceNumber int             `json:"sequence_number"`
	Response       *Response       `json:"response,omitempty"`
	Item           *Item           `json:"item,omitempty"`
	Part           *ContentPart    `json:"part,omitempty"`
	ItemID         string          `json:"item_id,omitempty"`
	OutputIndex    *int            `json:"output_index,omitempty"`
	ContentIndex   *int            `json:"content_index,omitempty"`
	Delta          string          `json:"delta,omitempty"`
	Text           *string         `json:"text,omitempty"`
	Arguments      *string         `json:"arguments,omitempty"`
	Name           string          `json:"name,omitempty"`
	Error          *APIError       `json:"error,omitempty"`
}
