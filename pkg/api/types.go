package api

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Content parts
// ---------------------------------------------------------------------------

// Content part types.
const (
	PartTypeInputText  = "input_text"
	PartTypeInputImage = "input_image"
	PartTypeInputAudio = "input_audio"
	PartTypeInputFile  = "input_file"
	PartTypeOutputText = "output_text"
	PartTypeRefusal    = "refusal"
)

// ContentPart is one piece of content inside a message item. The Type field
// selects which of the remaining fields are meaningful:
//
//   - input_text, output_text: Text (output_text also Annotations, Logprobs)
//   - refusal: Refusal
//   - input_image: ImageURL or FileID, Detail
//   - input_audio: InputAudio
//   - input_file: FileData and Filename, FileURL, or FileID
type ContentPart struct {
	Type string `json:"-"`

	Text        string         `json:"-"`
	Annotations []Annotation   `json:"-"`
	Logprobs    []TokenLogprob `json:"-"`

	Refusal string `json:"-"`

	ImageURL string `json:"-"`
	Detail   string `json:"-"`

	InputAudio *InputAudio `json:"-"`

	FileID   string `json:"-"`
	FileData string `json:"-"`
	FileURL  string `json:"-"`
	Filename string `json:"-"`
}

// InputAudio carries base64 audio data and its short format code.
type InputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

// MarshalJSON writes the flat wire form of the part. output_text parts always
// carry annotations and logprobs arrays, never null.
func (p ContentPart) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case PartTypeOutputText:
		type wire struct {
			Type        string         `json:"type"`
			Text        string         `json:"text"`
			Annotations []Annotation   `json:"annotations"`
			Logprobs    []TokenLogprob `json:"logprobs"`
		}
		w := wire{Type: p.Type, Text: p.Text, Annotations: p.Annotations, Logprobs: p.Logprobs}
		if w.Annotations == nil {
			w.Annotations = []Annotation{}
		}
		if w.Logprobs == nil {
			w.Logprobs = []TokenLogprob{}
		}
		return json.Marshal(w)

	case PartTypeInputText:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{p.Type, p.Text})

	case PartTypeRefusal:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Refusal string `json:"refusal"`
		}{p.Type, p.Refusal})

	case PartTypeInputImage:
		return json.Marshal(struct {
			Type     string `json:"type"`
			ImageURL string `json:"image_url,omitempty"`
			FileID   string `json:"file_id,omitempty"`
			Detail   string `json:"detail,omitempty"`
		}{p.Type, p.ImageURL, p.FileID, p.Detail})

	case PartTypeInputAudio:
		return json.Marshal(struct {
			Type       string      `json:"type"`
			InputAudio *InputAudio `json:"input_audio"`
		}{p.Type, p.InputAudio})

	case PartTypeInputFile:
		return json.Marshal(struct {
			Type     string `json:"type"`
			FileID   string `json:"file_id,omitempty"`
			FileData string `json:"file_data,omitempty"`
			FileURL  string `json:"file_url,omitempty"`
			Filename string `json:"filename,omitempty"`
		}{p.Type, p.FileID, p.FileData, p.FileURL, p.Filename})

	default:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		}{p.Type, p.Text})
	}
}

// UnmarshalJSON reads any of the flat part shapes.
func (p *ContentPart) UnmarshalJSON(data []byte) error {
	var w struct {
		Type        string         `json:"type"`
		Text        string         `json:"text"`
		Annotations []Annotation   `json:"annotations"`
		Logprobs    []TokenLogprob `json:"logprobs"`
		Refusal     string         `json:"refusal"`
		ImageURL    string         `json:"image_url"`
		Detail      string         `json:"detail"`
		InputAudio  *InputAudio    `json:"input_audio"`
		FileID      string         `json:"file_id"`
		FileData    string         `json:"file_data"`
		FileURL     string         `json:"file_url"`
		Filename    string         `json:"filename"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = ContentPart{
		Type:        w.Type,
		Text:        w.Text,
		Annotations: w.Annotations,
		Logprobs:    w.Logprobs,
		Refusal:     w.Refusal,
		ImageURL:    w.ImageURL,
		Detail:      w.Detail,
		InputAudio:  w.InputAudio,
		FileID:      w.FileID,
		FileData:    w.FileData,
		FileURL:     w.FileURL,
		Filename:    w.Filename,
	}
	return nil
}

// Annotation represents an annotation on output text, such as a citation.
type Annotation struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	StartIndex int    `json:"start_index,omitempty"`
	EndIndex   int    `json:"end_index,omitempty"`
}

// TokenLogprob holds log probability information for a single token.
type TokenLogprob struct {
	Token       string       `json:"token"`
	Logprob     float64      `json:"logprob"`
	TopLogprobs []TopLogprob `json:"top_logprobs,omitempty"`
}

// TopLogprob holds a candidate token and its log probability.
type TopLogprob struct {
	Token   string  `json:"token"`
	Logprob float64 `json:"logprob"`
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleDeveloper MessageRole = "developer"
)

// ItemType represents the type of an item in a conversation.
type ItemType string

const (
	ItemTypeMessage            ItemType = "message"
	ItemTypeFunctionCall       ItemType = "function_call"
	ItemTypeFunctionCallOutput ItemType = "function_call_output"
	ItemTypeReasoning          ItemType = "reasoning"
)

// ItemStatus represents the processing status of an item.
type ItemStatus string

const (
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusIncomplete ItemStatus = "incomplete"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusFailed     ItemStatus = "failed"
)

// MessageData holds the data specific to a message item.
type MessageData struct {
	Role    MessageRole   `json:"role"`
	Content []ContentPart `json:"content,omitempty"`
}

// FunctionCallData holds the data specific to a function call item.
type FunctionCallData struct {
	Name      string `json:"name"`
	CallID    string `json:"call_id"`
	Arguments string `json:"arguments"`
}

// FunctionCallOutputData holds the data specific to a function call output item.
type FunctionCallOutputData struct {
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// ReasoningData holds the data specific to a reasoning item.
type ReasoningData struct {
	Content          string `json:"content,omitempty"`
	EncryptedContent string `json:"encrypted_content,omitempty"`
	Summary          string `json:"summary,omitempty"`
}

// Item is a single top-level element of a response's output or a request's
// input: a message, a function call, a function call output, or a reasoning
// step. Exactly one of the type-specific pointers is set.
type Item struct {
	ID     string     `json:"id"`
	Type   ItemType   `json:"type"`
	Status ItemStatus `json:"status"`

	Message            *MessageData            `json:"message,omitempty"`
	FunctionCall       *FunctionCallData       `json:"function_call,omitempty"`
	FunctionCallOutput *FunctionCallOutputData `json:"function_call_output,omitempty"`
	Reasoning          *ReasoningData          `json:"reasoning,omitempty"`
}

// itemWireBase contains fields common to all item types.
type itemWireBase struct {
	ID     string     `json:"id"`
	Type   ItemType   `json:"type"`
	Status ItemStatus `json:"status"`
}

// MarshalJSON serializes an Item to the flat Responses wire format:
// type-specific fields sit at the top level next to id, type and status.
func (item Item) MarshalJSON() ([]byte, error) {
	base := itemWireBase{ID: item.ID, Type: item.Type, Status: item.Status}

	switch item.Type {
	case ItemTypeMessage:
		type wireMessage struct {
			itemWireBase
			Role    MessageRole   `json:"role"`
			Content []ContentPart `json:"content"`
		}
		w := wireMessage{itemWireBase: base, Content: []ContentPart{}}
		if item.Message != nil {
			w.Role = item.Message.Role
			if len(item.Message.Content) > 0 {
				w.Content = item.Message.Content
			}
		}
		return json.Marshal(w)

	case ItemTypeFunctionCall:
		type wireFunctionCall struct {
			itemWireBase
			CallID    string `json:"call_id"`
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		}
		w := wireFunctionCall{itemWireBase: base}
		if item.FunctionCall != nil {
			w.CallID = item.FunctionCall.CallID
			w.Name = item.FunctionCall.Name
			w.Arguments = item.FunctionCall.Arguments
		}
		return json.Marshal(w)

	case ItemTypeFunctionCallOutput:
		type wireFunctionCallOutput struct {
			itemWireBase
			CallID string `json:"call_id"`
			Output string `json:"output"`
		}
		w := wireFunctionCallOutput{itemWireBase: base}
		if item.FunctionCallOutput != nil {
			w.CallID = item.FunctionCallOutput.CallID
			w.Output = item.FunctionCallOutput.Output
		}
		return json.Marshal(w)

	case ItemTypeReasoning:
		type wireReasoning struct {
			itemWireBase
			Content          string `json:"content,omitempty"`
			EncryptedContent string `json:"encrypted_content,omitempty"`
			Summary          string `json:"summary,omitempty"`
		}
		w := wireReasoning{itemWireBase: base}
		if item.Reasoning != nil {
			w.Content = item.Reasoning.Content
			w.EncryptedContent = item.Reasoning.EncryptedContent
			w.Summary = item.Reasoning.Summary
		}
		return json.Marshal(w)

	default:
		return json.Marshal(base)
	}
}

// UnmarshalJSON deserializes an Item from the flat wire format. A message
// without a type (the "easy input" form {"role": ..., "content": ...}) is
// accepted as a message item, and content may be a plain string.
func (item *Item) UnmarshalJSON(data []byte) error {
	var base struct {
		ID     string     `json:"id"`
		Type   ItemType   `json:"type"`
		Status ItemStatus `json:"status"`

		Role      MessageRole     `json:"role"`
		Content   json.RawMessage `json:"content"`
		CallID    string          `json:"call_id"`
		Name      string          `json:"name"`
		Arguments string          `json:"arguments"`
		Output    json.RawMessage `json:"output"`

		EncryptedContent string `json:"encrypted_content"`
		Summary          string `json:"summary"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}

	if base.Type == "" && base.Role != "" {
		base.Type = ItemTypeMessage
	}

	*item = Item{ID: base.ID, Type: base.Type, Status: base.Status}

	switch base.Type {
	case ItemTypeMessage:
		parts, err := parseMessageContent(base.Role, base.Content)
		if err != nil {
			return err
		}
		item.Message = &MessageData{Role: base.Role, Content: parts}

	case ItemTypeFunctionCall:
		item.FunctionCall = &FunctionCallData{
			Name:      base.Name,
			CallID:    base.CallID,
			Arguments: base.Arguments,
		}

	case ItemTypeFunctionCallOutput:
		output := ""
		if len(base.Output) > 0 {
			if err := json.Unmarshal(base.Output, &output); err != nil {
				output = string(base.Output)
			}
		}
		item.FunctionCallOutput = &FunctionCallOutputData{CallID: base.CallID, Output: output}

	case ItemTypeReasoning:
		var content string
		if len(base.Content) > 0 {
			_ = json.Unmarshal(base.Content, &content)
		}
		item.Reasoning = &ReasoningData{
			Content:          content,
			EncryptedContent: base.EncryptedContent,
			Summary:          base.Summary,
		}
	}

	return nil
}

// parseMessageContent accepts either a string or an array of content parts.
// A string becomes a single input_text part (output_text for assistant messages).
func parseMessageContent(role MessageRole, raw json.RawMessage) ([]ContentPart, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		partType := PartTypeInputText
		if role == RoleAssistant {
			partType = PartTypeOutputText
		}
		return []ContentPart{{Type: partType, Text: s}}, nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("message content must be a string or an array of parts: %w", err)
	}
	return parts, nil
}

// ---------------------------------------------------------------------------
// Input union
// ---------------------------------------------------------------------------

// Input is the request input: either a plain string, which is shorthand for
// a single user message, or a list of items.
type Input []Item

// UnmarshalJSON accepts a JSON string or a JSON array of items.
func (in *Input) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*in = Input{NewUserMessage(s)}
		return nil
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("input must be a string or an array of items: %w", err)
	}
	*in = items
	return nil
}

// NewUserMessage builds a user message item with a single input_text part.
func NewUserMessage(text string) Item {
	return Item{
		Type: ItemTypeMessage,
		Message: &MessageData{
			Role:    RoleUser,
			Content: []ContentPart{{Type: PartTypeInputText, Text: text}},
		},
	}
}

// ---------------------------------------------------------------------------
// Tools
// ---------------------------------------------------------------------------

// ToolChoice represents a tool selection strategy. It can be a simple string
// value ("auto", "required", "none") or a structured function selection.
type ToolChoice struct {
	String   string              `json:"-"`
	Function *ToolChoiceFunction `json:"-"`
}

// ToolChoiceFunction specifies a particular function to call by name.
type ToolChoiceFunction struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

var (
	// ToolChoiceAuto lets the model decide whether to use a tool.
	ToolChoiceAuto = ToolChoice{String: "auto"}
	// ToolChoiceRequired forces the model to use a tool.
	ToolChoiceRequired = ToolChoice{String: "required"}
	// ToolChoiceNone prevents the model from using any tool.
	ToolChoiceNone = ToolChoice{String: "none"}
)

// NewToolChoiceFunction creates a ToolChoice that selects a specific function by name.
func NewToolChoiceFunction(name string) ToolChoice {
	return ToolChoice{Function: &ToolChoiceFunction{Type: "function", Name: name}}
}

// MarshalJSON serializes ToolChoice as either a JSON string or a JSON object.
func (tc ToolChoice) MarshalJSON() ([]byte, error) {
	if tc.String != "" {
		return json.Marshal(tc.String)
	}
	if tc.Function != nil {
		return json.Marshal(tc.Function)
	}
	return nil, fmt.Errorf("ToolChoice has neither string value nor function")
}

// UnmarshalJSON deserializes ToolChoice from either a JSON string or a JSON object.
func (tc *ToolChoice) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		tc.String = s
		tc.Function = nil
		return nil
	}

	var f ToolChoiceFunction
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("tool_choice must be a string or object: %w", err)
	}
	tc.String = ""
	tc.Function = &f
	return nil
}

// ToolDefinition describes a function tool available to the agent.
type ToolDefinition struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Strict      bool            `json:"strict"`
}

// ---------------------------------------------------------------------------
// Request and Response
// ---------------------------------------------------------------------------

// CreateResponseRequest represents the request body for creating a new response.
type CreateResponseRequest struct {
	Model              string           `json:"model"`
	Input              Input            `json:"input"`
	Instructions       string           `json:"instructions,omitempty"`
	Tools              []ToolDefinition `json:"tools,omitempty"`
	ToolChoice         *ToolChoice      `json:"tool_choice,omitempty"`
	Store              *bool            `json:"store,omitempty"`
	Stream             bool             `json:"stream,omitempty"`
	PreviousResponseID string           `json:"previous_response_id,omitempty"`
	Conversation       *ConversationRef `json:"conversation,omitempty"`
	Truncation         string           `json:"truncation,omitempty"`
	ServiceTier        string           `json:"service_tier,omitempty"`
	MaxOutputTokens    *int             `json:"max_output_tokens,omitempty"`
	Temperature        *float64         `json:"temperature,omitempty"`
	TopP               *float64         `json:"top_p,omitempty"`
	ParallelToolCalls  *bool            `json:"parallel_tool_calls,omitempty"`
	Metadata           map[string]any   `json:"metadata,omitempty"`
	User               string           `json:"user,omitempty"`
	Reasoning          *ReasoningConfig `json:"reasoning,omitempty"`
	Text               *TextConfig      `json:"text,omitempty"`
}

// ConversationRef links a request to a conversation. On the wire it is either
// a conversation ID string or an object {"id": "..."}.
type ConversationRef struct {
	ID string `json:"id"`
}

// MarshalJSON writes the object form.
func (c ConversationRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID string `json:"id"`
	}{c.ID})
}

// UnmarshalJSON accepts a string or an object with an id field.
func (c *ConversationRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.ID = s
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("conversation must be a string or an object with an id: %w", err)
	}
	c.ID = obj.ID
	return nil
}

// ConversationID returns the linked conversation ID, or "" when none is set.
func (r *CreateResponseRequest) ConversationID() string {
	if r.Conversation == nil {
		return ""
	}
	return r.Conversation.ID
}

// ResponseStatus represents the overall status of a response.
type ResponseStatus string

const (
	ResponseStatusQueued     ResponseStatus = "queued"
	ResponseStatusInProgress ResponseStatus = "in_progress"
	ResponseStatusCompleted  ResponseStatus = "completed"
	ResponseStatusIncomplete ResponseStatus = "incomplete"
	ResponseStatusFailed     ResponseStatus = "failed"
	ResponseStatusCancelled  ResponseStatus = "cancelled"
)

// IsTerminal reports whether no further status transition is allowed.
func (s ResponseStatus) IsTerminal() bool {
	switch s {
	case ResponseStatusCompleted, ResponseStatusIncomplete, ResponseStatusFailed, ResponseStatusCancelled:
		return true
	}
	return false
}

// Response represents the API response object returned by the Responses API.
// Nullable fields use pointer types so they serialize as null.
type Response struct {
	ID                 string             `json:"id"`
	Object             string             `json:"object"`
	CreatedAt          int64              `json:"created_at"`
	CompletedAt        *int64             `json:"completed_at"`
	Status             ResponseStatus     `json:"status"`
	IncompleteDetails  *IncompleteDetails `json:"incomplete_details"`
	Model              string             `json:"model"`
	Agent              *AgentReference    `json:"agent,omitempty"`
	PreviousResponseID *string            `json:"previous_response_id"`
	Conversation       *ConversationRef   `json:"conversation,omitempty"`
	Instructions       *string            `json:"instructions"`
	Output             []Item             `json:"output"`
	Error              *APIError          `json:"error"`
	Tools              []ToolDefinition   `json:"tools"`
	ToolChoice         any                `json:"tool_choice"`
	Truncation         string             `json:"truncation"`
	ParallelToolCalls  bool               `json:"parallel_tool_calls"`
	Text               *TextConfig        `json:"text"`
	TopP               *float64           `json:"top_p"`
	Temperature        *float64           `json:"temperature"`
	Reasoning          *ReasoningConfig   `json:"reasoning"`
	Usage              *Usage             `json:"usage"`
	MaxOutputTokens    *int               `json:"max_output_tokens"`
	Store              bool               `json:"store"`
	Background         bool               `json:"background"`
	ServiceTier        string             `json:"service_tier"`
	Metadata           map[string]any     `json:"metadata"`
	User               string             `json:"user,omitempty"`
}

// AgentReference names the agent that produced a response.
type AgentReference struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// IncompleteDetails provides information about why a response is incomplete.
type IncompleteDetails struct {
	Reason string `json:"reason,omitempty"`
}

// TextConfig holds text generation configuration echoed in the response.
type TextConfig struct {
	Format *TextFormat `json:"format,omitempty"`
}

// TextFormat specifies the output text format.
type TextFormat struct {
	Type   string          `json:"type"`
	Name   string          `json:"name,omitempty"`
	Strict *bool           `json:"strict,omitempty"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// ReasoningConfig holds reasoning configuration echoed in the response.
type ReasoningConfig struct {
	Effort  *string `json:"effort"`
	Summary *string `json:"summary"`
}

// Usage holds token usage information for a response.
type Usage struct {
	InputTokens         int                 `json:"input_tokens"`
	OutputTokens        int                 `json:"output_tokens"`
	TotalTokens         int                 `json:"total_tokens"`
	InputTokensDetails  InputTokensDetails  `json:"input_tokens_details"`
	OutputTokensDetails OutputTokensDetails `json:"output_tokens_details"`
}

// InputTokensDetails provides a breakdown of input token usage.
type InputTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

// OutputTokensDetails provides a breakdown of output token usage.
type OutputTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

// Add returns the field-wise sum of u and o. Neither operand is modified.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.TotalTokens + o.TotalTokens,
		InputTokensDetails: InputTokensDetails{
			CachedTokens: u.InputTokensDetails.CachedTokens + o.InputTokensDetails.CachedTokens,
		},
		OutputTokensDetails: OutputTokensDetails{
			ReasoningTokens: u.OutputTokensDetails.ReasoningTokens + o.OutputTokensDetails.ReasoningTokens,
		},
	}
}

// AgentInfo describes one agent served by this process.
type AgentInfo struct {
	Object      string `json:"object"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default,omitempty"`

	// Tools lists the tools the agent calls on its own behalf.
	Tools []ToolDefinition `json:"tools,omitempty"`
}

// AgentList is the body of the agent listing endpoint.
type AgentList struct {
	Object string      `json:"object"`
	Data   []AgentInfo `json:"data"`
}
