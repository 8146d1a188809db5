// Package agent defines the chat-style agent abstraction served over the
// Responses API, along with the content model agents produce and consume.
package agent

import (
	"context"
	"encoding/json"
)

// Role is the author role of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FinishReason explains why an agent stopped producing output.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolCalls     FinishReason = "tool_calls"
	FinishReasonContentFilter FinishReason = "content_filter"
)

// Message is one complete chat message.
type Message struct {
	AuthorName string
	Role       Role
	MessageID  string
	Contents   []Content
}

// Text concatenates the text contents of the message.
func (m Message) Text() string {
	var s string
	for _, c := range m.Contents {
		if t, ok := Normalize(c).(TextContent); ok {
			s += t.Text
		}
	}
	return s
}

// Update is one increment of a streaming run. Updates sharing AuthorName,
// Role and MessageID belong to the same message.
type Update struct {
	AuthorName   string
	Role         Role
	MessageID    string
	ResponseID   string
	Contents     []Content
	FinishReason FinishReason

	// Err terminates the stream with a failure. No updates follow it.
	Err error
}

// UsageDetails holds token counts. All fields are totals for the span they
// describe.
type UsageDetails struct {
	InputTokenCount       int
	CachedInputTokenCount int
	OutputTokenCount      int
	ReasoningTokenCount   int
	TotalTokenCount       int
}

// Add returns the field-wise sum of u and o.
func (u UsageDetails) Add(o UsageDetails) UsageDetails {
	return UsageDetails{
		InputTokenCount:       u.InputTokenCount + o.InputTokenCount,
		CachedInputTokenCount: u.CachedInputTokenCount + o.CachedInputTokenCount,
		OutputTokenCount:      u.OutputTokenCount + o.OutputTokenCount,
		ReasoningTokenCount:   u.ReasoningTokenCount + o.ReasoningTokenCount,
		TotalTokenCount:       u.TotalTokenCount + o.TotalTokenCount,
	}
}

// Response is the materialized result of a non-streaming run.
type Response struct {
	ResponseID   string
	Messages     []Message
	Usage        *UsageDetails
	FinishReason FinishReason
}

// Tool describes a function the agent may call.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	Strict      bool
}

// ToolChoice constrains tool use. Mode is "auto", "none" or "required";
// Function, when set, forces a call to the named function.
type ToolChoice struct {
	Mode     string
	Function string
}

// RunOptions carries per-request settings from the API request to the agent.
type RunOptions struct {
	Instructions    string
	Model           string
	Temperature     *float64
	TopP            *float64
	MaxOutputTokens *int
	Tools           []Tool
	ToolChoice      *ToolChoice
	ConversationID  string
	User            string
	Metadata        map[string]any
}

// Agent produces chat messages from chat messages.
//
// RunStream returns a channel the agent closes once the run ends. An agent
// must stop sending and close the channel when ctx is cancelled.
type Agent interface {
	Name() string
	Description() string
	Run(ctx context.Context, messages []Message, opts *RunOptions) (*Response, error)
	RunStream(ctx context.Context, messages []Message, opts *RunOptions) (<-chan Update, error)
}
