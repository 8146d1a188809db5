// Package openaichat provides an agent backed by an OpenAI-compatible chat
// completions endpoint.
package openaichat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/debug"
)

// Config configures an OpenAI chat agent.
type Config struct {
	Name        string
	Description string

	// Model is sent when the request does not name one.
	Model   string
	BaseURL string
	APIKey  string

	// Instructions are prepended as a system message.
	Instructions string

	// HTTPClient overrides the client used for backend calls.
	HTTPClient *http.Client
}

// Agent forwards runs to a chat completions backend.
type Agent struct {
	cfg    Config
	client *openai.Client
}

var _ agent.Agent = (*Agent)(nil)

// New creates an agent for the backend described by cfg.
func New(cfg Config) (*Agent, error) {
	if cfg.Name == "" {
		return nil, errors.New("openaichat: name is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openaichat: agent %q: model is required", cfg.Name)
	}
	if cfg.Description == "" {
		cfg.Description = "Chat completions agent using model " + cfg.Model
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &Agent{cfg: cfg, client: openai.NewClientWithConfig(oc)}, nil
}

func (a *Agent) Name() string        { return a.cfg.Name }
func (a *Agent) Description() string { return a.cfg.Description }

// Run sends one non-streaming completion request.
func (a *Agent) Run(ctx context.Context, messages []agent.Message, opts *agent.RunOptions) (*agent.Response, error) {
	req, err := a.buildRequest(messages, opts)
	if err != nil {
		return nil, err
	}

	debug.Log(debug.Agents, "chat completion request", "agent", a.cfg.Name, "model", req.Model, "messages", len(req.Messages))
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	debug.Log(debug.Agents, "chat completion response",
		"agent", a.cfg.Name,
		"id", resp.ID,
		"finish_reason", choice.FinishReason,
		"content", debug.Truncate(choice.Message.Content, 200),
	)
	msg := agent.Message{
		Role:      agent.RoleAssistant,
		MessageID: resp.ID,
	}
	if choice.Message.ReasoningContent != "" {
		msg.Contents = append(msg.Contents, agent.TextReasoningContent{Text: choice.Message.ReasoningContent})
	}
	if choice.Message.Content != "" {
		msg.Contents = append(msg.Contents, agent.TextContent{Text: choice.Message.Content})
	}
	if choice.Message.Refusal != "" {
		msg.Contents = append(msg.Contents, agent.ErrorContent{Message: choice.Message.Refusal, ErrorCode: "refusal"})
	}
	for _, tc := range choice.Message.ToolCalls {
		msg.Contents = append(msg.Contents, functionCall(tc.ID, tc.Function.Name, tc.Function.Arguments))
	}

	usage := fromUsage(resp.Usage)
	return &agent.Response{
		ResponseID:   resp.ID,
		Messages:     []agent.Message{msg},
		Usage:        &usage,
		FinishReason: finishReason(choice.FinishReason),
	}, nil
}

// RunStream sends a streaming completion request. Text arrives as it is
// generated; tool calls are assembled and sent once the backend finishes.
func (a *Agent) RunStream(ctx context.Context, messages []agent.Message, opts *agent.RunOptions) (<-chan agent.Update, error) {
	req, err := a.buildRequest(messages, opts)
	if err != nil {
		return nil, err
	}
	req.Stream = true
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	debug.Log(debug.Agents, "chat completion stream request", "agent", a.cfg.Name, "model", req.Model, "messages", len(req.Messages))
	stream, err := a.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion stream: %w", err)
	}

	ch := make(chan agent.Update)
	go func() {
		defer close(ch)
		defer stream.Close()
		a.pump(ctx, stream, ch)
	}()
	return ch, nil
}

// pump reads stream chunks and forwards them as updates.
func (a *Agent) pump(ctx context.Context, stream *openai.ChatCompletionStream, ch chan<- agent.Update) {
	send := func(u agent.Update) bool {
		select {
		case ch <- u:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var (
		id     string
		finish agent.FinishReason
		calls  = map[int]*toolCall{}
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() == nil {
				send(agent.Update{Err: fmt.Errorf("reading chat completion stream: %w", err)})
			}
			return
		}
		debug.Trace(debug.Agents, "chat completion chunk", "agent", a.cfg.Name, "id", chunk.ID, "choices", len(chunk.Choices))

		if chunk.ID != "" {
			id = chunk.ID
		}
		if chunk.Usage != nil {
			if !send(agent.Update{ResponseID: id, Contents: []agent.Content{agent.UsageContent{Details: fromUsage(*chunk.Usage)}}}) {
				return
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			finish = finishReason(choice.FinishReason)
		}
		for _, tc := range choice.Delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			acc, ok := calls[idx]
			if !ok {
				acc = &toolCall{}
				calls[idx] = acc
			}
			if tc.ID != "" {
				acc.id = tc.ID
			}
			if tc.Function.Name != "" {
				acc.name = tc.Function.Name
			}
			acc.args.WriteString(tc.Function.Arguments)
		}

		var contents []agent.Content
		if choice.Delta.ReasoningContent != "" {
			contents = append(contents, agent.TextReasoningContent{Text: choice.Delta.ReasoningContent})
		}
		if choice.Delta.Content != "" {
			contents = append(contents, agent.TextContent{Text: choice.Delta.Content})
		}
		if choice.Delta.Refusal != "" {
			contents = append(contents, agent.ErrorContent{Message: choice.Delta.Refusal, ErrorCode: "refusal"})
		}
		if len(contents) > 0 {
			u := agent.Update{Role: agent.RoleAssistant, MessageID: id, ResponseID: id, Contents: contents}
			if !send(u) {
				return
			}
		}
	}

	indexes := make([]int, 0, len(calls))
	for idx := range calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		c := calls[idx]
		u := agent.Update{
			Role:       agent.RoleAssistant,
			MessageID:  id,
			ResponseID: id,
			Contents:   []agent.Content{functionCall(c.id, c.name, c.args.String())},
		}
		if !send(u) {
			return
		}
	}

	if finish != "" {
		send(agent.Update{ResponseID: id, FinishReason: finish})
	}
}

type toolCall struct {
	id   string
	name string
	args strings.Builder
}

// buildRequest translates agent messages and options into a chat request.
func (a *Agent) buildRequest(messages []agent.Message, opts *agent.RunOptions) (openai.ChatCompletionRequest, error) {
	if opts == nil {
		opts = &agent.RunOptions{}
	}
	req := openai.ChatCompletionRequest{
		Model: a.cfg.Model,
		User:  opts.User,
	}
	if opts.Model != "" && opts.Model != a.cfg.Name {
		req.Model = opts.Model
	}

	for _, instr := range []string{a.cfg.Instructions, opts.Instructions} {
		if instr != "" {
			req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: instr})
		}
	}
	for i, m := range messages {
		converted, err := toChatMessages(m)
		if err != nil {
			return req, fmt.Errorf("message %d: %w", i, err)
		}
		req.Messages = append(req.Messages, converted...)
	}

	if opts.Temperature != nil {
		req.Temperature = float32(*opts.Temperature)
	}
	if opts.TopP != nil {
		req.TopP = float32(*opts.TopP)
	}
	if opts.MaxOutputTokens != nil {
		req.MaxCompletionTokens = *opts.MaxOutputTokens
	}

	for _, t := range opts.Tools {
		var params any
		if len(t.Parameters) > 0 {
			params = json.RawMessage(t.Parameters)
		}
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Strict:      t.Strict,
				Parameters:  params,
			},
		})
	}
	if tc := opts.ToolChoice; tc != nil {
		if tc.Function != "" {
			req.ToolChoice = openai.ToolChoice{Type: openai.ToolTypeFunction, Function: openai.ToolFunction{Name: tc.Function}}
		} else if tc.Mode != "" {
			req.ToolChoice = tc.Mode
		}
	}
	return req, nil
}

// toChatMessages converts one agent message. Function results become one
// tool message each.
func toChatMessages(m agent.Message) ([]openai.ChatCompletionMessage, error) {
	switch m.Role {
	case agent.RoleTool:
		var out []openai.ChatCompletionMessage
		for _, c := range m.Contents {
			r, ok := agent.Normalize(c).(agent.FunctionResultContent)
			if !ok {
				return nil, fmt.Errorf("unsupported %s content in tool message", agent.KindOf(c))
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: r.CallID,
				Content:    resultText(r),
			})
		}
		return out, nil

	case agent.RoleAssistant:
		msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Name: m.AuthorName}
		var text strings.Builder
		for _, c := range m.Contents {
			switch v := agent.Normalize(c).(type) {
			case agent.TextContent:
				text.WriteString(v.Text)
			case agent.FunctionCallContent:
				args, err := json.Marshal(v.Arguments)
				if err != nil {
					return nil, fmt.Errorf("encoding arguments of %s: %w", v.Name, err)
				}
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:       v.CallID,
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: v.Name, Arguments: string(args)},
				})
			default:
				return nil, fmt.Errorf("unsupported %s content in assistant message", agent.KindOf(c))
			}
		}
		msg.Content = text.String()
		return []openai.ChatCompletionMessage{msg}, nil
	}

	role := openai.ChatMessageRoleUser
	switch m.Role {
	case agent.RoleSystem:
		role = openai.ChatMessageRoleSystem
	case agent.RoleDeveloper:
		role = openai.ChatMessageRoleDeveloper
	}

	var parts []openai.ChatMessagePart
	textOnly := true
	for _, c := range m.Contents {
		switch v := agent.Normalize(c).(type) {
		case agent.TextContent:
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: v.Text})
		case agent.DataContent:
			if v.Kind() != agent.KindImage {
				return nil, fmt.Errorf("unsupported %s content", v.Kind())
			}
			textOnly = false
			img := &openai.ChatMessageImageURL{URL: v.DataURI()}
			if d, ok := v.AdditionalProperties["detail"].(string); ok {
				img.Detail = openai.ImageURLDetail(d)
			}
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeImageURL, ImageURL: img})
		default:
			return nil, fmt.Errorf("unsupported %s content", agent.KindOf(c))
		}
	}

	msg := openai.ChatCompletionMessage{Role: role, Name: m.AuthorName}
	if textOnly {
		msg.Content = m.Text()
	} else {
		msg.MultiContent = parts
	}
	return []openai.ChatCompletionMessage{msg}, nil
}

func functionCall(id, name, rawArgs string) agent.FunctionCallContent {
	fc := agent.FunctionCallContent{CallID: id, Name: name}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &fc.Arguments); err != nil {
			fc.Arguments = map[string]any{"_raw": rawArgs}
		}
	}
	return fc
}

func resultText(r agent.FunctionResultContent) string {
	if r.Exception != nil {
		return "error: " + r.Exception.Error()
	}
	switch v := r.Result.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	data, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Sprint(r.Result)
	}
	return string(data)
}

func fromUsage(u openai.Usage) agent.UsageDetails {
	d := agent.UsageDetails{
		InputTokenCount:  u.PromptTokens,
		OutputTokenCount: u.CompletionTokens,
		TotalTokenCount:  u.TotalTokens,
	}
	if u.PromptTokensDetails != nil {
		d.CachedInputTokenCount = u.PromptTokensDetails.CachedTokens
	}
	if u.CompletionTokensDetails != nil {
		d.ReasoningTokenCount = u.CompletionTokensDetails.ReasoningTokens
	}
	return d
}

func finishReason(r openai.FinishReason) agent.FinishReason {
	switch r {
	case openai.FinishReasonLength:
		return agent.FinishReasonLength
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return agent.FinishReasonToolCalls
	case openai.FinishReasonContentFilter:
		return agent.FinishReasonContentFilter
	default:
		return agent.FinishReasonStop
	}
}
