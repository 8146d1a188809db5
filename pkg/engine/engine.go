package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/rhuss/antwort-agents/pkg/debug"
	"github.com/rhuss/antwort-agents/pkg/idgen"
	"github.com/rhuss/antwort-agents/pkg/observability"
	"github.com/rhuss/antwort-agents/pkg/tools"
	"github.com/rhuss/antwort-agents/pkg/transport"
)

const (
	modeStream = "stream"
	modeSync   = "sync"
)

// Engine routes Responses API requests to registered agents. It implements
// transport.ResponseCreator and transport.AgentLister.
type Engine struct {
	agents *agent.Registry
	cfg    Config
}

// Ensure Engine implements the transport contracts at compile time.
var (
	_ transport.ResponseCreator = (*Engine)(nil)
	_ transport.AgentLister     = (*Engine)(nil)
)

// New creates a new Engine. The registry must not be nil, and the default
// agent, when set, must be registered.
func New(agents *agent.Registry, cfg Config) (*Engine, error) {
	if agents == nil {
		return nil, fmt.Errorf("engine: agent registry must not be nil")
	}
	if cfg.DefaultAgent != "" {
		if _, err := agents.Get(cfg.DefaultAgent); err != nil {
			return nil, fmt.Errorf("engine: default agent: %w", err)
		}
	}
	return &Engine{agents: agents, cfg: cfg}, nil
}

// toolAdvertiser is implemented by agents that call built-in tools.
type toolAdvertiser interface {
	Tools() []api.ToolDefinition
}

// ListAgents describes the registered agents.
func (e *Engine) ListAgents(_ context.Context) []api.AgentInfo {
	names := e.agents.Names()
	out := make([]api.AgentInfo, 0, len(names))
	for _, name := range names {
		a, err := e.agents.Get(name)
		if err != nil {
			continue
		}
		info := api.AgentInfo{
			Object:      "agent",
			Name:        name,
			Description: a.Description(),
			Default:     name == e.cfg.DefaultAgent,
		}
		if ta, ok := a.(toolAdvertiser); ok {
			info.Tools = ta.Tools()
		}
		out = append(out, info)
	}
	return out
}

// CreateResponse runs the selected agent and writes either a complete
// response or the event stream to w.
func (e *Engine) CreateResponse(ctx context.Context, req *api.CreateResponseRequest, w transport.ResponseWriter) error {
	ag, err := e.resolveAgent(ctx, req)
	if err != nil {
		return err
	}

	if apiErr := api.ValidateRequest(req, e.cfg.validation()); apiErr != nil {
		return apiErr
	}

	ids, err := idgen.ForRequest(req.ConversationID(), req.PreviousResponseID)
	if err != nil {
		return malformedIDError(req, err)
	}

	messages, err := translateInput(req.Input)
	if err != nil {
		var ce *ConversionError
		if errors.As(err, &ce) {
			return ce.APIError()
		}
		return err
	}

	echoTools, err := tools.StrictAll(req.Tools)
	if err != nil {
		return api.NewInvalidRequestError("tools", err.Error())
	}

	base := buildResponse(req, ag.Name(), ids.ResponseID(), echoTools)
	opts := runOptions(req)

	debug.Log(debug.Engine, "dispatching request",
		"agent", ag.Name(),
		"response_id", base.ID,
		"stream", req.Stream,
		"input_messages", len(messages),
	)

	if req.Stream {
		return e.stream(ctx, ag, messages, opts, base, ids, w)
	}
	return e.complete(ctx, ag, messages, opts, base, ids, w)
}

// resolveAgent picks the agent from the URL path, then the model field,
// then the configured default.
func (e *Engine) resolveAgent(ctx context.Context, req *api.CreateResponseRequest) (agent.Agent, error) {
	name, param := transport.AgentFromContext(ctx), ""
	if name == "" && req.Model != "" {
		name, param = req.Model, "model"
	}
	if name == "" {
		name = e.cfg.DefaultAgent
	}
	if name == "" {
		return nil, api.NewInvalidRequestError("model", "no agent selected: set model or use /{agent}/v1/responses")
	}

	a, err := e.agents.Get(name)
	if err != nil {
		return nil, api.NewAgentNotFoundError(name, param)
	}
	return a, nil
}

// complete runs the agent once and writes the aggregated response.
func (e *Engine) complete(ctx context.Context, ag agent.Agent, messages []agent.Message, opts *agent.RunOptions, base api.Response, ids *idgen.Generator, w transport.ResponseWriter) error {
	start := time.Now()
	name := ag.Name()

	result, err := ag.Run(ctx, messages, opts)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		observability.RecordResponse(name, modeSync, string(api.ResponseStatusFailed), time.Since(start), observability.TokenCounts{})
		slog.Warn("agent run failed", "agent", name, "response_id", base.ID, "error", err)
		return api.NewAgentError(name, err)
	}

	output, err := aggregateOutput(ids, result.Messages)
	if err != nil {
		return api.NewServerError(fmt.Sprintf("building response output: %v", err))
	}

	usage := api.Usage{}
	if result.Usage != nil {
		usage = toAPIUsage(*result.Usage)
	}

	resp := base
	resp.Output = output
	resp.Usage = &usage
	resp.Status = api.ResponseStatusCompleted
	switch result.FinishReason {
	case agent.FinishReasonLength, agent.FinishReasonContentFilter:
		resp.Status = api.ResponseStatusIncomplete
		resp.IncompleteDetails = &api.IncompleteDetails{Reason: incompleteReason(result.FinishReason)}
	default:
		now := time.Now().Unix()
		resp.CompletedAt = &now
	}
	if apiErr := api.ValidateResponseTransition(base.Status, resp.Status); apiErr != nil {
		return apiErr
	}

	observability.RecordResponse(name, modeSync, string(resp.Status), time.Since(start), tokenCounts(usage))
	return w.WriteResponse(ctx, &resp)
}

// buildResponse creates the in-progress response that echoes the request.
func buildResponse(req *api.CreateResponseRequest, agentName, id string, echoTools []api.ToolDefinition) api.Response {
	model := req.Model
	if model == "" {
		model = agentName
	}
	if echoTools == nil {
		echoTools = []api.ToolDefinition{}
	}

	resp := api.Response{
		ID:                id,
		Object:            "response",
		CreatedAt:         time.Now().Unix(),
		Status:            api.ResponseStatusInProgress,
		Model:             model,
		Agent:             &api.AgentReference{Type: "agent_reference", Name: agentName},
		Conversation:      req.Conversation,
		Output:            []api.Item{},
		Tools:             echoTools,
		ToolChoice:        toolChoiceValue(req.ToolChoice),
		Truncation:        "disabled",
		ParallelToolCalls: true,
		Text:              req.Text,
		TopP:              req.TopP,
		Temperature:       req.Temperature,
		Reasoning:         req.Reasoning,
		MaxOutputTokens:   req.MaxOutputTokens,
		ServiceTier:       "default",
		Metadata:          req.Metadata,
		User:              req.User,
	}
	if req.PreviousResponseID != "" {
		prev := req.PreviousResponseID
		resp.PreviousResponseID = &prev
	}
	if req.Instructions != "" {
		instr := req.Instructions
		resp.Instructions = &instr
	}
	if req.Truncation != "" {
		resp.Truncation = req.Truncation
	}
	if req.ParallelToolCalls != nil {
		resp.ParallelToolCalls = *req.ParallelToolCalls
	}
	if req.ServiceTier != "" {
		resp.ServiceTier = req.ServiceTier
	}
	if resp.Text == nil {
		resp.Text = &api.TextConfig{Format: &api.TextFormat{Type: "text"}}
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]any{}
	}
	return resp
}

func toolChoiceValue(tc *api.ToolChoice) any {
	switch {
	case tc == nil:
		return "auto"
	case tc.Function != nil:
		return tc.Function
	default:
		return tc.String
	}
}

func malformedIDError(req *api.CreateResponseRequest, err error) error {
	param := "previous_response_id"
	if req.ConversationID() != "" {
		param = "conversation"
	}
	return api.NewInvalidRequestError(param, err.Error()).WithCode(api.CodeMalformedID)
}

func tokenCounts(u api.Usage) observability.TokenCounts {
	return observability.TokenCounts{
		Input:     u.InputTokens,
		Output:    u.OutputTokens,
		Cached:    u.InputTokensDetails.CachedTokens,
		Reasoning: u.OutputTokensDetails.ReasoningTokens,
	}
}
