package transport

import (
	"context"

	"github.com/rhuss/antwort-agents/pkg/api"
)

// ResponseCreator runs one create-response request against an agent. It
// writes either a complete response or a stream of events to w. The agent
// chosen by the route, if any, is available through AgentFromContext.
type ResponseCreator interface {
	CreateResponse(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error
}

// ResponseCreatorFunc lets a plain function serve as a ResponseCreator.
type ResponseCreatorFunc func(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error

func (f ResponseCreatorFunc) CreateResponse(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// AgentLister reports the agents served under /{agent}/v1/responses.
type AgentLister interface {
	ListAgents(ctx context.Context) []api.AgentInfo
}

// ResponseWriter is the sink a ResponseCreator writes to. A writer is used
// either for events or for one response, never both. After a terminal event
// (response.completed, response.incomplete, response.failed or error) or
// after WriteResponse, further writes fail.
type ResponseWriter interface {
	WriteEvent(ctx context.Context, event api.StreamEvent) error
	WriteResponse(ctx context.Context, resp *api.Response) error

	// Flush pushes buffered output to the client and fails once the client
	// is gone.
	Flush() error
}
