package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/rhuss/antwort-agents/pkg/debug"
	"github.com/rhuss/antwort-agents/pkg/transport"
)

// Adapter serves the Responses API for the hosted agents over HTTP.
type Adapter struct {
	creator  transport.ResponseCreator
	agents   transport.AgentLister // nil disables GET /v1/agents
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter. Middleware is applied to the
// ResponseCreator in the given order. agents may be nil.
func NewAdapter(creator transport.ResponseCreator, agents transport.AgentLister, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		creator = transport.Chain(middlewares...)(creator)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		creator:  creator,
		agents:   agents,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("POST /v1/responses", a.handleCreateResponse)
	a.mux.HandleFunc("POST /{agent}/v1/responses", a.handleCreateAgentResponse)
	a.mux.HandleFunc("GET /v1/responses", a.handleListInFlight)
	a.mux.HandleFunc("DELETE /v1/responses/{id}", a.handleCancelResponse)
	a.mux.HandleFunc("GET /v1/agents", a.handleListAgents)

	return a
}

// Handler returns the http.Handler for this adapter. The returned handler
// propagates the X-Request-ID header.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// InFlight returns the registry of running streams.
func (a *Adapter) InFlight() *transport.InFlightRegistry {
	return a.inflight
}

// httpRequestIDMiddleware makes sure every request carries a request ID in
// its context and echoes it in the X-Request-ID response header.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// handleCreateResponse handles POST /v1/responses.
func (a *Adapter) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	a.createResponse(w, r)
}

// handleCreateAgentResponse handles POST /{agent}/v1/responses. The path
// segment selects the agent and takes precedence over the model field.
func (a *Adapter) handleCreateAgentResponse(w http.ResponseWriter, r *http.Request) {
	ctx := transport.ContextWithAgent(r.Context(), r.PathValue("agent"))
	a.createResponse(w, r.WithContext(ctx))
}

func (a *Adapter) createResponse(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.CreateResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	if req.Stream {
		a.handleStreamingResponse(w, r, &req)
		return
	}

	rw := newSSEResponseWriter(w, nil)
	if err := a.creator.CreateResponse(r.Context(), &req, rw); err != nil {
		a.writeHandlerError(r.Context(), w, rw, err)
	}
}

// handleStreamingResponse handles requests with stream: true. The stream is
// registered in the in-flight registry under its response ID as soon as
// response.created is written, so that it can be cancelled.
func (a *Adapter) handleStreamingResponse(w http.ResponseWriter, r *http.Request, req *api.CreateResponseRequest) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	agentName := transport.AgentFromContext(ctx)
	if agentName == "" {
		agentName = req.Model
	}

	var registeredID string
	rw := newSSEResponseWriter(w, func(id string) {
		registeredID = id
		a.inflight.Register(id, agentName, cancel)
	})

	err := a.creator.CreateResponse(ctx, req, rw)

	if registeredID != "" {
		a.inflight.Remove(registeredID)
	}
	if err != nil {
		a.writeHandlerError(ctx, w, rw, err)
	}
}

// handleListInFlight handles GET /v1/responses and lists the streams that
// are currently being produced.
func (a *Adapter) handleListInFlight(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data":   a.inflight.List(),
	})
}

// handleCancelResponse handles DELETE /v1/responses/{id}. Only running
// streams can be cancelled; responses are not stored.
func (a *Adapter) handleCancelResponse(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !api.ValidateResponseID(id) {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", "malformed response ID").WithCode(api.CodeMalformedID))
		return
	}

	if !a.inflight.Cancel(id) {
		transport.WriteAPIError(w, api.NewNotFoundError("response "+id+" is not in flight"))
		return
	}

	debug.Log(debug.Transport, "stream cancelled by client", "response_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleListAgents handles GET /v1/agents.
func (a *Adapter) handleListAgents(w http.ResponseWriter, r *http.Request) {
	list := api.AgentList{Object: "list", Data: []api.AgentInfo{}}
	if a.agents != nil {
		if agents := a.agents.ListAgents(r.Context()); agents != nil {
			list.Data = agents
		}
	}
	writeJSON(w, http.StatusOK, list)
}

// writeHandlerError reports a handler error. Before any output it is a JSON
// error response. On an open event stream it becomes an error event. A
// cancelled request gets nothing: the client is gone or asked to stop.
func (a *Adapter) writeHandlerError(ctx context.Context, w http.ResponseWriter, rw *sseResponseWriter, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	apiErr := transport.APIErrorFrom(err)

	switch {
	case rw.streaming():
		ev := api.StreamEvent{Type: api.EventError, SequenceNumber: rw.nextSequence(), Error: apiErr}
		if werr := rw.WriteEvent(ctx, ev); werr != nil {
			slog.WarnContext(ctx, "writing error event failed",
				"request_id", transport.RequestIDFromContext(ctx),
				"error", werr,
			)
		}
	case rw.started():
		// The body is already complete; nothing can be added.
		slog.WarnContext(ctx, "handler failed after response was written",
			"request_id", transport.RequestIDFromContext(ctx),
			"error", err,
		)
	default:
		transport.WriteAPIError(w, apiErr)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
