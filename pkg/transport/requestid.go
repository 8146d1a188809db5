package transport

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rhuss/antwort-agents/pkg/api"
)

// RequestIDPrefix marks request IDs minted by the server. IDs supplied by
// clients through X-Request-ID are kept as they are.
const RequestIDPrefix = "req_"

// RequestID returns middleware that makes sure the context carries a
// request ID, minting one when the adapter did not set it.
func RequestID() Middleware {
	return func(next ResponseCreator) ResponseCreator {
		return ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.CreateResponse(ctx, req, w)
		})
	}
}

// NewRequestID returns "req_" followed by 32 hex digits.
func NewRequestID() string {
	return RequestIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
