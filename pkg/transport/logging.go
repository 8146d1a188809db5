package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rhuss/antwort-agents/pkg/api"
)

// Logging returns middleware that writes one log record per request. Besides
// the request ID, agent, model and duration, streaming requests record how
// many events reached the writer. Rejected requests log at WARN, client
// cancellations at INFO and server-side failures at ERROR.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ResponseCreator) ResponseCreator {
		return ResponseCreatorFunc(func(ctx context.Context, req *api.CreateResponseRequest, w ResponseWriter) error {
			start := time.Now()
			cw := &countingWriter{ResponseWriter: w}

			err := next.CreateResponse(ctx, req, cw)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("agent", AgentFromContext(ctx)),
				slog.String("model", req.Model),
				slog.Bool("stream", req.Stream),
				slog.Duration("duration", time.Since(start)),
			}
			if req.Stream {
				attrs = append(attrs, slog.Int("events", cw.events))
			}

			level, msg := slog.LevelInfo, "request completed"
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				level, msg = outcome(err)
			}
			logger.LogAttrs(ctx, level, msg, attrs...)

			return err
		})
	}
}

func outcome(err error) (slog.Level, string) {
	if errors.Is(err, context.Canceled) {
		return slog.LevelInfo, "request cancelled"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && HTTPStatusFromError(apiErr) < 500 {
		return slog.LevelWarn, "request rejected"
	}
	return slog.LevelError, "request failed"
}

// countingWriter counts the events written through it.
type countingWriter struct {
	ResponseWriter
	events int
}

func (c *countingWriter) WriteEvent(ctx context.Context, ev api.StreamEvent) error {
	if err := c.ResponseWriter.WriteEvent(ctx, ev); err != nil {
		return err
	}
	c.events++
	return nil
}
