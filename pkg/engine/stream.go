package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/rhuss/antwort-agents/pkg/debug"
	"github.com/rhuss/antwort-agents/pkg/idgen"
	"github.com/rhuss/antwort-agents/pkg/observability"
	"github.com/rhuss/antwort-agents/pkg/transport"
)

// stream runs the agent in streaming mode and writes the projected events.
//
// An agent failure ends the stream with response.failed and a nil return.
// Cancellation of ctx ends it without a terminal event and returns ctx.Err().
func (e *Engine) stream(ctx context.Context, ag agent.Agent, messages []agent.Message, opts *agent.RunOptions, base api.Response, ids *idgen.Generator, w transport.ResponseWriter) error {
	start := time.Now()
	name := ag.Name()
	p := newStreamProjector(base, ids)

	status := string(api.ResponseStatusCancelled)
	defer func() {
		observability.RecordResponse(name, modeStream, status, time.Since(start), tokenCounts(p.usage))
	}()

	if err := writeEvents(ctx, w, p.start()); err != nil {
		return err
	}

	updates, err := ag.RunStream(ctx, messages, opts)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("agent stream failed to start", "agent", name, "response_id", base.ID, "error", err)
		status = string(api.ResponseStatusFailed)
		return writeEvents(ctx, w, p.fail(api.NewAgentError(name, err)))
	}

	for {
		var (
			u  agent.Update
			ok bool
		)
		select {
		case <-ctx.Done():
			debug.Log(debug.Streaming, "stream cancelled", "response_id", base.ID)
			return ctx.Err()
		case u, ok = <-updates:
		}

		// Agents close their channel on cancellation, so a closed channel
		// alone does not mean the response is complete.
		if err := ctx.Err(); err != nil {
			debug.Log(debug.Streaming, "stream cancelled", "response_id", base.ID)
			return err
		}
		if !ok {
			events := p.finish()
			status = string(p.status)
			return writeEvents(ctx, w, events)
		}

		if u.Err != nil {
			slog.Warn("agent stream failed", "agent", name, "response_id", base.ID, "error", u.Err)
			status = string(api.ResponseStatusFailed)
			return writeEvents(ctx, w, p.fail(api.NewAgentError(name, u.Err)))
		}

		events, perr := p.handle(u)
		if err := writeEvents(ctx, w, events); err != nil {
			return err
		}
		if perr != nil {
			slog.Error("stream projection failed", "agent", name, "response_id", base.ID, "error", perr)
			status = string(api.ResponseStatusFailed)
			return writeEvents(ctx, w, p.fail(api.NewServerError(fmt.Sprintf("projecting agent output: %v", perr))))
		}
	}
}

// writeEvents writes events in order and counts them.
func writeEvents(ctx context.Context, w transport.ResponseWriter, events []api.StreamEvent) error {
	for _, ev := range events {
		if err := w.WriteEvent(ctx, ev); err != nil {
			return fmt.Errorf("writing %s event: %w", ev.Type, err)
		}
		observability.StreamEventsTotal.WithLabelValues(string(ev.Type)).Inc()
		debug.Trace(debug.Streaming, "event written", "type", ev.Type, "sequence_number", ev.SequenceNumber)
	}
	return nil
}
