package transport

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InFlightRegistry tracks streaming responses that are still being produced
// so that DELETE /v1/responses/{id} can cancel them. Entries are keyed by
// response ID. All methods are safe for concurrent access.
type InFlightRegistry struct {
	mu      sync.Mutex
	entries map[string]inFlightEntry
}

type inFlightEntry struct {
	agent   string
	started time.Time
	cancel  context.CancelFunc
}

// InFlight describes one running stream.
type InFlight struct {
	ResponseID string    `json:"response_id"`
	Agent      string    `json:"agent"`
	StartedAt  time.Time `json:"started_at"`
}

// NewInFlightRegistry creates a new empty registry.
func NewInFlightRegistry() *InFlightRegistry {
	return &InFlightRegistry{
		entries: make(map[string]inFlightEntry),
	}
}

// Register records a running stream. cancel is called if the response is
// cancelled explicitly.
func (r *InFlightRegistry) Register(id, agent string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = inFlightEntry{agent: agent, started: time.Now(), cancel: cancel}
}

// Cancel cancels a running stream and forgets it. It reports whether the
// ID was registered.
func (r *InFlightRegistry) Cancel(id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		e.cancel()
	}
	return ok
}

// Remove forgets a stream without cancelling it. Called when the stream
// ends on its own.
func (r *InFlightRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len returns the number of running streams.
func (r *InFlightRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// List returns the running streams, oldest first.
func (r *InFlightRegistry) List() []InFlight {
	r.mu.Lock()
	out := make([]InFlight, 0, len(r.entries))
	for id, e := range r.entries {
		out = append(out, InFlight{ResponseID: id, Agent: e.agent, StartedAt: e.started})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ResponseID < out[j].ResponseID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
