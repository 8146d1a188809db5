// Package agenttest provides a scripted agent.Agent for tests.
package agenttest

import (
	"context"
	"sync"

	"github.com/rhuss/antwort-agents/pkg/agent"
)

// Agent replays a fixed script. Run returns Response (or RunErr); RunStream
// sends Updates in order, then StreamErr as a final failing update when set.
type Agent struct {
	AgentName string
	Response  *agent.Response
	RunErr    error
	Updates   []agent.Update
	StreamErr error

	// Block, when non-nil, is received from before each update is sent.
	Block chan struct{}

	mu       sync.Mutex
	messages []agent.Message
	opts     *agent.RunOptions
}

var _ agent.Agent = (*Agent)(nil)

// Name returns AgentName, defaulting to "test".
func (a *Agent) Name() string {
	if a.AgentName == "" {
		return "test"
	}
	return a.AgentName
}

// Description returns a fixed description.
func (a *Agent) Description() string { return "scripted test agent" }

// Run records its input and returns the scripted response.
func (a *Agent) Run(_ context.Context, messages []agent.Message, opts *agent.RunOptions) (*agent.Response, error) {
	a.record(messages, opts)
	if a.RunErr != nil {
		return nil, a.RunErr
	}
	if a.Response == nil {
		return &agent.Response{}, nil
	}
	return a.Response, nil
}

// RunStream records its input and streams the scripted updates.
func (a *Agent) RunStream(ctx context.Context, messages []agent.Message, opts *agent.RunOptions) (<-chan agent.Update, error) {
	a.record(messages, opts)
	ch := make(chan agent.Update)
	go func() {
		defer close(ch)
		for _, u := range a.Updates {
			if a.Block != nil {
				select {
				case <-a.Block:
				case <-ctx.Done():
					return
				}
			}
			select {
			case ch <- u:
			case <-ctx.Done():
				return
			}
		}
		if a.StreamErr != nil {
			select {
			case ch <- agent.Update{Err: a.StreamErr}:
			case <-ctx.Done():
			}
		}
	}()
	return ch, nil
}

// Messages returns the messages of the most recent call.
func (a *Agent) Messages() []agent.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.messages
}

// Options returns the options of the most recent call.
func (a *Agent) Options() *agent.RunOptions {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.opts
}

func (a *Agent) record(messages []agent.Message, opts *agent.RunOptions) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = messages
	a.opts = opts
}

// TextUpdates splits text into one assistant update per chunk, all sharing
// messageID.
func TextUpdates(messageID string, chunks ...string) []agent.Update {
	updates := make([]agent.Update, 0, len(chunks))
	for _, c := range chunks {
		updates = append(updates, agent.Update{
			Role:      agent.RoleAssistant,
			MessageID: messageID,
			Contents:  []agent.Content{agent.TextContent{Text: c}},
		})
	}
	return updates
}
