// Package lorem provides a demo agent that answers with lorem ipsum text.
//
// It needs no backend, which makes it useful for exercising clients and the
// streaming pipeline. Words are streamed one update at a time with a
// configurable delay. When CountWords is enabled the agent first calls its
// built-in count_words tool on the last user message and reports the result
// before answering. A max_output_tokens limit below the configured word
// count cuts the answer short with finish reason "length".
package lorem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/google/uuid"

	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/rhuss/antwort-agents/pkg/debug"
	"github.com/rhuss/antwort-agents/pkg/tools"
)

// DefaultWords is the answer length used when Config.Words is zero.
const DefaultWords = 40

// CountWordsTool is the name of the built-in tool.
const CountWordsTool = "count_words"

// Config configures a lorem agent.
type Config struct {
	Name        string
	Description string

	// Words is the number of words in each answer.
	Words int

	// Delay is the pause between streamed words.
	Delay time.Duration

	// CountWords makes the agent call count_words before answering.
	CountWords bool
}

// CountWordsArgs are the arguments of the count_words tool.
type CountWordsArgs struct {
	Text string `json:"text" jsonschema:"description=Text whose words are counted"`
}

// Agent generates lorem ipsum answers.
type Agent struct {
	cfg  Config
	tool api.ToolDefinition

	mu  sync.Mutex
	gen *loremgen.Lorem
}

var _ agent.Agent = (*Agent)(nil)

// New creates a lorem agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Name == "" {
		cfg.Name = "lorem"
	}
	if cfg.Description == "" {
		cfg.Description = "Answers with lorem ipsum text"
	}
	if cfg.Words <= 0 {
		cfg.Words = DefaultWords
	}
	if cfg.Delay < 0 {
		return nil, fmt.Errorf("lorem: delay must not be negative")
	}

	tool, err := tools.FunctionFor[CountWordsArgs](CountWordsTool, "Counts the words in a text")
	if err != nil {
		return nil, fmt.Errorf("lorem: %w", err)
	}
	return &Agent{cfg: cfg, tool: tool, gen: loremgen.New()}, nil
}

func (a *Agent) Name() string        { return a.cfg.Name }
func (a *Agent) Description() string { return a.cfg.Description }

// Tools lists the tools the agent calls on its own.
func (a *Agent) Tools() []api.ToolDefinition {
	if !a.cfg.CountWords {
		return nil
	}
	return []api.ToolDefinition{a.tool}
}

// Run produces the whole answer at once.
func (a *Agent) Run(ctx context.Context, messages []agent.Message, opts *agent.RunOptions) (*agent.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return collect(a.script(messages, opts)), nil
}

// RunStream streams the answer word by word.
func (a *Agent) RunStream(ctx context.Context, messages []agent.Message, opts *agent.RunOptions) (<-chan agent.Update, error) {
	updates := a.script(messages, opts)
	ch := make(chan agent.Update)

	go func() {
		defer close(ch)
		for i, u := range updates {
			if i > 0 && a.cfg.Delay > 0 {
				t := time.NewTimer(a.cfg.Delay)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return
				}
			}
			select {
			case ch <- u:
			case <-ctx.Done():
				debug.Log(debug.Agents, "lorem stream cancelled", "agent", a.cfg.Name, "sent", i)
				return
			}
		}
	}()
	return ch, nil
}

// script builds the full list of updates for one run.
func (a *Agent) script(messages []agent.Message, opts *agent.RunOptions) []agent.Update {
	var updates []agent.Update
	responseID := uuid.NewString()

	if a.cfg.CountWords {
		if text := lastUserText(messages); text != "" {
			callID := "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")
			debug.Log(debug.Agents, "calling tool", "agent", a.cfg.Name, "tool", a.tool.Name, "call_id", callID)
			updates = append(updates,
				agent.Update{
					Role:       agent.RoleAssistant,
					MessageID:  "call-" + responseID,
					ResponseID: responseID,
					Contents: []agent.Content{agent.FunctionCallContent{
						CallID:    callID,
						Name:      CountWordsTool,
						Arguments: map[string]any{"text": text},
					}},
				},
				agent.Update{
					Role:       agent.RoleTool,
					MessageID:  "result-" + responseID,
					ResponseID: responseID,
					Contents: []agent.Content{agent.FunctionResultContent{
						CallID: callID,
						Result: countWords(CountWordsArgs{Text: text}),
					}},
				},
			)
		}
	}

	limit, finish := a.cfg.Words, agent.FinishReasonStop
	if opts != nil && opts.MaxOutputTokens != nil && *opts.MaxOutputTokens < limit {
		limit, finish = *opts.MaxOutputTokens, agent.FinishReasonLength
	}

	words := a.words(limit)
	for i, w := range words {
		if i < len(words)-1 {
			w += " "
		}
		updates = append(updates, agent.Update{
			Role:       agent.RoleAssistant,
			MessageID:  "text-" + responseID,
			ResponseID: responseID,
			Contents:   []agent.Content{agent.TextContent{Text: w}},
		})
	}

	updates = append(updates, agent.Update{
		ResponseID:   responseID,
		FinishReason: finish,
		Contents: []agent.Content{agent.UsageContent{Details: agent.UsageDetails{
			InputTokenCount:  inputWords(messages),
			OutputTokenCount: len(words),
		}}},
	})
	return updates
}

// words returns exactly n lorem words.
func (a *Agent) words(n int) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, 0, n)
	for len(out) < n {
		out = append(out, strings.Fields(a.gen.Sentence(5, 15))...)
	}
	return out[:n]
}

// countWords executes the count_words tool.
func countWords(args CountWordsArgs) string {
	data, _ := json.Marshal(struct {
		Words int `json:"words"`
	}{len(strings.Fields(args.Text))})
	return string(data)
}

func lastUserText(messages []agent.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == agent.RoleUser {
			return messages[i].Text()
		}
	}
	return ""
}

func inputWords(messages []agent.Message) int {
	n := 0
	for _, m := range messages {
		n += len(strings.Fields(m.Text()))
	}
	return n
}

// collect merges streamed updates into complete messages.
func collect(updates []agent.Update) *agent.Response {
	resp := &agent.Response{FinishReason: agent.FinishReasonStop}
	var usage agent.UsageDetails

	for _, u := range updates {
		if u.ResponseID != "" {
			resp.ResponseID = u.ResponseID
		}
		if u.FinishReason != "" {
			resp.FinishReason = u.FinishReason
		}

		var contents []agent.Content
		for _, c := range u.Contents {
			c = agent.Normalize(c)
			if c == nil {
				continue
			}
			if uc, ok := c.(agent.UsageContent); ok {
				usage = usage.Add(uc.Details)
				continue
			}
			contents = append(contents, c)
		}
		if len(contents) == 0 {
			continue
		}

		n := len(resp.Messages)
		if n > 0 && resp.Messages[n-1].MessageID == u.MessageID && resp.Messages[n-1].Role == u.Role {
			last := &resp.Messages[n-1]
			last.Contents = appendMerged(last.Contents, contents)
			continue
		}
		resp.Messages = append(resp.Messages, agent.Message{
			Role:      u.Role,
			MessageID: u.MessageID,
			Contents:  contents,
		})
	}

	resp.Usage = &usage
	return resp
}

// appendMerged appends contents, joining adjacent text fragments.
func appendMerged(dst, src []agent.Content) []agent.Content {
	for _, c := range src {
		if t, ok := c.(agent.TextContent); ok && len(dst) > 0 {
			if prev, ok := dst[len(dst)-1].(agent.TextContent); ok {
				dst[len(dst)-1] = agent.TextContent{Text: prev.Text + t.Text}
				continue
			}
		}
		dst = append(dst, c)
	}
	return dst
}
