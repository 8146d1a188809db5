package engine

import (
	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/api"
	"github.com/rhuss/antwort-agents/pkg/debug"
	"github.com/rhuss/antwort-agents/pkg/idgen"
)

// aggregateOutput builds the output items of a non-streaming response.
// Function calls and results become standalone items in the order they
// appear. The remaining convertible content of each message is collected
// into one assistant message item that follows them; adjacent text is
// merged into a single output_text part.
func aggregateOutput(ids *idgen.Generator, messages []agent.Message) ([]api.Item, error) {
	output := []api.Item{}

	for _, msg := range messages {
		var parts []api.ContentPart
		for _, c := range msg.Contents {
			switch v := deref(c).(type) {
			case agent.FunctionCallContent:
				args, err := functionArguments(v.Arguments)
				if err != nil {
					return nil, err
				}
				id := ids.FunctionCallID()
				callID := v.CallID
				if callID == "" {
					callID = id
				}
				output = append(output, api.Item{
					ID:     id,
					Type:   api.ItemTypeFunctionCall,
					Status: api.ItemStatusCompleted,
					FunctionCall: &api.FunctionCallData{
						Name:      v.Name,
						CallID:    callID,
						Arguments: args,
					},
				})

			case agent.FunctionResultContent:
				output = append(output, api.Item{
					ID:     ids.FunctionOutputID(),
					Type:   api.ItemTypeFunctionCallOutput,
					Status: api.ItemStatusCompleted,
					FunctionCallOutput: &api.FunctionCallOutputData{
						CallID: v.CallID,
						Output: functionOutput(v),
					},
				})

			case agent.TextContent:
				if n := len(parts); n > 0 && parts[n-1].Type == api.PartTypeOutputText {
					parts[n-1].Text += v.Text
					continue
				}
				parts = append(parts, api.ContentPart{Type: api.PartTypeOutputText, Text: v.Text})

			case agent.ErrorContent:
				parts = append(parts, refusalPart(v))

			case agent.DataContent, agent.HostedFileContent:
				part, err := inputPart(v)
				if err != nil {
					return nil, err
				}
				parts = append(parts, part)

			default:
				debug.Log(debug.Engine, "skipping content without wire mapping", "kind", agent.KindOf(c).String())
			}
		}

		if len(parts) > 0 {
			output = append(output, api.Item{
				ID:      ids.MessageID(),
				Type:    api.ItemTypeMessage,
				Status:  api.ItemStatusCompleted,
				Message: &api.MessageData{Role: api.RoleAssistant, Content: parts},
			})
		}
	}
	return output, nil
}
