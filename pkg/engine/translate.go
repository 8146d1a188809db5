package engine

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/api"
)

// translateInput converts request input items into agent messages.
// Refusal parts and reasoning items have no agent input form and fail with
// a ConversionError.
func translateInput(input api.Input) ([]agent.Message, error) {
	messages := make([]agent.Message, 0, len(input))
	for i, item := range input {
		msg, err := translateItem(item)
		if err != nil {
			var ce *ConversionError
			if errors.As(err, &ce) && ce.Param == "" {
				ce.Param = fmt.Sprintf("input[%d]", i)
			}
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func translateItem(item api.Item) (agent.Message, error) {
	switch item.Type {
	case api.ItemTypeMessage:
		return translateMessageItem(item)

	case api.ItemTypeFunctionCall:
		fc := item.FunctionCall
		var args map[string]any
		if fc.Arguments != "" {
			if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
				return agent.Message{}, &ConversionError{
					What:   "function_call item",
					Reason: "arguments must be a JSON object",
				}
			}
		}
		return agent.Message{
			Role:      agent.RoleAssistant,
			MessageID: item.ID,
			Contents: []agent.Content{agent.FunctionCallContent{
				CallID:    fc.CallID,
				Name:      fc.Name,
				Arguments: args,
			}},
		}, nil

	case api.ItemTypeFunctionCallOutput:
		return agent.Message{
			Role:      agent.RoleTool,
			MessageID: item.ID,
			Contents: []agent.Content{agent.FunctionResultContent{
				CallID: item.FunctionCallOutput.CallID,
				Result: item.FunctionCallOutput.Output,
			}},
		}, nil

	case api.ItemTypeReasoning:
		return agent.Message{}, &ConversionError{What: "reasoning item", Reason: "reasoning is not valid input"}
	}

	return agent.Message{}, &ConversionError{What: fmt.Sprintf("%s item", item.Type), Reason: "unsupported item type"}
}

func translateMessageItem(item api.Item) (agent.Message, error) {
	msg := agent.Message{
		Role:      agent.Role(item.Message.Role),
		MessageID: item.ID,
	}
	for _, part := range item.Message.Content {
		c, err := translatePart(part)
		if err != nil {
			return agent.Message{}, err
		}
		msg.Contents = append(msg.Contents, c)
	}
	return msg, nil
}

// translatePart converts one message content part into agent content.
func translatePart(part api.ContentPart) (agent.Content, error) {
	switch part.Type {
	case api.PartTypeInputText, api.PartTypeOutputText:
		return agent.TextContent{Text: part.Text}, nil

	case api.PartTypeRefusal:
		return nil, &ConversionError{What: "refusal part", Reason: "refusals are not valid input"}

	case api.PartTypeInputImage:
		if part.FileID != "" {
			return agent.HostedFileContent{FileID: part.FileID}, nil
		}
		d := agent.DataContent{URI: part.ImageURL}
		if mt, data, ok := agent.ParseDataURI(part.ImageURL); ok {
			d.MediaType, d.Data = mt, data
		} else {
			d.MediaType = "image/*"
		}
		if part.Detail != "" {
			d.AdditionalProperties = map[string]any{"detail": part.Detail}
		}
		return d, nil

	case api.PartTypeInputAudio:
		if part.InputAudio == nil {
			return nil, &ConversionError{What: "input_audio part", Reason: "input_audio is required"}
		}
		data, err := base64.StdEncoding.DecodeString(part.InputAudio.Data)
		if err != nil {
			return nil, &ConversionError{What: "input_audio part", Reason: "data must be base64"}
		}
		return agent.DataContent{Data: data, MediaType: audioMediaType(part.InputAudio.Format)}, nil

	case api.PartTypeInputFile:
		switch {
		case part.FileID != "":
			return agent.HostedFileContent{FileID: part.FileID}, nil
		case part.FileData != "":
			if mt, data, ok := agent.ParseDataURI(part.FileData); ok {
				return agent.DataContent{Data: data, MediaType: mt, Name: part.Filename}, nil
			}
			data, err := base64.StdEncoding.DecodeString(part.FileData)
			if err != nil {
				return nil, &ConversionError{What: "input_file part", Reason: "file_data must be base64 or a data URI"}
			}
			return agent.DataContent{Data: data, MediaType: "application/octet-stream", Name: part.Filename}, nil
		case part.FileURL != "":
			return agent.DataContent{URI: part.FileURL, MediaType: "application/octet-stream", Name: part.Filename}, nil
		}
		return nil, &ConversionError{What: "input_file part", Reason: "one of file_id, file_data or file_url is required"}
	}

	return nil, &ConversionError{What: fmt.Sprintf("%s part", part.Type), Reason: "unsupported content part type"}
}

// audioMediaType is the inverse of audioFormat.
func audioMediaType(format string) string {
	switch format {
	case "mp3":
		return "audio/mpeg"
	case "pcm16":
		return "audio/pcm"
	case "":
		return "audio/mpeg"
	}
	return "audio/" + format
}

// translateTools converts request tool definitions to agent tools.
func translateTools(defs []api.ToolDefinition) []agent.Tool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]agent.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, agent.Tool{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
			Strict:      d.Strict,
		})
	}
	return out
}

// runOptions collects the per-request agent settings.
func runOptions(req *api.CreateResponseRequest) *agent.RunOptions {
	opts := &agent.RunOptions{
		Instructions:    req.Instructions,
		Model:           req.Model,
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		MaxOutputTokens: req.MaxOutputTokens,
		Tools:           translateTools(req.Tools),
		ConversationID:  req.ConversationID(),
		User:            req.User,
		Metadata:        req.Metadata,
	}
	if tc := req.ToolChoice; tc != nil {
		if tc.Function != nil {
			opts.ToolChoice = &agent.ToolChoice{Mode: "required", Function: tc.Function.Name}
		} else {
			opts.ToolChoice = &agent.ToolChoice{Mode: tc.String}
		}
	}
	return opts
}
