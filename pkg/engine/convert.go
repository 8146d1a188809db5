package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/api"
)

// ErrContentNotConvertible is the sentinel wrapped by every ConversionError.
var ErrContentNotConvertible = errors.New("content cannot be converted")

// ConversionError reports content that has no representation in the target
// format. Param names the offending request field when the content came
// from a request.
type ConversionError struct {
	What   string
	Param  string
	Reason string
}

func (e *ConversionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s cannot be converted", e.What)
	}
	return fmt.Sprintf("%s cannot be converted: %s", e.What, e.Reason)
}

func (e *ConversionError) Unwrap() error { return ErrContentNotConvertible }

// APIError converts the failure to an invalid_request error.
func (e *ConversionError) APIError() *api.APIError {
	return api.NewInvalidRequestError(e.Param, e.Error()).WithCode(api.CodeContentNotConvertible)
}

// audioFormats maps audio media subtypes to the Responses input_audio format.
var audioFormats = map[string]string{
	"mpeg": "mp3",
	"mp3":  "mp3",
	"wav":  "wav",
	"opus": "opus",
	"aac":  "aac",
	"flac": "flac",
	"pcm":  "pcm16",
}

func audioFormat(subtype string) string {
	if f, ok := audioFormats[subtype]; ok {
		return f
	}
	return "mp3"
}

// inputPart converts agent content to an input content part. Reasoning and
// error content are never valid input.
func inputPart(c agent.Content) (api.ContentPart, error) {
	switch v := deref(c).(type) {
	case agent.TextContent:
		return api.ContentPart{Type: api.PartTypeInputText, Text: v.Text}, nil

	case agent.DataContent:
		switch v.Kind() {
		case agent.KindImage:
			part := api.ContentPart{Type: api.PartTypeInputImage, ImageURL: v.DataURI()}
			if detail, ok := v.AdditionalProperties["detail"].(string); ok {
				part.Detail = detail
			}
			return part, nil
		case agent.KindAudio:
			return api.ContentPart{
				Type:       api.PartTypeInputAudio,
				InputAudio: &api.InputAudio{Data: v.Base64(), Format: audioFormat(v.SubType())},
			}, nil
		default:
			part := api.ContentPart{Type: api.PartTypeInputFile, Filename: v.Name}
			if len(v.Data) > 0 || strings.HasPrefix(v.URI, "data:") {
				part.FileData = v.DataURI()
			} else {
				part.FileURL = v.URI
			}
			return part, nil
		}

	case agent.HostedFileContent:
		return api.ContentPart{Type: api.PartTypeInputFile, FileID: v.FileID}, nil

	case agent.TextReasoningContent:
		return api.ContentPart{}, &ConversionError{What: "reasoning content", Reason: "reasoning is not valid input"}

	case agent.ErrorContent:
		return api.ContentPart{}, &ConversionError{What: "error content", Reason: "errors are not valid input"}
	}
	return api.ContentPart{}, &ConversionError{What: fmt.Sprintf("%s content", agent.KindOf(c)), Reason: "no input part mapping"}
}

// refusalPart carries an agent error verbatim as a refusal.
func refusalPart(e agent.ErrorContent) api.ContentPart {
	return api.ContentPart{Type: api.PartTypeRefusal, Refusal: e.Message}
}

// functionArguments serializes call arguments as a JSON object.
func functionArguments(args map[string]any) (string, error) {
	if args == nil {
		return "{}", nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encoding function arguments: %w", err)
	}
	return string(data), nil
}

// functionOutput renders a function result as the output string. A raised
// exception becomes `TypeName("message")`.
func functionOutput(r agent.FunctionResultContent) string {
	if r.Exception != nil {
		return fmt.Sprintf("%s(%q)", errorTypeName(r.Exception), r.Exception.Error())
	}
	switch v := r.Result.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	data, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Sprint(r.Result)
	}
	return string(data)
}

func errorTypeName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "error"
	}
	return t.Name()
}

// deref normalizes pointer content to its value form.
func deref(c agent.Content) agent.Content {
	return agent.Normalize(c)
}

// toAPIUsage converts agent usage counts to the wire form.
func toAPIUsage(u agent.UsageDetails) api.Usage {
	total := u.TotalTokenCount
	if total == 0 {
		total = u.InputTokenCount + u.OutputTokenCount
	}
	return api.Usage{
		InputTokens:         u.InputTokenCount,
		OutputTokens:        u.OutputTokenCount,
		TotalTokens:         total,
		InputTokensDetails:  api.InputTokensDetails{CachedTokens: u.CachedInputTokenCount},
		OutputTokensDetails: api.OutputTokensDetails{ReasoningTokens: u.ReasoningTokenCount},
	}
}
