package agent

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Content is one fragment of agent output or input. The set of
// implementations is closed; use KindOf to classify a value.
type Content interface {
	isContent()
}

// TextContent is plain text, either a complete message body or a streaming
// delta.
type TextContent struct {
	Text string
}

// TextReasoningContent is model reasoning text. It is never valid as input.
type TextReasoningContent struct {
	Text string
}

// FunctionCallContent is a request from the agent to invoke a function.
type FunctionCallContent struct {
	CallID    string
	Name      string
	Arguments map[string]any
}

// FunctionResultContent is the outcome of a function invocation. Exception
// is set when the call raised instead of returning Result.
type FunctionResultContent struct {
	CallID    string
	Result    any
	Exception error
}

// DataContent is binary content referenced by URI or carried inline.
// Its kind (image, audio or file) follows from the top-level media type.
type DataContent struct {
	URI       string
	Data      []byte
	MediaType string
	Name      string

	// AdditionalProperties carries side-channel hints such as "detail" for
	// images.
	AdditionalProperties map[string]any
}

// HostedFileContent references a file stored by the hosting service.
type HostedFileContent struct {
	FileID string
}

// ErrorContent is an error or refusal reported by the agent as content.
type ErrorContent struct {
	Message   string
	ErrorCode string
}

// UsageContent reports token usage for part of a run.
type UsageContent struct {
	Details UsageDetails
}

func (TextContent) isContent()           {}
func (TextReasoningContent) isContent()  {}
func (FunctionCallContent) isContent()   {}
func (FunctionResultContent) isContent() {}
func (DataContent) isContent()           {}
func (HostedFileContent) isContent()     {}
func (ErrorContent) isContent()          {}
func (UsageContent) isContent()          {}

// Kind classifies content fragments.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindReasoning
	KindFunctionCall
	KindFunctionResult
	KindImage
	KindAudio
	KindFile
	KindHostedFile
	KindError
	KindUsage
)

var kindNames = [...]string{
	KindUnknown:        "unknown",
	KindText:           "text",
	KindReasoning:      "reasoning",
	KindFunctionCall:   "function_call",
	KindFunctionResult: "function_result",
	KindImage:          "image",
	KindAudio:          "audio",
	KindFile:           "file",
	KindHostedFile:     "hosted_file",
	KindError:          "error",
	KindUsage:          "usage",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Normalize returns the value form of pointer content. A nil pointer
// normalizes to nil.
func Normalize(c Content) Content {
	switch v := c.(type) {
	case *TextContent:
		if v == nil {
			return nil
		}
		return *v
	case *TextReasoningContent:
		if v == nil {
			return nil
		}
		return *v
	case *FunctionCallContent:
		if v == nil {
			return nil
		}
		return *v
	case *FunctionResultContent:
		if v == nil {
			return nil
		}
		return *v
	case *DataContent:
		if v == nil {
			return nil
		}
		return *v
	case *HostedFileContent:
		if v == nil {
			return nil
		}
		return *v
	case *ErrorContent:
		if v == nil {
			return nil
		}
		return *v
	case *UsageContent:
		if v == nil {
			return nil
		}
		return *v
	}
	return c
}

// KindOf classifies c. Pointer and value forms classify the same way; nil
// pointers are KindUnknown.
func KindOf(c Content) Kind {
	switch v := Normalize(c).(type) {
	case TextContent:
		return KindText
	case TextReasoningContent:
		return KindReasoning
	case FunctionCallContent:
		return KindFunctionCall
	case FunctionResultContent:
		return KindFunctionResult
	case DataContent:
		return v.Kind()
	case HostedFileContent:
		return KindHostedFile
	case ErrorContent:
		return KindError
	case UsageContent:
		return KindUsage
	}
	return KindUnknown
}

// Kind returns KindImage, KindAudio or KindFile from the top-level media type.
func (d DataContent) Kind() Kind {
	switch d.TopLevelType() {
	case "image":
		return KindImage
	case "audio":
		return KindAudio
	default:
		return KindFile
	}
}

// EffectiveMediaType returns MediaType, or the media type embedded in a data
// URI when MediaType is empty.
func (d DataContent) EffectiveMediaType() string {
	if d.MediaType != "" {
		return d.MediaType
	}
	if mt, _, ok := ParseDataURI(d.URI); ok {
		return mt
	}
	return ""
}

// TopLevelType returns the part of the media type before the slash, lower-cased.
func (d DataContent) TopLevelType() string {
	mt := strings.ToLower(d.EffectiveMediaType())
	top, _, _ := strings.Cut(mt, "/")
	return top
}

// SubType returns the part of the media type after the slash without
// parameters, lower-cased.
func (d DataContent) SubType() string {
	mt := strings.ToLower(d.EffectiveMediaType())
	_, sub, _ := strings.Cut(mt, "/")
	sub, _, _ = strings.Cut(sub, ";")
	return strings.TrimSpace(sub)
}

// Bytes returns the inline data, decoding a data URI when Data is empty.
func (d DataContent) Bytes() []byte {
	if len(d.Data) > 0 {
		return d.Data
	}
	if _, data, ok := ParseDataURI(d.URI); ok {
		return data
	}
	return nil
}

// Base64 returns the inline data base64 encoded.
func (d DataContent) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Bytes())
}

// DataURI returns URI when set, otherwise a data URI built from the inline
// bytes and media type.
func (d DataContent) DataURI() string {
	if d.URI != "" {
		return d.URI
	}
	return "data:" + d.MediaType + ";base64," + d.Base64()
}

// ParseDataURI decodes a base64 "data:" URI into its media type and bytes.
func ParseDataURI(uri string) (mediaType string, data []byte, ok bool) {
	rest, found := strings.CutPrefix(uri, "data:")
	if !found {
		return "", nil, false
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, false
	}
	meta, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, false
	}
	return meta, decoded, true
}
