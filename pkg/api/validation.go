package api

import "fmt"

// ValidationConfig limits the size of a request.
type ValidationConfig struct {
	MaxInputItems  int
	MaxContentSize int // bytes across all parts of one message
	MaxTools       int
}

// DefaultValidationConfig returns the limits used when none are configured.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxInputItems:  1000,
		MaxContentSize: 10 << 20,
		MaxTools:       128,
	}
}

// ValidateRequest returns the first problem found in req, or nil. The model
// field may be empty since the route can name the agent instead.
func ValidateRequest(req *CreateResponseRequest, cfg ValidationConfig) *APIError {
	checks := []func(*CreateResponseRequest, ValidationConfig) *APIError{
		validateInput,
		validateTools,
		validateSampling,
		validateThreading,
	}
	for _, check := range checks {
		if err := check(req, cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateInput(req *CreateResponseRequest, cfg ValidationConfig) *APIError {
	switch n := len(req.Input); {
	case n == 0:
		return NewInvalidRequestError("input", "input must contain at least one item")
	case cfg.MaxInputItems > 0 && n > cfg.MaxInputItems:
		return NewInvalidRequestError("input", fmt.Sprintf("input has %d items, the limit is %d", n, cfg.MaxInputItems))
	}
	for i := range req.Input {
		if err := ValidateItem(&req.Input[i], cfg); err != nil {
			err.Param = fmt.Sprintf("input[%d].%s", i, err.Param)
			return err
		}
	}
	return nil
}

func validateTools(req *CreateResponseRequest, cfg ValidationConfig) *APIError {
	if cfg.MaxTools > 0 && len(req.Tools) > cfg.MaxTools {
		return NewInvalidRequestError("tools", fmt.Sprintf("%d tools given, the limit is %d", len(req.Tools), cfg.MaxTools))
	}

	seen := make(map[string]bool, len(req.Tools))
	for i, tool := range req.Tools {
		param := fmt.Sprintf("tools[%d]", i)
		switch {
		case tool.Type != "" && tool.Type != "function":
			return NewInvalidRequestError(param+".type", fmt.Sprintf("unsupported tool type %q", tool.Type))
		case tool.Name == "":
			return NewInvalidRequestError(param+".name", "tool name is required")
		case seen[tool.Name]:
			return NewInvalidRequestError(param+".name", fmt.Sprintf("tool %q is declared more than once", tool.Name))
		}
		seen[tool.Name] = true
	}

	if req.ToolChoice != nil && req.ToolChoice.Function != nil && !seen[req.ToolChoice.Function.Name] {
		return NewInvalidRequestError("tool_choice",
			fmt.Sprintf("tool_choice names %q, which is not in tools", req.ToolChoice.Function.Name))
	}
	return nil
}

func validateSampling(req *CreateResponseRequest, _ ValidationConfig) *APIError {
	if req.MaxOutputTokens != nil && *req.MaxOutputTokens <= 0 {
		return NewInvalidRequestError("max_output_tokens", "max_output_tokens must be positive")
	}
	if t := req.Temperature; t != nil && (*t < 0 || *t > 2) {
		return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
	}
	if p := req.TopP; p != nil && (*p < 0 || *p > 1) {
		return NewInvalidRequestError("top_p", "top_p must be between 0.0 and 1.0")
	}
	switch req.Truncation {
	case "", "auto", "disabled":
	default:
		return NewInvalidRequestError("truncation", "truncation must be 'auto' or 'disabled'")
	}
	return nil
}

// validateThreading rejects requests that name two partitions at once.
func validateThreading(req *CreateResponseRequest, _ ValidationConfig) *APIError {
	if req.Conversation != nil && req.PreviousResponseID != "" {
		return NewInvalidRequestError("conversation", "conversation and previous_response_id cannot both be set")
	}
	return nil
}

// ValidateItem checks one input item. Param in the returned error is
// relative to the item.
func ValidateItem(item *Item, cfg ValidationConfig) *APIError {
	switch item.Type {
	case "":
		return NewInvalidRequestError("type", "item type is required")

	case ItemTypeMessage:
		msg := item.Message
		if msg == nil {
			return NewInvalidRequestError("message", "message field required for message type")
		}
		switch msg.Role {
		case RoleUser, RoleAssistant, RoleSystem, RoleDeveloper:
		default:
			return NewInvalidRequestError("role", fmt.Sprintf("invalid message role %q", msg.Role))
		}
		if cfg.MaxContentSize > 0 && contentSize(msg.Content) > cfg.MaxContentSize {
			return NewInvalidRequestError("content",
				fmt.Sprintf("content exceeds maximum size of %d bytes", cfg.MaxContentSize))
		}

	case ItemTypeFunctionCall:
		switch fc := item.FunctionCall; {
		case fc == nil || fc.CallID == "":
			return NewInvalidRequestError("call_id", "call_id is required for function_call items")
		case fc.Name == "":
			return NewInvalidRequestError("name", "name is required for function_call items")
		}

	case ItemTypeFunctionCallOutput:
		if item.FunctionCallOutput == nil || item.FunctionCallOutput.CallID == "" {
			return NewInvalidRequestError("call_id", "call_id is required for function_call_output items")
		}

	case ItemTypeReasoning:
		if item.Reasoning == nil {
			return NewInvalidRequestError("reasoning", "reasoning field required for reasoning type")
		}

	default:
		return NewInvalidRequestError("type", fmt.Sprintf("invalid item type %q", item.Type))
	}
	return nil
}

func contentSize(parts []ContentPart) int {
	n := 0
	for _, p := range parts {
		n += len(p.Text) + len(p.FileData) + len(p.ImageURL)
		if p.InputAudio != nil {
			n += len(p.InputAudio.Data)
		}
	}
	return n
}
