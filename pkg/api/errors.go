package api

import "fmt"

// ErrorType is the "type" field of an error object.
type ErrorType string

const (
	ErrorTypeServerError    ErrorType = "server_error"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeModelError     ErrorType = "model_error"
)

// Values of the "code" field.
const (
	CodeAgentInvocationFailed = "agent_invocation_failed"
	CodeAgentNotFound         = "agent_not_found"
	CodeContentNotConvertible = "content_not_convertible"
	CodeMalformedID           = "malformed_id"
)

// APIError is the error object returned in JSON error bodies and carried by
// response.failed snapshots and error events.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

func (e *APIError) Error() string {
	s := string(e.Type)
	if e.Code != "" {
		s += "/" + e.Code
	}
	s += ": " + e.Message
	if e.Param != "" {
		s += " (param: " + e.Param + ")"
	}
	return s
}

// WithCode sets the code and returns e.
func (e *APIError) WithCode(code string) *APIError {
	e.Code = code
	return e
}

// ErrorResponse is the top-level body of an error reply.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError reports a problem with the request field param.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{Type: ErrorTypeInvalidRequest, Param: param, Message: message}
}

func NewNotFoundError(message string) *APIError {
	return &APIError{Type: ErrorTypeNotFound, Message: message}
}

func NewServerError(message string) *APIError {
	return &APIError{Type: ErrorTypeServerError, Message: message}
}

// NewAgentNotFoundError reports an agent name that is not registered.
// param names the request field the name came from, if any.
func NewAgentNotFoundError(name, param string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Code:    CodeAgentNotFound,
		Param:   param,
		Message: fmt.Sprintf("agent %q not found", name),
	}
}

// NewAgentError reports an agent that failed while producing a response.
func NewAgentError(agentName string, err error) *APIError {
	return &APIError{
		Type:    ErrorTypeModelError,
		Code:    CodeAgentInvocationFailed,
		Message: fmt.Sprintf("agent %q failed: %v", agentName, err),
	}
}
