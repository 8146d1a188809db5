package api

import "fmt"

// ValidateResponseTransition reports whether a response may move from one
// status to the next. The empty status is the state before response.created.
// A streamed response goes "" -> in_progress -> one terminal status and
// never leaves a terminal status.
func ValidateResponseTransition(from, to ResponseStatus) *APIError {
	ok := false
	switch from {
	case "":
		ok = to == ResponseStatusQueued || to == ResponseStatusInProgress
	case ResponseStatusQueued:
		ok = to == ResponseStatusInProgress
	case ResponseStatusInProgress:
		ok = to.IsTerminal()
	}
	if ok {
		return nil
	}
	return NewServerError(fmt.Sprintf("response status cannot move from %q to %q", from, to))
}
