package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhuss/antwort-agents/pkg/api"
)

// HTTPStatusFromError picks the status code for an APIError. A failed agent
// invocation is reported as 502 since the fault lies behind the server.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeModelError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse writes {"error": apiErr} with the given status.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, status int) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// APIErrorFrom unwraps the APIError carried by err, if any. Anything else
// becomes a server_error with the error text as message.
func APIErrorFrom(err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewServerError(err.Error())
}

// WriteAPIError writes apiErr with the status derived from its type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}
