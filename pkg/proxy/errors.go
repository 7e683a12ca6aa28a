package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"mercator-hq/chproxy/pkg/transcript"
)

// Error types reported in JSON error bodies.
const (
	ErrorTypeInvalidRequest = "invalid_request_error"
	ErrorTypeUpstream       = "upstream_error"
	ErrorTypeNoRecordings   = "no_recordings"
	ErrorTypeServer         = "server_error"
)

// TransportError is a bind, accept or upstream connect failure.
type TransportError struct {
	Op   string // "listen", "accept", "dial"
	Addr string
	Err  error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// RequestError is a failure to read the client request body.
type RequestError struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// UpstreamError is a failed exchange with the upstream server. Nothing is
// recorded for it.
type UpstreamError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body written for errors chproxy itself produces.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a single error.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// HandleError maps an error from the handler path to a status code and body.
//
// Example usage:
//
//	if err != nil {
//	    status, resp := HandleError(err)
//	    WriteErrorResponse(w, status, resp)
//	    return
//	}
func HandleError(err error) (int, *ErrorResponse) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status, newErrorResponse(reqErr.Message, ErrorTypeInvalidRequest)
	}

	if errors.Is(err, transcript.ErrNoRecordings) {
		return http.StatusInternalServerError,
			newErrorResponse("no recorded responses available for replay", ErrorTypeNoRecordings)
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return http.StatusInternalServerError, newErrorResponse(upErr.Error(), ErrorTypeUpstream)
	}

	return http.StatusInternalServerError,
		newErrorResponse("An internal error occurred.", ErrorTypeServer)
}

// WriteErrorResponse writes resp as JSON with the given status.
func WriteErrorResponse(w http.ResponseWriter, status int, resp *ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func newErrorResponse(message, errType string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Message: message, Type: errType}}
}
