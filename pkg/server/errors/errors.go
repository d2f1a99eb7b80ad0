// Package errors maps pipeline errors onto the JSON error bodies and status
// codes of the HTTP API.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kgview/kgview/pkg/assembly"
)

const (
	InternalServerErrorMsg = "Internal Server Error"

	// StatusClientClosedRequest is returned when the caller went away before
	// the graph was ready.
	StatusClientClosedRequest = 499

	DefaultRetryAfter = 5 * time.Second
)

// Codes carried in EncodedError.Code.
const (
	CodeInvalidRequest        = "invalid_request"
	CodeDataSourceUnavailable = "data_source_unavailable"
	CodeRequestCancelled      = "request_cancelled"
	CodeNotFound              = "not_found"
	CodeInternal              = "internal_error"
)

// EncodedError is the body of every failed response.
type EncodedError struct {
	HTTPStatus int           `json:"-"`
	RetryAfter time.Duration `json:"-"`

	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e *EncodedError) Error() string {
	return e.Message
}

// NewInternalError hides the failure behind a generic message.
func NewInternalError() *EncodedError {
	return &EncodedError{HTTPStatus: http.StatusInternalServerError, Code: CodeInternal, Message: InternalServerErrorMsg}
}

// HandleError translates an assembly error. Internal details are only
// exposed for invalid requests, where they tell the caller what to fix.
func HandleError(err error, retryAfter time.Duration) *EncodedError {
	switch {
	case errors.Is(err, assembly.ErrInvalidRequest):
		return &EncodedError{HTTPStatus: http.StatusBadRequest, Code: CodeInvalidRequest, Message: err.Error()}
	case errors.Is(err, context.Canceled):
		return &EncodedError{HTTPStatus: StatusClientClosedRequest, Code: CodeRequestCancelled, Message: "request cancelled"}
	case assembly.IsRetryable(err):
		return &EncodedError{
			HTTPStatus: http.StatusServiceUnavailable,
			RetryAfter: retryAfter,
			Code:       CodeDataSourceUnavailable,
			Message:    "the graph data source is unavailable, retry later",
			Retryable:  true,
		}
	default:
		return NewInternalError()
	}
}

// Write sends e as a JSON response.
func (e *EncodedError) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if e.Retryable && e.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int((e.RetryAfter+time.Second-1)/time.Second)))
	}
	w.WriteHeader(e.HTTPStatus)

	body, err := json.Marshal(e)
	if err != nil {
		return
	}
	_, _ = w.Write(body)
}
