package dispatch

import (
	"fmt"

	"github.com/cchalm/chat-console/internal/backend"
)

// ErrorBodyDiagnosticLimit is the maximum number of characters of an error response body embedded
// in a status failure message
const ErrorBodyDiagnosticLimit = 500

// Failure class names, as reported to telemetry
const (
	ClassTransport    = "transport"
	ClassHTTPStatus   = "http_status"
	ClassDecode       = "decode"
	ClassAdapterParse = "adapter_parse"
)

// GenericFailureMessage is shown when a request could not be completed at all
const GenericFailureMessage = "Sorry, something went wrong. Please try again."

// Failure is implemented by every error a dispatch can end in. Message returns the text shown in
// the transcript; Error returns the text written to logs.
type Failure interface {
	error
	Message() string
	Class() string
}

// TransportError reports a request that could not be completed: the request could not be built,
// the network was unreachable, the exchange timed out, or it was canceled
type TransportError struct {
	Op  string // "build", "send" or "read"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to %s request: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Message() string { return GenericFailureMessage }

func (e *TransportError) Class() string { return ClassTransport }

// HTTPStatusError reports a non-2xx response
type HTTPStatusError struct {
	StatusCode int
	Body       string // Truncated rendering of the response body
}

func newHTTPStatusError(statusCode int, body []byte) *HTTPStatusError {
	return &HTTPStatusError{
		StatusCode: statusCode,
		Body:       backend.RenderPayload(body, ErrorBodyDiagnosticLimit),
	}
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPStatusError) Message() string {
	if e.Body == "" {
		return fmt.Sprintf("The chat service returned status %d.", e.StatusCode)
	}
	return fmt.Sprintf("The chat service returned status %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPStatusError) Class() string { return ClassHTTPStatus }

// DecodeError reports a success response whose body is not JSON
type DecodeError struct {
	Payload string // Truncated rendering of the raw body
}

func newDecodeError(body []byte) *DecodeError {
	return &DecodeError{Payload: backend.Truncate(string(body), backend.PayloadDiagnosticLimit)}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("response body is not valid JSON: %q", e.Payload)
}

func (e *DecodeError) Message() string {
	if e.Payload == "" {
		return "Could not read the chat service response: the response was empty."
	}
	return fmt.Sprintf("Could not read the chat service response: %s", e.Payload)
}

func (e *DecodeError) Class() string { return ClassDecode }

// AdapterParseError reports a decoded response that lacks the reply the active adapter expects
type AdapterParseError struct {
	Err *backend.ParseError
}

func (e *AdapterParseError) Error() string {
	return e.Err.Error()
}

func (e *AdapterParseError) Unwrap() error { return e.Err }

func (e *AdapterParseError) Message() string {
	return fmt.Sprintf("Unexpected response from the chat service: %s", e.Err.Diagnostic())
}

func (e *AdapterParseError) Class() string { return ClassAdapterParse }
