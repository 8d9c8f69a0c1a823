// Package backend translates between plain prompts/replies and the wire shapes of the chat
// services the console can talk to.
package backend

import (
	"fmt"
	"net/http"

	"github.com/tidwall/pretty"
)

// PayloadDiagnosticLimit is the maximum number of characters of a raw response payload embedded
// in a parse diagnostic
const PayloadDiagnosticLimit = 200

// Request is a fully built backend request, ready to be handed to a transport
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Adapter builds requests for, and extracts reply text from, one backend variant. Adapters are
// pure: they never perform I/O and never touch conversation state.
type Adapter interface {
	// Mode returns the backend mode this adapter serves, e.g. "legacy"
	Mode() string
	// BuildRequest translates a prompt into a backend request
	BuildRequest(prompt string) (Request, error)
	// ParseResponse extracts the reply text from a decoded response payload. The payload is
	// expected to be valid JSON; malformed or missing reply fields produce a *ParseError.
	ParseResponse(payload []byte) (string, error)
}

// ParseError reports a response payload that lacks the reply field an adapter expects
type ParseError struct {
	Mode    string
	Reason  string
	Payload string // Truncated rendering of the raw payload
}

func newParseError(mode string, reason string, payload []byte) *ParseError {
	return &ParseError{
		Mode:    mode,
		Reason:  reason,
		Payload: RenderPayload(payload, PayloadDiagnosticLimit),
	}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s response %s: %s", e.Mode, e.Reason, e.Payload)
}

// Diagnostic returns the user-facing description of the parse failure
func (e *ParseError) Diagnostic() string {
	return fmt.Sprintf("%s (received %s)", e.Reason, e.Payload)
}

// Truncate shortens s to at most limit characters
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// RenderPayload renders a raw payload for a diagnostic. JSON payloads are compacted onto one line
// before truncation; anything else is truncated as-is.
func RenderPayload(payload []byte, limit int) string {
	if IsJSON(payload) {
		payload = pretty.Ugly(payload)
	}
	return Truncate(string(payload), limit)
}

func jsonHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	return h
}
