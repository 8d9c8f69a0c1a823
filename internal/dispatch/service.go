// Package dispatch performs the network exchange for a single user submission and normalizes its
// result into an Outcome.
package dispatch

import (
	"context"
	"errors"
	"log"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cchalm/chat-console/internal/backend"
	"github.com/cchalm/chat-console/internal/telemetry"
)

// Outcome is the normalized result of a dispatch. Text is the reply on success and the
// user-facing failure message otherwise.
type Outcome struct {
	OK   bool
	Text string
	Err  Failure // nil on success
}

// Success creates a successful outcome
func Success(text string) Outcome {
	return Outcome{OK: true, Text: text}
}

// Failed creates a failed outcome from a failure
func Failed(f Failure) Outcome {
	return Outcome{OK: false, Text: f.Message(), Err: f}
}

// Service sends prompts to a backend through a transport. It performs exactly one attempt per
// call and never retries.
type Service struct {
	transport Transport
	tracer    trace.Tracer
}

type Option func(*Service)

// WithTracer sets the tracer dispatch spans are recorded on
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewService creates a dispatch service using transport
func NewService(transport Transport, opts ...Option) *Service {
	s := &Service{
		transport: transport,
		tracer:    noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send builds a request for prompt with adapter, performs the exchange and returns its outcome.
// Every failure is reported through the outcome; Send has no error return.
func (s *Service) Send(ctx context.Context, prompt string, adapter backend.Adapter) Outcome {
	ctx, span := s.tracer.Start(ctx, "chat.dispatch", trace.WithAttributes(
		telemetry.AttrBackend.String(adapter.Mode()),
		telemetry.AttrPromptLength.Int(len(prompt)),
	))
	defer span.End()
	if id := telemetry.ConversationIDFrom(ctx); id != "" {
		span.SetAttributes(telemetry.AttrConversationID.String(id))
	}

	start := time.Now()
	outcome, statusCode := s.send(ctx, prompt, adapter)
	elapsed := time.Since(start)

	if statusCode != 0 {
		span.SetAttributes(telemetry.AttrStatusCode.Int(statusCode))
	}
	if outcome.OK {
		span.SetAttributes(telemetry.AttrOutcome.String("success"))
		span.SetStatus(codes.Ok, "")
		log.Printf("Dispatch to %s backend succeeded in %s", adapter.Mode(), elapsed.Round(time.Millisecond))
	} else {
		span.SetAttributes(
			telemetry.AttrOutcome.String("failure"),
			telemetry.AttrFailureClass.String(outcome.Err.Class()),
		)
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Class())
		log.Printf("Dispatch to %s backend failed after %s: %v", adapter.Mode(), elapsed.Round(time.Millisecond), outcome.Err)
	}

	return outcome
}

func (s *Service) send(ctx context.Context, prompt string, adapter backend.Adapter) (Outcome, int) {
	req, err := adapter.BuildRequest(prompt)
	if err != nil {
		return Failed(&TransportError{Op: "build", Err: err}), 0
	}

	resp, err := s.transport.Do(ctx, req)
	if err != nil {
		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			transportErr = &TransportError{Op: "send", Err: err}
		}
		return Failed(transportErr), 0
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Failed(newHTTPStatusError(resp.StatusCode, resp.Body)), resp.StatusCode
	}

	if !backend.IsJSON(resp.Body) {
		return Failed(newDecodeError(resp.Body)), resp.StatusCode
	}

	text, err := adapter.ParseResponse(resp.Body)
	if err != nil {
		var parseErr *backend.ParseError
		if !errors.As(err, &parseErr) {
			parseErr = &backend.ParseError{
				Mode:    adapter.Mode(),
				Reason:  err.Error(),
				Payload: backend.RenderPayload(resp.Body, backend.PayloadDiagnosticLimit),
			}
		}
		return Failed(&AdapterParseError{Err: parseErr}), resp.StatusCode
	}

	return Success(text), resp.StatusCode
}
