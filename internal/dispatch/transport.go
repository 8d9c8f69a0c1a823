package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cchalm/chat-console/internal/backend"
)

// DefaultMaxResponseBytes caps how much of a response body is read into memory
const DefaultMaxResponseBytes = 8 << 20

// ErrResponseTooLarge is wrapped by the TransportError of a response whose body exceeds the limit
var ErrResponseTooLarge = errors.New("response body too large")

// Response is a completed exchange: the status code and the raw body
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport performs a single request/response exchange. Implementations must not retry.
type Transport interface {
	Do(ctx context.Context, req backend.Request) (Response, error)
}

// HTTPTransport implements Transport using an http.Client
type HTTPTransport struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPTransport creates a transport backed by client. A nil client uses http.DefaultClient.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client, maxBytes: DefaultMaxResponseBytes}
}

// WithMaxResponseBytes sets the largest response body the transport accepts
func (ht *HTTPTransport) WithMaxResponseBytes(n int64) *HTTPTransport {
	ht.maxBytes = n
	return ht
}

func (ht *HTTPTransport) Do(ctx context.Context, req backend.Request) (Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return Response{}, &TransportError{Op: "build", Err: err}
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := ht.client.Do(httpReq)
	if err != nil {
		return Response{}, &TransportError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, ht.maxBytes+1))
	if err != nil {
		return Response{}, &TransportError{Op: "read", Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(body)) > ht.maxBytes {
		return Response{}, &TransportError{Op: "read", Err: fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, ht.maxBytes)}
	}

	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}
