package transport

import (
	"log"
	"net/http"
	"time"
)

// LoggingTransport logs every exchange made through it. It never retries: each RoundTrip is
// exactly one attempt on the base transport.
type LoggingTransport struct {
	base      http.RoundTripper
	userAgent string
}

func WithRequestLogging(base http.RoundTripper, userAgent string) *LoggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &LoggingTransport{base: base, userAgent: userAgent}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	elapsed := time.Since(start).Round(time.Millisecond)

	target := req.URL.Redacted()
	if err != nil {
		log.Printf("%s %s failed after %s: %v", req.Method, target, elapsed, err)
		return resp, err
	}

	log.Printf("%s %s -> %d (%s)", req.Method, target, resp.StatusCode, elapsed)
	return resp, nil
}
