// Package httputil provides the shared HTTP client used for NWS API calls.
package httputil

import (
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	req.Header.Set("Accept", "application/geo+json")
	return t.next.RoundTrip(req)
}

// NewClient returns an HTTP client with standard timeout configuration that
// identifies itself on every request. The NWS API rejects anonymous clients.
func NewClient(userAgent string) *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &userAgentTransport{agent: userAgent, next: http.DefaultTransport},
	}
}
