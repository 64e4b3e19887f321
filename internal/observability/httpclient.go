package observability

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewHTTPClient wraps base's transport with otelhttp instrumentation,
// preserving base's timeout and any dialer-level settings the caller
// already configured (collaborator clients set a short connect timeout and
// a long overall timeout, since TTS/talking-head reads can run for
// minutes). A nil base gets http.DefaultTransport as its starting point.
func NewHTTPClient(base *http.Client) *http.Client {
	transport := http.DefaultTransport
	timeout := http.DefaultClient.Timeout
	if base != nil {
		if base.Transport != nil {
			transport = base.Transport
		}
		timeout = base.Timeout
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(transport),
		Timeout:   timeout,
	}
}
