package proxy

import (
	"net/http"
	"time"
)

// NewUpstreamClient returns the HTTP client used in record mode. It never
// decompresses bodies and never follows redirects, so the recorded response
// is exactly what the upstream sent.
func NewUpstreamClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
