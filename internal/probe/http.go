package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPProbe issues a GET against a liveness path and requires a success
// status. Retries are left to the caller's polling loop; a single probe is a
// single request.
type HTTPProbe struct {
	service string
	url     string
	timeout time.Duration
	client  *retryablehttp.Client
}

// NewHTTPProbe builds a probe for the given service name and liveness URL.
func NewHTTPProbe(service, url string) *HTTPProbe {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: DefaultTimeout}

	return &HTTPProbe{service: service, url: url, timeout: DefaultTimeout, client: client}
}

// Service implements Prober.
func (p *HTTPProbe) Service() string { return p.service }

// Probe implements Prober.
func (p *HTTPProbe) Probe(ctx context.Context) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return newResult(p.service, start, false, fmt.Sprintf("build request: %v", err))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return newResult(p.service, start, false, fmt.Sprintf("request: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newResult(p.service, start, false, fmt.Sprintf("status %s", resp.Status))
	}
	return newResult(p.service, start, true, fmt.Sprintf("status %s", resp.Status))
}
