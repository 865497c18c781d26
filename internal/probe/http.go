package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPProber checks that an HTTP endpoint answers with a status below 400.
// Redirects are not followed and the body is never read, so a 302 to a
// login page counts as reachable.
type HTTPProber struct {
	url    string
	method string
	client *http.Client
}

// NewHTTPProber returns a prober for url. An empty method means GET.
func NewHTTPProber(url, method string, timeout time.Duration) *HTTPProber {
	if method == "" {
		method = http.MethodGet
	}

	return &HTTPProber{
		url:    url,
		method: method,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DisableKeepAlives: true,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (p *HTTPProber) Target() string {
	return p.url
}

func (p *HTTPProber) Probe(ctx context.Context) Result {
	res := newResult(p.url)

	req, err := http.NewRequestWithContext(ctx, p.method, p.url, nil)
	if err != nil {
		res.Err = fmt.Errorf("failed to build request: %w", err)
		return res
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	if resp.StatusCode >= http.StatusBadRequest {
		res.Err = fmt.Errorf("HTTP %d", resp.StatusCode)
		return res
	}

	res.OK = true
	return res
}
