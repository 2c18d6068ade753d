package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxDrainSize bounds how much of a response body is read back so the
// connection can be returned to the pool.
const maxDrainSize = 1 << 20 // 1MB

// DefaultUserAgent is sent with every probe unless overridden.
const DefaultUserAgent = "hostprobe/1.0"

// connection pooling limits to prevent resource exhaustion when probing many hosts
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common ALB defaults
)

// Transport performs a single timed HTTP GET.
//
// Get returns the response status code and the time taken until the response
// headers arrived. A non-nil error means no response was received; the
// status and elapsed values are then meaningless.
type Transport interface {
	Get(ctx context.Context, url string, timeout time.Duration) (statusCode int, elapsed time.Duration, err error)
}

// Client is the default [Transport], an HTTP client wrapper tuned for
// repeated probing of many hosts.
//
// Client uses per-request timeouts via context rather than a global timeout,
// so every attempt is bounded independently of the others.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new probing [Client].
//
// The client is configured with connection pooling limits to prevent resource
// exhaustion when probing many hosts. Timeouts are applied per-request via
// the context parameter in [Client.Get], not as a global client timeout.
//
// Connection pooling configuration:
//   - MaxIdleConns: 100 total idle connections
//   - MaxIdleConnsPerHost: 10 idle connections per host
//   - MaxConnsPerHost: 10 concurrent connections per host
//   - IdleConnTimeout: 60 seconds before closing idle connections
func NewClient(userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false, // explicitly enable connection reuse
			},
		},
		userAgent: userAgent,
	}
}

// Get issues one GET request against url and measures the round trip up to
// the arrival of the response headers.
//
// The timeout covers the whole exchange including draining the body. The
// body itself is discarded; only up to 1MB is read so the connection can be
// reused by the next attempt against the same host.
func (c *Client) Get(ctx context.Context, url string, timeout time.Duration) (int, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return 0, 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// a failed drain only costs connection reuse, the response was received
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize))

	return resp.StatusCode, elapsed, nil
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times and on a nil client. After Close, the client
// remains usable but new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
