package probe

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout is the per-request timeout used when none is configured.
const DefaultTimeout = 5 * time.Second

// Classification is the outcome bucket of a single attempt.
type Classification int

const (
	// Success means the host answered with a status code below 400.
	Success Classification = iota

	// Failed means the host answered with a status code in [400, 599].
	Failed

	// Error means no usable response was received.
	Error
)

// String returns the bucket name as shown in reports.
func (c Classification) String() string {
	switch c {
	case Success:
		return "Success"
	case Failed:
		return "Failed"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("Classification(%d)", int(c))
	}
}

// Attempt is the result of one probe against a target.
type Attempt struct {
	// Classification is the outcome bucket.
	Classification Classification

	// Latency is the measured round-trip time. Only meaningful when Timed is true.
	Latency time.Duration

	// Timed reports whether an HTTP response was received and timed.
	Timed bool

	// Err holds the transport fault behind an Error attempt, for diagnostics.
	Err error
}

// Prober performs one classified probe against a target.
//
// Implementations must never panic on network faults and must always return
// an Attempt.
type Prober interface {
	Probe(ctx context.Context, target string) Attempt
}

// HTTPProber is the default [Prober]: a single GET through a [Transport]
// bounded by a fixed timeout.
type HTTPProber struct {
	transport Transport
	timeout   time.Duration
}

// NewHTTPProber creates an [HTTPProber]. A non-positive timeout falls back
// to [DefaultTimeout].
func NewHTTPProber(transport Transport, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProber{transport: transport, timeout: timeout}
}

// Timeout returns the per-request timeout.
func (p *HTTPProber) Timeout() time.Duration {
	return p.timeout
}

// Probe issues one GET against target and classifies the outcome.
// There are no retries. A panicking transport counts as an Error attempt.
func (p *HTTPProber) Probe(ctx context.Context, target string) (attempt Attempt) {
	defer func() {
		if r := recover(); r != nil {
			attempt = Attempt{Classification: Error, Err: fmt.Errorf("transport panic: %v", r)}
		}
	}()

	status, elapsed, err := p.transport.Get(ctx, target, p.timeout)
	if err != nil {
		return Attempt{Classification: Error, Err: err}
	}
	return Classify(status, elapsed)
}

// Classify maps a received status code and its latency onto an [Attempt].
//
// Codes in [100, 399] are successes and codes in [400, 599] are failures;
// both keep their latency. Codes below 100 or above 599 are not valid HTTP
// statuses and are treated as errors without timing.
func Classify(statusCode int, latency time.Duration) Attempt {
	switch {
	case statusCode < 100:
		return Attempt{
			Classification: Error,
			Err:            fmt.Errorf("unexpected status code %d", statusCode),
		}
	case statusCode < 400:
		return Attempt{Classification: Success, Latency: latency, Timed: true}
	case statusCode <= 599:
		return Attempt{Classification: Failed, Latency: latency, Timed: true}
	default:
		return Attempt{
			Classification: Error,
			Err:            fmt.Errorf("unexpected status code %d", statusCode),
		}
	}
}
