package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/starford/skillview/internal/apperr"
)

// DefaultTimeout is the default timeout for HTTP requests.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a document is read.
const maxBodyBytes = 8 << 20

var _ Fetcher = (*HTTP)(nil)

// HTTP fetches documents with plain GET requests.
type HTTP struct {
	client     *http.Client
	rps        float64
	attempts   uint
	retryDelay time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// HTTPOption configures an HTTP fetcher.
type HTTPOption func(*HTTP)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(f *HTTP) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithClient replaces the underlying client. Its timeout is kept as is.
func WithClient(c *http.Client) HTTPOption {
	return func(f *HTTP) {
		f.client = c
	}
}

// WithRateLimit allows at most rps requests per second to each host.
// Zero or negative disables limiting.
func WithRateLimit(rps float64) HTTPOption {
	return func(f *HTTP) {
		f.rps = rps
	}
}

// WithRetry retries transient failures (network errors, 429 and 5xx) up to
// attempts times in total, backing off from delay.
func WithRetry(attempts uint, delay time.Duration) HTTPOption {
	return func(f *HTTP) {
		if attempts > 0 {
			f.attempts = attempts
		}
		if delay > 0 {
			f.retryDelay = delay
		}
	}
}

// NewHTTP creates an HTTP fetcher.
func NewHTTP(opts ...HTTPOption) *HTTP {
	f := &HTTP{
		client:     &http.Client{Timeout: DefaultTimeout},
		attempts:   1,
		retryDelay: 200 * time.Millisecond,
		limiters:   make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// statusError is a non-2xx response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.code)
}

// retryable reports whether err may go away on a later attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

// Fetch performs a GET and returns the body of a 2xx response.
func (f *HTTP) Fetch(ctx context.Context, address string) (string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", apperr.ErrFetchFailed, address, err)
	}

	var body string
	err = retry.Do(
		func() error {
			var err error
			body, err = f.get(ctx, u.Host, address)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.Delay(f.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", apperr.ErrFetchFailed, address, err)
	}
	return body, nil
}

func (f *HTTP) get(ctx context.Context, host, address string) (string, error) {
	if err := f.wait(ctx, host); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return "", retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "text/markdown, text/plain;q=0.9, */*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &statusError{code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxBodyBytes {
		return "", retry.Unrecoverable(fmt.Errorf("body exceeds %d bytes", maxBodyBytes))
	}
	return string(data), nil
}

func (f *HTTP) wait(ctx context.Context, host string) error {
	if f.rps <= 0 {
		return nil
	}
	f.mu.Lock()
	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(f.rps), 1)
		f.limiters[host] = limiter
	}
	f.mu.Unlock()

	return limiter.Wait(ctx)
}
