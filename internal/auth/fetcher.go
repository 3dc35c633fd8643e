package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// TokenProvider supplies access tokens for a user.
type TokenProvider interface {
	ValidAccessToken(ctx context.Context, userID string) (string, error)
	Refresh(ctx context.Context, userID string) (string, error)
}

// RequestInit describes the request a caller wants to issue.
// A nil RequestInit means a plain GET.
type RequestInit struct {
	Method string
	Header http.Header
	Body   []byte
}

// Fetcher issues HTTP requests carrying the user's bearer token.
type Fetcher struct {
	tokens  TokenProvider
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithRateLimit paces outgoing requests to rps requests per second.
// Zero or negative disables pacing.
func WithRateLimit(rps float64, burst int) FetcherOption {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(l *log.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a Fetcher. By default requests go through a retrying
// client that retries connection errors and 5xx/429 responses, and hands the
// last response back instead of an error once retries are exhausted.
func NewFetcher(tokens TokenProvider, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		tokens: tokens,
		client: newRetryingClient(),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func newRetryingClient() *http.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.Logger = nil
	c.HTTPClient.Timeout = 30 * time.Second
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c.StandardClient()
}

// Fetch issues the request with the user's current access token. A 401
// response triggers exactly one forced refresh and one reissue; every other
// status, including a second 401, is returned to the caller unmodified.
// Callers own the returned body.
func (f *Fetcher) Fetch(ctx context.Context, userID, url string, init *RequestInit) (*http.Response, error) {
	token, err := f.tokens.ValidAccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp, err := f.do(ctx, url, init, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	f.logger.Debug("access token rejected, refreshing", "user", userID, "url", url)
	token, err = f.tokens.Refresh(ctx, userID)
	if err != nil {
		return nil, err
	}
	return f.do(ctx, url, init, token)
}

func (f *Fetcher) do(ctx context.Context, url string, init *RequestInit, token string) (*http.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	method := http.MethodGet
	var body io.Reader
	if init != nil {
		if init.Method != "" {
			method = init.Method
		}
		if init.Body != nil {
			body = bytes.NewReader(init.Body)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if init != nil {
		req.Header = init.Header.Clone()
		if req.Header == nil {
			req.Header = make(http.Header)
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	f.logger.Debug("provider request", "method", method, "url", url, "status", resp.StatusCode)
	return resp, nil
}
