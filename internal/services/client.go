// HTTP client shared by the AniList and MangaDex services
//
// Retries 429 responses for as long as the server asks, honoring Retry-After.
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anidex/internal/shared"
	"golang.org/x/time/rate"
)

const errorBodySnippet = 256

// Request describes an HTTP request that can be replayed verbatim.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully buffered HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Sleeper blocks the calling goroutine for a duration, returning early if ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper is the wall-clock [Sleeper].
type TimerSleeper struct{}

// Sleep waits for d or until ctx is cancelled.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ClientOpts configures a [RetryingClient].
type ClientOpts struct {
	HTTPClient *http.Client
	UserAgent  string
	Headers    http.Header   // identifying headers applied to every attempt
	Sleeper    Sleeper       // defaults to [TimerSleeper]
	Limiter    *rate.Limiter // optional client-side pacing
	Logger     *log.Logger
}

// RetryingClient executes requests and transparently waits out rate limiting.
//
// On 429 it sleeps for the server's Retry-After and re-sends the identical request, without a retry cap.
// Every attempt is built from scratch, so identifying headers and the body are present on retries too.
type RetryingClient struct {
	httpClient *http.Client
	headers    http.Header
	sleeper    Sleeper
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewRetryingClient creates a [RetryingClient] from opts, filling in defaults.
func NewRetryingClient(opts ClientOpts) *RetryingClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Sleeper == nil {
		opts.Sleeper = TimerSleeper{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	headers := opts.Headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	if opts.UserAgent != "" {
		headers.Set("User-Agent", opts.UserAgent)
	}

	return &RetryingClient{
		httpClient: opts.HTTPClient,
		headers:    headers,
		sleeper:    opts.Sleeper,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}
}

// Execute sends req until the server stops answering 429.
//
// A 200 is returned as-is. Any other status becomes a [shared.HTTPError].
// A 429 without a usable Retry-After becomes a [shared.ProtocolError].
// Network failures become a [shared.TransportError].
func (c *RetryingClient) Execute(ctx context.Context, req *Request) (*Response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := c.attempt(ctx, req)
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return resp, nil
		case http.StatusTooManyRequests:
			wait, err := retryAfter(resp.Header)
			if err != nil {
				return nil, &shared.ProtocolError{URL: req.URL, Reason: err.Error()}
			}

			c.logger.Warn("rate limited", "method", req.Method, "url", req.URL, "retry_after", wait, "attempt", attempt)

			if err := c.sleeper.Sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("waiting out rate limit: %w", err)
			}
		default:
			return nil, &shared.HTTPError{
				StatusCode: resp.StatusCode,
				URL:        req.URL,
				Body:       snippet(resp.Body),
			}
		}
	}
}

func (c *RetryingClient) attempt(ctx context.Context, req *Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("request pacing: %w", err)
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	applyHeaders(httpReq.Header, c.headers)
	applyHeaders(httpReq.Header, req.Header)

	c.logger.Debug("http request", "method", req.Method, "url", req.URL)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &shared.TransportError{Method: req.Method, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &shared.TransportError{Method: req.Method, URL: req.URL, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// retryAfter reads the Retry-After header as a whole number of seconds.
func retryAfter(h http.Header) (time.Duration, error) {
	raw := strings.TrimSpace(h.Get("Retry-After"))
	if raw == "" {
		return 0, fmt.Errorf("429 response without Retry-After header")
	}

	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("429 response with malformed Retry-After %q", raw)
	}

	return time.Duration(secs) * time.Second, nil
}

// applyHeaders copies src into dst, replacing any values dst already holds for a key.
func applyHeaders(dst, src http.Header) {
	for key, values := range src {
		dst.Del(key)
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > errorBodySnippet {
		return s[:errorBodySnippet] + "..."
	}
	return s
}
