package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/pacer"
	"mercator-hq/callisto/pkg/telemetry/logging"
	"mercator-hq/callisto/pkg/telemetry/tracing"
)

// Request headers stamped on every upstream call.
const (
	HeaderRequestID  = "X-Callisto-Request-Id"
	HeaderPacingWait = "X-Callisto-Pacing-Wait"
)

// Connection pool tuning for the upstream client.
const (
	maxIdleConns        = 100
	maxIdleConnsPerHost = 10
	idleConnTimeout     = 90 * time.Second
)

// Request describes one upstream call.
type Request struct {
	// Channel selects the admission channel and base URL.
	Channel pacer.Channel

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Endpoint is the path relative to the channel's base URL. It is also
	// the endpoint label recorded in admission stats.
	Endpoint string

	// Body is the request body, sent as-is.
	Body []byte

	// Headers are additional request headers.
	Headers map[string]string

	// Cost is the admission cost in tokens. Zero means 1. Endpoints the
	// upstream weighs heavier than a normal call pass their documented
	// weight here.
	Cost float64
}

// Client is the paced HTTP client for the upstream API. Every request
// passes through the limiter before it reaches the wire, so a process
// using only this client cannot exceed the configured channel rates.
type Client struct {
	cfg     config.TransportConfig
	limiter *pacer.Limiter
	tracer  *tracing.Tracer
	client  *http.Client
	logger  *slog.Logger

	healthMu sync.RWMutex
	health   Health
}

// New creates a paced client over the given limiter. A nil tracer disables
// span recording; a nil logger discards logs.
func New(cfg config.TransportConfig, limiter *pacer.Limiter, tracer *tracing.Tracer, logger *slog.Logger) (*Client, error) {
	if limiter == nil {
		return nil, fmt.Errorf("limiter cannot be nil")
	}
	if tracer == nil {
		tracer = tracing.NewDisabled()
	}
	if logger == nil {
		logger = logging.Discard()
	}

	httpTransport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		cfg:     cfg,
		limiter: limiter,
		tracer:  tracer,
		client: &http.Client{
			Transport: httpTransport,
			Timeout:   cfg.Timeout,
		},
		logger: logger.With("component", "transport"),
		health: Health{
			Healthy:     true,
			LastSuccess: time.Now(),
		},
	}, nil
}

// Get performs a paced GET request on the given channel.
func (c *Client) Get(ctx context.Context, channel pacer.Channel, endpoint string) (*http.Response, error) {
	return c.Do(ctx, Request{Channel: channel, Method: http.MethodGet, Endpoint: endpoint})
}

// Post performs a paced POST request on the given channel.
func (c *Client) Post(ctx context.Context, channel pacer.Channel, endpoint string, body []byte) (*http.Response, error) {
	return c.Do(ctx, Request{Channel: channel, Method: http.MethodPost, Endpoint: endpoint, Body: body})
}

// Do performs a paced request. Admission happens before every attempt,
// including retries, so retried traffic spends channel budget like any
// other call. Retries apply to 5xx responses and connection errors with
// exponential backoff; 4xx responses are returned immediately. The caller
// owns the response body on success.
func (c *Client) Do(ctx context.Context, req Request) (*http.Response, error) {
	url, err := c.resolveURL(req.Channel, req.Endpoint)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	cost := req.Cost
	if cost == 0 {
		cost = 1
	}
	requestID := uuid.NewString()

	ctx, span := c.tracer.Start(ctx, "callisto.upstream.request")
	defer span.End()

	resp, totalWait, attempts, err := c.doWithRetry(ctx, method, url, requestID, cost, req)

	tracing.SetPacingAttributes(span, string(req.Channel), req.Endpoint, totalWait)
	tracing.SetRequestAttributes(span, requestID, attempts)
	tracing.SetStatus(span, err)

	return resp, err
}

// doWithRetry runs the attempt loop, reporting the cumulative admission
// wait and the number of attempts made.
func (c *Client) doWithRetry(ctx context.Context, method, url, requestID string, cost float64, req Request) (*http.Response, time.Duration, int, error) {
	var (
		lastErr   error
		totalWait time.Duration
		attempts  int
	)

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.cfg.RetryBackoff
			c.logger.Debug("retrying upstream request",
				"channel", req.Channel,
				"endpoint", req.Endpoint,
				"attempt", attempt,
				"max_retries", c.cfg.MaxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, totalWait, attempts, c.contextError(ctx, req)
			case <-time.After(backoff):
			}
		}
		attempts++

		// Admission. Blocks until the channel has budget for this attempt.
		wait, err := c.limiter.AcquireN(req.Channel, req.Endpoint, cost)
		if err != nil {
			// Caller error, not an upstream failure; health is untouched.
			return nil, totalWait, attempts, fmt.Errorf("admission failed: %w", err)
		}
		totalWait += wait

		if ctx.Err() != nil {
			return nil, totalWait, attempts, c.contextError(ctx, req)
		}

		resp, retryable, err := c.send(ctx, method, url, requestID, wait, attempt, req)
		if err == nil {
			c.recordOutcome(true, nil)
			return resp, totalWait, attempts, nil
		}

		lastErr = err
		if !retryable {
			if !errors.Is(err, context.Canceled) {
				c.recordOutcome(false, err)
			}
			return nil, totalWait, attempts, err
		}

		c.logger.Warn("upstream request failed, will retry",
			"channel", req.Channel,
			"endpoint", req.Endpoint,
			"attempt", attempt+1,
			"error", err,
		)
	}

	c.recordOutcome(false, lastErr)
	return nil, totalWait, attempts, lastErr
}

// DoJSON performs a paced request and decodes a JSON response into out.
// A nil out discards the body.
func (c *Client) DoJSON(ctx context.Context, req Request, out interface{}) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{
			Channel:  req.Channel,
			Endpoint: req.Endpoint,
			Message:  "failed to read response body",
			Cause:    err,
		}
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return &UpstreamError{
				Channel:  req.Channel,
				Endpoint: req.Endpoint,
				Message:  "failed to decode response body",
				Cause:    err,
			}
		}
	}

	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// send performs one wire attempt. The second return value reports whether
// the failure may be retried.
func (c *Client) send(ctx context.Context, method, url, requestID string, wait time.Duration, attempt int, req Request) (*http.Response, bool, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if httpReq.Header.Get("Content-Type") == "" && req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	httpReq.Header.Set(HeaderRequestID, requestID)
	httpReq.Header.Set(HeaderPacingWait, wait.String())
	tracing.Inject(ctx, httpReq.Header)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, c.contextError(ctx, req)
		}
		// Connection errors are retryable.
		return nil, true, &UpstreamError{
			Channel:  req.Channel,
			Endpoint: req.Endpoint,
			Message:  "request failed",
			Cause:    err,
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, false, nil
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, &AuthError{
			Channel:  req.Channel,
			Endpoint: req.Endpoint,
			Message:  string(body),
		}

	case resp.StatusCode == http.StatusTooManyRequests:
		// A 429 through the pacer means the configured limits are above
		// what the upstream allows. Surfaced, never retried; the
		// advertised wait is a log signal only.
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		c.logger.Warn("upstream rate limited a paced request, configured limits likely too high",
			"channel", req.Channel,
			"endpoint", req.Endpoint,
			"retry_after", retryAfter,
			"attempt", attempt+1,
		)
		return nil, false, &RateLimitError{
			Channel:    req.Channel,
			Endpoint:   req.Endpoint,
			RetryAfter: retryAfter,
			Message:    string(body),
		}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, &UpstreamError{
			Channel:    req.Channel,
			Endpoint:   req.Endpoint,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}

	default:
		return nil, true, &UpstreamError{
			Channel:    req.Channel,
			Endpoint:   req.Endpoint,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}
}

// resolveURL joins the channel's base URL with the endpoint path.
func (c *Client) resolveURL(channel pacer.Channel, endpoint string) (string, error) {
	var base string
	switch channel {
	case pacer.ChannelPublic:
		base = c.cfg.PublicBaseURL
	case pacer.ChannelPrivate:
		base = c.cfg.PrivateBaseURL
	default:
		return "", fmt.Errorf("unknown channel %q", channel)
	}

	if base == "" {
		return "", fmt.Errorf("no base URL configured for channel %q", channel)
	}

	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(endpoint, "/"), nil
}

// contextError maps a done context to the transport error vocabulary.
func (c *Client) contextError(ctx context.Context, req Request) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{
			Channel:  req.Channel,
			Endpoint: req.Endpoint,
			Timeout:  c.cfg.Timeout,
		}
	}
	return ctx.Err()
}
