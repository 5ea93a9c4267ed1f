// Package peer implements the outbound cross-service call path shared by all
// services: per-attempt timeout, bounded retry with exponential backoff,
// idempotency-key propagation, and a circuit breaker per target service.
//
// The transport is plain HTTP today; the Call contract is deliberately shaped
// so a publish-and-await-ack transport can replace it later without changing
// idempotency-key semantics or any service-local guard.
package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/apierror"
	"github.com/ndevops25/e-commerce-microservices/internal/infra"

	"github.com/rs/zerolog/log"
)

// ErrUpstreamUnavailable is returned once the retry budget for a call is
// exhausted (or the target's circuit breaker is open). The write that needed
// the call must be rejected, never accepted unverified.
var ErrUpstreamUnavailable = errors.New("upstream service unavailable")

// SemanticError is a 4xx-equivalent answer from a peer: the peer was reached
// and said no. Never retried.
type SemanticError struct {
	Service string
	Status  int
	Detail  string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Service, e.Status, e.Detail)
}

// IsNotFound reports whether the peer answered 404.
func (e *SemanticError) IsNotFound() bool { return e.Status == http.StatusNotFound }

// Response is the decoded body of a successful peer call.
type Response struct {
	Status int
	Body   json.RawMessage
}

// Decode unmarshals the response body into out.
func (r *Response) Decode(out interface{}) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, out)
}

// backoffSchedule is the delay before attempt 2, 3, ... Transport-level
// failures and 5xx walk this schedule; semantic (4xx) answers never do.
var backoffSchedule = []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 900 * time.Millisecond}

// Client calls peer services by name. One Client is shared per process.
type Client struct {
	baseURLs    map[string]string
	httpClient  *http.Client
	maxAttempts int
	breakers    map[string]*infra.Breaker
}

// Option tweaks Client construction (tests shrink the backoff, etc.).
type Option func(*Client)

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxAttempts overrides the per-call attempt budget.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// NewClient builds a client for the given service name → base URL map.
// perAttemptTimeout bounds every individual attempt.
func NewClient(baseURLs map[string]string, perAttemptTimeout time.Duration, opts ...Option) *Client {
	if perAttemptTimeout <= 0 {
		perAttemptTimeout = 2 * time.Second
	}
	c := &Client{
		baseURLs:    baseURLs,
		httpClient:  &http.Client{Timeout: perAttemptTimeout},
		maxAttempts: 3,
		breakers:    make(map[string]*infra.Breaker, len(baseURLs)),
	}
	for name := range baseURLs {
		c.breakers[name] = infra.NewBreaker(name, infra.DefaultBreakerConfig())
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Breaker exposes the breaker for a service (health endpoints, redrive cron).
func (c *Client) Breaker(service string) *infra.Breaker { return c.breakers[service] }

// Call performs one logical request against a peer, with up to maxAttempts
// transport attempts. A non-empty idempotencyKey is sent as the
// Idempotency-Key header on every attempt so the peer can de-duplicate.
//
// Error contract:
//   - *SemanticError for any 4xx answer (no retry)
//   - ErrUpstreamUnavailable (wrapping the last cause) after the budget is
//     spent on transport errors / timeouts / 5xx, or when the breaker is open
func (c *Client) Call(ctx context.Context, service, method, path string, payload interface{}, idempotencyKey string) (*Response, error) {
	base, ok := c.baseURLs[service]
	if !ok {
		return nil, fmt.Errorf("peer: unknown service %q", service)
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("peer: marshal payload: %w", err)
		}
	}

	url := strings.TrimRight(base, "/") + path
	breaker := c.breakers[service]

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := backoffSchedule[min(attempt-2, len(backoffSchedule)-1)]
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, ctx.Err())
			}
		}

		var resp *Response
		var sem *SemanticError
		err := breaker.Do(func() error {
			var attemptErr error
			resp, attemptErr = c.attempt(ctx, method, url, body, idempotencyKey)
			// A 4xx answer is a completed round trip from a healthy peer.
			// Only transport errors, timeouts, and 5xx count against the
			// breaker.
			if errors.As(attemptErr, &sem) {
				return nil
			}
			return attemptErr
		})
		// Semantic answers are final.
		if sem != nil {
			return nil, sem
		}
		if err == nil {
			return resp, nil
		}

		// Breaker open: fast-fail the whole call, retrying locally is pointless.
		if errors.Is(err, infra.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}

		lastErr = err
		log.Warn().
			Str("service", service).
			Str("method", method).
			Str("path", path).
			Int("attempt", attempt).
			Err(err).
			Msg("peer call attempt failed")
	}

	return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, lastErr)
}

// attempt performs a single HTTP round trip and classifies the outcome.
func (c *Client) attempt(ctx context.Context, method, url string, body []byte, idempotencyKey string) (*Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("peer: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("peer: transport: %w", err)
	}
	defer httpResp.Body.Close()

	var raw json.RawMessage
	_ = json.NewDecoder(httpResp.Body).Decode(&raw)

	switch {
	case httpResp.StatusCode >= 200 && httpResp.StatusCode < 300:
		return &Response{Status: httpResp.StatusCode, Body: raw}, nil
	case httpResp.StatusCode >= 400 && httpResp.StatusCode < 500:
		detail := decodeDetail(raw)
		return nil, &SemanticError{Service: req.URL.Host, Status: httpResp.StatusCode, Detail: detail}
	default:
		return nil, fmt.Errorf("peer: server error %d", httpResp.StatusCode)
	}
}

func decodeDetail(raw json.RawMessage) string {
	var env apierror.APIError
	if err := json.Unmarshal(raw, &env); err == nil && env.Detail != "" {
		return env.Detail
	}
	return string(raw)
}
