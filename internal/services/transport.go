package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/kurator/internal/shared"
	"golang.org/x/time/rate"
)

// Policy is the timeout, retry and rate budget for upstream calls.
type Policy struct {
	Timeout         time.Duration // per attempt; 0 disables
	MaxAttempts     int           // total attempts including the first
	InitialInterval time.Duration
	MaxInterval     time.Duration
	RatePerSecond   float64 // 0 disables rate limiting
	Burst           int
}

// PolicyFromConfig converts the [shared.UpstreamConfig] section.
func PolicyFromConfig(c shared.UpstreamConfig) Policy {
	return Policy{
		Timeout:         c.Timeout.Duration,
		MaxAttempts:     c.MaxAttempts,
		InitialInterval: c.InitialInterval.Duration,
		MaxInterval:     c.MaxInterval.Duration,
		RatePerSecond:   c.RatePerSecond,
		Burst:           c.Burst,
	}
}

// Transport is an [http.RoundTripper] that rate-limits, times out and retries upstream requests.
//
// Idempotent requests are retried on network errors, 429 and 5xx responses with exponential backoff until
// MaxAttempts is reached. POST and PATCH may already have been applied when they fail that way, so they are
// only retried on 429 unless the caller marks the context with [ReplaySafe].
// The final attempt's response is returned as-is so the API client can decode the provider's error body.
type Transport struct {
	base    http.RoundTripper
	policy  Policy
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewTransport wraps base (defaults to [http.DefaultTransport]) with policy.
func NewTransport(base http.RoundTripper, policy Policy, logger *log.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	var limiter *rate.Limiter
	if policy.RatePerSecond > 0 {
		burst := policy.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(policy.RatePerSecond), burst)
	}

	return &Transport{base: base, policy: policy, limiter: limiter, logger: logger}
}

type replaySafeKey struct{}

// ReplaySafe marks requests made with ctx as free of side effects, so a non-idempotent method is retried
// like a GET.
func ReplaySafe(ctx context.Context) context.Context {
	return context.WithValue(ctx, replaySafeKey{}, true)
}

// replayable reports whether a failed attempt of req may be sent again after the server saw it.
func replayable(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	safe, _ := req.Context().Value(replaySafeKey{}).(bool)
	return safe
}

// NewHTTPClient returns an [http.Client] using a [Transport] built from policy.
func NewHTTPClient(policy Policy, logger *log.Logger) *http.Client {
	return &http.Client{Transport: NewTransport(nil, policy, logger)}
}

func (t *Transport) backoff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if t.policy.InitialInterval > 0 {
		exp.InitialInterval = t.policy.InitialInterval
	}
	if t.policy.MaxInterval > 0 {
		exp.MaxInterval = t.policy.MaxInterval
	}
	exp.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(t.policy.MaxAttempts-1)), ctx)
}

// RoundTrip implements [http.RoundTripper].
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if req.Body != nil && req.GetBody == nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		_ = req.Body.Close()
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}

	var (
		resp    *http.Response
		attempt int
		replay  = replayable(req)
	)

	operation := func() error {
		attempt++

		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(fmt.Errorf("reset request body: %w", err))
			}
			attemptReq.Body = body
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if t.policy.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, t.policy.Timeout)
		}

		res, err := t.base.RoundTrip(attemptReq.WithContext(attemptCtx))
		if err != nil {
			cancel()
			if ctx.Err() != nil || !replay {
				return backoff.Permanent(err)
			}
			t.logger.Warn("upstream request failed", "host", req.URL.Host, "attempt", attempt, "err", err)
			return err
		}

		if retryableStatus(res.StatusCode, replay) && attempt < t.policy.MaxAttempts {
			_, _ = io.Copy(io.Discard, res.Body)
			_ = res.Body.Close()
			cancel()
			t.logger.Warn("upstream returned retryable status", "host", req.URL.Host, "status", res.StatusCode, "attempt", attempt)
			return fmt.Errorf("status %d", res.StatusCode)
		}

		res.Body = &cancelOnClose{ReadCloser: res.Body, cancel: cancel}
		resp = res
		return nil
	}

	if err := backoff.Retry(operation, t.backoff(ctx)); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return nil, err
	}
	return resp, nil
}

// retryableStatus reports whether code is worth another attempt. 429 means the request was not processed.
func retryableStatus(code int, replay bool) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return replay && code >= http.StatusInternalServerError
}

// cancelOnClose releases the per-attempt context once the caller is done with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
