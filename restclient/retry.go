package restclient

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RetryConfig controls how Client.Execute repeats a request.
//
// A retry re-runs the whole pipeline: authentication, URL building and
// dispatch. OAuth-signed requests therefore get a fresh nonce and timestamp
// on every attempt.
//
// Example:
//
//	cfg := restclient.DefaultRetryConfig()
//	cfg.MaxRetries = 5
//	client := restclient.New(restclient.WithRetryConfig(cfg))
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one.
	// Zero disables retries.
	// Default: 3
	MaxRetries uint

	// InitialInterval is the first wait between attempts.
	// Default: 500ms
	InitialInterval time.Duration

	// MaxInterval caps a single wait.
	// Default: 30s
	MaxInterval time.Duration

	// MaxElapsedTime bounds the whole retry sequence. Zero means only
	// MaxRetries applies.
	// Default: 2m
	MaxElapsedTime time.Duration

	// Multiplier grows the wait after each attempt.
	// Default: 2.0
	Multiplier float64

	// JitterFactor randomizes each wait by ±factor.
	// Default: 0.5
	JitterFactor float64
}

// Default values for RetryConfig.
const (
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 30 * time.Second
	DefaultMaxElapsedTime  = 2 * time.Minute
	DefaultMultiplier      = 2.0
	DefaultJitterFactor    = 0.5
)

// DefaultRetryConfig returns 3 retries with exponential backoff
// (500ms, 1s, 2s) and ±50% jitter within a 2 minute budget.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
		MaxElapsedTime:  DefaultMaxElapsedTime,
		Multiplier:      DefaultMultiplier,
		JitterFactor:    DefaultJitterFactor,
	}
}

// ConservativeRetryConfig returns 2 slower retries (1s, 2s) within 30s, for
// rate-limited APIs.
func ConservativeRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      2,
		InitialInterval: 1 * time.Second,
		MaxInterval:     10 * time.Second,
		MaxElapsedTime:  30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.5,
	}
}

// NoRetryConfig disables retries.
func NoRetryConfig() RetryConfig {
	return RetryConfig{}
}

// IsEnabled returns true if retries are enabled.
func (c RetryConfig) IsEnabled() bool {
	return c.MaxRetries > 0
}

// errRetryableResponse asks the backoff loop for another attempt while
// keeping the response of the failed one.
var errRetryableResponse = errors.New("restclient: retryable response")

// attemptFunc runs one pass of the request pipeline.
type attemptFunc func(ctx context.Context) (*Response, error)

// retry runs attempt until it returns a non-retryable Response, an error, or
// the retry budget is spent. The last Response is returned when retries are
// exhausted.
func (c *Client) retry(ctx context.Context, attempt attemptFunc) (*Response, error) {
	rc := c.cfg.retryConfig
	if !rc.IsEnabled() {
		return attempt(ctx)
	}

	classifier := c.cfg.retryClassifier
	if classifier == nil {
		classifier = DefaultRetryClassifier
	}

	b := c.cfg.retryBackOff
	if b == nil {
		b = ExponentialBackOffFromConfig(rc)
	}

	span := trace.SpanFromContext(ctx)
	attrs := c.cfg.baseAttributes()
	retries := 0

	resp, err := backoff.Retry(ctx, func() (*Response, error) {
		resp, err := attempt(ctx)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if classifier(resp) {
			return resp, errRetryableResponse
		}
		return resp, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(rc.MaxRetries+1),
		backoff.WithMaxElapsedTime(rc.MaxElapsedTime),
		backoff.WithNotify(func(_ error, next time.Duration) {
			retries++
			c.cfg.metrics.recordRetryAttempt(ctx, attrs, retries)
			if span.IsRecording() {
				span.AddEvent("http.retry", trace.WithAttributes(
					attribute.Int("retry.attempt", retries),
					attribute.Int64("retry.delay_ms", next.Milliseconds()),
				))
			}
			c.cfg.logger.Debug().
				Int("attempt", retries).
				Dur("delay", next).
				Msg("retrying request")
		}),
	)

	if retries > 0 {
		span.SetAttributes(attribute.Int("http.retry_count", retries))
	}

	switch {
	case err == nil:
		return resp, nil
	case errors.Is(err, errRetryableResponse):
		c.cfg.metrics.recordRetryExhausted(ctx, attrs)
		return resp, nil
	case resp != nil:
		// Cancelled while waiting for the next attempt.
		return FailedResponse(resp.Request, err), nil
	default:
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		return nil, err
	}
}
