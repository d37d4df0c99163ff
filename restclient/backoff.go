package restclient

import (
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var (
	_ backoff.BackOff = (*LinearBackOff)(nil)
	_ backoff.BackOff = (*ConstantBackOffWithJitter)(nil)
)

// ExponentialBackOffFromConfig builds the default retry backoff. Jitter is
// always applied; a non-positive JitterFactor falls back to
// DefaultJitterFactor.
func ExponentialBackOffFromConfig(cfg RetryConfig) *backoff.ExponentialBackOff {
	jitterFactor := cfg.JitterFactor
	if jitterFactor <= 0 {
		jitterFactor = DefaultJitterFactor
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.InitialInterval,
		RandomizationFactor: jitterFactor,
		Multiplier:          cfg.Multiplier,
		MaxInterval:         cfg.MaxInterval,
	}
	b.Reset()
	return b
}

// LinearBackOff grows the wait by a fixed increment per attempt:
// InitialInterval + attempt*Increment, capped at MaxInterval, ±JitterFactor.
//
// Example with Initial=1s, Increment=500ms and no jitter: 1s, 1.5s, 2s, ...
type LinearBackOff struct {
	InitialInterval time.Duration
	Increment       time.Duration
	MaxInterval     time.Duration
	JitterFactor    float64

	attempt int
}

// NewLinearBackOff returns a LinearBackOff starting at 500ms, growing by
// 500ms up to 30s, with ±50% jitter.
func NewLinearBackOff() *LinearBackOff {
	return &LinearBackOff{
		InitialInterval: 500 * time.Millisecond,
		Increment:       500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		JitterFactor:    0.5,
	}
}

// Reset implements backoff.BackOff.
func (b *LinearBackOff) Reset() {
	b.attempt = 0
}

// NextBackOff implements backoff.BackOff.
func (b *LinearBackOff) NextBackOff() time.Duration {
	interval := b.InitialInterval + time.Duration(b.attempt)*b.Increment
	if b.MaxInterval > 0 && interval > b.MaxInterval {
		interval = b.MaxInterval
	}
	b.attempt++
	return applyJitter(interval, b.JitterFactor)
}

// ConstantBackOffWithJitter waits Interval ±JitterFactor between attempts.
type ConstantBackOffWithJitter struct {
	Interval     time.Duration
	JitterFactor float64
}

// NewConstantBackOffWithJitter returns a 1s ±50% backoff.
func NewConstantBackOffWithJitter() *ConstantBackOffWithJitter {
	return &ConstantBackOffWithJitter{
		Interval:     1 * time.Second,
		JitterFactor: 0.5,
	}
}

// Reset implements backoff.BackOff.
func (b *ConstantBackOffWithJitter) Reset() {}

// NextBackOff implements backoff.BackOff.
func (b *ConstantBackOffWithJitter) NextBackOff() time.Duration {
	return applyJitter(b.Interval, b.JitterFactor)
}

// applyJitter returns a random duration in
// [interval*(1-factor), interval*(1+factor)]. factor is clamped to 1.
func applyJitter(interval time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return interval
	}
	if factor > 1 {
		factor = 1
	}

	delta := float64(interval) * factor
	lo := float64(interval) - delta

	//nolint:gosec // jitter does not need a cryptographic source
	return time.Duration(lo + rand.Float64()*2*delta)
}
