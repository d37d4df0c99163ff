package restclient

import (
	"math/rand/v2"
	"time"
)

// ChaosConfig injects failures in front of a Transport so retry, circuit
// breaker and timeout handling can be observed without a misbehaving server.
//
// Example:
//
//	client := restclient.New(
//	    restclient.WithRetryConfig(restclient.DefaultRetryConfig()),
//	    restclient.WithChaos(restclient.ChaosConfig{
//	        Latency:   200 * time.Millisecond,
//	        ErrorRate: 0.1, // 10% of attempts fail with a network error
//	    }),
//	)
type ChaosConfig struct {
	// Latency is added to every attempt.
	Latency time.Duration

	// LatencyJitter adds a random delay in [0, LatencyJitter) on top of
	// Latency.
	LatencyJitter time.Duration

	// ErrorRate is the probability (0.0-1.0) that an attempt fails with a
	// simulated dial error. The Response gets ResponseStatus Error.
	ErrorRate float64

	// TimeoutRate is the probability (0.0-1.0) that an attempt blocks until
	// its timeout expires. The Response gets ResponseStatus TimedOut.
	TimeoutRate float64

	// StatusRate is the probability (0.0-1.0) that an attempt is answered
	// with Status instead of reaching the server.
	StatusRate float64

	// Status is the injected status code.
	// Default: 503
	Status int
}

// Delay returns the latency to add to one attempt.
func (c ChaosConfig) Delay() time.Duration {
	delay := c.Latency
	if c.LatencyJitter > 0 {
		delay += time.Duration(rand.Int64N(int64(c.LatencyJitter))) //nolint:gosec
	}
	return delay
}

// ShouldInjectError reports whether this attempt fails with a network error.
func (c ChaosConfig) ShouldInjectError() bool {
	if c.ErrorRate <= 0 {
		return false
	}
	return rand.Float64() < c.ErrorRate //nolint:gosec
}

// ShouldInjectTimeout reports whether this attempt hangs until its deadline.
func (c ChaosConfig) ShouldInjectTimeout() bool {
	if c.TimeoutRate <= 0 {
		return false
	}
	return rand.Float64() < c.TimeoutRate //nolint:gosec
}

// ShouldInjectStatus reports whether this attempt is answered with Status.
func (c ChaosConfig) ShouldInjectStatus() bool {
	if c.StatusRate <= 0 {
		return false
	}
	return rand.Float64() < c.StatusRate //nolint:gosec
}
