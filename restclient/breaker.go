package restclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	gobreakerredis "github.com/sony/gobreaker/v2/redis"
)

// defaultBreakerName names the breaker when WithServiceName is not set.
const defaultBreakerName = "sentinel-rest"

// NewRedisStore creates a SharedDataStore backed by Redis so that several
// processes calling the same API share one circuit breaker.
//
// Example:
//
//	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{"localhost:6379"}})
//	client := restclient.New(
//	    restclient.WithServiceName("twitter-api"),
//	    restclient.WithCircuitBreaker(restclient.DistributedBreakerConfig(restclient.NewRedisStore(rdb))),
//	)
func NewRedisStore(client redis.UniversalClient) gobreaker.SharedDataStore {
	return gobreakerredis.NewStoreFromClient(client)
}

// BreakerClassifier reports whether an HTTP exchange counts as a failure
// for the circuit breaker.
type BreakerClassifier func(resp *http.Response, err error) bool

// BreakerConfig configures the circuit breaker around the HTTP transport.
//
// States:
//   - Closed: requests flow normally.
//   - Open: requests fail immediately with gobreaker.ErrOpenState, which the
//     client reports as a Response with status Error.
//   - Half-Open: a limited number of probe requests test recovery.
type BreakerConfig struct {
	// MaxRequests is the number of probes allowed while half-open.
	// Zero allows 1.
	MaxRequests uint32

	// Interval is the cyclic period after which closed-state counts reset.
	// Zero never resets.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// FailureThreshold is the minimum number of requests before the breaker
	// can trip.
	FailureThreshold uint32

	// FailureRatio trips the breaker when failures/requests reaches it.
	FailureRatio float64

	// ConsecutiveFailures trips the breaker after this many failures in a
	// row. Zero disables the rule.
	ConsecutiveFailures uint32

	// Store shares breaker state between processes. Nil keeps it local.
	Store gobreaker.SharedDataStore

	// Classifier decides which exchanges are failures.
	// Default: DefaultBreakerClassifier
	Classifier BreakerClassifier

	// OnStateChange is called after every state transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns an in-memory breaker that trips on 5
// consecutive failures or a 50% failure ratio over at least 20 requests.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            10 * time.Second,
		Timeout:             10 * time.Second,
		FailureThreshold:    20,
		FailureRatio:        0.5,
		ConsecutiveFailures: 5,
		Classifier:          DefaultBreakerClassifier,
	}
}

// DistributedBreakerConfig returns DefaultBreakerConfig backed by store.
func DistributedBreakerConfig(store gobreaker.SharedDataStore) BreakerConfig {
	cfg := DefaultBreakerConfig()
	cfg.Store = store
	return cfg
}

// DefaultBreakerClassifier counts network errors and 5xx responses as
// failures. 429 is left to the retry policy.
func DefaultBreakerClassifier(resp *http.Response, err error) bool {
	if err != nil {
		return isNetworkError(err)
	}
	return resp != nil && resp.StatusCode >= 500
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT)
}

// circuitBreaker is the subset of gobreaker used by the round tripper.
type circuitBreaker interface {
	Execute(req func() (*http.Response, error)) (*http.Response, error)
}

// errBreakerFailure marks a response that the classifier counted as a
// failure. It never reaches the caller.
var errBreakerFailure = errors.New("restclient: response counted as breaker failure")

// breakerRoundTripper runs each exchange through a circuit breaker.
type breakerRoundTripper struct {
	breaker    circuitBreaker
	next       http.RoundTripper
	classifier BreakerClassifier
	cfg        *clientConfig
	name       string
}

func newBreakerRoundTripper(next http.RoundTripper, cfg *clientConfig) http.RoundTripper {
	if cfg.breakerConfig == nil {
		return next
	}
	bc := *cfg.breakerConfig

	name := cfg.serviceName
	if name == "" {
		name = defaultBreakerName
	}

	classifier := bc.Classifier
	if classifier == nil {
		classifier = DefaultBreakerClassifier
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return readyToTrip(bc, counts)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			cfg.metrics.recordBreakerState(context.Background(), name, int64(to))
			cfg.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if bc.OnStateChange != nil {
				bc.OnStateChange(name, from, to)
			}
		},
	}

	var cb circuitBreaker = gobreaker.NewCircuitBreaker[*http.Response](st)
	if bc.Store != nil {
		dcb, err := gobreaker.NewDistributedCircuitBreaker[*http.Response](bc.Store, st)
		if err != nil {
			cfg.logger.Warn().Err(err).Str("breaker", name).
				Msg("distributed circuit breaker unavailable, using local breaker")
		} else {
			cb = dcb
		}
	}

	return &breakerRoundTripper{
		breaker:    cb,
		next:       next,
		classifier: classifier,
		cfg:        cfg,
		name:       name,
	}
}

// readyToTrip applies the threshold, consecutive and ratio rules.
func readyToTrip(bc BreakerConfig, counts gobreaker.Counts) bool {
	if bc.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= bc.ConsecutiveFailures {
		return true
	}
	if bc.FailureThreshold > 0 && counts.Requests < bc.FailureThreshold {
		return false
	}
	if bc.FailureRatio > 0 && counts.Requests > 0 {
		return float64(counts.TotalFailures)/float64(counts.Requests) >= bc.FailureRatio
	}
	return false
}

// RoundTrip implements http.RoundTripper.
func (t *breakerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req) //nolint:bodyclose // returned to the caller
		if t.classifier(resp, err) {
			if err != nil {
				return nil, err
			}
			return resp, errBreakerFailure
		}
		return resp, err
	})

	switch {
	case err == nil:
		t.cfg.metrics.recordBreakerRequest(ctx, t.name, "success")
		return resp, nil
	case errors.Is(err, errBreakerFailure):
		t.cfg.metrics.recordBreakerRequest(ctx, t.name, "failure")
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		t.cfg.metrics.recordBreakerRequest(ctx, t.name, "rejected")
		return nil, err
	default:
		t.cfg.metrics.recordBreakerRequest(ctx, t.name, "failure")
		return nil, err
	}
}

// Unwrap returns the wrapped round tripper.
func (t *breakerRoundTripper) Unwrap() http.RoundTripper { return t.next }
