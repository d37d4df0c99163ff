package restclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/sentinel-rest/restclient"

	// DefaultTimeout is the client timeout used when none is configured.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRedirects caps redirect chains when following redirects.
	DefaultMaxRedirects = 10
)

// =============================================================================
// Config - request-building configuration
// =============================================================================

// Config is the client-wide configuration that takes part in building
// every request.
//
// It is passed by value to the pipeline functions and to authenticators, so
// nothing in request assembly reads hidden client state.
type Config struct {
	// BaseURL is prefixed to every request resource.
	// Example: "https://api.example.com/v1"
	BaseURL string

	// UserAgent replaces DefaultUserAgent when non-empty. A User-Agent header
	// parameter on a request overrides both.
	UserAgent string

	// Timeout applies to requests without a positive Request.Timeout.
	// Default: 15s
	Timeout time.Duration

	// DefaultParameters are merged into every request. Request parameters
	// with the same name and type win.
	DefaultParameters []Parameter

	// Authenticator signs or decorates each request before it is built.
	// Nil means unauthenticated.
	Authenticator Authenticator
}

// Resolve returns a clone of req with the default parameters merged in.
//
// Authenticators use it to see exactly the parameters that will be sent.
func (c Config) Resolve(req *Request) *Request {
	resolved := req.Clone()
	resolved.params = MergeParameters(c.DefaultParameters, resolved.params)
	return resolved
}

// =============================================================================
// TransportConfig - net/http transport tuning
// =============================================================================

// TransportConfig tunes the net/http transport used by HTTPTransport.
// Start from DefaultTransportConfig() and change what you need.
//
// Example:
//
//	tc := restclient.DefaultTransportConfig()
//	tc.MaxIdleConnsPerHost = 50
//
//	client := restclient.New(
//	    restclient.WithBaseURL("https://api.example.com"),
//	    restclient.WithTransportConfig(tc),
//	)
type TransportConfig struct {
	// MaxIdleConns caps idle keep-alive connections across all hosts.
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost caps idle connections per host. Set it close to
	// MaxIdleConns when the client talks to a single API.
	// Default: 20
	MaxIdleConnsPerHost int

	// MaxConnsPerHost caps idle plus active connections per host.
	// Zero means unlimited.
	// Default: 100
	MaxConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays pooled.
	// Default: 90s
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake.
	// Default: 10s
	TLSHandshakeTimeout time.Duration

	// ExpectContinueTimeout is the wait for "100 Continue".
	// Default: 1s
	ExpectContinueTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers once the
	// request is written. Zero disables it.
	ResponseHeaderTimeout time.Duration

	// DialTimeout bounds TCP connection establishment.
	// Default: 5s
	DialTimeout time.Duration

	// KeepAlive is the TCP keep-alive probe interval.
	// Default: 30s
	KeepAlive time.Duration

	// DisableKeepAlives forces a new connection per request.
	DisableKeepAlives bool

	// DisableCompression stops the transport from requesting gzip.
	// Default: true
	DisableCompression bool

	// ForceHTTP2 attempts HTTP/2 even with a custom dialer or TLS config.
	ForceHTTP2 bool
}

// DefaultTransportConfig returns balanced pool and timeout settings.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DialTimeout:           5 * time.Second,
		KeepAlive:             30 * time.Second,
		DisableCompression:    true,
	}
}

// HighThroughputTransportConfig returns settings for clients issuing many
// concurrent calls to a few APIs.
func HighThroughputTransportConfig() TransportConfig {
	cfg := DefaultTransportConfig()
	cfg.MaxIdleConns = 500
	cfg.MaxIdleConnsPerHost = 100
	cfg.MaxConnsPerHost = 0
	cfg.IdleConnTimeout = 120 * time.Second
	return cfg
}

// ConservativeTransportConfig returns settings for constrained
// environments such as serverless functions.
func ConservativeTransportConfig() TransportConfig {
	cfg := DefaultTransportConfig()
	cfg.MaxIdleConns = 20
	cfg.MaxIdleConnsPerHost = 5
	cfg.MaxConnsPerHost = 20
	cfg.IdleConnTimeout = 30 * time.Second
	return cfg
}

// =============================================================================
// Internal Configuration
// =============================================================================

// clientConfig holds the request-building Config plus execution settings.
type clientConfig struct {
	Config

	// transport replaces the built-in HTTPTransport when set.
	transport Transport

	transportConfig      TransportConfig
	tlsConfig            *tls.Config
	proxyURL             *url.URL
	proxyFromEnvironment bool
	cookieJar            http.CookieJar
	followRedirects      bool
	maxRedirects         int

	retryConfig     RetryConfig
	retryClassifier RetryClassifier
	retryBackOff    backoff.BackOff

	breakerConfig   *BreakerConfig
	rateLimitConfig RateLimitConfig

	interceptors *InterceptorChain
	chaosConfig  *ChaosConfig
	coalesce     bool

	serviceName    string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	metrics        *metrics

	logger       zerolog.Logger
	loggerSet    bool
	debug        bool
	generateCurl bool

	clock func() time.Time
}

// newConfig creates the internal config with defaults and applies options.
func newConfig(opts ...Option) *clientConfig {
	cfg := &clientConfig{
		Config: Config{
			Timeout: DefaultTimeout,
		},
		transportConfig:      DefaultTransportConfig(),
		proxyFromEnvironment: true,
		followRedirects:      true,
		maxRedirects:         DefaultMaxRedirects,
		retryConfig:          NoRetryConfig(),
		interceptors:         NewInterceptorChain(),
		tracerProvider:       otel.GetTracerProvider(),
		meterProvider:        otel.GetMeterProvider(),
		clock:                time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if !cfg.loggerSet {
		cfg.logger = zerolog.Nop()
		if cfg.debug {
			cfg.logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		}
	}

	cfg.tracer = cfg.tracerProvider.Tracer(scope)
	// Instruments that fail to register stay nil and are skipped.
	cfg.metrics, _ = newMetrics(cfg.meterProvider.Meter(scope))

	return cfg
}

// buildTransport creates the net/http transport from TransportConfig.
func (cfg *clientConfig) buildTransport() *http.Transport {
	tc := cfg.transportConfig

	dialer := &net.Dialer{
		Timeout:   tc.DialTimeout,
		KeepAlive: tc.KeepAlive,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          tc.MaxIdleConns,
		MaxIdleConnsPerHost:   tc.MaxIdleConnsPerHost,
		MaxConnsPerHost:       tc.MaxConnsPerHost,
		IdleConnTimeout:       tc.IdleConnTimeout,
		TLSHandshakeTimeout:   tc.TLSHandshakeTimeout,
		ExpectContinueTimeout: tc.ExpectContinueTimeout,
		ResponseHeaderTimeout: tc.ResponseHeaderTimeout,
		DisableKeepAlives:     tc.DisableKeepAlives,
		DisableCompression:    tc.DisableCompression,
		ForceAttemptHTTP2:     tc.ForceHTTP2,
		TLSClientConfig:       cfg.tlsConfig,
	}

	if cfg.proxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.proxyURL)
	} else if cfg.proxyFromEnvironment {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return transport
}

// baseAttributes returns attributes shared by all spans and metrics.
func (cfg *clientConfig) baseAttributes() []attribute.KeyValue {
	if cfg.serviceName == "" {
		return nil
	}
	return []attribute.KeyValue{attribute.String("http.client.name", cfg.serviceName)}
}

// =============================================================================
// Options
// =============================================================================

// Option configures a Client.
type Option func(*clientConfig)

// WithBaseURL sets the URL every request resource is appended to.
//
// Example:
//
//	client := restclient.New(restclient.WithBaseURL("https://api.example.com/v1"))
func WithBaseURL(baseURL string) Option {
	return func(cfg *clientConfig) {
		cfg.BaseURL = baseURL
	}
}

// WithUserAgent sets the client-level User-Agent.
func WithUserAgent(userAgent string) Option {
	return func(cfg *clientConfig) {
		cfg.UserAgent = userAgent
	}
}

// WithTimeout sets the client-level timeout.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.Timeout = d
	}
}

// WithDefaultParameter adds a parameter merged into every request.
//
// Example - API key on every call:
//
//	client := restclient.New(
//	    restclient.WithDefaultParameter("api_key", key, restclient.GetOrPost),
//	)
func WithDefaultParameter(name string, value any, typ ParameterType) Option {
	return func(cfg *clientConfig) {
		cfg.DefaultParameters = append(cfg.DefaultParameters,
			Parameter{Name: name, Value: value, Type: typ})
	}
}

// WithDefaultHeader adds a header merged into every request.
func WithDefaultHeader(name, value string) Option {
	return WithDefaultParameter(name, value, HTTPHeader)
}

// WithAuthenticator sets the authenticator applied to every request.
//
// Example:
//
//	client := restclient.New(
//	    restclient.WithBaseURL("https://api.twitter.com/1.1"),
//	    restclient.WithAuthenticator(oauth1.ForProtectedResource(ck, cs, token, secret)),
//	)
func WithAuthenticator(a Authenticator) Option {
	return func(cfg *clientConfig) {
		cfg.Authenticator = a
	}
}

// WithTransport replaces the built-in HTTPTransport, e.g. with a
// MockTransport in tests. Transport-level options (TLS, proxy, breaker,
// rate limit, tracing) only apply to the built-in transport.
func WithTransport(t Transport) Option {
	return func(cfg *clientConfig) {
		cfg.transport = t
	}
}

// WithMockTransport is shorthand for WithTransport(mock).
func WithMockTransport(mock *MockTransport) Option {
	return WithTransport(mock)
}

// WithTransportConfig tunes the net/http transport.
func WithTransportConfig(tc TransportConfig) Option {
	return func(cfg *clientConfig) {
		cfg.transportConfig = tc
	}
}

// WithTLSConfig sets the TLS configuration (custom roots, client
// certificates).
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(cfg *clientConfig) {
		cfg.tlsConfig = tlsCfg
	}
}

// WithProxyURL routes all requests through proxyURL instead of the
// environment proxy settings.
func WithProxyURL(proxyURL *url.URL) Option {
	return func(cfg *clientConfig) {
		cfg.proxyURL = proxyURL
		cfg.proxyFromEnvironment = false
	}
}

// WithProxyFromEnvironment toggles HTTP_PROXY/HTTPS_PROXY/NO_PROXY support.
// Default: true
func WithProxyFromEnvironment(enabled bool) Option {
	return func(cfg *clientConfig) {
		cfg.proxyFromEnvironment = enabled
	}
}

// WithCookieJar stores response cookies and replays them on later requests.
func WithCookieJar(jar http.CookieJar) Option {
	return func(cfg *clientConfig) {
		cfg.cookieJar = jar
	}
}

// WithFollowRedirects toggles following 3xx responses.
// Default: true
func WithFollowRedirects(follow bool) Option {
	return func(cfg *clientConfig) {
		cfg.followRedirects = follow
	}
}

// WithMaxRedirects caps the number of redirects followed.
// Default: 10
func WithMaxRedirects(n int) Option {
	return func(cfg *clientConfig) {
		cfg.maxRedirects = n
	}
}

// WithRetryConfig enables client-level retries.
//
// Each attempt re-runs authentication, so signed requests get a fresh nonce
// and timestamp per attempt.
//
// Example:
//
//	client := restclient.New(
//	    restclient.WithRetryConfig(restclient.DefaultRetryConfig()),
//	)
func WithRetryConfig(rc RetryConfig) Option {
	return func(cfg *clientConfig) {
		cfg.retryConfig = rc
	}
}

// WithRetryClassifier replaces DefaultRetryClassifier.
func WithRetryClassifier(c RetryClassifier) Option {
	return func(cfg *clientConfig) {
		cfg.retryClassifier = c
	}
}

// WithRetryBackOff replaces the exponential backoff built from RetryConfig.
// b is shared by every execution of the client, so stateful strategies
// should only be used by clients that execute one request at a time.
//
// Example:
//
//	client := restclient.New(
//	    restclient.WithRetryConfig(restclient.DefaultRetryConfig()),
//	    restclient.WithRetryBackOff(restclient.NewLinearBackOff()),
//	)
func WithRetryBackOff(b backoff.BackOff) Option {
	return func(cfg *clientConfig) {
		cfg.retryBackOff = b
	}
}

// WithCircuitBreaker wraps the HTTP transport in a circuit breaker.
func WithCircuitBreaker(bc BreakerConfig) Option {
	return func(cfg *clientConfig) {
		cfg.breakerConfig = &bc
	}
}

// WithRateLimit throttles outgoing requests at the transport.
func WithRateLimit(rl RateLimitConfig) Option {
	return func(cfg *clientConfig) {
		cfg.rateLimitConfig = rl
	}
}

// WithServiceName identifies this client in spans and metrics as
// "http.client.name". It also names the circuit breaker.
func WithServiceName(name string) Option {
	return func(cfg *clientConfig) {
		cfg.serviceName = name
	}
}

// WithTracerProvider sets the OpenTelemetry TracerProvider.
// Default: otel.GetTracerProvider()
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *clientConfig) {
		cfg.tracerProvider = tp
	}
}

// WithMeterProvider sets the OpenTelemetry MeterProvider.
// Default: otel.GetMeterProvider()
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *clientConfig) {
		cfg.meterProvider = mp
	}
}

// WithLogger sets the zerolog logger used for debug output and warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *clientConfig) {
		cfg.logger = logger
		cfg.loggerSet = true
	}
}

// WithDebug logs every request and response at debug level.
func WithDebug(enabled bool) Option {
	return func(cfg *clientConfig) {
		cfg.debug = enabled
	}
}

// WithGenerateCurl attaches an equivalent cURL command to each Response.
func WithGenerateCurl(enabled bool) Option {
	return func(cfg *clientConfig) {
		cfg.generateCurl = enabled
	}
}

// WithClock sets the time source used for cookie expiry evaluation.
func WithClock(now func() time.Time) Option {
	return func(cfg *clientConfig) {
		cfg.clock = now
	}
}

// WithRequestInterceptor adds a RequestInterceptor. Interceptors run in the
// order they were added.
func WithRequestInterceptor(i RequestInterceptor) Option {
	return func(cfg *clientConfig) {
		cfg.interceptors.AddRequestInterceptor(i)
	}
}

// WithResponseInterceptor adds a ResponseInterceptor.
func WithResponseInterceptor(i ResponseInterceptor) Option {
	return func(cfg *clientConfig) {
		cfg.interceptors.AddResponseInterceptor(i)
	}
}

// WithChaos injects latency, errors and timeouts in front of the transport.
// Use it in development and tests to exercise retries and circuit breaking.
func WithChaos(cc ChaosConfig) Option {
	return func(cfg *clientConfig) {
		cfg.chaosConfig = &cc
	}
}

// WithCoalescing shares one transport call between identical concurrent
// GET and HEAD requests.
//
// Requests are identical when method, URL, headers, cookies and body match.
// Signed requests carry a fresh nonce and are never coalesced.
func WithCoalescing(enabled bool) Option {
	return func(cfg *clientConfig) {
		cfg.coalesce = enabled
	}
}
