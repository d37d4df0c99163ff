package restclient

import (
	"net/http"
	"time"
)

// PoolStats is a snapshot of the connection pool settings of an
// HTTPTransport.
//
// Example:
//
//	client := restclient.New(
//	    restclient.WithTransportConfig(restclient.HighThroughputTransportConfig()),
//	)
//	stats := client.PoolStats()
//	fmt.Printf("max conns per host: %d\n", stats.MaxConnsPerHost)
type PoolStats struct {
	// MaxIdleConns is the maximum idle connections across all hosts.
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	MaxIdleConnsPerHost int

	// MaxConnsPerHost is the maximum total connections per host.
	// Zero means unlimited.
	MaxConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept.
	IdleConnTimeout time.Duration

	// DisableKeepAlives indicates if HTTP keep-alives are disabled.
	DisableKeepAlives bool
}

// PoolStats returns the pool settings of the underlying http.Transport.
func (t *HTTPTransport) PoolStats() PoolStats {
	transport := unwrapTransport(t.client.Transport)
	if transport == nil {
		return PoolStats{}
	}

	return PoolStats{
		MaxIdleConns:        transport.MaxIdleConns,
		MaxIdleConnsPerHost: transport.MaxIdleConnsPerHost,
		MaxConnsPerHost:     transport.MaxConnsPerHost,
		IdleConnTimeout:     transport.IdleConnTimeout,
		DisableKeepAlives:   transport.DisableKeepAlives,
	}
}

// PoolStats returns the pool settings of the client's HTTPTransport, or
// the zero value when a custom Transport is used.
func (c *Client) PoolStats() PoolStats {
	if c.http == nil {
		return PoolStats{}
	}
	return c.http.PoolStats()
}

// unwrapTransport follows Unwrap through the round tripper chain (tracing,
// circuit breaker, rate limiter) down to the http.Transport.
func unwrapTransport(rt http.RoundTripper) *http.Transport {
	for {
		switch t := rt.(type) {
		case *http.Transport:
			return t
		case interface{ Unwrap() http.RoundTripper }:
			rt = t.Unwrap()
		default:
			return nil
		}
	}
}
