package restclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

var errNoResponse = errors.New("restclient: transport returned no response")

// Transport executes a resolved request.
//
// Implementations report HTTP-level outcomes (any status code) in the
// returned TransportResponse. A non-nil error means no response was
// obtained; the client maps it onto the Response status.
type Transport interface {
	Do(ctx context.Context, req *TransportRequest) (*TransportResponse, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *TransportRequest) (*TransportResponse, error)

// Do implements Transport.
func (f TransportFunc) Do(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	return f(ctx, req)
}

// TransportResponse is the raw result of a Transport call.
type TransportResponse struct {
	StatusCode        int
	StatusDescription string

	Headers http.Header
	Cookies []*http.Cookie

	ContentType     string
	ContentLength   int64
	ContentEncoding string
	RawBytes        []byte

	// ResponseURI is the final URL after redirects.
	ResponseURI *url.URL
	Server      string

	// ResponseStatus lets a transport report a failure while still
	// returning partial data. None is treated as Completed.
	ResponseStatus ResponseStatus
	ErrorMessage   string
	ErrorException error

	FromCache    bool
	CacheExpired bool
}
