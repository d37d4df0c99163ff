package restclient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RequestInterceptor inspects or modifies the transport request after it is
// built and before it is sent. Interceptors run in the order they were
// added, once per attempt.
//
// Common use cases:
//   - Injecting correlation IDs
//   - Request logging or auditing
//   - Headers computed from the final URL
type RequestInterceptor func(ctx context.Context, req *TransportRequest) error

// ResponseInterceptor inspects or modifies the mapped Response. It runs for
// every attempt, including failed ones.
//
// Common use cases:
//   - Response logging
//   - Turning API error payloads into an ErrorMessage
type ResponseInterceptor func(ctx context.Context, resp *Response) error

// InterceptorChain holds request and response interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates an empty interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{}
}

// AddRequestInterceptor appends a request interceptor.
func (c *InterceptorChain) AddRequestInterceptor(i RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, i)
}

// AddResponseInterceptor appends a response interceptor.
func (c *InterceptorChain) AddResponseInterceptor(i ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, i)
}

// ApplyRequestInterceptors runs the request interceptors in order and stops
// at the first error.
func (c *InterceptorChain) ApplyRequestInterceptors(ctx context.Context, req *TransportRequest) error {
	if c == nil {
		return nil
	}
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return fmt.Errorf("restclient: request interceptor: %w", err)
		}
	}
	return nil
}

// ApplyResponseInterceptors runs the response interceptors in order and
// stops at the first error.
func (c *InterceptorChain) ApplyResponseInterceptors(ctx context.Context, resp *Response) error {
	if c == nil {
		return nil
	}
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(ctx, resp); err != nil {
			return fmt.Errorf("restclient: response interceptor: %w", err)
		}
	}
	return nil
}

// CorrelationIDInterceptor sets headerName to a fresh ID on every attempt
// unless the request already carries one. A nil idFunc generates UUIDv4s.
//
// Example:
//
//	client := restclient.New(
//	    restclient.WithRequestInterceptor(
//	        restclient.CorrelationIDInterceptor("X-Request-ID", uuid.NewString),
//	    ),
//	)
func CorrelationIDInterceptor(headerName string, idFunc func() string) RequestInterceptor {
	if idFunc == nil {
		idFunc = uuid.NewString
	}
	return func(_ context.Context, req *TransportRequest) error {
		if req.Headers.Get(headerName) == "" {
			req.Headers.Set(headerName, idFunc())
		}
		return nil
	}
}

// AcceptInterceptor sets the Accept header when the request has none.
func AcceptInterceptor(mediaType string) RequestInterceptor {
	return func(_ context.Context, req *TransportRequest) error {
		if req.Headers.Get("Accept") == "" {
			req.Headers.Set("Accept", mediaType)
		}
		return nil
	}
}
