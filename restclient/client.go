package restclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrNilRequest is returned when Execute is called without a request.
var ErrNilRequest = errors.New("restclient: nil request")

// Client executes Requests against a REST API.
//
// Create a Client using New():
//
//	client := restclient.New(
//	    restclient.WithBaseURL("https://api.example.com/v1"),
//	    restclient.WithServiceName("example-api"),
//	)
//
//	req := restclient.NewRequest("users/{id}", http.MethodGet).
//	    AddURLSegment("id", 42)
//	resp, err := client.Execute(ctx, req)
//
// A Client is immutable after New and safe for concurrent use.
type Client struct {
	cfg       *clientConfig
	transport Transport

	// http is the built-in transport, nil when WithTransport is used.
	http *HTTPTransport
}

// New creates a Client. Without WithTransport it executes requests through
// an HTTPTransport built from the same options.
//
// Example - OAuth 1.0a protected API with retries:
//
//	client := restclient.New(
//	    restclient.WithBaseURL("https://api.twitter.com/1.1"),
//	    restclient.WithAuthenticator(oauth1.ForProtectedResource(ck, cs, token, secret)),
//	    restclient.WithRetryConfig(restclient.DefaultRetryConfig()),
//	)
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)

	c := &Client{cfg: cfg}

	c.transport = cfg.transport
	if c.transport == nil {
		c.http = newHTTPTransport(cfg)
		c.transport = c.http
	}
	if cfg.chaosConfig != nil {
		c.transport = NewChaosTransport(c.transport, *cfg.chaosConfig)
	}
	if cfg.coalesce {
		c.transport = newCoalescingTransport(c.transport)
	}

	return c
}

// Config returns a copy of the request-building configuration.
func (c *Client) Config() Config {
	cfg := c.cfg.Config
	cfg.DefaultParameters = append([]Parameter(nil), c.cfg.DefaultParameters...)
	return cfg
}

// BuildURI returns the URL req would be sent to, with client default
// parameters merged in. Authentication is not applied.
func (c *Client) BuildURI(req *Request) (*url.URL, error) {
	cfg := c.Config()
	return BuildURI(cfg.BaseURL, cfg.Resolve(req))
}

// Execute authenticates, builds and dispatches req.
//
// The returned error is non-nil only when the request could not be built or
// authenticated (builder errors, unknown parameter types, invalid URL,
// missing credentials) or an interceptor failed. Transport failures and HTTP error statuses are
// reported in the Response. req itself is never modified.
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if err := req.Err(); err != nil {
		return nil, err
	}

	ctx, span := c.cfg.tracer.Start(ctx, "REST "+req.HTTPMethod(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("rest.resource", req.Resource),
			attribute.String("http.request.method", req.HTTPMethod()),
		),
	)
	defer span.End()

	resp, err := c.retry(ctx, func(ctx context.Context) (*Response, error) {
		return c.executeOnce(ctx, req)
	})
	if err != nil {
		setSpanError(span, err, "")
		return nil, err
	}

	span.SetAttributes(attribute.String("rest.response_status", resp.ResponseStatus.String()))
	if resp.ResponseStatus == Completed {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	} else if resp.ErrorException != nil {
		setSpanError(span, resp.ErrorException, classifyError(resp.ErrorException))
	}

	return resp, nil
}

// executeOnce runs one pass of the pipeline on a fresh clone of req.
func (c *Client) executeOnce(ctx context.Context, req *Request) (*Response, error) {
	cfg := c.Config()

	prepared := req.Clone()
	if cfg.Authenticator != nil {
		if err := cfg.Authenticator.Authenticate(ctx, cfg, prepared); err != nil {
			return nil, fmt.Errorf("restclient: authenticate: %w", err)
		}
	}
	prepared = cfg.Resolve(prepared)

	if n := countBodies(prepared.params); n > 1 {
		c.cfg.logger.Warn().
			Str("resource", prepared.Resource).
			Int("bodies", n).
			Msg("multiple request bodies, only the first is sent")
	}

	uri, err := BuildURI(cfg.BaseURL, prepared)
	if err != nil {
		return nil, err
	}

	treq, err := NewTransportRequest(cfg, prepared, uri)
	if err != nil {
		return nil, err
	}

	if err := c.cfg.interceptors.ApplyRequestInterceptors(ctx, treq); err != nil {
		return nil, err
	}

	if c.cfg.debug {
		logRequest(c.cfg.logger, treq)
	}

	start := time.Now()
	raw, err := c.transport.Do(ctx, treq)

	var resp *Response
	switch {
	case err != nil:
		resp = FailedResponse(prepared, err)
	case raw == nil:
		resp = FailedResponse(prepared, errNoResponse)
	default:
		resp = NewResponse(prepared, raw, c.cfg.clock())
	}

	if c.cfg.generateCurl {
		resp.curlCommand = generateCurlCommand(treq)
	}
	if c.cfg.debug {
		logResponse(c.cfg.logger, resp, time.Since(start))
	}

	if err := c.cfg.interceptors.ApplyResponseInterceptors(ctx, resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// TypedResponse is a Response with its body decoded into Data.
type TypedResponse[T any] struct {
	*Response

	// Data is decoded only for successful (2xx) responses.
	Data T
}

// ExecuteAs executes req and decodes a successful body into T.
//
// Example:
//
//	type User struct {
//	    ID   int    `json:"id"`
//	    Name string `json:"name"`
//	}
//
//	resp, err := restclient.ExecuteAs[User](ctx, client, req)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.Data.Name)
func ExecuteAs[T any](ctx context.Context, c *Client, req *Request) (*TypedResponse[T], error) {
	resp, err := c.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	typed := &TypedResponse[T]{Response: resp}
	if resp.IsSuccess() {
		if err := resp.Decode(&typed.Data); err != nil {
			return typed, fmt.Errorf("restclient: decode response: %w", err)
		}
	}
	return typed, nil
}

// ExecuteAll executes reqs concurrently, at most limit at a time (limit <= 0
// means no limit). Responses are returned in request order.
//
// The first build or authentication error is returned and cancels the
// requests still running; requests that failed to build have a nil
// Response.
func (c *Client) ExecuteAll(ctx context.Context, reqs []*Request, limit int) ([]*Response, error) {
	responses := make([]*Response, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, req := range reqs {
		g.Go(func() error {
			resp, err := c.Execute(gctx, req)
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}

	return responses, g.Wait()
}
