package restclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var _ Transport = (*HTTPTransport)(nil)

// HTTPTransport is the net/http implementation of Transport.
//
// Each exchange passes through, outermost first: OpenTelemetry tracing and
// metrics, the circuit breaker (if configured), the rate limiter (if
// configured) and the pooled http.Transport.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport builds an HTTPTransport from the transport-related
// options (WithTransportConfig, WithTLSConfig, WithProxyURL,
// WithCookieJar, WithFollowRedirects, WithMaxRedirects,
// WithCircuitBreaker, WithRateLimit, WithServiceName, WithTracerProvider,
// WithMeterProvider, WithLogger). Other options are ignored.
//
// Example:
//
//	transport := restclient.NewHTTPTransport(
//	    restclient.WithTransportConfig(restclient.HighThroughputTransportConfig()),
//	)
func NewHTTPTransport(opts ...Option) *HTTPTransport {
	return newHTTPTransport(newConfig(opts...))
}

func newHTTPTransport(cfg *clientConfig) *HTTPTransport {
	var rt http.RoundTripper = cfg.buildTransport()
	rt = newRateLimitRoundTripper(rt, cfg.rateLimitConfig)
	rt = newBreakerRoundTripper(rt, cfg)
	rt = newOtelRoundTripper(rt, cfg)

	client := &http.Client{
		Transport: rt,
		Jar:       cfg.cookieJar,
	}

	followRedirects := cfg.followRedirects
	maxRedirects := cfg.maxRedirects
	client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if !followRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("restclient: stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	return &HTTPTransport{client: client}
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, unwrapURLError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("restclient: read response body: %w", err)
	}

	out := &TransportResponse{
		StatusCode:        resp.StatusCode,
		StatusDescription: statusDescription(resp),
		Headers:           resp.Header,
		Cookies:           resp.Cookies(),
		ContentType:       resp.Header.Get("Content-Type"),
		ContentLength:     resp.ContentLength,
		ContentEncoding:   resp.Header.Get("Content-Encoding"),
		RawBytes:          raw,
		Server:            resp.Header.Get("Server"),
		ResponseStatus:    Completed,
	}
	if out.ContentLength < 0 {
		out.ContentLength = int64(len(raw))
	}
	if resp.Request != nil {
		out.ResponseURI = resp.Request.URL
	}

	return out, nil
}

// newHTTPRequest converts a TransportRequest into an *http.Request.
func newHTTPRequest(ctx context.Context, req *TransportRequest) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)

	switch {
	case req.HasBody():
		body = bytes.NewReader(req.Body)
		contentType = req.ContentType
	case isBodyMethod(req.Method) && len(req.FormParameters) > 0:
		body = strings.NewReader(req.FormParameters.Encode())
		contentType = ContentTypeForm
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	for name, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}
	for _, c := range req.Cookies {
		httpReq.AddCookie(c)
	}

	return httpReq, nil
}

// unwrapURLError strips the *url.Error wrapper added by http.Client so the
// cause (context, net, TLS) is visible to errors.Is/As and log output.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}

// statusDescription returns the reason phrase, e.g. "Not Found".
func statusDescription(resp *http.Response) string {
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}
