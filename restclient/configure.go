package restclient

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TransportRequest is a fully resolved HTTP request handed to a Transport.
//
// It carries no references to the Request it was built from; transports can
// keep or modify it freely.
type TransportRequest struct {
	Method string
	URL    *url.URL

	// Headers holds every HTTPHeader parameter except User-Agent.
	Headers http.Header

	Cookies []*http.Cookie

	// FormParameters holds every GetOrPost parameter with a non-nil value.
	// Transports send them form-encoded for POST, PUT and PATCH when Body is
	// empty; for other methods they are already part of URL.
	FormParameters url.Values

	// Body and ContentType come from the first RequestBody parameter, or
	// hold the multipart/form-data encoding of files and form fields.
	Body        []byte
	ContentType string

	Timeout   time.Duration
	UserAgent string
}

// HasBody reports whether a raw body is attached.
func (r *TransportRequest) HasBody() bool {
	return r.ContentType != "" || len(r.Body) > 0
}

// NewTransportRequest resolves a Request into a TransportRequest.
//
// The request's parameters are used as-is (see Config.Resolve for merging
// defaults). cfg supplies the user agent and timeout fallbacks:
//   - User-Agent: a User-Agent header parameter, else cfg.UserAgent, else
//     DefaultUserAgent.
//   - Timeout: req.Timeout when positive, else cfg.Timeout.
//
// Only the first RequestBody parameter is used. Files on a POST, PUT or
// PATCH request replace it with a multipart body carrying the files and the
// GetOrPost parameters.
func NewTransportRequest(cfg Config, req *Request, uri *url.URL) (*TransportRequest, error) {
	if err := validateParameters(req.params); err != nil {
		return nil, err
	}

	tr := &TransportRequest{
		Method:         req.HTTPMethod(),
		URL:            uri,
		Headers:        make(http.Header),
		FormParameters: make(url.Values),
		Timeout:        cfg.Timeout,
		UserAgent:      DefaultUserAgent,
	}

	if cfg.UserAgent != "" {
		tr.UserAgent = cfg.UserAgent
	}
	if req.Timeout > 0 {
		tr.Timeout = req.Timeout
	}

	bodySet := false
	for _, p := range req.params {
		switch p.Type {
		case HTTPHeader:
			if p.isHeader("User-Agent") {
				tr.UserAgent = p.String()
				continue
			}
			tr.Headers.Add(p.Name, p.String())
		case Cookie:
			tr.Cookies = append(tr.Cookies, &http.Cookie{Name: p.Name, Value: p.String()})
		case GetOrPost:
			if p.Value == nil {
				continue
			}
			tr.FormParameters.Add(p.Name, p.String())
		case RequestBody:
			if bodySet {
				continue
			}
			body, err := bodyBytes(p.Value)
			if err != nil {
				return nil, err
			}
			tr.Body = body
			tr.ContentType = p.Name
			bodySet = true
		case URLSegment:
			// Already substituted into the URL.
		}
	}

	if len(req.files) > 0 && isBodyMethod(tr.Method) {
		var fields []Parameter
		for _, p := range req.params {
			if p.Type == GetOrPost && p.Value != nil {
				fields = append(fields, p)
			}
		}
		body, contentType, err := buildMultipart(fields, req.files)
		if err != nil {
			return nil, err
		}
		tr.Body = body
		tr.ContentType = contentType
		tr.FormParameters = make(url.Values)
	}

	return tr, nil
}

// bodyBytes converts a RequestBody value to bytes.
func bodyBytes(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	case fmt.Stringer:
		return []byte(val.String()), nil
	default:
		return nil, fmt.Errorf("restclient: unsupported request body type %T", v)
	}
}

// countBodies returns the number of RequestBody parameters.
func countBodies(params []Parameter) int {
	n := 0
	for _, p := range params {
		if p.Type == RequestBody {
			n++
		}
	}
	return n
}
