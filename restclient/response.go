package restclient

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/htmlindex"
)

// ResponseStatus describes how a request ended, independent of the HTTP
// status code.
type ResponseStatus int

const (
	// None means the request was never dispatched.
	None ResponseStatus = iota

	// Completed means a response was received. 4xx and 5xx responses are
	// Completed too.
	Completed

	// Error means the transport failed before a response was received.
	Error

	// TimedOut means the request exceeded its timeout.
	TimedOut

	// Aborted means the caller cancelled the request.
	Aborted
)

// String returns the status name.
func (s ResponseStatus) String() string {
	switch s {
	case None:
		return "None"
	case Completed:
		return "Completed"
	case Error:
		return "Error"
	case TimedOut:
		return "TimedOut"
	case Aborted:
		return "Aborted"
	default:
		return fmt.Sprintf("ResponseStatus(%d)", int(s))
	}
}

// Header is a single response header value.
type Header struct {
	Name  string
	Value string
}

// ResponseCookie is a cookie set by the server.
type ResponseCookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	Expired  bool
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	MaxAge   int
	Version  int
}

// Response is the normalized result of executing a Request.
//
// Transport failures are reported through ResponseStatus, ErrorMessage and
// ErrorException rather than as Go errors, so a Response is always
// available for inspection.
//
// Example:
//
//	resp, err := client.Execute(ctx, req)
//	if err != nil {
//	    return err // request could not be built or authenticated
//	}
//	if resp.ResponseStatus != restclient.Completed {
//	    return resp.ErrorException
//	}
//	if resp.IsError() {
//	    return fmt.Errorf("api error %d: %s", resp.StatusCode, resp.Content)
//	}
type Response struct {
	// Request is the request as sent, after authentication and merging of
	// client defaults.
	Request *Request

	// Content is RawBytes decoded with the charset of ContentType.
	Content  string
	RawBytes []byte

	ContentType     string
	ContentLength   int64
	ContentEncoding string

	StatusCode        int
	StatusDescription string

	ResponseURI *url.URL
	Server      string

	// Headers are sorted by name; repeated headers keep their order.
	Headers []Header
	Cookies []ResponseCookie

	ResponseStatus ResponseStatus
	ErrorMessage   string
	ErrorException error

	FromCache    bool
	CacheExpired bool

	curlCommand string
}

// NewResponse maps a TransportResponse onto a Response. now decides which
// cookies are expired.
func NewResponse(req *Request, raw *TransportResponse, now time.Time) *Response {
	resp := &Response{
		Request:           req,
		RawBytes:          raw.RawBytes,
		Content:           decodeContent(raw.RawBytes, raw.ContentType),
		ContentType:       raw.ContentType,
		ContentLength:     raw.ContentLength,
		ContentEncoding:   raw.ContentEncoding,
		StatusCode:        raw.StatusCode,
		StatusDescription: raw.StatusDescription,
		ResponseURI:       raw.ResponseURI,
		Server:            raw.Server,
		Headers:           sortedHeaders(raw.Headers),
		ResponseStatus:    raw.ResponseStatus,
		ErrorMessage:      raw.ErrorMessage,
		ErrorException:    raw.ErrorException,
		FromCache:         raw.FromCache,
		CacheExpired:      raw.CacheExpired,
	}

	if resp.ResponseStatus == None {
		resp.ResponseStatus = Completed
	}
	if resp.ErrorException != nil && resp.ErrorMessage == "" {
		resp.ErrorMessage = resp.ErrorException.Error()
	}

	for _, c := range raw.Cookies {
		resp.Cookies = append(resp.Cookies, newResponseCookie(c, now))
	}

	return resp
}

// FailedResponse builds the Response for a request that produced no HTTP
// response.
func FailedResponse(req *Request, err error) *Response {
	return &Response{
		Request:        req,
		ResponseStatus: failureStatus(err),
		ErrorMessage:   err.Error(),
		ErrorException: err,
	}
}

// failureStatus maps a transport error onto a ResponseStatus.
func failureStatus(err error) ResponseStatus {
	if errors.Is(err, context.Canceled) {
		return Aborted
	}
	if classifyError(err) == ErrorTypeTimeout {
		return TimedOut
	}
	return Error
}

// IsSuccess returns true if the request completed with a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.ResponseStatus == Completed && r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// Header returns the first value of the named header, ignoring case.
func (r *Response) Header(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Cookie returns the named cookie.
func (r *Response) Cookie(name string) (ResponseCookie, bool) {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c, true
		}
	}
	return ResponseCookie{}, false
}

// Decode unmarshals the body into v based on ContentType. XML content
// types use encoding/xml; everything else is decoded as JSON.
func (r *Response) Decode(v any) error {
	if len(r.RawBytes) == 0 {
		return nil
	}
	return decodeBody(r.RawBytes, r.ContentType, v)
}

// JSON queries the body with a gjson path.
//
// Example:
//
//	name := resp.JSON("user.name").String()
func (r *Response) JSON(path string) gjson.Result {
	return gjson.GetBytes(r.RawBytes, path)
}

// CurlCommand returns the cURL equivalent of the request.
//
// This is only populated if WithGenerateCurl(true) was set on the client.
func (r *Response) CurlCommand() string {
	return r.curlCommand
}

// decodeBody decodes the body based on content type.
func decodeBody(body []byte, contentType string, target any) error {
	isXML := strings.Contains(contentType, "application/xml") ||
		strings.Contains(contentType, "text/xml")
	if isXML {
		return xml.Unmarshal(body, target)
	}
	return json.Unmarshal(body, target)
}

// decodeContent converts raw to a string using the charset parameter of
// contentType. Unknown or missing charsets are treated as UTF-8.
func decodeContent(raw []byte, contentType string) string {
	if len(raw) == 0 {
		return ""
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(raw)
	}
	charset := params["charset"]
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return string(raw)
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(raw)
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

func sortedHeaders(h http.Header) []Header {
	if len(h) == 0 {
		return nil
	}

	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Header, 0, len(h))
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, Header{Name: name, Value: v})
		}
	}
	return out
}

func newResponseCookie(c *http.Cookie, now time.Time) ResponseCookie {
	rc := ResponseCookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HTTPOnly: c.HttpOnly,
		SameSite: c.SameSite,
		MaxAge:   c.MaxAge,
		Version:  cookieVersion(c.Unparsed),
	}
	rc.Expired = c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now))
	return rc
}

// cookieVersion extracts the obsolete Version attribute, which net/http
// leaves in Unparsed.
func cookieVersion(unparsed []string) int {
	for _, attr := range unparsed {
		name, value, ok := strings.Cut(attr, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "version") {
			continue
		}
		if v, err := strconv.Atoi(strings.Trim(strings.TrimSpace(value), `"`)); err == nil {
			return v
		}
	}
	return 0
}
