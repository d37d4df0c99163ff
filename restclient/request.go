package restclient

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/go-querystring/query"
)

// Common MIME types used for RequestBody parameters.
const (
	ContentTypeJSON = "application/json"
	ContentTypeXML  = "application/xml"
	ContentTypeForm = "application/x-www-form-urlencoded"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Request describes a single API call declaratively.
//
// A Request holds the resource path, the HTTP method and a list of
// parameters tagged by role. It is not bound to a client; the same Request
// can be executed by several clients or several times by one client.
//
// Example:
//
//	req := restclient.NewRequest("users/{id}", http.MethodGet).
//	    AddURLSegment("id", 42).
//	    AddQueryParameter("expand", "profile").
//	    AddHeader("Accept", "application/json")
//
//	resp, err := client.Execute(ctx, req)
type Request struct {
	// Method is the HTTP method. Empty means GET.
	Method string

	// Resource is the path relative to the client's base URL. It may contain
	// {name} placeholders filled from URLSegment parameters.
	Resource string

	// Timeout overrides the client timeout when positive.
	Timeout time.Duration

	params []Parameter
	files  []FileUpload

	// err records a builder failure (e.g. body marshalling) and is
	// returned by Client.Execute.
	err error
}

// NewRequest creates a Request for resource with the given HTTP method.
func NewRequest(resource, method string) *Request {
	return &Request{
		Method:   method,
		Resource: resource,
	}
}

// HTTPMethod returns the effective method, defaulting to GET.
func (r *Request) HTTPMethod() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// Parameters returns a copy of the request parameters in insertion order.
func (r *Request) Parameters() []Parameter {
	out := make([]Parameter, len(r.params))
	copy(out, r.params)
	return out
}

// Err returns the first error recorded while building the request.
func (r *Request) Err() error {
	return r.err
}

// Clone returns a deep copy of the parameter list so the clone can be
// modified (e.g. signed) without touching r.
func (r *Request) Clone() *Request {
	clone := *r
	clone.params = r.Parameters()
	clone.files = r.Files()
	return &clone
}

// AddParameter appends a parameter. Duplicates are allowed; for GetOrPost
// parameters this is how repeated query keys are expressed.
func (r *Request) AddParameter(name string, value any, typ ParameterType) *Request {
	r.params = append(r.params, Parameter{Name: name, Value: value, Type: typ})
	return r
}

// AddOrUpdateParameter replaces the value of the first parameter with the
// same name and type, or appends a new one.
func (r *Request) AddOrUpdateParameter(name string, value any, typ ParameterType) *Request {
	p := Parameter{Name: name, Value: value, Type: typ}
	for i := range r.params {
		if r.params[i].sameAs(p) {
			r.params[i].Value = value
			return r
		}
	}
	r.params = append(r.params, p)
	return r
}

// RemoveParameter drops every parameter with the given name and type.
func (r *Request) RemoveParameter(name string, typ ParameterType) *Request {
	kept := r.params[:0]
	for _, p := range r.params {
		if p.Name == name && p.Type == typ {
			continue
		}
		kept = append(kept, p)
	}
	r.params = kept
	return r
}

// AddURLSegment fills the {name} placeholder in the resource.
func (r *Request) AddURLSegment(name string, value any) *Request {
	return r.AddParameter(name, value, URLSegment)
}

// AddQueryParameter adds a GetOrPost parameter.
//
// For GET, HEAD, DELETE and OPTIONS it ends up in the query string; for
// POST, PUT and PATCH it is form-encoded into the body.
func (r *Request) AddQueryParameter(name string, value any) *Request {
	return r.AddParameter(name, value, GetOrPost)
}

// AddHeader adds a request header.
func (r *Request) AddHeader(name, value string) *Request {
	return r.AddParameter(name, value, HTTPHeader)
}

// AddCookie adds a request cookie.
func (r *Request) AddCookie(name, value string) *Request {
	return r.AddParameter(name, value, Cookie)
}

// AddBody sets the raw request body with an explicit content type.
//
// Only the first RequestBody parameter is sent.
//
// Example:
//
//	req.AddBody("text/csv", "id,name\n1,john\n")
func (r *Request) AddBody(contentType string, body any) *Request {
	return r.AddParameter(contentType, body, RequestBody)
}

// AddJSONBody marshals v as JSON and sets it as the request body.
//
// Example:
//
//	req := restclient.NewRequest("users", http.MethodPost).
//	    AddJSONBody(User{Name: "john"})
func (r *Request) AddJSONBody(v any) *Request {
	data, err := json.Marshal(v)
	if err != nil {
		r.recordErr(fmt.Errorf("restclient: encode JSON body: %w", err))
		return r
	}
	return r.AddBody(ContentTypeJSON, data)
}

// AddXMLBody marshals v as XML and sets it as the request body.
func (r *Request) AddXMLBody(v any) *Request {
	data, err := xml.Marshal(v)
	if err != nil {
		r.recordErr(fmt.Errorf("restclient: encode XML body: %w", err))
		return r
	}
	return r.AddBody(ContentTypeXML, data)
}

// AddObject adds every field of a struct as a GetOrPost parameter.
//
// Field names and encoding follow `url` struct tags as understood by
// github.com/google/go-querystring. Keys are added in sorted order.
//
// Example:
//
//	type ListOptions struct {
//	    Page    int    `url:"page"`
//	    PerPage int    `url:"per_page,omitempty"`
//	    Sort    string `url:"sort,omitempty"`
//	}
//
//	req.AddObject(ListOptions{Page: 2, Sort: "name"})
func (r *Request) AddObject(v any) *Request {
	values, err := query.Values(v)
	if err != nil {
		r.recordErr(fmt.Errorf("restclient: encode object parameters: %w", err))
		return r
	}
	for _, key := range sortedKeys(values) {
		for _, val := range values[key] {
			r.AddQueryParameter(key, val)
		}
	}
	return r
}

// SetTimeout sets a per-request timeout. Non-positive values fall back to
// the client timeout.
func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

// FormEncoded reports whether GetOrPost parameters travel in a
// form-encoded body: the method is POST, PUT or PATCH and there is neither
// a RequestBody parameter nor a file. For other methods they are part of
// the query string; with files they become multipart fields; next to a raw
// POST, PUT or PATCH body they are not sent.
func (r *Request) FormEncoded() bool {
	if !isBodyMethod(r.HTTPMethod()) || len(r.files) > 0 {
		return false
	}
	for _, p := range r.params {
		if p.Type == RequestBody {
			return false
		}
	}
	return true
}

func (r *Request) recordErr(err error) {
	if r.err == nil {
		r.err = err
	}
}

// isBodyMethod reports whether GetOrPost parameters go to the body.
func isBodyMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// sortedKeys returns the keys of values in lexical order.
func sortedKeys(values url.Values) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
