package restclient

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownParameterType is returned when a Parameter carries a type outside
// the ParameterType enumeration (including the zero value).
var ErrUnknownParameterType = errors.New("restclient: unknown parameter type")

// ParameterType tags the transport slot a Parameter is written to.
//
// The set is closed. Every consumer (merge, URI building, transport
// configuration) switches over all values and rejects anything else.
type ParameterType int

const (
	// URLSegment replaces a {name} placeholder in the request resource.
	URLSegment ParameterType = iota + 1

	// GetOrPost is sent in the query string for GET-like methods and in the
	// form-encoded body for POST, PUT and PATCH.
	GetOrPost

	// HTTPHeader is sent as a request header.
	HTTPHeader

	// Cookie is sent as a request cookie.
	Cookie

	// RequestBody is the raw request body. The parameter name holds the
	// MIME type and the value holds the content.
	RequestBody
)

// String returns the parameter type name.
func (t ParameterType) String() string {
	switch t {
	case URLSegment:
		return "UrlSegment"
	case GetOrPost:
		return "GetOrPost"
	case HTTPHeader:
		return "HttpHeader"
	case Cookie:
		return "Cookie"
	case RequestBody:
		return "RequestBody"
	default:
		return fmt.Sprintf("ParameterType(%d)", int(t))
	}
}

// Valid reports whether t is one of the declared parameter types.
func (t ParameterType) Valid() bool {
	switch t {
	case URLSegment, GetOrPost, HTTPHeader, Cookie, RequestBody:
		return true
	default:
		return false
	}
}

// Parameter is a named value tagged with its transport role.
//
// Two parameters are the same parameter when Name and Type match; Value is
// not part of the identity.
type Parameter struct {
	Name  string
	Value any
	Type  ParameterType
}

// String returns the value in the form it is written to the wire.
//
// nil becomes the empty string, []byte is taken verbatim and fmt.Stringer
// values use their String method.
func (p Parameter) String() string {
	return stringValue(p.Value)
}

// sameAs reports whether p and o share the (Name, Type) identity.
func (p Parameter) sameAs(o Parameter) bool {
	return p.Type == o.Type && p.Name == o.Name
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// MergeParameters combines client-wide defaults with request parameters.
//
// Request parameters keep their order and always win: a default is skipped
// when params already holds a parameter with the same Name and Type.
// Remaining defaults are appended in their original order. Neither input is
// modified.
//
// Example:
//
//	defaults := []restclient.Parameter{{Name: "api_key", Value: "k", Type: restclient.GetOrPost}}
//	merged := restclient.MergeParameters(defaults, req.Parameters())
func MergeParameters(defaults, params []Parameter) []Parameter {
	merged := make([]Parameter, 0, len(params)+len(defaults))
	merged = append(merged, params...)

	for _, d := range defaults {
		if containsParameter(merged, d) {
			continue
		}
		merged = append(merged, d)
	}

	return merged
}

func containsParameter(params []Parameter, p Parameter) bool {
	for _, existing := range params {
		if existing.sameAs(p) {
			return true
		}
	}
	return false
}

// validateParameters rejects parameters with an undeclared type.
func validateParameters(params []Parameter) error {
	for _, p := range params {
		if !p.Type.Valid() {
			return fmt.Errorf("%w: %q has %s", ErrUnknownParameterType, p.Name, p.Type)
		}
	}
	return nil
}

// isHeader reports whether p is the header named name, ignoring case.
func (p Parameter) isHeader(name string) bool {
	return p.Type == HTTPHeader && strings.EqualFold(p.Name, name)
}
