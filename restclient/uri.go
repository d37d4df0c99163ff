package restclient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURL is returned when the assembled request URL cannot be parsed
// or lacks a scheme or host.
var ErrInvalidURL = errors.New("restclient: invalid request URL")

// BuildURI resolves the final request URL from a base URL and a request.
//
// The request's parameters are used as-is; merge client defaults first (see
// Config.Resolve) when they should take part.
//
// Steps:
//   - {name} placeholders in the resource are replaced by path-escaped
//     URLSegment values; unknown placeholders are kept.
//   - One leading "/" is stripped from the resource and the result is
//     joined to the base URL with a single "/".
//   - For methods other than POST, PUT and PATCH, GetOrPost parameters are
//     query-escaped and appended as a query string in parameter order.
//
// Example:
//
//	req := restclient.NewRequest("users/{id}", http.MethodGet).
//	    AddURLSegment("id", "42 ").
//	    AddQueryParameter("fields", "name,email")
//
//	u, _ := restclient.BuildURI("https://api.example.com/v1", req)
//	// https://api.example.com/v1/users/42%20?fields=name%2Cemail
func BuildURI(baseURL string, req *Request) (*url.URL, error) {
	if err := validateParameters(req.params); err != nil {
		return nil, err
	}

	resource := req.Resource
	var query []string

	for _, p := range req.params {
		switch p.Type {
		case URLSegment:
			resource = strings.ReplaceAll(resource, "{"+p.Name+"}", url.PathEscape(p.String()))
		case GetOrPost:
			query = append(query, url.QueryEscape(p.Name)+"="+url.QueryEscape(p.String()))
		case HTTPHeader, Cookie, RequestBody:
			// Not part of the URL.
		}
	}

	resource = strings.TrimPrefix(resource, "/")

	assembled := resource
	if baseURL != "" {
		base := strings.TrimSuffix(baseURL, "/")
		if resource == "" {
			assembled = base
		} else {
			assembled = base + "/" + resource
		}
	}

	if len(query) > 0 && !isBodyMethod(req.HTTPMethod()) {
		assembled = strings.TrimSuffix(assembled, "/")
		sep := "?"
		if strings.Contains(assembled, "?") {
			sep = "&"
		}
		assembled += sep + strings.Join(query, "&")
	}

	u, err := url.Parse(assembled)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no scheme or host", ErrInvalidURL, assembled)
	}

	return u, nil
}
