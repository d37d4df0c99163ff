package restclient

import (
	"context"
	"encoding/base64"
	"errors"
)

// Authenticator adds credentials to a request before it is built.
//
// Authenticate receives a clone of the caller's Request, so it may add,
// replace or remove parameters freely. It runs once per attempt; retried
// requests are authenticated again. cfg is the client configuration the
// request will be built with; use cfg.Resolve(req) and BuildURI to see the
// final parameters and URL (the OAuth authenticator signs those).
type Authenticator interface {
	Authenticate(ctx context.Context, cfg Config, req *Request) error
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
//
// Example - bearer token from a rotating source:
//
//	auth := restclient.AuthenticatorFunc(func(ctx context.Context, _ restclient.Config, req *restclient.Request) error {
//	    tok, err := tokens.Current(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    req.AddOrUpdateParameter("Authorization", "Bearer "+tok, restclient.HTTPHeader)
//	    return nil
//	})
type AuthenticatorFunc func(ctx context.Context, cfg Config, req *Request) error

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, cfg Config, req *Request) error {
	return f(ctx, cfg, req)
}

// ErrMissingCredential is returned by authenticators configured without a
// required credential.
var ErrMissingCredential = errors.New("restclient: missing credential")

// HTTPBasicAuthenticator sends an "Authorization: Basic" header.
type HTTPBasicAuthenticator struct {
	Username string
	Password string
}

// NewHTTPBasicAuthenticator returns an HTTPBasicAuthenticator.
func NewHTTPBasicAuthenticator(username, password string) *HTTPBasicAuthenticator {
	return &HTTPBasicAuthenticator{Username: username, Password: password}
}

// Authenticate implements Authenticator.
func (a *HTTPBasicAuthenticator) Authenticate(_ context.Context, _ Config, req *Request) error {
	if a.Username == "" {
		return ErrMissingCredential
	}
	token := base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
	req.AddOrUpdateParameter("Authorization", "Basic "+token, HTTPHeader)
	return nil
}

// HeaderAuthenticator sets one header to a token, e.g. a bearer token or an
// API key.
type HeaderAuthenticator struct {
	// Header defaults to "Authorization".
	Header string

	// Prefix is prepended to the token, e.g. "Bearer ".
	Prefix string

	// Token returns the current token. It is called on every attempt so
	// rotating tokens are picked up.
	Token func(ctx context.Context) (string, error)
}

// NewBearerAuthenticator sends "Authorization: Bearer <token>".
func NewBearerAuthenticator(token string) *HeaderAuthenticator {
	return &HeaderAuthenticator{
		Prefix: "Bearer ",
		Token:  staticToken(token),
	}
}

// NewAPIKeyAuthenticator sends the key in the named header.
//
// Example:
//
//	client := restclient.New(
//	    restclient.WithAuthenticator(restclient.NewAPIKeyAuthenticator("X-API-Key", key)),
//	)
func NewAPIKeyAuthenticator(header, key string) *HeaderAuthenticator {
	return &HeaderAuthenticator{
		Header: header,
		Token:  staticToken(key),
	}
}

// Authenticate implements Authenticator.
func (a *HeaderAuthenticator) Authenticate(ctx context.Context, _ Config, req *Request) error {
	if a.Token == nil {
		return ErrMissingCredential
	}
	token, err := a.Token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrMissingCredential
	}

	header := a.Header
	if header == "" {
		header = "Authorization"
	}
	req.AddOrUpdateParameter(header, a.Prefix+token, HTTPHeader)
	return nil
}

func staticToken(token string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		return token, nil
	}
}
