package oauth1

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedTokenResponse is returned when a token endpoint answers
// without oauth_token.
var ErrMalformedTokenResponse = errors.New("oauth1: malformed token response")

// Token is the form-encoded answer of a request token or access token
// endpoint.
type Token struct {
	Token             string
	TokenSecret       string
	CallbackConfirmed bool
	SessionHandle     string

	// Extra holds every other field, e.g. user_id or screen_name.
	Extra url.Values
}

// ParseTokenResponse decodes a body such as
// "oauth_token=abc&oauth_token_secret=def&oauth_callback_confirmed=true".
func ParseTokenResponse(body []byte) (*Token, error) {
	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTokenResponse, err)
	}

	tok := &Token{
		Token:             values.Get(ParamToken),
		TokenSecret:       values.Get("oauth_token_secret"),
		CallbackConfirmed: values.Get("oauth_callback_confirmed") == "true",
		SessionHandle:     values.Get(ParamSessionHandle),
		Extra:             make(url.Values),
	}
	if tok.Token == "" {
		return nil, fmt.Errorf("%w: no %s", ErrMalformedTokenResponse, ParamToken)
	}

	for name, vs := range values {
		switch name {
		case ParamToken, "oauth_token_secret", "oauth_callback_confirmed", ParamSessionHandle:
			continue
		}
		tok.Extra[name] = vs
	}

	return tok, nil
}

// AccessTokenAuthenticator returns an authenticator for protected resources
// using tok as the access token.
func (t *Token) AccessTokenAuthenticator(consumerKey, consumerSecret string, opts ...Option) *Authenticator {
	return ForProtectedResource(consumerKey, consumerSecret, t.Token, t.TokenSecret, opts...)
}
