package oauth1

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kroma-labs/sentinel-rest/restclient"
)

var _ restclient.Authenticator = (*Authenticator)(nil)

// ErrRawBodyNotSignable is returned when x_auth parameters would have to be
// sent next to a raw (non form-encoded) request body.
var ErrRawBodyNotSignable = errors.New("oauth1: x_auth parameters cannot be sent with a raw request body")

// ParameterHandling selects where the protocol parameters are transmitted.
type ParameterHandling int

const (
	// AuthorizationHeader sends them in an "Authorization: OAuth ..." header.
	AuthorizationHeader ParameterHandling = iota

	// URLOrPostParameters sends them as GetOrPost parameters: in the query
	// string for GET-like methods, in the form body for POST, PUT and PATCH.
	// Requests with a raw body fall back to the header.
	URLOrPostParameters
)

// Authenticator signs requests with OAuth 1.0a. Use one of the For*
// constructors to pick the flow.
//
// Every Authenticate call signs with a fresh nonce and timestamp, so an
// Authenticator can be shared by concurrent requests and retries.
//
// Example:
//
//	client := restclient.New(
//	    restclient.WithBaseURL("https://api.twitter.com/1.1"),
//	    restclient.WithAuthenticator(oauth1.ForProtectedResource(ck, cs, token, tokenSecret)),
//	)
type Authenticator struct {
	Type              OAuthType
	Credentials       Credentials
	SignatureMethod   SignatureMethod
	ParameterHandling ParameterHandling

	// Realm is added to the Authorization header. It is not signed.
	Realm string

	Signer Signer
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithRealm sets the realm of the Authorization header.
func WithRealm(realm string) Option {
	return func(a *Authenticator) {
		a.Realm = realm
	}
}

// WithSignatureMethod sets the signature method.
// Default: HMACSHA1
func WithSignatureMethod(m SignatureMethod) Option {
	return func(a *Authenticator) {
		a.SignatureMethod = m
	}
}

// WithParameterHandling sets where protocol parameters are transmitted.
// Default: AuthorizationHeader
func WithParameterHandling(h ParameterHandling) Option {
	return func(a *Authenticator) {
		a.ParameterHandling = h
	}
}

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.Signer.Clock = now
	}
}

// WithNonce sets the nonce source.
func WithNonce(nonce func() string) Option {
	return func(a *Authenticator) {
		a.Signer.Nonce = nonce
	}
}

func newAuthenticator(typ OAuthType, creds Credentials, opts []Option) *Authenticator {
	a := &Authenticator{
		Type:            typ,
		Credentials:     creds,
		SignatureMethod: HMACSHA1,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ForRequestToken signs the temporary credentials request. An empty
// callbackURL is sent as "oob".
func ForRequestToken(consumerKey, consumerSecret, callbackURL string, opts ...Option) *Authenticator {
	return newAuthenticator(RequestToken, Credentials{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		CallbackURL:    callbackURL,
	}, opts)
}

// ForAccessToken signs the exchange of an authorized request token for an
// access token.
func ForAccessToken(
	consumerKey, consumerSecret, token, tokenSecret, verifier string,
	opts ...Option,
) *Authenticator {
	return newAuthenticator(AccessToken, Credentials{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Token:          token,
		TokenSecret:    tokenSecret,
		Verifier:       verifier,
	}, opts)
}

// ForAccessTokenRefresh signs the renewal of an access token with the
// session handle returned alongside it.
func ForAccessTokenRefresh(
	consumerKey, consumerSecret, token, tokenSecret, sessionHandle string,
	opts ...Option,
) *Authenticator {
	return newAuthenticator(AccessToken, Credentials{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Token:          token,
		TokenSecret:    tokenSecret,
		SessionHandle:  sessionHandle,
	}, opts)
}

// ForProtectedResource signs API calls made with an access token.
func ForProtectedResource(
	consumerKey, consumerSecret, accessToken, accessTokenSecret string,
	opts ...Option,
) *Authenticator {
	return newAuthenticator(ProtectedResource, Credentials{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Token:          accessToken,
		TokenSecret:    accessTokenSecret,
	}, opts)
}

// ForClientAuthentication signs an xAuth request exchanging a username and
// password for an access token.
func ForClientAuthentication(
	consumerKey, consumerSecret, username, password string,
	opts ...Option,
) *Authenticator {
	return newAuthenticator(ClientAuthentication, Credentials{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Username:       username,
		Password:       password,
	}, opts)
}

// Authenticate implements restclient.Authenticator.
//
// The signature covers the request as it will be sent: client default
// parameters are merged first and the URL is built with cfg.BaseURL.
// Missing credentials fail before anything is signed.
func (a *Authenticator) Authenticate(_ context.Context, cfg restclient.Config, req *restclient.Request) error {
	if err := a.Credentials.Validate(a.Type); err != nil {
		return err
	}

	resolved := cfg.Resolve(req)
	uri, err := restclient.BuildURI(cfg.BaseURL, resolved)
	if err != nil {
		return err
	}

	var form []Param
	switch {
	case resolved.FormEncoded():
		form = formParams(resolved)
	case isBodyMethod(resolved.HTTPMethod()):
		if form, err = bodyFormParams(resolved); err != nil {
			return err
		}
	}

	sig, err := a.Signer.Sign(a.Type, a.SignatureMethod, a.Credentials, Input{
		Method: resolved.HTTPMethod(),
		URL:    uri,
		Form:   form,
	})
	if err != nil {
		return err
	}

	rawBody := hasRawBody(resolved)
	if rawBody && a.Type == ClientAuthentication && isBodyMethod(resolved.HTTPMethod()) {
		return fmt.Errorf("%w: %s %s", ErrRawBodyNotSignable, resolved.HTTPMethod(), uri.Redacted())
	}

	useHeader := a.ParameterHandling == AuthorizationHeader ||
		(rawBody && isBodyMethod(resolved.HTTPMethod()))

	for _, p := range sig.Params {
		if useHeader && IsProtocolParam(p.Name) {
			continue
		}
		req.AddOrUpdateParameter(p.Name, p.Value, restclient.GetOrPost)
	}
	if useHeader {
		req.AddOrUpdateParameter("Authorization", sig.AuthorizationHeader(a.Realm), restclient.HTTPHeader)
	}

	return nil
}

// formParams returns the GetOrPost parameters that end up in the body.
func formParams(req *restclient.Request) []Param {
	var params []Param
	for _, p := range req.Parameters() {
		if p.Type != restclient.GetOrPost || p.Value == nil {
			continue
		}
		params = append(params, Param{Name: p.Name, Value: p.String()})
	}
	return params
}

// bodyFormParams returns the parameters of a form-urlencoded RequestBody.
// Other bodies are not signed and yield nil.
func bodyFormParams(req *restclient.Request) ([]Param, error) {
	if len(req.Files()) > 0 {
		return nil, nil
	}
	for _, p := range req.Parameters() {
		if p.Type != restclient.RequestBody {
			continue
		}
		mediaType, _, err := mime.ParseMediaType(p.Name)
		if err != nil || mediaType != restclient.ContentTypeForm {
			return nil, nil
		}
		values, err := url.ParseQuery(p.String())
		if err != nil {
			return nil, fmt.Errorf("oauth1: parse form body: %w", err)
		}
		return valuesToParams(values), nil
	}
	return nil, nil
}

// hasRawBody reports whether the body is something other than form-encoded
// GetOrPost parameters: a RequestBody parameter or multipart files.
func hasRawBody(req *restclient.Request) bool {
	if len(req.Files()) > 0 {
		return true
	}
	for _, p := range req.Parameters() {
		if p.Type == restclient.RequestBody {
			return true
		}
	}
	return false
}

func isBodyMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}
