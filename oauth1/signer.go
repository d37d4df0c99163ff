package oauth1

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // HMAC-SHA1 is mandated by OAuth 1.0a
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Protocol parameter names.
const (
	ParamConsumerKey     = "oauth_consumer_key"
	ParamNonce           = "oauth_nonce"
	ParamSignature       = "oauth_signature"
	ParamSignatureMethod = "oauth_signature_method"
	ParamTimestamp       = "oauth_timestamp"
	ParamVersion         = "oauth_version"
	ParamCallback        = "oauth_callback"
	ParamToken           = "oauth_token"
	ParamVerifier        = "oauth_verifier"
	ParamSessionHandle   = "oauth_session_handle"

	ParamXAuthUsername = "x_auth_username"
	ParamXAuthPassword = "x_auth_password"
	ParamXAuthMode     = "x_auth_mode"
)

// Version is the value of oauth_version.
const Version = "1.0"

// OutOfBand is the oauth_callback sent when no callback URL is configured.
const OutOfBand = "oob"

// OAuthType selects the OAuth 1.0a flow a request belongs to.
type OAuthType int

const (
	// RequestToken obtains a temporary token (oauth_callback).
	RequestToken OAuthType = iota + 1

	// AccessToken exchanges a verified request token, or refreshes an
	// access token with a session handle.
	AccessToken

	// ProtectedResource calls the API with an access token.
	ProtectedResource

	// ClientAuthentication exchanges a username and password for an access
	// token (xAuth).
	ClientAuthentication
)

// String returns the flow name.
func (t OAuthType) String() string {
	switch t {
	case RequestToken:
		return "RequestToken"
	case AccessToken:
		return "AccessToken"
	case ProtectedResource:
		return "ProtectedResource"
	case ClientAuthentication:
		return "ClientAuthentication"
	default:
		return fmt.Sprintf("OAuthType(%d)", int(t))
	}
}

// SignatureMethod is the value of oauth_signature_method.
type SignatureMethod string

const (
	HMACSHA1   SignatureMethod = "HMAC-SHA1"
	HMACSHA256 SignatureMethod = "HMAC-SHA256"
	PlainText  SignatureMethod = "PLAINTEXT"
)

// ErrUnsupportedSignatureMethod is returned for unknown signature methods.
var ErrUnsupportedSignatureMethod = errors.New("oauth1: unsupported signature method")

// ErrReservedParameter is returned when a request parameter uses a name
// the flow sends itself, e.g. oauth_token or oauth_signature.
var ErrReservedParameter = errors.New("oauth1: request parameter uses a reserved OAuth name")

// ErrUnknownOAuthType is returned for a flow outside OAuthType.
var ErrUnknownOAuthType = errors.New("oauth1: unknown OAuth type")

// Credentials holds every secret and token any flow may need. Which fields
// are required depends on the OAuthType.
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string

	// Token and TokenSecret are the request token (AccessToken flow) or
	// the access token (ProtectedResource flow). An empty TokenSecret is
	// valid.
	Token       string
	TokenSecret string

	// CallbackURL is sent with RequestToken; empty means "oob".
	CallbackURL string

	Verifier      string
	SessionHandle string

	// Username and Password are used by ClientAuthentication.
	Username string
	Password string
}

// Validate checks that the fields required by typ are set.
func (c Credentials) Validate(typ OAuthType) error {
	missing := func(field string) error {
		return &CredentialError{Type: typ, Field: field}
	}

	if c.ConsumerKey == "" {
		return missing("consumer key")
	}
	if c.ConsumerSecret == "" {
		return missing("consumer secret")
	}

	switch typ {
	case RequestToken:
		return nil
	case AccessToken:
		if c.Token == "" {
			return missing("token")
		}
		if c.Verifier == "" && c.SessionHandle == "" {
			return missing("verifier or session handle")
		}
		return nil
	case ProtectedResource:
		if c.Token == "" {
			return missing("token")
		}
		return nil
	case ClientAuthentication:
		if c.Username == "" {
			return missing("username")
		}
		if c.Password == "" {
			return missing("password")
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOAuthType, typ)
	}
}

// Signer computes OAuth 1.0a signatures.
//
// The zero value uses the system clock and DefaultNonce. Tests set Clock and
// Nonce to reproduce known signatures.
type Signer struct {
	// Clock returns the current time for oauth_timestamp.
	Clock func() time.Time

	// Nonce returns a unique oauth_nonce per call.
	Nonce func() string
}

// DefaultNonce returns 32 random hex characters.
func DefaultNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Input is everything a signature covers besides the credentials.
type Input struct {
	// Method is the HTTP method; it is uppercased.
	Method string

	// URL is the full request URL. Its query parameters are signed.
	URL *url.URL

	// Form holds the parameters of a form-encoded body. Leave it nil for
	// requests without one.
	Form []Param
}

// Signature is the result of Signer.Sign.
type Signature struct {
	// Params are the parameters to transmit: oauth_* protocol parameters
	// (including oauth_signature) and, for ClientAuthentication, the x_auth_*
	// parameters. Sorted by name.
	Params []Param

	// BaseString is the signature base string.
	BaseString string

	// Value is the oauth_signature value.
	Value string
}

// Sign computes the signature of in for the given flow.
//
// Credentials are validated first; a missing credential returns a
// *CredentialError without doing any work. Every call uses a fresh nonce
// and timestamp.
//
// Example:
//
//	sig, err := oauth1.Signer{}.Sign(oauth1.ProtectedResource, oauth1.HMACSHA1, creds, oauth1.Input{
//	    Method: http.MethodGet,
//	    URL:    u,
//	})
//	header := sig.AuthorizationHeader("")
func (s Signer) Sign(typ OAuthType, method SignatureMethod, creds Credentials, in Input) (*Signature, error) {
	if err := creds.Validate(typ); err != nil {
		return nil, err
	}
	if method == "" {
		method = HMACSHA1
	}

	protocol := s.protocolParams(typ, method, creds)

	query, err := queryParams(in.URL)
	if err != nil {
		return nil, fmt.Errorf("oauth1: parse query of %s: %w", in.URL.Redacted(), err)
	}

	if name, ok := reservedName(query, protocol); ok {
		return nil, fmt.Errorf("%w: %q in the query of %s", ErrReservedParameter, name, in.URL.Redacted())
	}
	if name, ok := reservedName(in.Form, protocol); ok {
		return nil, fmt.Errorf("%w: %q in the request body", ErrReservedParameter, name)
	}

	all := make([]Param, 0, len(protocol)+len(query)+len(in.Form))
	all = append(all, protocol...)
	all = append(all, query...)
	all = append(all, in.Form...)

	base := BaseString(in.Method, in.URL, all)
	value, err := sign(method, base, creds.ConsumerSecret, creds.TokenSecret)
	if err != nil {
		return nil, err
	}

	params := append(protocol, Param{Name: ParamSignature, Value: value})
	sort.SliceStable(params, func(i, j int) bool { return params[i].Name < params[j].Name })

	return &Signature{
		Params:     params,
		BaseString: base,
		Value:      value,
	}, nil
}

// protocolParams returns the oauth_* parameters of the flow, plus the
// x_auth_* parameters for ClientAuthentication.
func (s Signer) protocolParams(typ OAuthType, method SignatureMethod, creds Credentials) []Param {
	now := time.Now
	if s.Clock != nil {
		now = s.Clock
	}
	nonce := DefaultNonce
	if s.Nonce != nil {
		nonce = s.Nonce
	}

	params := []Param{
		{Name: ParamConsumerKey, Value: creds.ConsumerKey},
		{Name: ParamNonce, Value: nonce()},
		{Name: ParamSignatureMethod, Value: string(method)},
		{Name: ParamTimestamp, Value: strconv.FormatInt(now().Unix(), 10)},
		{Name: ParamVersion, Value: Version},
	}

	switch typ {
	case RequestToken:
		callback := creds.CallbackURL
		if callback == "" {
			callback = OutOfBand
		}
		params = append(params, Param{Name: ParamCallback, Value: callback})
	case AccessToken:
		params = append(params, Param{Name: ParamToken, Value: creds.Token})
		if creds.Verifier != "" {
			params = append(params, Param{Name: ParamVerifier, Value: creds.Verifier})
		}
		if creds.SessionHandle != "" {
			params = append(params, Param{Name: ParamSessionHandle, Value: creds.SessionHandle})
		}
	case ProtectedResource:
		params = append(params, Param{Name: ParamToken, Value: creds.Token})
	case ClientAuthentication:
		params = append(params,
			Param{Name: ParamXAuthUsername, Value: creds.Username},
			Param{Name: ParamXAuthPassword, Value: creds.Password},
			Param{Name: ParamXAuthMode, Value: "client_auth"},
		)
	}

	return params
}

// BaseString builds the signature base string
// METHOD&enc(base URL)&enc(normalized parameters).
func BaseString(method string, u *url.URL, params []Param) string {
	return strings.ToUpper(method) + "&" +
		PercentEncode(normalizeURL(u)) + "&" +
		PercentEncode(normalizeParameters(params))
}

// SigningKey returns enc(consumerSecret)&enc(tokenSecret). The "&" is
// present even when tokenSecret is empty.
func SigningKey(consumerSecret, tokenSecret string) string {
	return PercentEncode(consumerSecret) + "&" + PercentEncode(tokenSecret)
}

func sign(method SignatureMethod, base, consumerSecret, tokenSecret string) (string, error) {
	key := SigningKey(consumerSecret, tokenSecret)

	var h func() hash.Hash
	switch method {
	case HMACSHA1:
		h = sha1.New
	case HMACSHA256:
		h = sha256.New
	case PlainText:
		return key, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSignatureMethod, method)
	}

	mac := hmac.New(h, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// reservedName returns the first of params whose name is set by the
// protocol parameters or is oauth_signature.
func reservedName(params, protocol []Param) (string, bool) {
	for _, p := range params {
		if p.Name == ParamSignature {
			return p.Name, true
		}
		for _, pp := range protocol {
			if p.Name == pp.Name {
				return p.Name, true
			}
		}
	}
	return "", false
}

// AuthorizationHeader formats the oauth_* parameters as an Authorization
// header value. realm, when non-empty, comes first and is not part of the
// signature. x_auth_* parameters are never included.
//
// Example output:
//
//	OAuth oauth_consumer_key="xvz1evFS4wEEPTGEFPHBog", oauth_nonce="...", ...
func (s *Signature) AuthorizationHeader(realm string) string {
	parts := make([]string, 0, len(s.Params)+1)
	if realm != "" {
		parts = append(parts, `realm="`+strings.ReplaceAll(realm, `"`, `\"`)+`"`)
	}
	for _, p := range s.Params {
		if !IsProtocolParam(p.Name) {
			continue
		}
		parts = append(parts, PercentEncode(p.Name)+`="`+PercentEncode(p.Value)+`"`)
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// IsProtocolParam reports whether name is an oauth_* parameter.
func IsProtocolParam(name string) bool {
	return strings.HasPrefix(name, "oauth_")
}
