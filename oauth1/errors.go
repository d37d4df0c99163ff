package oauth1

import (
	"fmt"

	"github.com/kroma-labs/sentinel-rest/restclient"
)

// ErrMissingCredential is the sentinel wrapped by every CredentialError. It
// is the same value as restclient.ErrMissingCredential so callers can check
// one error for all authenticators.
var ErrMissingCredential = restclient.ErrMissingCredential

// CredentialError reports a credential the selected flow needs but that was
// not configured.
type CredentialError struct {
	Type  OAuthType
	Field string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("oauth1: %s requires %s", e.Type, e.Field)
}

// Unwrap returns ErrMissingCredential.
func (e *CredentialError) Unwrap() error {
	return ErrMissingCredential
}
