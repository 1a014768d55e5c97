// Package auth performs the client credential pre-check that runs before any
// request is forwarded upstream.
package auth

import (
	"errors"
	"net/http"
	"strings"
)

// Sentinel errors returned by Authenticate. Their messages form the body of
// the 401 response.
var (
	ErrNoCredential  = errors.New("authorization required")
	ErrBadCredential = errors.New("invalid credential")
)

// Authenticator decides whether a request may proceed. A nil return admits
// the request; any error denies it and its message is surfaced to the client.
type Authenticator interface {
	Authenticate(r *http.Request) error
}

// KeyAuthenticator checks the Authorization header against a configured key
// set. With no keys configured it only requires that some credential is
// present, since the credential is forwarded upstream verbatim and the
// upstream does its own verification.
type KeyAuthenticator struct {
	provider string
	keys     map[string]struct{}
}

// NewKeyAuthenticator returns a KeyAuthenticator for the given provider.
func NewKeyAuthenticator(provider string, keys []string) *KeyAuthenticator {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return &KeyAuthenticator{provider: provider, keys: set}
}

// Provider returns the provider name this authenticator guards.
func (a *KeyAuthenticator) Provider() string {
	return a.provider
}

// Authenticate implements Authenticator.
func (a *KeyAuthenticator) Authenticate(r *http.Request) error {
	cred := r.Header.Get("Authorization")
	if cred == "" {
		return ErrNoCredential
	}
	if len(a.keys) == 0 {
		return nil
	}

	// Accept both "Bearer <key>" and a bare key; the scheme is case-insensitive.
	token := cred
	if len(cred) > 7 && strings.EqualFold(cred[:7], "Bearer ") {
		token = cred[7:]
	}
	if _, ok := a.keys[token]; ok {
		return nil
	}
	return ErrBadCredential
}
