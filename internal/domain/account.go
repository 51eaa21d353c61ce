package domain

import (
	"strings"
	"time"
)

// LocalUser is the local identity a provider account is linked to.
type LocalUser struct {
	Username      string
	Email         string
	LinkedAccount *LinkedAccount
}

// LinkedAccount is the credential bundle connecting a LocalUser to the
// calendar provider. Tokens are plaintext here; only the storage layer
// ever sees their protected form.
type LinkedAccount struct {
	ExternalID        string
	Email             string
	RefreshToken      string
	AccessToken       string
	AccessTokenExpiry *time.Time
	Scopes            []string
}

// IsConnected reports whether the account can mint access tokens. A cached
// access token is not required.
func (a *LinkedAccount) IsConnected() bool {
	return a != nil && strings.TrimSpace(a.RefreshToken) != ""
}

// HasAccessToken reports whether an access token and its expiry are cached.
func (a *LinkedAccount) HasAccessToken() bool {
	return a != nil && a.AccessToken != "" && a.AccessTokenExpiry != nil
}

// Normalized returns a copy where the access token and its expiry are
// either both present or both absent.
func (a LinkedAccount) Normalized() LinkedAccount {
	if a.AccessToken == "" || a.AccessTokenExpiry == nil {
		a.AccessToken = ""
		a.AccessTokenExpiry = nil
	}

	if a.AccessTokenExpiry != nil {
		expiry := a.AccessTokenExpiry.UTC()
		a.AccessTokenExpiry = &expiry
	}

	if a.Scopes != nil {
		a.Scopes = append([]string(nil), a.Scopes...)
	}

	return a
}

// WithAccessToken returns a copy carrying a freshly issued access token.
func (a LinkedAccount) WithAccessToken(token string, expiry time.Time) LinkedAccount {
	a.AccessToken = token
	a.AccessTokenExpiry = &expiry

	return a.Normalized()
}

// ConnectionStatus is what the calling layer renders as GoogleStatusDto.
type ConnectionStatus struct {
	IsConnected bool
	Email       string
}
