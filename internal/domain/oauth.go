package domain

import "time"

// Session identifies the caller on whose behalf a linking attempt runs.
type Session struct {
	ID       string
	Username string
	Email    string
}

type StateStatus string

const (
	StateStatusInitiated StateStatus = "initiated"
	StateStatusConsumed  StateStatus = "consumed"
	StateStatusExpired   StateStatus = "expired"
)

// StateToken is the single-use anti-CSRF value bound to the session that
// started a linking attempt.
type StateToken struct {
	Value        string
	Username     string
	SessionID    string
	CodeVerifier string
	Status       StateStatus
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

func (s StateToken) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// BelongsTo reports whether the token was issued to the given session.
func (s StateToken) BelongsTo(session Session) bool {
	return s.Username == session.Username && s.SessionID == session.ID
}

// OAuthGrant is the provider's answer to a code or refresh-token exchange.
type OAuthGrant struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scopes       []string
}

// ProviderIdentity is the provider-side account behind a grant.
type ProviderIdentity struct {
	ExternalID string
	Email      string
}

type ConnectResult struct {
	URL        string
	StateToken string
}

// CallbackParams carries the query parameters of the provider redirect.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}
