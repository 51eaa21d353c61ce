package domain

import "context"

// OAuthProvider performs the provider side of account linking.
type OAuthProvider interface {
	AuthCodeURL(state, codeVerifier string) string
	Exchange(ctx context.Context, code, codeVerifier string) (OAuthGrant, error)
	Refresh(ctx context.Context, refreshToken string) (OAuthGrant, error)
	Identity(ctx context.Context, accessToken string) (ProviderIdentity, error)
	Scopes() []string
}

// CalendarClient operates on the provider calendar with a single bearer
// access token.
type CalendarClient interface {
	FindByExternalKey(ctx context.Context, externalKey string) (eventID string, found bool, err error)
	CreateEvent(ctx context.Context, item CalendarItem) (string, error)
	UpdateEvent(ctx context.Context, eventID string, item CalendarItem) error
}

type CalendarClientFactory interface {
	NewCalendarClient(ctx context.Context, accessToken string) (CalendarClient, error)
}
