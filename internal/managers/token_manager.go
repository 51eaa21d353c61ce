package managers

import (
	"context"
	"fmt"
	"time"

	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAccessTokenSafetyMargin = 60 * time.Second

	// Used when the provider omits expires_in.
	fallbackAccessTokenLifetime = time.Hour
)

type tokenManager struct {
	repository   domain.AccountRepository
	provider     domain.OAuthProvider
	safetyMargin time.Duration
	now          func() time.Time
}

type TokenManagerDependencies struct {
	Repository   domain.AccountRepository
	Provider     domain.OAuthProvider
	SafetyMargin time.Duration
	Now          func() time.Time
}

func NewTokenManager(deps TokenManagerDependencies) domain.TokenManager {
	margin := deps.SafetyMargin
	if margin <= 0 {
		margin = DefaultAccessTokenSafetyMargin
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &tokenManager{
		repository:   deps.Repository,
		provider:     deps.Provider,
		safetyMargin: margin,
		now:          now,
	}
}

func (m *tokenManager) GetValidAccessToken(ctx context.Context, username string, account domain.LinkedAccount) (string, domain.LinkedAccount, error) {
	if !account.IsConnected() {
		return "", account, domain.ErrNotLinked
	}

	now := m.now()

	if account.HasAccessToken() && account.AccessTokenExpiry.After(now.Add(m.safetyMargin)) {
		return account.AccessToken, account, nil
	}

	grant, err := m.provider.Refresh(ctx, account.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("Access token refresh rejected")

		return "", account, asProviderAuthError("failed to refresh access token", err)
	}

	if grant.AccessToken == "" {
		return "", account, fmt.Errorf("%w: provider returned an empty access token", domain.ErrProviderAuth)
	}

	expiry := grant.Expiry
	if expiry.IsZero() {
		expiry = now.Add(fallbackAccessTokenLifetime)
	}

	updated := account.WithAccessToken(grant.AccessToken, expiry)

	if grant.RefreshToken != "" && grant.RefreshToken != account.RefreshToken {
		updated.RefreshToken = grant.RefreshToken

		log.Info().Str("username", username).Msg("Provider rotated refresh token")
	}

	if err := m.repository.UpsertLinkedAccount(ctx, username, updated); err != nil {
		return "", account, fmt.Errorf("failed to persist refreshed access token: %w", err)
	}

	log.Debug().
		Str("username", username).
		Time("expiry", expiry).
		Msg("Access token refreshed")

	return updated.AccessToken, updated, nil
}
