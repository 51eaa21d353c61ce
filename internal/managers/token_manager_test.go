package managers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenManagerFixture struct {
	repo     domain.AccountRepository
	provider *fakeOAuthProvider
	manager  domain.TokenManager
	now      time.Time
}

func newTokenManagerFixture(t *testing.T) *tokenManagerFixture {
	t.Helper()

	repo, _, _ := newTestRepository(t)
	require.NoError(t, repo.UpsertUser(context.Background(), "alice", ""))

	f := &tokenManagerFixture{
		repo:     repo,
		provider: &fakeOAuthProvider{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	f.manager = NewTokenManager(TokenManagerDependencies{
		Repository: repo,
		Provider:   f.provider,
		Now:        func() time.Time { return f.now },
	})

	return f
}

func accountExpiringAt(expiry *time.Time) domain.LinkedAccount {
	account := domain.LinkedAccount{
		ExternalID:   "g-1",
		Email:        "alice@gmail.com",
		RefreshToken: "refresh-1",
		Scopes:       []string{"calendar.events"},
	}

	if expiry != nil {
		account.AccessToken = "cached"
		account.AccessTokenExpiry = expiry
	}

	return account
}

func TestTokenManager_CachedTokenWithinMargin(t *testing.T) {
	tests := []struct {
		name        string
		expiryIn    *time.Duration
		wantRefresh bool
	}{
		{name: "fresh token", expiryIn: durationPtr(time.Hour), wantRefresh: false},
		{name: "just past margin", expiryIn: durationPtr(61 * time.Second), wantRefresh: false},
		{name: "inside margin", expiryIn: durationPtr(30 * time.Second), wantRefresh: true},
		{name: "exactly at margin", expiryIn: durationPtr(60 * time.Second), wantRefresh: true},
		{name: "expired", expiryIn: durationPtr(-time.Minute), wantRefresh: true},
		{name: "no cached token", expiryIn: nil, wantRefresh: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTokenManagerFixture(t)
			f.provider.refreshGrant = domain.OAuthGrant{
				AccessToken: "fresh",
				Expiry:      f.now.Add(time.Hour),
			}

			var expiry *time.Time
			if tt.expiryIn != nil {
				e := f.now.Add(*tt.expiryIn)
				expiry = &e
			}

			token, _, err := f.manager.GetValidAccessToken(context.Background(), "alice", accountExpiringAt(expiry))
			require.NoError(t, err)

			if tt.wantRefresh {
				assert.Equal(t, 1, f.provider.refreshCalls)
				assert.Equal(t, "fresh", token)
				assert.Equal(t, "refresh-1", f.provider.lastRefresh)
			} else {
				assert.Equal(t, 0, f.provider.refreshCalls)
				assert.Equal(t, "cached", token)
			}
		})
	}
}

func TestTokenManager_RefreshIsPersisted(t *testing.T) {
	f := newTokenManagerFixture(t)
	ctx := context.Background()
	f.provider.refreshGrant = domain.OAuthGrant{
		AccessToken: "fresh",
		Expiry:      f.now.Add(time.Hour),
	}

	token, updated, err := f.manager.GetValidAccessToken(ctx, "alice", accountExpiringAt(nil))
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, "fresh", updated.AccessToken)

	user, err := f.repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user.LinkedAccount)
	assert.Equal(t, "fresh", user.LinkedAccount.AccessToken)
	require.NotNil(t, user.LinkedAccount.AccessTokenExpiry)
	assert.True(t, f.now.Add(time.Hour).Equal(*user.LinkedAccount.AccessTokenExpiry))
	assert.Equal(t, "refresh-1", user.LinkedAccount.RefreshToken)
	assert.Equal(t, "g-1", user.LinkedAccount.ExternalID)

	// second call uses the cache
	token, _, err = f.manager.GetValidAccessToken(ctx, "alice", updated)
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Equal(t, 1, f.provider.refreshCalls)
}

func TestTokenManager_RefreshTokenRotation(t *testing.T) {
	f := newTokenManagerFixture(t)
	f.provider.refreshGrant = domain.OAuthGrant{
		AccessToken:  "fresh",
		RefreshToken: "refresh-2",
		Expiry:       f.now.Add(time.Hour),
	}

	_, updated, err := f.manager.GetValidAccessToken(context.Background(), "alice", accountExpiringAt(nil))
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", updated.RefreshToken)

	user, err := f.repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", user.LinkedAccount.RefreshToken)
}

func TestTokenManager_MissingExpiryFallsBack(t *testing.T) {
	f := newTokenManagerFixture(t)
	f.provider.refreshGrant = domain.OAuthGrant{AccessToken: "fresh"}

	_, updated, err := f.manager.GetValidAccessToken(context.Background(), "alice", accountExpiringAt(nil))
	require.NoError(t, err)
	require.NotNil(t, updated.AccessTokenExpiry)
	assert.True(t, f.now.Add(fallbackAccessTokenLifetime).Equal(*updated.AccessTokenExpiry))
}

func TestTokenManager_RefreshFailureIsAuthError(t *testing.T) {
	f := newTokenManagerFixture(t)
	f.provider.refreshErr = errors.New("invalid_grant: token revoked")

	_, _, err := f.manager.GetValidAccessToken(context.Background(), "alice", accountExpiringAt(nil))
	assert.ErrorIs(t, err, domain.ErrProviderAuth)

	f.provider.refreshErr = nil
	f.provider.refreshGrant = domain.OAuthGrant{}

	_, _, err = f.manager.GetValidAccessToken(context.Background(), "alice", accountExpiringAt(nil))
	assert.ErrorIs(t, err, domain.ErrProviderAuth)
}

func TestTokenManager_NoRefreshToken(t *testing.T) {
	f := newTokenManagerFixture(t)

	_, _, err := f.manager.GetValidAccessToken(context.Background(), "alice", domain.LinkedAccount{ExternalID: "g-1"})
	assert.ErrorIs(t, err, domain.ErrNotLinked)
	assert.Equal(t, 0, f.provider.refreshCalls)
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}
