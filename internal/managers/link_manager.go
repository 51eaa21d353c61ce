package managers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	DefaultStateTTL = 10 * time.Minute

	stateTokenBytes = 32
)

type linkManager struct {
	repository domain.AccountRepository
	states     domain.StateStore
	provider   domain.OAuthProvider
	stateTTL   time.Duration
	now        func() time.Time
}

type LinkManagerDependencies struct {
	Repository domain.AccountRepository
	States     domain.StateStore
	Provider   domain.OAuthProvider
	StateTTL   time.Duration
	Now        func() time.Time
}

func NewLinkManager(deps LinkManagerDependencies) domain.LinkManager {
	ttl := deps.StateTTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &linkManager{
		repository: deps.Repository,
		states:     deps.States,
		provider:   deps.Provider,
		stateTTL:   ttl,
		now:        now,
	}
}

// Connect starts a linking attempt for the session and returns the provider
// authorization URL together with the state the redirect must carry back.
func (m *linkManager) Connect(ctx context.Context, session domain.Session) (domain.ConnectResult, error) {
	if session.Username == "" {
		return domain.ConnectResult{}, domain.ErrUnauthenticated
	}

	value, err := newStateValue()
	if err != nil {
		return domain.ConnectResult{}, err
	}

	now := m.now().UTC()
	token := domain.StateToken{
		Value:        value,
		Username:     session.Username,
		SessionID:    session.ID,
		CodeVerifier: oauth2.GenerateVerifier(),
		Status:       domain.StateStatusInitiated,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.stateTTL),
	}

	if err := m.states.Save(ctx, token); err != nil {
		return domain.ConnectResult{}, fmt.Errorf("failed to save oauth state: %w", err)
	}

	log.Info().
		Str("username", session.Username).
		Time("expires_at", token.ExpiresAt).
		Msg("Calendar linking started")

	return domain.ConnectResult{
		URL:        m.provider.AuthCodeURL(token.Value, token.CodeVerifier),
		StateToken: token.Value,
	}, nil
}

// Callback completes a linking attempt. No code exchange happens unless the
// state was consumed for this session.
func (m *linkManager) Callback(ctx context.Context, session domain.Session, params domain.CallbackParams) (domain.ConnectionStatus, error) {
	if session.Username == "" {
		return domain.ConnectionStatus{}, domain.ErrUnauthenticated
	}

	if params.Error != "" {
		// burn the state so the attempt cannot be resumed
		if params.State != "" {
			_, _ = m.states.Consume(ctx, params.State, session, m.now())
		}

		log.Warn().
			Str("username", session.Username).
			Str("provider_error", params.Error).
			Msg("Provider declined calendar linking")

		return domain.ConnectionStatus{}, &domain.ProviderCallbackError{
			Code:        params.Error,
			Description: params.ErrorDescription,
		}
	}

	if params.State == "" {
		return domain.ConnectionStatus{}, domain.ErrStateNotFound
	}

	if params.Code == "" {
		return domain.ConnectionStatus{}, fmt.Errorf("%w: authorization code is missing", domain.ErrInvalidState)
	}

	token, err := m.states.Consume(ctx, params.State, session, m.now())
	if err != nil {
		log.Warn().Err(err).Str("username", session.Username).Msg("OAuth state rejected")

		return domain.ConnectionStatus{}, err
	}

	grant, err := m.provider.Exchange(ctx, params.Code, token.CodeVerifier)
	if err != nil {
		return domain.ConnectionStatus{}, asProviderAuthError("authorization code exchange failed", err)
	}

	if grant.AccessToken == "" {
		return domain.ConnectionStatus{}, fmt.Errorf("%w: provider returned an empty access token", domain.ErrProviderAuth)
	}

	identity, err := m.provider.Identity(ctx, grant.AccessToken)
	if err != nil {
		return domain.ConnectionStatus{}, asProviderAuthError("failed to resolve provider identity", err)
	}

	refreshToken, err := m.resolveRefreshToken(ctx, session.Username, identity, grant)
	if err != nil {
		return domain.ConnectionStatus{}, err
	}

	expiry := grant.Expiry
	if expiry.IsZero() {
		expiry = m.now().Add(fallbackAccessTokenLifetime)
	}

	scopes := grant.Scopes
	if len(scopes) == 0 {
		scopes = m.provider.Scopes()
	}

	account := domain.LinkedAccount{
		ExternalID:   identity.ExternalID,
		Email:        identity.Email,
		RefreshToken: refreshToken,
		Scopes:       scopes,
	}.WithAccessToken(grant.AccessToken, expiry)

	if err := m.repository.UpsertUser(ctx, session.Username, session.Email); err != nil {
		return domain.ConnectionStatus{}, err
	}

	if err := m.repository.UpsertLinkedAccount(ctx, session.Username, account); err != nil {
		return domain.ConnectionStatus{}, err
	}

	log.Info().
		Str("username", session.Username).
		Strs("scopes", account.Scopes).
		Msg("Calendar account linked")

	return domain.ConnectionStatus{
		IsConnected: true,
		Email:       account.Email,
	}, nil
}

// resolveRefreshToken keeps the stored refresh token when the provider skips
// issuing a new one for an account that is already linked.
func (m *linkManager) resolveRefreshToken(ctx context.Context, username string, identity domain.ProviderIdentity, grant domain.OAuthGrant) (string, error) {
	if grant.RefreshToken != "" {
		return grant.RefreshToken, nil
	}

	existing, err := m.repository.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	if existing != nil && existing.LinkedAccount.IsConnected() && existing.LinkedAccount.ExternalID == identity.ExternalID {
		return existing.LinkedAccount.RefreshToken, nil
	}

	return "", fmt.Errorf("%w: provider did not grant a refresh token", domain.ErrProviderAuth)
}

func (m *linkManager) Status(ctx context.Context, username string) (domain.ConnectionStatus, error) {
	user, err := m.repository.GetByUsername(ctx, username)
	if err != nil {
		return domain.ConnectionStatus{}, err
	}

	if user == nil || !user.LinkedAccount.IsConnected() {
		return domain.ConnectionStatus{IsConnected: false}, nil
	}

	return domain.ConnectionStatus{
		IsConnected: true,
		Email:       user.LinkedAccount.Email,
	}, nil
}

func (m *linkManager) Disconnect(ctx context.Context, username string) error {
	if err := m.repository.RemoveLinkedAccount(ctx, username); err != nil {
		return err
	}

	log.Info().Str("username", username).Msg("Calendar account unlinked")

	return nil
}

func newStateValue() (string, error) {
	buf := make([]byte, stateTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func asProviderAuthError(msg string, err error) error {
	if errors.Is(err, domain.ErrProviderAuth) {
		return fmt.Errorf("%s: %w", msg, err)
	}

	return fmt.Errorf("%w: %s: %w", domain.ErrProviderAuth, msg, err)
}
