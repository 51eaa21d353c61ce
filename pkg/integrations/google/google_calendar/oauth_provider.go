package googlecalendar

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/micuatri/calendarlink/internal/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var DefaultScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/calendar.events",
}

type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Endpoint defaults to google.Endpoint.
	Endpoint oauth2.Endpoint
	// APIEndpoint overrides the userinfo API base URL.
	APIEndpoint string
	HTTPClient  *http.Client
}

// OAuthProvider implements domain.OAuthProvider against Google's OAuth 2.0
// endpoints.
type OAuthProvider struct {
	config      *oauth2.Config
	apiEndpoint string
	httpClient  *http.Client
}

func NewOAuthProvider(cfg OAuthProviderConfig) *OAuthProvider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	return &OAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       append([]string(nil), scopes...),
			Endpoint:     endpoint,
		},
		apiEndpoint: cfg.APIEndpoint,
		httpClient:  cfg.HTTPClient,
	}
}

func (p *OAuthProvider) Scopes() []string {
	return append([]string(nil), p.config.Scopes...)
}

// AuthCodeURL asks for offline access with forced consent so Google issues a
// refresh token, and binds the code to the verifier with S256 PKCE.
func (p *OAuthProvider) AuthCodeURL(state, codeVerifier string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	}

	if codeVerifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(codeVerifier))
	}

	return p.config.AuthCodeURL(state, opts...)
}

func (p *OAuthProvider) Exchange(ctx context.Context, code, codeVerifier string) (domain.OAuthGrant, error) {
	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}

	token, err := p.config.Exchange(p.withHTTPClient(ctx), code, opts...)
	if err != nil {
		return domain.OAuthGrant{}, newError("exchange authorization code", err)
	}

	return p.grantFromToken(token), nil
}

func (p *OAuthProvider) Refresh(ctx context.Context, refreshToken string) (domain.OAuthGrant, error) {
	source := p.config.TokenSource(p.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		return domain.OAuthGrant{}, newError("refresh access token", err)
	}

	grant := p.grantFromToken(token)

	// the token source echoes the old refresh token back when none is issued
	if grant.RefreshToken == refreshToken {
		grant.RefreshToken = ""
	}

	return grant, nil
}

func (p *OAuthProvider) Identity(ctx context.Context, accessToken string) (domain.ProviderIdentity, error) {
	ctx = p.withHTTPClient(ctx)

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if p.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.apiEndpoint))
	}

	service, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return domain.ProviderIdentity{}, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return domain.ProviderIdentity{}, newError("get userinfo", err)
	}

	if info.Id == "" {
		return domain.ProviderIdentity{}, &Error{Op: "get userinfo", Code: "invalid_grant", Message: "userinfo response has no account id"}
	}

	return domain.ProviderIdentity{
		ExternalID: info.Id,
		Email:      info.Email,
	}, nil
}

func (p *OAuthProvider) withHTTPClient(ctx context.Context) context.Context {
	if p.httpClient == nil {
		return ctx
	}

	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func (p *OAuthProvider) grantFromToken(token *oauth2.Token) domain.OAuthGrant {
	grant := domain.OAuthGrant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}

	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		grant.Scopes = strings.Fields(scope)
	}

	return grant
}
