package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/micuatri/calendarlink/internal/domain"
)

// SessionClaims is the payload of the upstream session token
type SessionClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	SessionID string `json:"sid"`
}

// SessionIssuer mints session tokens. Production sessions come from the
// upstream identity system; this is for local tooling and tests.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewSessionIssuer(secret string, ttl time.Duration) (*SessionIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &SessionIssuer{
		secret: []byte(secret),
		ttl:    ttl,
	}, nil
}

// Issue creates a signed token for a fresh session
func (s *SessionIssuer) Issue(username, email string) (string, domain.Session, error) {
	if username == "" {
		return "", domain.Session{}, fmt.Errorf("username is required")
	}

	now := time.Now()
	session := domain.Session{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Email:     email,
		SessionID: session.ID,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", domain.Session{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, session, nil
}

// SessionVerifier checks HS256 session tokens
type SessionVerifier struct {
	secret []byte
}

func NewSessionVerifier(secret string) (*SessionVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	return &SessionVerifier{secret: []byte(secret)}, nil
}

// Verify returns the session carried by the token. Every failure matches
// domain.ErrUnauthenticated.
func (v *SessionVerifier) Verify(tokenString string) (domain.Session, error) {
	if tokenString == "" {
		return domain.Session{}, fmt.Errorf("%w: no session token", domain.ErrUnauthenticated)
	}

	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Session{}, fmt.Errorf("%w: session expired", domain.ErrUnauthenticated)
		}

		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	if !token.Valid {
		return domain.Session{}, fmt.Errorf("%w: invalid session token", domain.ErrUnauthenticated)
	}

	if claims.Subject == "" {
		return domain.Session{}, fmt.Errorf("%w: session has no subject", domain.ErrUnauthenticated)
	}

	sessionID := claims.SessionID
	if sessionID == "" {
		sessionID = claims.ID
	}

	if sessionID == "" {
		return domain.Session{}, fmt.Errorf("%w: session has no id", domain.ErrUnauthenticated)
	}

	return domain.Session{
		ID:       sessionID,
		Username: claims.Subject,
		Email:    claims.Email,
	}, nil
}
