package middlewares

import (
	"fmt"
	"strings"

	"github.com/micuatri/calendarlink/internal/auth"
	"github.com/micuatri/calendarlink/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

const (
	// SessionHeader carries the session cookie value for clients that cannot
	// send cookies cross-origin.
	SessionHeader = "X-Session-Cookie"
	SessionCookie = "bb_session"

	sessionLocalsKey = "calendarlink.session"
)

func SessionMiddleware(verifier *auth.SessionVerifier) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := sessionToken(c)

		session, err := verifier.Verify(token)
		if err != nil {
			log.Debug().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("Session verification failed")

			return err
		}

		c.Locals(sessionLocalsKey, session)

		return c.Next()
	}
}

// SessionFromContext returns the session resolved by SessionMiddleware.
func SessionFromContext(c fiber.Ctx) (domain.Session, error) {
	session, ok := c.Locals(sessionLocalsKey).(domain.Session)
	if !ok || session.Username == "" {
		return domain.Session{}, fmt.Errorf("%w: no session on request", domain.ErrUnauthenticated)
	}

	return session, nil
}

func sessionToken(c fiber.Ctx) string {
	if header := strings.TrimSpace(c.Get(SessionHeader)); header != "" {
		header = strings.TrimPrefix(header, "Bearer ")
		header = strings.TrimPrefix(header, SessionCookie+"=")

		return strings.TrimSpace(header)
	}

	return c.Cookies(SessionCookie)
}
