package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"ordermgr/internal/auth"
	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/service"
)

const (
	// SessionContextKey is where the cookie parsing middleware stores *auth.Claims.
	SessionContextKey = "session_claims"

	userContextKey = "current_user"
)

// SessionMiddleware resolves the session cookie into the current user and guards routes.
type SessionMiddleware struct {
	auth     service.AuthService
	sessions *auth.SessionService
	log      zerolog.Logger
}

// NewSessionMiddleware creates the session middleware set.
func NewSessionMiddleware(authService service.AuthService, sessions *auth.SessionService, log zerolog.Logger) *SessionMiddleware {
	return &SessionMiddleware{auth: authService, sessions: sessions, log: log}
}

// LoadUser attaches the user behind a valid session to the context. Requests without
// a usable session continue anonymously.
func (m *SessionMiddleware) LoadUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get(SessionContextKey).(*auth.Claims)
		if !ok || claims == nil {
			return next(c)
		}

		user, err := m.auth.Authenticate(c.Request().Context(), claims)
		if err != nil {
			if errors.Is(err, apperrors.ErrUnauthorized) {
				m.sessions.ClearCookie(c)
			} else {
				m.log.Error().Err(err).Uint("user_id", claims.UserID).Msg("session lookup failed")
			}
			return next(c)
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// RequireLogin rejects anonymous requests: 401 JSON for API calls, a redirect to the
// login page otherwise. Use after LoadUser.
func (m *SessionMiddleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if CurrentUser(c) != nil {
			return next(c)
		}
		if wantsJSON(c) {
			return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
				Error: apperrors.MsgUnauthorized,
			})
		}
		AddFlash(c, FlashInfo, MsgLoginRequired)
		return c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request().URL.RequestURI()))
	}
}

// RequireAdmin lets only administrators through. Use after RequireLogin.
func (m *SessionMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user != nil && user.IsAdmin {
			return next(c)
		}
		m.log.Warn().Str("path", c.Path()).Msg("non-admin access to admin route")
		AddFlash(c, FlashError, MsgAdminRequired)
		return c.Redirect(http.StatusFound, "/")
	}
}

// Claims returns the parsed session of the request, if any.
func Claims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(SessionContextKey).(*auth.Claims)
	return claims
}
