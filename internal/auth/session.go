package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "session"
	// DefaultSessionTTL applies when no TTL is configured.
	DefaultSessionTTL = 14 * 24 * time.Hour
)

// ErrInvalidSession is returned for tokens that fail signature or claim checks.
var ErrInvalidSession = errors.New("invalid session")

// Claims is the payload of a session token.
type Claims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

// SessionService signs and validates session tokens carried in the session cookie.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewSessionService creates a session service. secure marks the cookie HTTPS-only.
func NewSessionService(secret string, ttl time.Duration, secure bool) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
	}
}

// Secret returns the HMAC key, for middleware that parses tokens itself.
func (s *SessionService) Secret() []byte {
	return s.secret
}

// TTL returns how long an issued session stays valid.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed token for userID with a fresh session id.
func (s *SessionService) Issue(userID uint) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Parse validates a token and returns its claims.
func (s *SessionService) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// SetCookie writes the session cookie.
func (s *SessionService) SetCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (s *SessionService) ClearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Remaining returns the time left before claims expire.
func Remaining(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	return time.Until(claims.ExpiresAt.Time)
}
