package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	apperrors "ordermgr/internal/errors"
	"ordermgr/internal/metrics"
)

// Limiter builds per-route middleware over a shared Store.
type Limiter struct {
	store   Store
	enabled bool
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewLimiter creates a Limiter. A disabled limiter lets every request through.
func NewLimiter(store Store, enabled bool, log zerolog.Logger, m *metrics.Metrics) *Limiter {
	return &Limiter{
		store:   store,
		enabled: enabled,
		log:     log,
		metrics: m,
	}
}

// Limit returns middleware enforcing expr ("5 per minute") per endpoint and client IP.
// Routes that share a handler share the endpoint name and therefore one budget.
func (l *Limiter) Limit(endpoint, expr string) echo.MiddlewareFunc {
	limit := MustParse(expr)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.enabled {
				return next(c)
			}

			key := endpoint + "|" + c.RealIP()

			res, err := l.store.Take(c.Request().Context(), key, limit)
			if err != nil {
				// fail open: an unavailable counter store must not take the site down
				l.log.Error().Err(err).Str("endpoint", endpoint).Msg("rate limit store unavailable")
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Count))
			if !res.Allowed {
				l.metrics.RateLimited(endpoint)
				l.log.Warn().
					Str("endpoint", endpoint).
					Str("ip", c.RealIP()).
					Str("limit", expr).
					Msg("rate limit exceeded")

				retry := int(math.Ceil(res.RetryAfter.Seconds()))
				if retry < 1 {
					retry = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retry))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return c.JSON(http.StatusTooManyRequests, apperrors.ErrorResponse{
					Error: apperrors.MsgRateLimited,
					Code:  "RATE_LIMITED",
				})
			}

			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			return next(c)
		}
	}
}
