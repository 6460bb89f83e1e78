package router

import (
	"net/http"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"ordermgr/docs"
	"ordermgr/internal/auth"
	"ordermgr/internal/config"
	"ordermgr/internal/handler"
	"ordermgr/internal/metrics"
	"ordermgr/internal/ratelimit"
	"ordermgr/internal/validation"
)

// Per-route request ceilings.
const (
	limitLogin       = "5 per minute"
	limitRegister    = "3 per minute"
	limitReadOrders  = "60 per minute"
	limitWriteOrders = "30 per minute"
	limitDelete      = "20 per minute"
	limitProjects    = "60 per minute"
	limitProfit      = "60 per minute"
	limitUserDelete  = "5 per minute"
)

// Deps carries everything the routes need.
type Deps struct {
	Log      zerolog.Logger
	Metrics  *metrics.Metrics
	Limiter  *ratelimit.Limiter
	Sessions *auth.SessionService
	Renderer echo.Renderer

	Session *handler.SessionMiddleware
	Auth    *handler.AuthHandler
	Orders  *handler.OrderHandler
	Pages   *handler.PageHandler
	Users   *handler.UserHandler
	Admin   *handler.AdminHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, d Deps) {
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.Renderer = d.Renderer
	e.HTTPErrorHandler = handler.NewErrorHandler(d.Log, cfg.Debug)
	if cfg.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	e.Use(middleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(d.Metrics.Middleware())
	e.Use(middleware.Recover())
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))
	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper: func(c echo.Context) bool {
			return !cfg.CSRFEnabled || isInfraPath(c.Request().URL.Path)
		},
		TokenLookup:    "header:X-CSRF-Token,form:csrf_token",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
	}))
	e.Use(echojwt.WithConfig(echojwt.Config{
		Skipper: func(c echo.Context) bool {
			return isInfraPath(c.Request().URL.Path)
		},
		TokenLookup: "cookie:" + auth.CookieName,
		ContextKey:  handler.SessionContextKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return d.Sessions.Parse(token)
		},
		// a missing or stale cookie leaves the request anonymous
		ContinueOnIgnoredError: true,
		ErrorHandler: func(c echo.Context, err error) error {
			return nil
		},
	}))

	// the user is loaded per route, after the rate limit check
	load := d.Session.LoadUser
	login := d.Session.RequireLogin
	admin := d.Session.RequireAdmin
	limit := d.Limiter.Limit

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Pages. GET and POST of a form share one endpoint budget.
	loginLimit := limit("login", limitLogin)
	e.GET("/", d.Pages.Index, load)
	e.GET("/login", d.Auth.ShowLogin, loginLimit, load)
	e.POST("/login", d.Auth.Login, loginLimit, load)
	if cfg.RegistrationEnabled {
		registerLimit := limit("register", limitRegister)
		e.GET("/register", d.Auth.ShowRegister, registerLimit, load)
		e.POST("/register", d.Auth.Register, registerLimit, load)
	}
	e.GET("/logout", d.Auth.Logout, load, login)
	e.GET("/orders", d.Pages.Orders, load, login)
	e.GET("/profit-analysis", d.Pages.ProfitAnalysis, load, login)

	// JSON API; the rate limit is checked before authentication
	api := e.Group("/api")
	api.GET("/orders", d.Orders.ListOrders, limit("list_orders", limitReadOrders), load, login)
	api.GET("/orders/:id", d.Orders.GetOrder, limit("get_order", limitReadOrders), load, login)
	api.POST("/orders", d.Orders.CreateOrder, limit("create_order", limitWriteOrders), load, login)
	api.PUT("/orders/:id", d.Orders.UpdateOrder, limit("update_order", limitWriteOrders), load, login)
	api.DELETE("/orders/:id", d.Orders.DeleteOrder, limit("delete_order", limitDelete), load, login)
	api.GET("/projects", d.Orders.ListProjects, limit("list_projects", limitProjects), load, login)
	api.GET("/profit-data", d.Orders.ProfitData, limit("profit_data", limitProfit), load, login)

	e.POST("/user/delete", d.Users.DeleteUser, limit("delete_user", limitUserDelete), load, login)

	// Administration
	adm := e.Group("/admin", load, login, admin)
	adm.GET("/users", d.Admin.ListUsers)
	adm.GET("/users/create", d.Admin.ShowCreateUser)
	adm.POST("/users/create", d.Admin.CreateUser)
	adm.POST("/users/:id/delete", d.Admin.DeleteUser)
	adm.POST("/users/:id/toggle-admin", d.Admin.ToggleAdmin)
}

func isInfraPath(path string) bool {
	return path == "/healthz" || path == "/metrics" || strings.HasPrefix(path, "/swagger/")
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
