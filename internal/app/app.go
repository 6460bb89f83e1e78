package app

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"ordermgr/internal/auth"
	"ordermgr/internal/cache"
	"ordermgr/internal/config"
	"ordermgr/internal/handler"
	"ordermgr/internal/metrics"
	"ordermgr/internal/ratelimit"
	"ordermgr/internal/repository"
	"ordermgr/internal/router"
	"ordermgr/internal/service"
	"ordermgr/internal/view"
)

// App is the assembled web application.
type App struct {
	Echo    *echo.Echo
	Metrics *metrics.Metrics
	Users   service.UserService
	Orders  service.OrderService
}

// New wires repositories, services, handlers and routes over an open database.
// cacheClient may be nil; session revocation and user caching are then disabled.
func New(cfg *config.Config, log zerolog.Logger, gormDB *gorm.DB, cacheClient *cache.Client) (*App, error) {
	renderer, err := view.New()
	if err != nil {
		return nil, err
	}
	m := metrics.New()

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	orderRepo := repository.NewOrderRepository(gormDB)

	// Initialize auth components
	sessions := auth.NewSessionService(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	userService := service.NewUserService(userRepo, cacheClient)
	authService := service.NewAuthService(userRepo, userService, sessions, tokenStore)
	orderService := service.NewOrderService(orderRepo)

	limiter := ratelimit.NewLimiter(rateLimitStore(cfg, log, cacheClient), cfg.RateLimitEnabled, log, m)

	e := echo.New()
	router.Register(e, cfg, router.Deps{
		Log:      log,
		Metrics:  m,
		Limiter:  limiter,
		Sessions: sessions,
		Renderer: renderer,
		Session:  handler.NewSessionMiddleware(authService, sessions, log),
		Auth:     handler.NewAuthHandler(authService, sessions, m, log, cfg.RegistrationEnabled),
		Orders:   handler.NewOrderHandler(orderService, log),
		Pages:    handler.NewPageHandler(orderService),
		Users:    handler.NewUserHandler(userService, authService, sessions, log),
		Admin:    handler.NewAdminHandler(userService, log),
	})

	return &App{
		Echo:    e,
		Metrics: m,
		Users:   userService,
		Orders:  orderService,
	}, nil
}

func rateLimitStore(cfg *config.Config, log zerolog.Logger, cacheClient *cache.Client) ratelimit.Store {
	if cfg.RateLimitStorage == "redis" {
		if cacheClient != nil {
			return ratelimit.NewRedisStore(cacheClient)
		}
		log.Warn().Msg("RATELIMIT_STORAGE=redis without a redis client, using in-process limiter")
	}
	return ratelimit.NewMemoryStore()
}
