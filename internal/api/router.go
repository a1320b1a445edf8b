package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/app"
	iauth "github.com/charlesng35/authcore/internal/auth"
	"github.com/charlesng35/authcore/internal/handlers"
	"github.com/charlesng35/authcore/internal/middleware"
	"github.com/charlesng35/authcore/internal/monitoring"
	"github.com/charlesng35/authcore/internal/monitoring/checks"
	"github.com/charlesng35/authcore/internal/services"
)

// RouterOption customises NewRouter.
type RouterOption func(*routerOptions)

type routerOptions struct {
	health *monitoring.HealthManager
}

// WithHealthManager replaces the default readiness probes, which only ping the database.
func WithHealthManager(m *monitoring.HealthManager) RouterOption {
	return func(o *routerOptions) { o.health = m }
}

// NewRouter builds the Gin engine, wires middleware and registers the
// authentication and account routes.
func NewRouter(db *gorm.DB, codec *iauth.TokenCodec, accounts *services.AccountService, cfg *app.Config, opts ...RouterOption) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if codec == nil {
		return nil, fmt.Errorf("token codec must be provided")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	options := routerOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.health == nil {
		options.health = monitoring.NewHealthManager()
		options.health.RegisterReadiness(checks.Database(db, 0))
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins...))
	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, handlers.NewHealthHandler(options.health))

	authHandler, err := handlers.NewAuthHandler(accounts)
	if err != nil {
		return nil, err
	}
	accountHandler, err := handlers.NewAccountHandler(accounts)
	if err != nil {
		return nil, err
	}

	var cookieRoutes []gin.HandlerFunc
	if cfg.Server.CSRF.Enabled {
		cookieRoutes = append(cookieRoutes, middleware.CSRF(cfg.Auth.CookieConfig().Name))
	}

	registerAuthRoutes(r, authRouteDeps{
		Handler:    authHandler,
		CookieAuth: cookieRoutes,
	})
	registerAccountRoutes(r, accountRouteDeps{
		Handler:     accountHandler,
		RequireAuth: middleware.Auth(codec),
		CookieAuth:  cookieRoutes,
	})

	return r, nil
}
