package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"                   // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware" // echo's stock middleware
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/task-manager-api/internal/config"
	"github.com/iliyamo/task-manager-api/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/task-manager-api/internal/middleware" // import middleware for JWT authentication, rate limits and caching
	"github.com/iliyamo/task-manager-api/internal/validation"
)

// Deps carries everything the HTTP surface needs.  Redis may be nil, in
// which case rate limiting and caching are skipped.
type Deps struct {
	Cfg       config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
	Verifier  middleware.AccessVerifier
	Auth      *handler.AuthHandler
	Tasks     *handler.TaskHandler
}

// New builds an Echo instance with the global middleware chain, the JSON
// error envelope and every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{d.Cfg.FrontendURL},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit(d.Cfg.BodyLimit))
	e.Use(middleware.Tracing(d.Cfg.ServiceName))
	e.Use(requestLogger())

	RegisterRoutes(e)
	api := e.Group("/api", middleware.NewTokenBucket(d.RateLimit, d.Redis))
	RegisterAuth(api, d.Auth, d.Verifier)
	RegisterTasks(api, d.Tasks, d.Verifier, d.Cache, d.Redis)
	return e
}

// requestLogger writes one line per request through echo's logger.
func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				c.Logger().Errorf("%s %s %d %s ip=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP, v.Error)
				return nil
			}
			c.Logger().Infof("%s %s %d %s ip=%s", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP)
			return nil
		},
	})
}

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the health checks.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring probe /healthz; / answers with JSON.
	e.GET("/healthz", handler.Health)
	e.GET("/", handler.Root)
}

// RegisterAuth registers the authentication routes under /auth.  Register,
// login and refresh are public; the profile endpoints require an access
// token.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, verifier middleware.AccessVerifier) {
	g := api.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh issues a new access token without rotating the refresh token.
	g.POST("/refresh", a.Refresh)

	jwt := middleware.JWTAuth(verifier)
	g.GET("/me", a.Me, jwt)
	g.GET("", a.Me, jwt)
}

// RegisterTasks registers the owner-scoped task routes.  Every route runs
// behind JWTAuth; reads are cached per user and writes invalidate that
// user's cache.
func RegisterTasks(api *echo.Group, t *handler.TaskHandler, verifier middleware.AccessVerifier, cache config.CacheConfig, rdb *redis.Client) {
	g := api.Group("/tasks",
		middleware.JWTAuth(verifier),
		middleware.InvalidateOnWrite(cache, rdb),
	)
	read := middleware.NewRedisCache(cache, rdb)

	g.GET("", t.List, read)
	g.GET("/stats", t.Stats, read)
	g.GET("/:id", t.Get, read)
	g.POST("", t.Create)
	g.PUT("/:id", t.Update)
	g.DELETE("/:id", t.Delete)
}
