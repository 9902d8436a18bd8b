package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/unrolled/secure"

	_ "github.com/blogify/blog-api/docs"
	"github.com/blogify/blog-api/internal/api/handler"
	"github.com/blogify/blog-api/internal/api/middleware"
	"github.com/blogify/blog-api/internal/core/domain"
	"github.com/blogify/blog-api/internal/core/ports"
	"github.com/blogify/blog-api/internal/infrastructure/http/handlers"
	"github.com/blogify/blog-api/internal/pkg/config"
	"github.com/blogify/blog-api/internal/pkg/metrics"
)

const bodyLimit = "1M"

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Tokens    middleware.AccessTokenParser
	Gate      *middleware.Gate
	Limiter   middleware.Limiter
	Auth      ports.AuthService
	Accounts  ports.AccountService
	Posts     ports.PostService
	Events    handler.Subscriber
	Readiness *handlers.ReadinessHandler
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	cfg := d.Config

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echo.WrapMiddleware(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		IsDevelopment:      cfg.IsDevelopment(),
	}).Handler))
	if cfg.RateLimit.GlobalPerMinute > 0 {
		e.Use(echo.WrapMiddleware(globalThrottle(cfg.RateLimit.GlobalPerMinute)))
	}
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem: "blog_http",
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/metrics" || strings.HasPrefix(p, "/swagger") || p == "/api/ws" || p == "/api/events"
		},
	}))

	// --- Operational endpoints (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", d.Readiness.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Accounts)
	postHandler := handler.NewPostHandler(d.Posts)
	eventsHandler := handler.NewEventsHandler(d.Events, cfg.AllowedOrigins(), d.Logger)

	bearer := middleware.Auth(d.Tokens)
	rl := cfg.RateLimit
	log := d.Logger.With().Str("component", "rate_limit").Logger()

	api := e.Group("/api")

	// --- Auth routes ---
	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup, middleware.RateLimit(d.Limiter, "signup", rl.SignupLimit, rl.SignupWindow, log))
	auth.POST("/login", authHandler.Login, middleware.RateLimit(d.Limiter, "login", rl.LoginLimit, rl.LoginWindow, log))
	auth.POST("/refresh-token", authHandler.RefreshToken)
	auth.GET("/verify-email/:token", authHandler.VerifyEmail)
	auth.GET("/check-verification/:email", authHandler.CheckVerification)
	auth.GET("/profile", authHandler.Profile, bearer, d.Gate.RequireAccount())
	auth.POST("/logout", authHandler.Logout, bearer, d.Gate.RequireAccount())

	// --- User administration ---
	manageUsers := d.Gate.RequireOne(domain.PermManageUsers)
	auth.GET("/users", userHandler.List, bearer, manageUsers)
	auth.DELETE("/users/:id", userHandler.Delete, bearer, manageUsers)
	auth.PUT("/users/:id/verify", userHandler.Verify, bearer, manageUsers)
	auth.PUT("/users/:id/role", userHandler.ChangeRole, bearer, d.Gate.RequireOne(domain.PermManageRoles))

	// --- Posts ---
	posts := api.Group("/posts")
	posts.GET("", postHandler.List)
	posts.GET("/:id", postHandler.Get)
	posts.POST("", postHandler.Create, bearer, d.Gate.RequireOne(domain.PermCreatePost))
	posts.PUT("/:id", postHandler.Update, bearer, d.Gate.RequireOne(domain.PermEditPost))
	posts.DELETE("/:id", postHandler.Delete, bearer, d.Gate.RequireOne(domain.PermDeletePost))

	// --- Change feed ---
	api.GET("/ws", eventsHandler.WebSocket)
	api.GET("/events", eventsHandler.Stream)

	return e
}

// globalThrottle caps requests per client IP per minute across the whole API.
func globalThrottle(perMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RateLimitedTotal.WithLabelValues("global").Inc()
			w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSONCharsetUTF8)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests, please try again later"}` + "\n"))
		}),
	)
}
