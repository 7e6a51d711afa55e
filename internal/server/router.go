package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/todo-web/internal/config"
	"github.com/yukikurage/todo-web/internal/constants"
	"github.com/yukikurage/todo-web/internal/handlers"
	"github.com/yukikurage/todo-web/internal/logging"
	"github.com/yukikurage/todo-web/internal/middleware"
	"github.com/yukikurage/todo-web/internal/services"
	"github.com/yukikurage/todo-web/internal/web"
	"gorm.io/gorm"
)

// Deps bundles what the router needs.
type Deps struct {
	Logger       *log.Logger
	DB           *gorm.DB
	SessionStore sessions.Store
	AuthService  *services.AuthService
	TaskService  *services.TaskService

	// TrustedProxies may set the client IP through forwarding headers.
	// Nil trusts none, so the login limiter keys on the peer address.
	TrustedProxies []string
}

// NewSessionStore builds the cookie or Redis session store with the cookie
// options shared by both.
func NewSessionStore(cfg *config.Config, secret []byte) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case "", "cookie":
		store = cookie.NewStore(secret)
	case "redis":
		s, err := redisStore.NewStoreWithDB(
			10,
			"tcp",
			cfg.RedisAddr(),
			cfg.RedisPassword,
			strconv.Itoa(cfg.RedisDB),
			secret,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis session store: %w", err)
		}
		store = s
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// New builds the gin engine with middleware, templates and routes.
func New(deps Deps) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	if deps.Logger != nil {
		r.Use(logging.RequestLogger(deps.Logger))
	}
	r.SetHTMLTemplate(tmpl)

	authHandler := handlers.NewAuthHandler(deps.AuthService)
	taskHandler := handlers.NewTaskHandler(deps.TaskService)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	r.GET("/health", healthHandler.Health)

	app := r.Group("")
	app.Use(
		sessions.Sessions(constants.SessionCookieName, deps.SessionStore),
		middleware.LoadCurrentUser(deps.AuthService),
	)

	guest := app.Group("")
	guest.Use(middleware.RedirectIfAuthenticated())
	{
		guest.GET("/register", authHandler.RegisterForm)
		guest.POST("/register", authHandler.Register)
		guest.GET("/login", authHandler.LoginForm)
		guest.POST("/login", authHandler.Login)
	}
	app.GET("/logout", authHandler.Logout)

	tasks := app.Group("")
	tasks.Use(middleware.RequireAuth())
	{
		silent := middleware.RequireTaskAccess(deps.TaskService, handlers.RedirectTo(middleware.IndexPath))
		notFound := middleware.RequireTaskAccess(deps.TaskService, handlers.TaskNotFound)

		tasks.GET("/", taskHandler.Index)
		tasks.POST("/add", taskHandler.Add)
		tasks.GET("/complete/:id", silent, taskHandler.Complete)
		tasks.GET("/delete/:id", silent, taskHandler.Delete)
		tasks.GET("/edit/:id", notFound, taskHandler.EditForm)
		tasks.POST("/edit/:id", notFound, taskHandler.Edit)
		tasks.POST("/suggest", taskHandler.Suggest)
	}

	r.NoRoute(handlers.NotFound)

	return r, nil
}
