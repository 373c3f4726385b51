package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/config"
	"github.com/stemsi/qbank-console/internal/handler"
	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/workspace"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Screen *handler.ScreenHandler
	Paper  *handler.PaperHandler
	WS     *handler.WSHandler
	System *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	sessions *workspace.Registry,
	handlers *Handlers,
	loginLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))

	router.GET("/health", handlers.System.Health)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/console/v1/auth")
	auth.Use(middleware.NoStore())
	{
		login := []gin.HandlerFunc{handlers.Auth.Login}
		if loginLimiter != nil {
			login = append([]gin.HandlerFunc{loginLimiter.Middleware()}, login...)
		}
		auth.POST("/login", login...)

		auth.POST("/logout", middleware.RequireSession(sessions), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireSession(sessions), handlers.Auth.Me)
	}

	// ─── 2. Console Group (Session) ────────────────────────────────────
	console := router.Group("/console/v1")
	console.Use(
		middleware.RequireSession(sessions),
		middleware.NoStore(),
		middleware.Brotli(),
	)
	{
		screens := console.Group("/screens/:screen")
		screens.GET("", handlers.Screen.View)
		screens.POST("/scope", handlers.Screen.ApplyScope)
		screens.POST("/page", handlers.Screen.SetPage)
		screens.POST("/edit/:id", handlers.Screen.Edit)
		screens.POST("/cancel", handlers.Screen.Cancel)
		screens.POST("/submit", handlers.Screen.Submit)
		screens.POST("/dismiss", handlers.Screen.DismissNotice)
		screens.DELETE("/items/:id", handlers.Screen.Delete)

		console.PATCH("/questions/:id/paper-status", handlers.Paper.TogglePaperStatus)

		console.GET("/papers/subjects/:id", handlers.Paper.SubjectPaper)
		console.GET("/papers/subjects/:id/download", handlers.Paper.DownloadSubjectPaper)
		console.POST("/papers/chapters/:id", handlers.Paper.GenerateChapterPaper)

		console.GET("/exports/questions.xlsx", handlers.Paper.ExportQuestions)
		console.POST("/imports", handlers.Paper.ImportBank)
	}

	// ─── 3. WebSocket Group (Session via ?token=) ──────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSSession(sessions))
	{
		ws.GET("/workspace", handlers.WS.WorkspaceStream)
	}

	return router
}
