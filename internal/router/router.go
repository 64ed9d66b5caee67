package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"converge/internal/handler"
	"converge/internal/middleware"
	"converge/internal/service"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Timer    *handler.TimerHandler
	Settings *handler.SettingsHandler
	Stats    *handler.StatsHandler
}

func New(
	authService *service.AuthService,
	handlers Handlers,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/token", handlers.Auth.IssueToken)

	protected := api.Group("")
	protected.Use(middleware.Auth(authService))

	timer := protected.Group("/timer")
	timer.GET("/state", handlers.Timer.GetState)
	timer.GET("/snapshot", handlers.Timer.GetSnapshot)
	timer.GET("/events", handlers.Timer.Events)
	timer.POST("/start", handlers.Timer.Start)
	timer.POST("/pause", handlers.Timer.Pause)
	timer.POST("/reset", handlers.Timer.Reset)
	timer.POST("/next", handlers.Timer.Next)

	settings := protected.Group("/settings")
	settings.GET("", handlers.Settings.Get)
	settings.PUT("", handlers.Settings.Update)
	settings.POST("/reset", handlers.Settings.Reset)

	stats := protected.Group("/stats")
	stats.GET("/summary", handlers.Stats.Summary)
	stats.GET("/history", handlers.Stats.History)
	stats.GET("/chart", handlers.Stats.Chart)
	stats.DELETE("/sessions", handlers.Stats.ClearSessions)

	return engine
}
