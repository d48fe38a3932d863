package api

import (
	"context"
	"net/http"
	"time"

	"logmene/internal/api/middleware"
	"logmene/internal/config"
	"logmene/internal/metrics"
	"logmene/internal/models"
	"logmene/internal/modules/freight"
	"logmene/internal/modules/notification"
	"logmene/internal/modules/user"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups the module handlers mounted by SetupRoutes.
type Handlers struct {
	User         *user.Handler
	Freight      *freight.Handler
	Notification *notification.Handler
}

// SetupRoutes sets up all the API endpoints for the application.
// rdb may be nil, in which case rate limiting is skipped.
func SetupRoutes(e *echo.Echo, cfg *config.Config, h Handlers, db Pinger, rdb *redis.Client) {
	authMiddleware := middleware.JWTMAuth(cfg.JWTSecret)
	rateLimit := middleware.NewTokenBucket(cfg.RateLimit, rdb)
	clientOnly := middleware.RequireRole(models.RoleClient)
	companyOnly := middleware.RequireRole(models.RoleCompany)

	if cfg.MetricsEnabled {
		e.Use(metrics.Middleware())
		e.GET("/metrics", metrics.Handler())
	}

	// --- Public Routes ---
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Welcome to LogMene!"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	authGroup := e.Group("/auth", rateLimit)
	{
		authGroup.POST("/signup", h.User.Signup)
		authGroup.POST("/login", h.User.Login)
		authGroup.POST("/password/forgot", h.User.RequestPasswordReset)
		authGroup.POST("/password/reset", h.User.ResetPassword)
		authGroup.GET("/google/login", h.User.GoogleLogin)
		authGroup.GET("/google/callback", h.User.GoogleCallback)
	}

	// --- Authenticated Routes ---
	profileGroup := e.Group("/profile", authMiddleware, rateLimit)
	{
		profileGroup.GET("", h.User.GetProfile)
		profileGroup.PUT("", h.User.UpdateProfile)
	}

	requestGroup := e.Group("/requests", authMiddleware, rateLimit)
	{
		requestGroup.POST("", h.Freight.CreateRequest, clientOnly)
		requestGroup.GET("", h.Freight.ListRequests)
		requestGroup.GET("/stats", h.Freight.GetStats)
		requestGroup.GET("/:id", h.Freight.GetRequest)
		requestGroup.PUT("/:id", h.Freight.EditRequest, clientOnly)
		requestGroup.DELETE("/:id", h.Freight.DeleteRequest, clientOnly)

		requestGroup.POST("/:id/quote", h.Freight.CreateQuote, companyOnly)
		requestGroup.GET("/:id/quote", h.Freight.GetQuote)
		requestGroup.POST("/:id/respond", h.Freight.RespondToQuote, clientOnly)

		requestGroup.POST("/:id/proof", h.Freight.UploadDeliveryProof, companyOnly)
		requestGroup.GET("/:id/proof", h.Freight.GetDeliveryProof)
		requestGroup.POST("/:id/complete", h.Freight.CompleteRequest, companyOnly)
	}

	quoteGroup := e.Group("/quotes", authMiddleware, rateLimit, companyOnly)
	{
		quoteGroup.PUT("/:id", h.Freight.UpdateQuote)
		quoteGroup.DELETE("/:id", h.Freight.DeleteQuote)
	}

	notificationGroup := e.Group("/notifications", authMiddleware, rateLimit)
	{
		notificationGroup.GET("", h.Notification.List)
		notificationGroup.GET("/unread-count", h.Notification.UnreadCount)
		notificationGroup.PATCH("/read-all", h.Notification.MarkAllRead)
		notificationGroup.PATCH("/:id/read", h.Notification.MarkRead)
	}

	// Browsers cannot set headers on websocket upgrades, so the token may come as ?token=.
	e.GET("/ws/notifications", h.Notification.Stream, authMiddleware)
}
