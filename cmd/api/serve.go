package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"logmene/internal/api"
	"logmene/internal/config"
	"logmene/internal/database"
	"logmene/internal/modules/freight"
	"logmene/internal/modules/notification"
	"logmene/internal/modules/user"
	"logmene/pkg/email"
	"logmene/pkg/events"
	"logmene/pkg/logger"
	"logmene/pkg/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on startup")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	// --- Database ---
	if !skipMigrations {
		if err := database.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
	}
	dbPool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	logger.Info("connected to the database")

	// --- Infrastructure ---
	rdb := newRedisClient(ctx, cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.AMQPURL != "" {
		publisher = events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	}
	defer publisher.Close()

	mailer, err := newMailer(ctx, cfg)
	if err != nil {
		return err
	}
	templates, err := email.NewTemplateManager()
	if err != nil {
		return err
	}

	// --- Dependency Injection ---
	userRepo := user.NewRepository(dbPool)
	userService := user.NewService(userRepo, mailer, templates, cfg.JWTSecret, cfg.ClientOrigin, newGoogleOAuthConfig(cfg))
	userHandler := user.NewHandler(userService)

	hub := notification.NewHub()
	notificationRepo := notification.NewRepository(dbPool)
	notificationService := notification.NewService(notificationRepo, userRepo, hub, publisher, mailer, templates, cfg.ClientOrigin)
	notificationHandler := notification.NewHandler(notificationService, hub, cfg.ClientOrigin)

	freightRepo := freight.NewRepository(dbPool)
	freightService := freight.NewService(freightRepo, notificationService)
	freightHandler := freight.NewHandler(freightService)

	// --- HTTP ---
	e := echo.New()
	e.HideBanner = true
	e.Validator = utils.GetValidator()
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(requestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.SetupRoutes(e, cfg, api.Handlers{
		User:         userHandler,
		Freight:      freightHandler,
		Notification: notificationHandler,
	}, dbPool, rdb)

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped unexpectedly", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hub.Close()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	notificationService.Wait()
	userService.Wait()
	logger.Info("server exiting")
	return nil
}

// newRedisClient returns nil when Redis is not configured; the rate limiter then passes through.
func newRedisClient(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, rate limiting disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, rate limiter will fail open", "addr", cfg.RedisAddr, "error", err)
	}
	return rdb
}

func newMailer(ctx context.Context, cfg *config.Config) (email.ServiceInterface, error) {
	if !cfg.EmailEnabled {
		logger.Info("EMAIL_ENABLED is false, emails are logged only")
		return email.LogSender{}, nil
	}
	return email.NewSESV2Sender(ctx, cfg.AWSRegion, cfg.EmailFrom)
}

func newGoogleOAuthConfig(cfg *config.Config) *oauth2.Config {
	if !cfg.GoogleLoginEnabled() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			kv := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
				"remote_ip", v.RemoteIP,
			}
			if userID, ok := c.Get("userID").(string); ok {
				kv = append(kv, "user_id", userID)
			}
			if v.Error != nil {
				logger.Error("request failed", append(kv, "error", v.Error)...)
				return nil
			}
			logger.Info("request", kv...)
			return nil
		},
	})
}
