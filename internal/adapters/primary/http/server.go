package server

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/admin/ai-studio/internal/adapters/primary/http/middlewares"
	"github.com/admin/ai-studio/internal/adapters/primary/http/response"
	"github.com/admin/ai-studio/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

type Config struct {
	Host                    string        `envconfig:"HOST"`
	Port                    string        `envconfig:"PORT" default:"8080"`
	WriteTimeout            time.Duration `envconfig:"WRITE_TIMEOUT" default:"120s"`
	ReadTimeout             time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	ReadHeaderTimeout       time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"3s"`
	IdleTimeout             time.Duration `envconfig:"IDLE_TIMEOUT" default:"15s"`
	EnableLoggingMiddleware bool          `envconfig:"ENABLE_LOGGING_MIDDLEWARE" default:"false"`
	// WebhookSecret общий секрет вебхуков генерации и алертов (заголовок X-Webhook-Secret)
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	// RateLimit запросов в секунду на пользователя для генерации, 0 отключает лимит
	RateLimit float64 `envconfig:"RATE_LIMIT" default:"1"`
	RateBurst int     `envconfig:"RATE_BURST" default:"5"`
	// TrustedProxies CIDR балансировщиков, от которых принимается X-Forwarded-For
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

type Controller interface {
	RegisterRoutes(router *gin.Engine)
}

// NewRouter gin с общими middleware, без маршрутов контроллеров.
// RequestLogger стоит снаружи recovery, чтобы паника попала в лог с request_id и статусом 500.
func NewRouter(cfg *Config, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, trusting none", "error", err)
		_ = router.SetTrustedProxies(nil)
	}

	if cfg.EnableLoggingMiddleware {
		router.Use(middlewares.RequestLogger(logger))
	}
	router.Use(middlewares.RecoveryLogger(logger))
	router.Use(metrics.Middleware())

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": response.MsgNotFound})
	})
	return router
}

func NewHTTPServer(
	cfg *Config,
	logger *slog.Logger,
	controllers ...Controller,
) *http.Server {
	router := NewRouter(cfg, logger)

	// Регистрируем маршруты всех контроллеров
	for _, controller := range controllers {
		controller.RegisterRoutes(router)
	}

	return &http.Server{
		Handler:           router,
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
