package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/skupulse/internal/api/handlers"
	"github.com/irfndi/skupulse/internal/middleware"
	"github.com/irfndi/skupulse/internal/services"
)

// RouterConfig groups everything the HTTP layer depends on.
type RouterConfig struct {
	ServiceName  string
	Version      string
	Analytics    services.AnalyticsServiceInterface
	Digest       handlers.DigestSender
	Database     handlers.HealthChecker
	Redis        handlers.HealthChecker
	Auth         *middleware.AuthMiddleware
	Clock        handlers.Clock
	LookbackDays int
	Logger       *logrus.Logger
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(cfg.Logger))

	SetupRoutes(router, cfg)
	return router
}

func SetupRoutes(router *gin.Engine, cfg RouterConfig) {
	health := handlers.NewHealthHandler(cfg.Database, cfg.Redis, cfg.Version)
	signals := handlers.NewSignalHandler(cfg.Analytics, cfg.Clock, cfg.Logger)
	hourly := handlers.NewHourlyHandler(cfg.Analytics, cfg.Clock, cfg.LookbackDays, cfg.Logger)
	digest := handlers.NewDigestHandler(cfg.Digest, cfg.Clock, cfg.Logger)
	references := handlers.NewReferenceHandler(cfg.Analytics, cfg.Logger)
	reportCache := handlers.NewCacheHandler(cfg.Analytics, cfg.Logger)

	// Health check endpoints
	router.GET("/health", health.HealthCheck)
	router.GET("/live", health.LivenessCheck)

	auth := cfg.Auth
	if auth == nil {
		auth = middleware.NewAuthMiddleware("")
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(auth.RequireAuth())
	{
		signalRoutes := v1.Group("/signals")
		{
			signalRoutes.GET("/clusters", signals.GetClusters)
			signalRoutes.GET("/skus", signals.GetSKUs)
			signalRoutes.POST("/classify", signals.Classify)
		}

		orders := v1.Group("/orders")
		{
			orders.GET("/hourly", hourly.GetHourly)
			orders.POST("/hourly/compare", hourly.Compare)
		}

		v1.POST("/digest/send", digest.SendDigest)
		v1.GET("/references", references.GetSummary)
		v1.GET("/references/:nmId", references.GetReference)
		v1.DELETE("/cache/reports", reportCache.InvalidateReports)
	}
}
