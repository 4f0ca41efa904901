// Package api wires the HTTP surface: middleware, health probes and the
// import endpoints.
package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"recipe-importer/internal/api/handlers/health"
	"recipe-importer/internal/api/handlers/importer"
	"recipe-importer/internal/api/middleware"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/infrastructure/queue"
	"recipe-importer/internal/pkg/common"
)

// Body size ceiling (16MB): image imports carry base64 payloads.
const maxBodySize = 16 << 20

// SetupRouter builds the gin engine with all routes and middleware.
func SetupRouter(cfg *config.Config, redisClient *redis.Client, q *queue.Queue) *gin.Engine {
	common.LogInfo("starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))

	router.GET("/health", health.HealthCheck)
	router.GET("/live", health.LivenessCheck)
	router.GET("/ready", health.ReadinessCheck(redisClient))

	importHandler := importer.NewHandler(cfg, q)

	api := router.Group("/api/v1")
	{
		importGroup := api.Group("/import")
		{
			if cfg.RateLimit.Enabled {
				importGroup.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
			}
			importGroup.POST("", importHandler.HandleEnqueue)
			importGroup.GET("/:id", importHandler.HandleStatus)
		}
	}

	common.LogInfo("router setup completed",
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router
}
