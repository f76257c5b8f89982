package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/eventgraph-go/internal/config"
	"github.com/jengzang/eventgraph-go/internal/handler"
	"github.com/jengzang/eventgraph-go/internal/logging"
	"github.com/jengzang/eventgraph-go/internal/metrics"
	"github.com/jengzang/eventgraph-go/internal/middleware"
	"github.com/jengzang/eventgraph-go/internal/service"
)

// SetupRouter 设置路由
// limiter may be nil to disable rate limiting.
func SetupRouter(cfg *config.Config, svc *service.DatasetService, limiter *middleware.RateLimiter, logger logging.Logger) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	metrics.Init()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(logger))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "eventgraph API is running",
		})
	})
	r.GET("/metrics", metrics.Handler())

	datasetHandler := handler.NewDatasetHandler(svc)
	staticHandler := handler.NewStaticFeatureHandler(svc)

	// API 路由组
	api := r.Group("/api/v1")
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	if cfg.Auth.Enabled {
		api.Use(middleware.Auth(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
	}
	{
		datasets := api.Group("/datasets")
		{
			datasets.POST("", datasetHandler.CreateDataset)
			datasets.GET("", datasetHandler.ListDatasets)
			datasets.GET("/:id", datasetHandler.GetDataset)
			datasets.GET("/:id/flat", datasetHandler.GetFlatDataset)
			datasets.GET("/:id/summary", datasetHandler.GetDatasetSummary)
			datasets.DELETE("/:id", datasetHandler.DeleteDataset)
		}

		static := api.Group("/static-features")
		{
			static.PUT("/:key", staticHandler.PutStaticFeatures)
			static.GET("/:key", staticHandler.GetStaticFeatures)
			static.DELETE("/:key", staticHandler.DeleteStaticFeatures)
		}
	}

	return r
}
