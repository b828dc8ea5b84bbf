package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/media"
	"github.com/cloud-wave-best-zizon/stock-tracker/pkg/middleware"
)

type RouterConfig struct {
	Products  *ProductHandler
	Analytics *AnalyticsHandler
	Auth      *AuthHandler
	Logger    *zap.Logger

	AuthSecret   string
	AuthRequired bool
	CORSOrigins  []string
	// MediaDir is served at media.ProductsPath when images are stored
	// locally.
	MediaDir string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	router.Use(middleware.Auth(cfg.AuthSecret, cfg.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	products := router.Group("/products")
	{
		products.GET("", cfg.Products.ListProducts)
		products.GET("/:id", cfg.Products.GetProduct)
		products.POST("", cfg.Products.CreateProduct)
		products.PUT("/:id", cfg.Products.UpdateProduct)
		products.DELETE("/:id", cfg.Products.DeleteProduct)
	}

	analytics := router.Group("/analytics")
	{
		analytics.GET("/stock-summary", cfg.Analytics.StockSummary)
		analytics.GET("/stock-by-product", cfg.Analytics.StockByProduct)
	}

	auth := router.Group("/auth")
	if cfg.AuthRequired {
		auth.Use(middleware.RequireUser())
	}
	auth.POST("/upsert", cfg.Auth.Upsert)

	if cfg.MediaDir != "" {
		router.Static(media.ProductsPath, cfg.MediaDir)
	}

	return router
}
