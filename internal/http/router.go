package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/lookbook-backend/internal/http/handlers"
	httpMW "github.com/yungbote/lookbook-backend/internal/http/middleware"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware

	InteractionHandler    *httpH.InteractionHandler
	ProfileHandler        *httpH.ProfileHandler
	RecommendationHandler *httpH.RecommendationHandler
	SearchHandler         *httpH.SearchHandler
	CatalogHandler        *httpH.CatalogHandler
	JobHandler            *httpH.JobHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.CORS())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Interactions
		if cfg.InteractionHandler != nil {
			protected.POST("/interactions", cfg.InteractionHandler.Record)
			protected.GET("/interactions", cfg.InteractionHandler.List)
		}

		// Style profile
		if cfg.ProfileHandler != nil {
			protected.GET("/profile", cfg.ProfileHandler.Get)
			protected.POST("/profile/rebuild", cfg.ProfileHandler.Rebuild)
		}

		// Recommendations
		if cfg.RecommendationHandler != nil {
			protected.GET("/recommendations", cfg.RecommendationHandler.Recommend)
		}

		// Visual search
		if cfg.SearchHandler != nil {
			protected.POST("/search/image", cfg.SearchHandler.SearchByImage)
			protected.POST("/search/hybrid", cfg.SearchHandler.SearchHybrid)
			protected.POST("/search/look", cfg.SearchHandler.ShopTheLook)
		}

		// Catalog
		if cfg.CatalogHandler != nil {
			protected.POST("/catalog/products", cfg.CatalogHandler.Upsert)
			protected.GET("/catalog/products/:id", cfg.CatalogHandler.Get)
			protected.DELETE("/catalog/products/:id", cfg.CatalogHandler.Remove)
			protected.GET("/catalog/search", cfg.CatalogHandler.Search)
			protected.GET("/catalog/autocomplete", cfg.CatalogHandler.Autocomplete)
			protected.POST("/catalog/import", cfg.CatalogHandler.Import)
		}

		// Jobs
		if cfg.JobHandler != nil {
			protected.GET("/jobs/:id", cfg.JobHandler.Get)
			protected.POST("/jobs", cfg.JobHandler.Enqueue)
		}
	}

	return r
}
