package app

import (
	apihttp "github.com/yungbote/lookbook-backend/internal/http"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, h Handlers, mw Middleware) *apihttp.Server {
	return apihttp.NewServer(apihttp.RouterConfig{
		Log:            log,
		AuthMiddleware: mw.Auth,

		InteractionHandler:    h.Interaction,
		ProfileHandler:        h.Profile,
		RecommendationHandler: h.Recommendation,
		SearchHandler:         h.Search,
		CatalogHandler:        h.Catalog,
		JobHandler:            h.Job,

		HealthHandler: h.Health,
	})
}
