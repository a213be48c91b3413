package app

import (
	httpH "github.com/yungbote/lookbook-backend/internal/http/handlers"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

type Handlers struct {
	Interaction    *httpH.InteractionHandler
	Profile        *httpH.ProfileHandler
	Recommendation *httpH.RecommendationHandler
	Search         *httpH.SearchHandler
	Catalog        *httpH.CatalogHandler
	Job            *httpH.JobHandler
	Health         *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, s Services, r Repos) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Interaction:    httpH.NewInteractionHandler(s.Interaction),
		Profile:        httpH.NewProfileHandler(s.StyleProfile),
		Recommendation: httpH.NewRecommendationHandler(s.Recommendation),
		Search:         httpH.NewSearchHandler(s.VisualSearch),
		Catalog:        httpH.NewCatalogHandler(s.Catalog, s.JobScheduler),
		Job:            httpH.NewJobHandler(r.JobRun, s.JobScheduler),
		Health:         httpH.NewHealthHandler(),
	}
}
