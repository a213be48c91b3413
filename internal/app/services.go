package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/lookbook-backend/internal/jobs"
	"github.com/yungbote/lookbook-backend/internal/jobs/pipeline/analytics_rebuild"
	"github.com/yungbote/lookbook-backend/internal/jobs/pipeline/catalog_import"
	"github.com/yungbote/lookbook-backend/internal/jobs/pipeline/index_rebuild"
	"github.com/yungbote/lookbook-backend/internal/jobs/pipeline/profile_rebuild"
	jobruntime "github.com/yungbote/lookbook-backend/internal/jobs/runtime"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
	"github.com/yungbote/lookbook-backend/internal/services"
)

type Services struct {
	Interaction    services.InteractionService
	StyleProfile   services.StyleProfileService
	Recommendation services.RecommendationService
	VisualSearch   services.VisualSearchService
	Catalog        services.CatalogService

	JobWorker    *jobs.Worker
	JobScheduler *jobs.Scheduler
}

func wireServices(db *gorm.DB, log *logger.Logger, clients Clients, r Repos) (Services, error) {
	log.Info("Wiring services...")

	weights, err := services.LoadRankingWeights()
	if err != nil {
		return Services{}, err
	}

	interaction := services.NewInteractionService(db, log, r.Interaction, r.ProductAnalytics, clients.Counters)
	styleProfile := services.NewStyleProfileService(db, log, r.Interaction, r.StyleProfile)
	recommendation := services.NewRecommendationService(db, log, r.Interaction, r.StyleProfile, r.ProductAnalytics, r.Product, clients.Index, clients.Counters, weights)
	visualSearch := services.NewVisualSearchService(db, log, clients.Encoder, clients.Index, clients.Segmenter, r.Product, weights.Visual)
	catalog := services.NewCatalogService(db, log, r.Product, r.ProductAnalytics, clients.Encoder, clients.Index, clients.Retailer, clients.Bucket)

	registry := jobruntime.NewRegistry()
	pipelines := []jobruntime.Handler{
		profile_rebuild.New(db, log, r.Interaction, styleProfile),
		analytics_rebuild.New(db, log, r.Interaction, r.ProductAnalytics),
		index_rebuild.New(db, log, r.Product, clients.Encoder, clients.Index, clients.Bucket, clients.Retailer),
		catalog_import.New(db, log, catalog),
	}
	for _, p := range pipelines {
		if err := registry.Register(p); err != nil {
			return Services{}, err
		}
	}

	return Services{
		Interaction:    interaction,
		StyleProfile:   styleProfile,
		Recommendation: recommendation,
		VisualSearch:   visualSearch,
		Catalog:        catalog,
		JobWorker:      jobs.NewWorker(db, log, r.JobRun, registry),
		JobScheduler:   jobs.NewScheduler(db, log, r.JobRun),
	}, nil
}
