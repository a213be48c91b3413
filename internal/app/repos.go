package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/lookbook-backend/internal/data/repos"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

type Repos struct {
	Interaction      repos.InteractionRepo
	StyleProfile     repos.StyleProfileRepo
	ProductAnalytics repos.ProductAnalyticsRepo
	Product          repos.ProductRepo
	JobRun           repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Interaction:      repos.NewInteractionRepo(db, log),
		StyleProfile:     repos.NewStyleProfileRepo(db, log),
		ProductAnalytics: repos.NewProductAnalyticsRepo(db, log),
		Product:          repos.NewProductRepo(db, log),
		JobRun:           repos.NewJobRunRepo(db, log),
	}
}
