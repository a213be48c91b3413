package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/lookbook-backend/internal/data/repos/catalog"
	"github.com/yungbote/lookbook-backend/internal/data/repos/engagement"
	"github.com/yungbote/lookbook-backend/internal/data/repos/jobs"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

type InteractionRepo = engagement.InteractionRepo
type StyleProfileRepo = engagement.StyleProfileRepo
type ProductAnalyticsRepo = engagement.ProductAnalyticsRepo

type ProductRepo = catalog.ProductRepo

type JobRunRepo = jobs.JobRunRepo

func NewInteractionRepo(db *gorm.DB, baseLog *logger.Logger) InteractionRepo {
	return engagement.NewInteractionRepo(db, baseLog)
}

func NewStyleProfileRepo(db *gorm.DB, baseLog *logger.Logger) StyleProfileRepo {
	return engagement.NewStyleProfileRepo(db, baseLog)
}

func NewProductAnalyticsRepo(db *gorm.DB, baseLog *logger.Logger) ProductAnalyticsRepo {
	return engagement.NewProductAnalyticsRepo(db, baseLog)
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return catalog.NewProductRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
