package analytics_rebuild

import (
	"gorm.io/gorm"

	"github.com/yungbote/lookbook-backend/internal/data/repos"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

// Pipeline recomputes product counters from the full interaction log.
// Inline increments can drift when a batch is partially replayed; this
// rebuild makes the counters exact again.
type Pipeline struct {
	db           *gorm.DB
	log          *logger.Logger
	interactions repos.InteractionRepo
	analytics    repos.ProductAnalyticsRepo
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	interactions repos.InteractionRepo,
	analytics repos.ProductAnalyticsRepo,
) *Pipeline {
	return &Pipeline{
		db:           db,
		log:          baseLog.With("job", types.JobTypeAnalyticsRebuild),
		interactions: interactions,
		analytics:    analytics,
	}
}

func (p *Pipeline) Type() string { return types.JobTypeAnalyticsRebuild }
