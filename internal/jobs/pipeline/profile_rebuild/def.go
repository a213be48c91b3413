package profile_rebuild

import (
	"gorm.io/gorm"

	"github.com/yungbote/lookbook-backend/internal/data/repos"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
	"github.com/yungbote/lookbook-backend/internal/services"
)

// Pipeline rebuilds style profiles from the interaction log. With a
// user_id payload it rebuilds one user; without, every user active in
// the profile window.
type Pipeline struct {
	db           *gorm.DB
	log          *logger.Logger
	interactions repos.InteractionRepo
	profiles     services.StyleProfileService
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	interactions repos.InteractionRepo,
	profiles services.StyleProfileService,
) *Pipeline {
	return &Pipeline{
		db:           db,
		log:          baseLog.With("job", types.JobTypeProfileRebuild),
		interactions: interactions,
		profiles:     profiles,
	}
}

func (p *Pipeline) Type() string { return types.JobTypeProfileRebuild }
