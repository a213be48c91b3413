package engagement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

type StyleProfileRepo interface {
	// GetByUserID returns nil when no profile has been built yet.
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StyleProfile, error)
	// Upsert replaces the stored profile for the row's user atomically.
	// Readers never observe a partially written profile.
	Upsert(ctx context.Context, tx *gorm.DB, profile *types.StyleProfile) error
	// ListOthers returns profiles of every user except the given one,
	// most recently analyzed first. Feeds similar-user matching.
	ListOthers(ctx context.Context, tx *gorm.DB, excludeUserID uuid.UUID, limit int) ([]*types.StyleProfile, error)
}

type styleProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStyleProfileRepo(db *gorm.DB, baseLog *logger.Logger) StyleProfileRepo {
	return &styleProfileRepo{db: db, log: baseLog.With("repo", "StyleProfileRepo")}
}

func (r *styleProfileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StyleProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.StyleProfile
	err := transaction.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *styleProfileRepo) Upsert(ctx context.Context, tx *gorm.DB, profile *types.StyleProfile) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if profile == nil || profile.UserID == uuid.Nil {
		return gorm.ErrInvalidData
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"favorite_colors", "favorite_brands", "favorite_categories",
				"style_keywords", "size_preferences",
				"avg_price_point", "budget_min", "budget_max",
				"shopping_frequency", "followed_creator_styles", "avoided_categories",
				"engagement_score", "last_analyzed_at", "updated_at",
			}),
		}).
		Create(profile).Error
}

func (r *styleProfileRepo) ListOthers(ctx context.Context, tx *gorm.DB, excludeUserID uuid.UUID, limit int) ([]*types.StyleProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	var out []*types.StyleProfile
	q := transaction.WithContext(ctx).
		Order("last_analyzed_at DESC NULLS LAST").
		Limit(limit)
	if excludeUserID != uuid.Nil {
		q = q.Where("user_id <> ?", excludeUserID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
