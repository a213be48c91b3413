package engagement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Shopping frequency buckets derived from favorite/click volume.
const (
	FrequencyLow    = "low"
	FrequencyMedium = "medium"
	FrequencyHigh   = "high"
)

// StyleProfile is the per-user preference aggregate rebuilt nightly from
// the interaction log. One row per user, replaced atomically on rebuild.
type StyleProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	// Ordered token lists, most-preferred first. JSON arrays of strings.
	FavoriteColors     datatypes.JSON `gorm:"type:jsonb;column:favorite_colors" json:"favorite_colors"`
	FavoriteBrands     datatypes.JSON `gorm:"type:jsonb;column:favorite_brands" json:"favorite_brands"`
	FavoriteCategories datatypes.JSON `gorm:"type:jsonb;column:favorite_categories" json:"favorite_categories"`
	StyleKeywords      datatypes.JSON `gorm:"type:jsonb;column:style_keywords" json:"style_keywords"`

	// category -> most frequent observed size
	SizePreferences datatypes.JSONMap `gorm:"type:jsonb;column:size_preferences" json:"size_preferences"`

	AvgPricePoint *float64 `gorm:"column:avg_price_point" json:"avg_price_point,omitempty"`
	BudgetMin     *float64 `gorm:"column:budget_min" json:"budget_min,omitempty"`
	BudgetMax     *float64 `gorm:"column:budget_max" json:"budget_max,omitempty"`

	ShoppingFrequency string `gorm:"column:shopping_frequency;not null;default:low" json:"shopping_frequency"`

	FollowedCreatorStyles datatypes.JSON `gorm:"type:jsonb;column:followed_creator_styles" json:"followed_creator_styles"`
	AvoidedCategories     datatypes.JSON `gorm:"type:jsonb;column:avoided_categories" json:"avoided_categories"`

	EngagementScore float64    `gorm:"column:engagement_score;not null;default:0" json:"engagement_score"`
	LastAnalyzedAt  *time.Time `gorm:"column:last_analyzed_at" json:"last_analyzed_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StyleProfile) TableName() string { return "style_profile" }

// Cold reports whether the profile carries no aggregated signal.
func (p *StyleProfile) Cold() bool {
	if p == nil {
		return true
	}
	return p.EngagementScore == 0 && p.LastAnalyzedAt == nil
}
