package engagement

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProductAnalytics holds rolling counters per product, denormalized from
// the interaction write path for query speed. Counters are monotonic
// between rebuilds; derived ratios are recomputed on every write.
type ProductAnalytics struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProductID string    `gorm:"column:product_id;not null;uniqueIndex" json:"product_id"`

	ViewCount         int64 `gorm:"column:view_count;not null;default:0" json:"view_count"`
	FavoriteCount     int64 `gorm:"column:favorite_count;not null;default:0" json:"favorite_count"`
	CanvasAddCount    int64 `gorm:"column:canvas_add_count;not null;default:0" json:"canvas_add_count"`
	ClickThroughCount int64 `gorm:"column:click_through_count;not null;default:0" json:"click_through_count"`

	WishlistToCanvasRate float64 `gorm:"column:wishlist_to_canvas_rate;not null;default:0" json:"wishlist_to_canvas_rate"`
	AvgTimeSpent         float64 `gorm:"column:avg_time_spent;not null;default:0" json:"avg_time_spent"`

	CurrentPrice *float64       `gorm:"column:current_price" json:"current_price,omitempty"`
	PriceHistory datatypes.JSON `gorm:"type:jsonb;column:price_history" json:"price_history"`

	InterestedDemographics datatypes.JSONMap `gorm:"type:jsonb;column:interested_demographics" json:"interested_demographics"`

	UpdatedAt time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProductAnalytics) TableName() string { return "product_analytics" }

// PricePoint is one entry of the price_history sequence.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// EngagementScore is the behavioral proxy used by trending and content
// ranking: fav*2 + canvas*3 + click*4 + view*0.5.
func (a *ProductAnalytics) EngagementScore() float64 {
	if a == nil {
		return 0
	}
	return float64(a.FavoriteCount)*2 +
		float64(a.CanvasAddCount)*3 +
		float64(a.ClickThroughCount)*4 +
		float64(a.ViewCount)*0.5
}
