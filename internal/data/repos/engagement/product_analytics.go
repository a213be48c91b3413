package engagement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

// counterColumns maps an action type to the analytics counter it bumps.
// Actions outside this map leave counters untouched.
var counterColumns = map[string]string{
	types.ActionViewProduct:     "view_count",
	types.ActionFavoriteProduct: "favorite_count",
	types.ActionCanvasAdd:       "canvas_add_count",
	types.ActionClickToRetailer: "click_through_count",
}

type ProductAnalyticsRepo interface {
	// Get returns nil when the product has no analytics row yet.
	Get(ctx context.Context, tx *gorm.DB, productID string) (*types.ProductAnalytics, error)
	GetByProductIDs(ctx context.Context, tx *gorm.DB, productIDs []string) ([]*types.ProductAnalytics, error)
	// IncrementForAction bumps the counter column the action maps onto and
	// refreshes the wishlist-to-canvas rate. Actions with no counter are a
	// no-op. Counters only ever move up through this path.
	IncrementForAction(ctx context.Context, tx *gorm.DB, productID string, actionType string) error
	// Replace upserts full rows. Used by the nightly rebuild, which
	// recomputes every counter from the interaction log.
	Replace(ctx context.Context, tx *gorm.DB, rows []*types.ProductAnalytics) error
	// TopEngaged returns rows ordered by lifetime engagement score.
	TopEngaged(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ProductAnalytics, error)
	// ListEngagedSince returns rows touched at or after since whose summed
	// counters clear minCount, ordered by engagement score. It backs the
	// trending scan when the hot counters are unavailable.
	ListEngagedSince(ctx context.Context, tx *gorm.DB, since time.Time, minCount int64, limit int) ([]*types.ProductAnalytics, error)
	// UpdatePrice records the product's current price, appending a point to
	// price_history whenever the price actually moved.
	UpdatePrice(ctx context.Context, tx *gorm.DB, productID string, price float64, at time.Time) error
}

type productAnalyticsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductAnalyticsRepo(db *gorm.DB, baseLog *logger.Logger) ProductAnalyticsRepo {
	return &productAnalyticsRepo{db: db, log: baseLog.With("repo", "ProductAnalyticsRepo")}
}

func (r *productAnalyticsRepo) Get(ctx context.Context, tx *gorm.DB, productID string) (*types.ProductAnalytics, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.ProductAnalytics
	err := transaction.WithContext(ctx).Where("product_id = ?", productID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *productAnalyticsRepo) GetByProductIDs(ctx context.Context, tx *gorm.DB, productIDs []string) ([]*types.ProductAnalytics, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ProductAnalytics
	if len(productIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productAnalyticsRepo) IncrementForAction(ctx context.Context, tx *gorm.DB, productID string, actionType string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	col, ok := counterColumns[actionType]
	if !ok {
		return nil
	}
	seed := &types.ProductAnalytics{ProductID: productID}
	switch col {
	case "view_count":
		seed.ViewCount = 1
	case "favorite_count":
		seed.FavoriteCount = 1
	case "canvas_add_count":
		seed.CanvasAddCount = 1
	case "click_through_count":
		seed.ClickThroughCount = 1
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				col: gorm.Expr(col + " + 1"),
			}),
		}).
		Create(seed).Error
	if err != nil {
		return err
	}
	// Derived rate lives in its own column so list queries never recompute it.
	return transaction.WithContext(ctx).
		Model(&types.ProductAnalytics{}).
		Where("product_id = ? AND favorite_count > 0", productID).
		UpdateColumn("wishlist_to_canvas_rate",
			gorm.Expr("canvas_add_count::float8 / favorite_count::float8")).Error
}

func (r *productAnalyticsRepo) Replace(ctx context.Context, tx *gorm.DB, rows []*types.ProductAnalytics) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"view_count", "favorite_count", "canvas_add_count", "click_through_count",
				"wishlist_to_canvas_rate", "avg_time_spent",
				"current_price", "price_history", "interested_demographics", "updated_at",
			}),
		}).
		Create(&rows).Error
}

func (r *productAnalyticsRepo) TopEngaged(ctx context.Context, tx *gorm.DB, limit int) ([]*types.ProductAnalytics, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.ProductAnalytics
	err := transaction.WithContext(ctx).
		Order("favorite_count*2 + canvas_add_count*3 + click_through_count*4 + view_count*0.5 DESC").
		Order("product_id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productAnalyticsRepo) ListEngagedSince(ctx context.Context, tx *gorm.DB, since time.Time, minCount int64, limit int) ([]*types.ProductAnalytics, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 200
	}
	var out []*types.ProductAnalytics
	q := transaction.WithContext(ctx)
	if !since.IsZero() {
		q = q.Where("updated_at >= ?", since)
	}
	if minCount > 0 {
		q = q.Where("view_count + favorite_count + canvas_add_count + click_through_count >= ?", minCount)
	}
	err := q.
		Order("favorite_count*2 + canvas_add_count*3 + click_through_count*4 + view_count*0.5 DESC").
		Order("product_id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productAnalyticsRepo) UpdatePrice(ctx context.Context, tx *gorm.DB, productID string, price float64, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	point, err := json.Marshal([]types.PricePoint{{Date: at, Price: price}})
	if err != nil {
		return fmt.Errorf("marshal price point: %w", err)
	}
	seed := &types.ProductAnalytics{
		ProductID:    productID,
		CurrentPrice: &price,
		PriceHistory: datatypes.JSON(point),
		UpdatedAt:    at,
	}
	// The history only grows when the price actually changed, so repeated
	// feed imports at a steady price stay a single point.
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"current_price": price,
				"price_history": gorm.Expr(
					"CASE WHEN product_analytics.current_price IS DISTINCT FROM excluded.current_price "+
						"THEN COALESCE(product_analytics.price_history, '[]'::jsonb) || excluded.price_history "+
						"ELSE COALESCE(product_analytics.price_history, excluded.price_history) END"),
				"updated_at": at,
			}),
		}).
		Create(seed).Error
}
