package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedInteraction(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, actionType, itemID string, meta map[string]any) *types.Interaction {
	tb.Helper()
	i := &types.Interaction{
		ID:            uuid.New(),
		UserID:        userID,
		ClientEventID: uuid.NewString(),
		ActionType:    actionType,
		ItemID:        itemID,
		ItemType:      types.ItemTypeProduct,
		Metadata:      datatypes.JSONMap(meta),
		Weight:        types.ActionWeights[actionType],
		Source:        "test",
	}
	if err := tx.WithContext(ctx).Create(i).Error; err != nil {
		tb.Fatalf("seed interaction: %v", err)
	}
	return i
}

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, productID, brand, category string, price float64) *types.Product {
	tb.Helper()
	p := &types.Product{
		ID:        uuid.New(),
		ProductID: productID,
		Title:     "product " + productID,
		Brand:     brand,
		Category:  category,
		Price:     price,
		Currency:  "USD",
		InStock:   true,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedAnalytics(tb testing.TB, ctx context.Context, tx *gorm.DB, productID string, views, favorites, canvasAdds, clicks int64) *types.ProductAnalytics {
	tb.Helper()
	a := &types.ProductAnalytics{
		ID:                uuid.New(),
		ProductID:         productID,
		ViewCount:         views,
		FavoriteCount:     favorites,
		CanvasAddCount:    canvasAdds,
		ClickThroughCount: clicks,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed analytics: %v", err)
	}
	return a
}

func PtrFloat(v float64) *float64 { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
