package engagement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/lookbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	"gorm.io/datatypes"
)

func TestStyleProfileRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewStyleProfileRepo(db, testutil.Logger(t))
	ctx := context.Background()
	userID := uuid.New()

	got, err := repo.GetByUserID(ctx, tx, userID)
	if err != nil {
		t.Fatalf("GetByUserID (missing): %v", err)
	}
	if got != nil {
		t.Fatalf("GetByUserID (missing): expected nil, got %+v", got)
	}

	now := time.Now().UTC()
	first := &types.StyleProfile{
		ID:                uuid.New(),
		UserID:            userID,
		FavoriteBrands:    datatypes.JSON([]byte(`["acme"]`)),
		ShoppingFrequency: types.FrequencyLow,
		EngagementScore:   3.5,
		LastAnalyzedAt:    testutil.PtrTime(now),
	}
	if err := repo.Upsert(ctx, tx, first); err != nil {
		t.Fatalf("Upsert (insert): %v", err)
	}

	second := &types.StyleProfile{
		ID:                uuid.New(),
		UserID:            userID,
		FavoriteBrands:    datatypes.JSON([]byte(`["acme","zephyr"]`)),
		ShoppingFrequency: types.FrequencyHigh,
		EngagementScore:   9.1,
		LastAnalyzedAt:    testutil.PtrTime(now.Add(time.Hour)),
	}
	if err := repo.Upsert(ctx, tx, second); err != nil {
		t.Fatalf("Upsert (replace): %v", err)
	}

	got, err = repo.GetByUserID(ctx, tx, userID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if got == nil {
		t.Fatalf("GetByUserID: expected profile")
	}
	if got.ShoppingFrequency != types.FrequencyHigh {
		t.Fatalf("GetByUserID: expected replaced frequency, got %q", got.ShoppingFrequency)
	}
	if got.EngagementScore != 9.1 {
		t.Fatalf("GetByUserID: expected replaced score, got %v", got.EngagementScore)
	}

	var count int64
	if err := tx.Model(&types.StyleProfile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row per user, got %d", count)
	}
}
