package engagement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/lookbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lookbook-backend/internal/domain"
)

func TestInteractionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewInteractionRepo(db, testutil.Logger(t))
	ctx := context.Background()
	userID := uuid.New()

	rows := []*types.Interaction{
		{
			ID:            uuid.New(),
			UserID:        userID,
			ClientEventID: "evt-1",
			ActionType:    types.ActionFavoriteProduct,
			ItemID:        "prod-1",
			ItemType:      types.ItemTypeProduct,
			Weight:        types.ActionWeights[types.ActionFavoriteProduct],
		},
		{
			ID:            uuid.New(),
			UserID:        userID,
			ClientEventID: "evt-2",
			ActionType:    types.ActionViewProduct,
			ItemID:        "prod-2",
			ItemType:      types.ItemTypeProduct,
			Weight:        types.ActionWeights[types.ActionViewProduct],
		},
	}
	written, err := repo.CreateIgnoreDuplicates(ctx, tx, rows)
	if err != nil {
		t.Fatalf("CreateIgnoreDuplicates: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("CreateIgnoreDuplicates: expected 2 rows, got %d", len(written))
	}

	// Replaying the same client_event_id must not create a second row.
	replay := []*types.Interaction{
		{
			ID:            uuid.New(),
			UserID:        userID,
			ClientEventID: "evt-1",
			ActionType:    types.ActionFavoriteProduct,
			ItemID:        "prod-1",
			ItemType:      types.ItemTypeProduct,
			Weight:        types.ActionWeights[types.ActionFavoriteProduct],
		},
	}
	written, err = repo.CreateIgnoreDuplicates(ctx, tx, replay)
	if err != nil {
		t.Fatalf("CreateIgnoreDuplicates (replay): %v", err)
	}
	if len(written) != 0 {
		t.Fatalf("CreateIgnoreDuplicates (replay): expected 0 rows, got %d", len(written))
	}

	// A batch mixing one replay with one fresh row reports only the fresh
	// row as written.
	mixed := []*types.Interaction{
		{
			ID:            uuid.New(),
			UserID:        userID,
			ClientEventID: "evt-2",
			ActionType:    types.ActionViewProduct,
			ItemID:        "prod-2",
			ItemType:      types.ItemTypeProduct,
			Weight:        types.ActionWeights[types.ActionViewProduct],
		},
		{
			ID:            uuid.New(),
			UserID:        userID,
			ClientEventID: "evt-3",
			ActionType:    types.ActionCanvasAdd,
			ItemID:        "prod-3",
			ItemType:      types.ItemTypeProduct,
			Weight:        types.ActionWeights[types.ActionCanvasAdd],
		},
	}
	written, err = repo.CreateIgnoreDuplicates(ctx, tx, mixed)
	if err != nil {
		t.Fatalf("CreateIgnoreDuplicates (mixed): %v", err)
	}
	if len(written) != 1 || written[0].ClientEventID != "evt-3" {
		t.Fatalf("CreateIgnoreDuplicates (mixed): expected only evt-3 written, got %+v", written)
	}

	got, err := repo.ListByUser(ctx, tx, userID, time.Time{}, nil, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListByUser: expected 3 interactions, got %d", len(got))
	}

	got, err = repo.ListByUser(ctx, tx, userID, time.Time{}, []string{types.ActionFavoriteProduct}, 0)
	if err != nil {
		t.Fatalf("ListByUser (filtered): %v", err)
	}
	if len(got) != 1 || got[0].ActionType != types.ActionFavoriteProduct {
		t.Fatalf("ListByUser (filtered): unexpected result: %+v", got)
	}

	count, err := repo.CountByUserActionsSince(ctx, tx, userID, types.PositiveActions, time.Time{})
	if err != nil {
		t.Fatalf("CountByUserActionsSince: %v", err)
	}
	if count != 2 {
		t.Fatalf("CountByUserActionsSince: expected 2, got %d", count)
	}

	users, err := repo.ListUsersActiveSince(ctx, tx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListUsersActiveSince: %v", err)
	}
	found := false
	for _, u := range users {
		if u == userID {
			found = true
		}
	}
	if !found {
		t.Fatalf("ListUsersActiveSince: user missing from %v", users)
	}

	var scanned int
	err = repo.Scan(ctx, tx, 1, func(batch []*types.Interaction) error {
		scanned += len(batch)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if scanned < 2 {
		t.Fatalf("Scan: expected at least 2 rows, got %d", scanned)
	}
}
