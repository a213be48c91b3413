package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisclient "github.com/yungbote/lookbook-backend/internal/clients/redis"
	"github.com/yungbote/lookbook-backend/internal/data/repos"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
	"github.com/yungbote/lookbook-backend/internal/platform/ctxutil"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

const maxRecordBatch = 200

// RecordInput is one incoming user action before weight assignment.
type RecordInput struct {
	ClientEventID string         `json:"client_event_id"`
	ActionType    string         `json:"action_type"`
	ItemID        string         `json:"item_id,omitempty"`
	ItemType      string         `json:"item_type,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Source        string         `json:"source,omitempty"`
}

type InteractionService interface {
	// Record appends interactions for the authenticated user, stamping
	// weights from the action table and bumping product counters in the
	// same write path. Returns the number of newly written rows (replayed
	// client event IDs are skipped).
	Record(ctx context.Context, tx *gorm.DB, inputs []RecordInput) (int, error)
	// Query returns the user's interactions newest first.
	Query(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time, actionTypes []string, limit int) ([]*types.Interaction, error)
}

type interactionService struct {
	db           *gorm.DB
	log          *logger.Logger
	interactions repos.InteractionRepo
	analytics    repos.ProductAnalyticsRepo
	counters     redisclient.Counters
}

// NewInteractionService wires the interaction write path. counters may be
// nil; hot counter bumps are then skipped and trending falls back to the
// database.
func NewInteractionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	interactions repos.InteractionRepo,
	analytics repos.ProductAnalyticsRepo,
	counters redisclient.Counters,
) InteractionService {
	return &interactionService{
		db:           db,
		log:          baseLog.With("service", "InteractionService"),
		interactions: interactions,
		analytics:    analytics,
		counters:     counters,
	}
}

// counterActions are the actions that bump ProductAnalytics inline.
var counterActions = map[string]bool{
	types.ActionViewProduct:     true,
	types.ActionFavoriteProduct: true,
	types.ActionCanvasAdd:       true,
	types.ActionClickToRetailer: true,
}

func (s *interactionService) Record(ctx context.Context, tx *gorm.DB, inputs []RecordInput) (int, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return 0, fmt.Errorf("not authenticated")
	}
	if len(inputs) == 0 {
		return 0, nil
	}
	if len(inputs) > maxRecordBatch {
		return 0, fmt.Errorf("%w: too many interactions (max %d)", pkgerrors.ErrInvalidArgument, maxRecordBatch)
	}

	rows := make([]*types.Interaction, 0, len(inputs))
	for i := range inputs {
		in := inputs[i]

		action := strings.TrimSpace(strings.ToLower(in.ActionType))
		weight, ok := types.ActionWeights[action]
		if !ok {
			return 0, fmt.Errorf("%w: %q at index %d", pkgerrors.ErrInvalidAction, in.ActionType, i)
		}

		clientID := strings.TrimSpace(in.ClientEventID)
		if clientID == "" {
			clientID = uuid.New().String()
		}

		rows = append(rows, &types.Interaction{
			ID:            uuid.New(),
			UserID:        rd.UserID,
			ClientEventID: clientID,
			ActionType:    action,
			ItemID:        strings.TrimSpace(in.ItemID),
			ItemType:      strings.TrimSpace(in.ItemType),
			Metadata:      datatypes.JSONMap(in.Metadata),
			Weight:        weight,
			Source:        strings.TrimSpace(in.Source),
		})
	}

	written, err := s.interactions.CreateIgnoreDuplicates(ctx, tx, rows)
	if err != nil {
		return 0, fmt.Errorf("record interactions: %w", err)
	}

	// Counter bumps ride the same transaction. The repo reports exactly
	// which rows landed, so replayed client event IDs never double count
	// while fresh rows in the same batch still do.
	for _, row := range written {
		if row.ItemID == "" || !counterActions[row.ActionType] {
			continue
		}
		if err := s.analytics.IncrementForAction(ctx, tx, row.ItemID, row.ActionType); err != nil {
			return 0, fmt.Errorf("increment analytics for %s: %w", row.ItemID, err)
		}
		s.bumpHotCounter(ctx, row.ItemID, row.ActionType)
	}

	return len(written), nil
}

func (s *interactionService) bumpHotCounter(ctx context.Context, productID, actionType string) {
	if s.counters == nil {
		return
	}
	if err := s.counters.Bump(ctx, productID, actionType); err != nil {
		s.log.Warn("hot counter bump failed", "product_id", productID, "action", actionType, "error", err)
	}
}

func (s *interactionService) Query(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time, actionTypes []string, limit int) ([]*types.Interaction, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id required", pkgerrors.ErrInvalidArgument)
	}
	return s.interactions.ListByUser(ctx, tx, userID, since, actionTypes, limit)
}
