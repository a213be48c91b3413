package engagement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

type InteractionRepo interface {
	// CreateIgnoreDuplicates appends rows, skipping conflicts on the
	// (user_id, client_event_id) idempotency key. Returns the subset of
	// rows that were actually written; replayed rows are absent.
	CreateIgnoreDuplicates(ctx context.Context, tx *gorm.DB, rows []*types.Interaction) ([]*types.Interaction, error)
	// ListByUser returns a user's interactions newest first, optionally
	// bounded by since and filtered by action types. limit<=0 means all.
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time, actionTypes []string, limit int) ([]*types.Interaction, error)
	// ListByActionsSince returns interactions across all users for the
	// given action types, newest first.
	ListByActionsSince(ctx context.Context, tx *gorm.DB, actionTypes []string, since time.Time, limit int) ([]*types.Interaction, error)
	// ListUsersActiveSince returns distinct user IDs with at least one
	// interaction at or after since.
	ListUsersActiveSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]uuid.UUID, error)
	// CountByUserActionsSince counts a user's interactions of the given
	// action types in the window.
	CountByUserActionsSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, actionTypes []string, since time.Time) (int64, error)
	// Scan walks the whole log in (created_at, id) keyset batches. The
	// callback may be invoked many times; returning an error stops the
	// scan. Restartable: pass the last seen cursor to resume.
	Scan(ctx context.Context, tx *gorm.DB, batchSize int, fn func(batch []*types.Interaction) error) error
}

type interactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInteractionRepo(db *gorm.DB, baseLog *logger.Logger) InteractionRepo {
	return &interactionRepo{db: db, log: baseLog.With("repo", "InteractionRepo")}
}

func (r *interactionRepo) CreateIgnoreDuplicates(ctx context.Context, tx *gorm.DB, rows []*types.Interaction) ([]*types.Interaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil, nil
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "client_event_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == int64(len(rows)) {
		return rows, nil
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	// Partial replay. Row IDs are generated by the caller before insert,
	// so any of our IDs present afterwards belongs to a row we wrote, not
	// to the earlier copy that won the conflict.
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var writtenIDs []uuid.UUID
	err := transaction.WithContext(ctx).
		Model(&types.Interaction{}).
		Where("id IN ?", ids).
		Pluck("id", &writtenIDs).Error
	if err != nil {
		return nil, err
	}
	present := make(map[uuid.UUID]struct{}, len(writtenIDs))
	for _, id := range writtenIDs {
		present[id] = struct{}{}
	}
	written := make([]*types.Interaction, 0, len(writtenIDs))
	for _, row := range rows {
		if _, ok := present[row.ID]; ok {
			written = append(written, row)
		}
	}
	return written, nil
}

func (r *interactionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time, actionTypes []string, limit int) ([]*types.Interaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Interaction
	if userID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(ctx).Where("user_id = ?", userID)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if len(actionTypes) > 0 {
		q = q.Where("action_type IN ?", actionTypes)
	}
	q = q.Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interactionRepo) ListByActionsSince(ctx context.Context, tx *gorm.DB, actionTypes []string, since time.Time, limit int) ([]*types.Interaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Interaction
	q := transaction.WithContext(ctx)
	if len(actionTypes) > 0 {
		q = q.Where("action_type IN ?", actionTypes)
	}
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	q = q.Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interactionRepo) ListUsersActiveSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []uuid.UUID
	q := transaction.WithContext(ctx).
		Model(&types.Interaction{}).
		Distinct("user_id")
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if err := q.Pluck("user_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interactionRepo) CountByUserActionsSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, actionTypes []string, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	q := transaction.WithContext(ctx).
		Model(&types.Interaction{}).
		Where("user_id = ?", userID)
	if len(actionTypes) > 0 {
		q = q.Where("action_type IN ?", actionTypes)
	}
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *interactionRepo) Scan(ctx context.Context, tx *gorm.DB, batchSize int, fn func(batch []*types.Interaction) error) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	var cursorAt time.Time
	var cursorID uuid.UUID
	for {
		var batch []*types.Interaction
		q := transaction.WithContext(ctx).
			Order("created_at ASC, id ASC").
			Limit(batchSize)
		if !cursorAt.IsZero() {
			q = q.Where("(created_at, id) > (?, ?)", cursorAt, cursorID)
		}
		if err := q.Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		last := batch[len(batch)-1]
		cursorAt = last.CreatedAt
		cursorID = last.ID
		if len(batch) < batchSize {
			return nil
		}
	}
}
