package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

type ProductRepo interface {
	// GetByProductID returns nil when the product is unknown.
	GetByProductID(ctx context.Context, tx *gorm.DB, productID string) (*types.Product, error)
	// GetByProductIDs returns the found subset. Missing IDs are silently
	// absent from the result.
	GetByProductIDs(ctx context.Context, tx *gorm.DB, productIDs []string) ([]*types.Product, error)
	Upsert(ctx context.Context, tx *gorm.DB, product *types.Product) error
	UpsertBatch(ctx context.Context, tx *gorm.DB, products []*types.Product) error
	SetInStock(ctx context.Context, tx *gorm.DB, productID string, inStock bool) error
	// Scan walks the full catalog in product_id keyset batches.
	Scan(ctx context.Context, tx *gorm.DB, batchSize int, fn func(batch []*types.Product) error) error
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (r *productRepo) GetByProductID(ctx context.Context, tx *gorm.DB, productID string) (*types.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.Product
	err := transaction.WithContext(ctx).Where("product_id = ?", productID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) GetByProductIDs(ctx context.Context, tx *gorm.DB, productIDs []string) ([]*types.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Product
	if len(productIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).Where("product_id IN ?", productIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

var productUpsertColumns = []string{
	"title", "brand", "category", "color", "material", "features",
	"price", "currency", "image_url", "affiliate_link", "retailer",
	"in_stock", "updated_at",
}

func (r *productRepo) Upsert(ctx context.Context, tx *gorm.DB, product *types.Product) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if product == nil || product.ProductID == "" {
		return gorm.ErrInvalidData
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns(productUpsertColumns),
		}).
		Create(product).Error
}

func (r *productRepo) UpsertBatch(ctx context.Context, tx *gorm.DB, products []*types.Product) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(products) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns(productUpsertColumns),
		}).
		CreateInBatches(&products, 200).Error
}

func (r *productRepo) SetInStock(ctx context.Context, tx *gorm.DB, productID string, inStock bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Product{}).
		Where("product_id = ?", productID).
		UpdateColumn("in_stock", inStock).Error
}

func (r *productRepo) Scan(ctx context.Context, tx *gorm.DB, batchSize int, fn func(batch []*types.Product) error) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	cursor := ""
	for {
		var batch []*types.Product
		q := transaction.WithContext(ctx).
			Order("product_id ASC").
			Limit(batchSize)
		if cursor != "" {
			q = q.Where("product_id > ?", cursor)
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
		cursor = batch[len(batch)-1].ProductID
		if len(batch) < batchSize {
			return nil
		}
	}
}
