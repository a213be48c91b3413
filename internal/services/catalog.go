package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/lookbook-backend/internal/clients/gcp"
	"github.com/yungbote/lookbook-backend/internal/clients/retailer"
	"github.com/yungbote/lookbook-backend/internal/data/repos"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
	"github.com/yungbote/lookbook-backend/internal/platform/clip"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
	"github.com/yungbote/lookbook-backend/internal/platform/vecindex"
)

const importPageSize = 200

// UpsertProductInput carries one catalog row plus its image. Image may
// arrive inline or as a URL to fetch; inline wins when both are set.
type UpsertProductInput struct {
	Row        retailer.ProductRow
	ImageBytes []byte
}

type CatalogService interface {
	// UpsertProduct stores the row, encodes its image and publishes the
	// vector. Rows without any image are stored but not indexed.
	UpsertProduct(ctx context.Context, tx *gorm.DB, input UpsertProductInput) (*types.Product, error)
	// RemoveProduct marks the row out of stock and retires its vector.
	RemoveProduct(ctx context.Context, tx *gorm.DB, productID string) error
	// ImportFeed walks the retailer feed to exhaustion and upserts every
	// row. Returns the number of rows imported.
	ImportFeed(ctx context.Context, tx *gorm.DB) (int, error)
	// Lookup proxies a single product fetch, preferring the local catalog
	// over the retailer API.
	Lookup(ctx context.Context, tx *gorm.DB, productID string) (*types.Product, error)
	// SearchText proxies a keyword search to the retailer API.
	SearchText(ctx context.Context, query string, filters *retailer.SearchFilters) ([]retailer.ProductRow, error)
	// Autocomplete proxies query completion to the retailer API.
	Autocomplete(ctx context.Context, prefix string) ([]string, error)
}

type catalogService struct {
	db        *gorm.DB
	log       *logger.Logger
	products  repos.ProductRepo
	analytics repos.ProductAnalyticsRepo
	encoder   clip.Client
	index     *vecindex.Index
	feed      retailer.Client
	bucket    gcp.BucketService
}

// NewCatalogService wires the ingest side of the search pipeline. feed
// and bucket may be nil; ImportFeed then fails and image caching is
// skipped respectively. analytics may be nil; price history is then
// not recorded.
func NewCatalogService(
	db *gorm.DB,
	baseLog *logger.Logger,
	products repos.ProductRepo,
	analytics repos.ProductAnalyticsRepo,
	encoder clip.Client,
	index *vecindex.Index,
	feed retailer.Client,
	bucket gcp.BucketService,
) CatalogService {
	return &catalogService{
		db:        db,
		log:       baseLog.With("service", "CatalogService"),
		products:  products,
		analytics: analytics,
		encoder:   encoder,
		index:     index,
		feed:      feed,
		bucket:    bucket,
	}
}

func (s *catalogService) UpsertProduct(ctx context.Context, tx *gorm.DB, input UpsertProductInput) (*types.Product, error) {
	row := input.Row
	row.ProductID = strings.TrimSpace(row.ProductID)
	if row.ProductID == "" {
		return nil, fmt.Errorf("%w: product id required", pkgerrors.ErrInvalidArgument)
	}

	product := productFromRow(row)
	if err := s.products.Upsert(ctx, tx, product); err != nil {
		return nil, fmt.Errorf("store product: %w", err)
	}
	s.recordPrice(ctx, tx, product)

	image := input.ImageBytes
	if len(image) == 0 && row.ImageURL != "" && s.feed != nil {
		fetched, err := s.feed.FetchImage(ctx, row.ImageURL)
		if err != nil {
			s.log.Warn("image fetch failed, product stored unindexed",
				"product_id", row.ProductID, "error", err.Error())
			return product, nil
		}
		image = fetched
	}
	if len(image) == 0 {
		return product, nil
	}

	if err := s.indexImage(ctx, product, image); err != nil {
		return nil, err
	}
	return product, nil
}

// recordPrice keeps the analytics price trail current. Best effort; a
// failed write never blocks the catalog upsert.
func (s *catalogService) recordPrice(ctx context.Context, tx *gorm.DB, product *types.Product) {
	if s.analytics == nil || product.Price <= 0 {
		return
	}
	if err := s.analytics.UpdatePrice(ctx, tx, product.ProductID, product.Price, time.Now().UTC()); err != nil {
		s.log.Warn("price history update failed", "product_id", product.ProductID, "error", err.Error())
	}
}

// indexImage prepares, caches, encodes and publishes one product image.
func (s *catalogService) indexImage(ctx context.Context, product *types.Product, image []byte) error {
	prepared, err := clip.PrepareImage(image)
	if err != nil {
		return fmt.Errorf("prepare image for %s: %w", product.ProductID, err)
	}
	if s.bucket != nil {
		key := product.ProductID + ".jpg"
		if err := s.bucket.UploadFile(ctx, gcp.BucketCategoryProduct, key, bytes.NewReader(prepared)); err != nil {
			s.log.Warn("image cache upload failed", "product_id", product.ProductID, "error", err.Error())
		}
	}
	vec, err := s.encoder.EncodeImage(ctx, prepared)
	if err != nil {
		return fmt.Errorf("encode %s: %w", product.ProductID, err)
	}
	entry := vecindex.Entry{
		ID:     product.ProductID,
		Vector: vec,
		Meta: vecindex.Meta{
			ProductID: product.ProductID,
			Category:  normToken(product.Category),
			Brand:     normToken(product.Brand),
			Color:     normToken(product.Color),
			Price:     product.Price,
			InStock:   product.InStock,
		},
	}
	if err := s.index.Add(ctx, entry); err != nil {
		return fmt.Errorf("index %s: %w", product.ProductID, err)
	}
	return nil
}

func (s *catalogService) RemoveProduct(ctx context.Context, tx *gorm.DB, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id required", pkgerrors.ErrInvalidArgument)
	}
	existing, err := s.products.GetByProductID(ctx, tx, productID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: product %s", pkgerrors.ErrNotFound, productID)
	}
	if err := s.products.SetInStock(ctx, tx, productID, false); err != nil {
		return err
	}
	if err := s.index.Remove(ctx, productID); err != nil {
		return err
	}
	if s.bucket != nil {
		if err := s.bucket.DeleteFile(ctx, gcp.BucketCategoryProduct, productID+".jpg"); err != nil {
			s.log.Warn("image cache delete failed", "product_id", productID, "error", err.Error())
		}
	}
	return nil
}

func (s *catalogService) ImportFeed(ctx context.Context, tx *gorm.DB) (int, error) {
	if s.feed == nil {
		return 0, fmt.Errorf("%w: no retailer feed configured", pkgerrors.ErrUpstreamUnavailable)
	}
	imported := 0
	cursor := ""
	for {
		rows, next, err := s.feed.FetchCatalog(ctx, cursor, importPageSize)
		if err != nil {
			return imported, fmt.Errorf("fetch feed page: %w", err)
		}
		for _, row := range rows {
			if _, err := s.UpsertProduct(ctx, tx, UpsertProductInput{Row: row}); err != nil {
				s.log.Warn("feed row skipped", "product_id", row.ProductID, "error", err.Error())
				continue
			}
			imported++
		}
		if next == "" || len(rows) == 0 {
			break
		}
		cursor = next
	}
	s.log.Info("feed import complete", "imported", imported)
	return imported, nil
}

func (s *catalogService) Lookup(ctx context.Context, tx *gorm.DB, productID string) (*types.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: product id required", pkgerrors.ErrInvalidArgument)
	}
	local, err := s.products.GetByProductID(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if local != nil {
		return local, nil
	}
	if s.feed == nil {
		return nil, fmt.Errorf("%w: product %s", pkgerrors.ErrNotFound, productID)
	}
	row, err := s.feed.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.UpsertProduct(ctx, tx, UpsertProductInput{Row: *row})
}

func (s *catalogService) SearchText(ctx context.Context, query string, filters *retailer.SearchFilters) ([]retailer.ProductRow, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query required", pkgerrors.ErrInvalidArgument)
	}
	if s.feed == nil {
		return nil, fmt.Errorf("%w: no retailer feed configured", pkgerrors.ErrUpstreamUnavailable)
	}
	return s.feed.SearchProducts(ctx, query, filters)
}

func (s *catalogService) Autocomplete(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	if s.feed == nil {
		return nil, fmt.Errorf("%w: no retailer feed configured", pkgerrors.ErrUpstreamUnavailable)
	}
	return s.feed.Autocomplete(ctx, prefix)
}

func productFromRow(row retailer.ProductRow) *types.Product {
	return &types.Product{
		ProductID:     row.ProductID,
		Title:         row.Title,
		Brand:         row.Brand,
		Category:      row.Category,
		Color:         row.Color,
		Material:      row.Material,
		Features:      featuresJSON(row.Features),
		Price:         row.Price,
		Currency:      defaultCurrency(row.Currency),
		ImageURL:      row.ImageURL,
		AffiliateLink: row.AffiliateLink,
		Retailer:      row.Retailer,
		InStock:       row.InStock,
	}
}

func featuresJSON(features []string) datatypes.JSON {
	if len(features) == 0 {
		return nil
	}
	raw, err := json.Marshal(features)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func defaultCurrency(currency string) string {
	if strings.TrimSpace(currency) == "" {
		return "USD"
	}
	return currency
}
