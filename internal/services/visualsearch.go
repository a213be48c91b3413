package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/lookbook-backend/internal/clients/vision"
	"github.com/yungbote/lookbook-backend/internal/data/repos"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
	"github.com/yungbote/lookbook-backend/internal/platform/clip"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
	"github.com/yungbote/lookbook-backend/internal/platform/vecindex"
)

const (
	defaultSearchK   = 10
	maxSearchK       = 100
	minRerankPool    = 40
	maxLookRegions   = 8
	regionSearchK    = 5
	defaultImageFrac = 0.7
	defaultTextFrac  = 0.3
)

// Hit is one ranked visual search result.
type Hit struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
	Title     string  `json:"title,omitempty"`
	Brand     string  `json:"brand,omitempty"`
	Category  string  `json:"category,omitempty"`
	Price     float64 `json:"price,omitempty"`
	ImageURL  string  `json:"image_url,omitempty"`
	InStock   bool    `json:"in_stock"`
}

// SearchFilter narrows candidates before ranking. Out-of-stock products
// are excluded unless IncludeOutOfStock is set.
type SearchFilter struct {
	Categories        []string `json:"categories,omitempty"`
	Brands            []string `json:"brands,omitempty"`
	PriceMin          *float64 `json:"price_min,omitempty"`
	PriceMax          *float64 `json:"price_max,omitempty"`
	IncludeOutOfStock bool     `json:"include_out_of_stock,omitempty"`
}

// FusionWeights blend the image and text query embeddings ahead of
// retrieval.
type FusionWeights struct {
	Image float64 `json:"image"`
	Text  float64 `json:"text"`
}

// LookRegion is one garment region of a shop-the-look response. Err is
// set when this region's search failed; the overall call still succeeds
// while at least one region produced hits.
type LookRegion struct {
	Label       string  `json:"label"`
	Description string  `json:"description"`
	X0          float64 `json:"x0"`
	Y0          float64 `json:"y0"`
	X1          float64 `json:"x1"`
	Y1          float64 `json:"y1"`
	Hits        []Hit   `json:"hits,omitempty"`
	Err         string  `json:"error,omitempty"`
}

type VisualSearchService interface {
	// SearchByImage ranks catalog products by visual similarity to the
	// query image.
	SearchByImage(ctx context.Context, tx *gorm.DB, image []byte, k int, filter *SearchFilter) ([]Hit, error)
	// SearchHybrid blends the image with optional text and re-ranks the
	// visual pool with attribute matching.
	SearchHybrid(ctx context.Context, tx *gorm.DB, image []byte, text string, k int, filter *SearchFilter, fusion *FusionWeights) ([]Hit, error)
	// ShopTheLook segments an outfit photo and searches each garment
	// region independently.
	ShopTheLook(ctx context.Context, tx *gorm.DB, image []byte) ([]LookRegion, error)
}

type visualSearchService struct {
	db        *gorm.DB
	log       *logger.Logger
	encoder   clip.Client
	index     *vecindex.Index
	segmenter vision.Segmenter
	products  repos.ProductRepo
	weights   VisualWeights
}

// NewVisualSearchService wires the query-side pipeline. segmenter may be
// nil; ShopTheLook then fails with ErrUpstreamUnavailable.
func NewVisualSearchService(
	db *gorm.DB,
	baseLog *logger.Logger,
	encoder clip.Client,
	index *vecindex.Index,
	segmenter vision.Segmenter,
	products repos.ProductRepo,
	weights VisualWeights,
) VisualSearchService {
	return &visualSearchService{
		db:        db,
		log:       baseLog.With("service", "VisualSearchService"),
		encoder:   encoder,
		index:     index,
		segmenter: segmenter,
		products:  products,
		weights:   weights,
	}
}

func (s *visualSearchService) SearchByImage(ctx context.Context, tx *gorm.DB, image []byte, k int, filter *SearchFilter) ([]Hit, error) {
	k = clampK(k)
	query, err := s.encodeQueryImage(ctx, image)
	if err != nil {
		return nil, err
	}
	matches, err := s.index.Search(ctx, query, rerankPool(k), indexFilter(filter))
	if err != nil {
		return nil, err
	}
	if len(matches) > k {
		matches = matches[:k]
	}
	return s.hydrate(ctx, tx, matches)
}

func (s *visualSearchService) SearchHybrid(ctx context.Context, tx *gorm.DB, image []byte, text string, k int, filter *SearchFilter, fusion *FusionWeights) ([]Hit, error) {
	k = clampK(k)
	text = strings.TrimSpace(text)

	imgVec, err := s.encodeQueryImage(ctx, image)
	if err != nil {
		return nil, err
	}
	var textVec []float32
	if text != "" {
		textVec, err = s.encoder.EncodeText(ctx, text)
		if err != nil {
			return nil, err
		}
	}

	query := imgVec
	if textVec != nil {
		f := fusion
		if f == nil || f.Image+f.Text <= 0 {
			f = &FusionWeights{Image: defaultImageFrac, Text: defaultTextFrac}
		}
		query = fuseVectors(imgVec, textVec, f.Image, f.Text)
	}

	matches, err := s.index.Search(ctx, query, rerankPool(k), indexFilter(filter))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return []Hit{}, nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	rows, err := s.products.GetByProductIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*types.Product, len(rows))
	for _, p := range rows {
		byID[p.ProductID] = p
	}

	queryTokens := tokenize(text)
	rescored := make([]vecindex.Match, len(matches))
	for i, m := range matches {
		rescored[i] = m
		rescored[i].Score = s.hybridScore(m, imgVec, textVec, queryTokens, byID[m.ID])
	}
	sort.SliceStable(rescored, func(i, j int) bool {
		if rescored[i].Score != rescored[j].Score {
			return rescored[i].Score > rescored[j].Score
		}
		return rescored[i].ID < rescored[j].ID
	})
	if len(rescored) > k {
		rescored = rescored[:k]
	}
	return s.hydrateWith(rescored, byID), nil
}

// hybridScore applies the attribute re-rank formula. Missing terms
// contribute zero.
func (s *visualSearchService) hybridScore(m vecindex.Match, imgVec, textVec []float32, queryTokens map[string]bool, product *types.Product) float64 {
	w := s.weights
	score := w.Visual * m.Score

	candVec, _ := s.index.Vector(m.ID)
	if textVec != nil && candVec != nil {
		score += w.Text * dot32(textVec, candVec)
	}
	if len(queryTokens) == 0 {
		return score
	}

	category := m.Meta.Category
	color := m.Meta.Color
	material := ""
	var features []string
	if product != nil {
		if category == "" {
			category = product.Category
		}
		if color == "" {
			color = product.Color
		}
		material = product.Material
		features = product.FeatureList()
	}

	if tokenMatch(queryTokens, category) {
		score += w.Category
	}
	if tokenMatch(queryTokens, color) {
		score += w.Color
	}
	if tokenMatch(queryTokens, material) {
		score += w.Material
	}
	if len(features) > 0 {
		overlap := 0
		for _, f := range features {
			if tokenMatch(queryTokens, f) {
				overlap++
			}
		}
		score += w.Features * float64(overlap) / float64(len(queryTokens))
	}
	return score
}

func (s *visualSearchService) ShopTheLook(ctx context.Context, tx *gorm.DB, image []byte) ([]LookRegion, error) {
	if s.segmenter == nil {
		return nil, fmt.Errorf("%w: no segmenter configured", pkgerrors.ErrUpstreamUnavailable)
	}
	regions, err := s.segmenter.DetectGarments(ctx, image)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return []LookRegion{}, nil
	}
	if len(regions) > maxLookRegions {
		regions = regions[:maxLookRegions]
	}

	out := make([]LookRegion, len(regions))
	g, gctx := errgroup.WithContext(ctx)
	for i, region := range regions {
		out[i] = LookRegion{
			Label:       region.Label,
			Description: region.Label,
			X0:          region.X0,
			Y0:          region.Y0,
			X1:          region.X1,
			Y1:          region.Y1,
		}
		g.Go(func() error {
			hits, err := s.searchRegion(gctx, tx, image, region)
			if err != nil {
				// per-region failure, reported in place
				out[i].Err = err.Error()
				return nil
			}
			out[i].Hits = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	succeeded := 0
	for _, r := range out {
		if r.Err == "" {
			succeeded++
		}
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("%w: all %d regions failed", pkgerrors.ErrUpstreamUnavailable, len(out))
	}
	s.log.Info("shop the look", "regions", len(out), "succeeded", succeeded)
	return out, nil
}

func (s *visualSearchService) searchRegion(ctx context.Context, tx *gorm.DB, image []byte, region vision.Region) ([]Hit, error) {
	crop, err := clip.CropPercent(image, region.X0, region.Y0, region.X1, region.Y1)
	if err != nil {
		return nil, err
	}
	filter := &SearchFilter{}
	if cat := normToken(region.Label); cat != "" {
		filter.Categories = []string{cat}
	}
	hits, err := s.SearchByImage(ctx, tx, crop, regionSearchK, filter)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 && filter.Categories != nil {
		// category label missed the catalog taxonomy, retry unconstrained
		return s.SearchByImage(ctx, tx, crop, regionSearchK, nil)
	}
	return hits, nil
}

func (s *visualSearchService) encodeQueryImage(ctx context.Context, image []byte) ([]float32, error) {
	prepared, err := clip.PrepareImage(image)
	if err != nil {
		return nil, err
	}
	return s.encoder.EncodeImage(ctx, prepared)
}

func (s *visualSearchService) hydrate(ctx context.Context, tx *gorm.DB, matches []vecindex.Match) ([]Hit, error) {
	if len(matches) == 0 {
		return []Hit{}, nil
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	rows, err := s.products.GetByProductIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*types.Product, len(rows))
	for _, p := range rows {
		byID[p.ProductID] = p
	}
	return s.hydrateWith(matches, byID), nil
}

// hydrateWith fills catalog fields, falling back to index metadata when
// the row is gone.
func (s *visualSearchService) hydrateWith(matches []vecindex.Match, byID map[string]*types.Product) []Hit {
	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		hit := Hit{
			ProductID: m.ID,
			Score:     m.Score,
			Brand:     m.Meta.Brand,
			Category:  m.Meta.Category,
			Price:     m.Meta.Price,
			InStock:   m.Meta.InStock,
		}
		if p := byID[m.ID]; p != nil {
			hit.Title = p.Title
			hit.Brand = p.Brand
			hit.Category = p.Category
			hit.Price = p.Price
			hit.ImageURL = p.ImageURL
			hit.InStock = p.InStock
		}
		hits = append(hits, hit)
	}
	return hits
}

func clampK(k int) int {
	if k <= 0 {
		return defaultSearchK
	}
	if k > maxSearchK {
		return maxSearchK
	}
	return k
}

// rerankPool is the visual retrieval depth ahead of re-ranking.
func rerankPool(k int) int {
	if m := 4 * k; m > minRerankPool {
		return m
	}
	return minRerankPool
}

func indexFilter(f *SearchFilter) *vecindex.Filter {
	if f == nil {
		return &vecindex.Filter{InStockOnly: true}
	}
	return &vecindex.Filter{
		Categories:  f.Categories,
		Brands:      f.Brands,
		PriceMin:    f.PriceMin,
		PriceMax:    f.PriceMax,
		InStockOnly: !f.IncludeOutOfStock,
	}
}

func fuseVectors(img, text []float32, wImg, wText float64) []float32 {
	if len(img) != len(text) {
		return img
	}
	total := wImg + wText
	out := make([]float32, len(img))
	var norm float64
	for i := range img {
		v := (wImg*float64(img[i]) + wText*float64(text[i])) / total
		out[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range out {
			out[i] *= inv
		}
	}
	return out
}

func dot32(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func tokenize(text string) map[string]bool {
	out := map[string]bool{}
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if tok != "" {
			out[tok] = true
		}
	}
	return out
}

// tokenMatch reports whether any word of the attribute appears among the
// query tokens.
func tokenMatch(queryTokens map[string]bool, attr string) bool {
	if attr == "" {
		return false
	}
	for _, word := range strings.Fields(strings.ToLower(attr)) {
		if queryTokens[word] {
			return true
		}
	}
	return false
}
