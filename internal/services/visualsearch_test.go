package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/lookbook-backend/internal/clients/vision"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
	"github.com/yungbote/lookbook-backend/internal/platform/vecindex"
)

// fakeEncoder returns a fixed vector regardless of pixels so tests can
// steer similarity exactly.
type fakeEncoder struct {
	imageVec []float32
	textVec  []float32
}

func (f *fakeEncoder) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	if len(image) == 0 {
		return nil, pkgerrors.ErrBadQueryImage
	}
	return f.imageVec, nil
}

func (f *fakeEncoder) EncodeImageBatch(ctx context.Context, images [][]byte) ([][]float32, error) {
	out := make([][]float32, len(images))
	for i := range images {
		out[i] = f.imageVec
	}
	return out, nil
}

func (f *fakeEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	return f.textVec, nil
}

func (f *fakeEncoder) Dim() int { return len(f.imageVec) }

// fakeProductRepo serves product rows from a map.
type fakeProductRepo struct {
	rows map[string]*types.Product
}

func (f *fakeProductRepo) GetByProductID(ctx context.Context, tx *gorm.DB, productID string) (*types.Product, error) {
	return f.rows[productID], nil
}

func (f *fakeProductRepo) GetByProductIDs(ctx context.Context, tx *gorm.DB, productIDs []string) ([]*types.Product, error) {
	out := make([]*types.Product, 0, len(productIDs))
	for _, id := range productIDs {
		if p, ok := f.rows[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) Upsert(ctx context.Context, tx *gorm.DB, product *types.Product) error {
	if f.rows == nil {
		f.rows = map[string]*types.Product{}
	}
	f.rows[product.ProductID] = product
	return nil
}

func (f *fakeProductRepo) UpsertBatch(ctx context.Context, tx *gorm.DB, products []*types.Product) error {
	for _, p := range products {
		if err := f.Upsert(ctx, tx, p); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeProductRepo) SetInStock(ctx context.Context, tx *gorm.DB, productID string, inStock bool) error {
	if p, ok := f.rows[productID]; ok {
		p.InStock = inStock
	}
	return nil
}

func (f *fakeProductRepo) Scan(ctx context.Context, tx *gorm.DB, batchSize int, fn func(batch []*types.Product) error) error {
	for _, p := range f.rows {
		if err := fn([]*types.Product{p}); err != nil {
			return err
		}
	}
	return nil
}

type fakeSegmenter struct {
	regions []vision.Region
	err     error
}

func (f *fakeSegmenter) DetectGarments(ctx context.Context, img []byte) ([]vision.Region, error) {
	return f.regions, f.err
}

func (f *fakeSegmenter) Close() error { return nil }

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestIndex(t *testing.T, dim int) *vecindex.Index {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	idx, err := vecindex.New(log, vecindex.Config{Dim: dim})
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	return idx
}

func newTestVisualService(t *testing.T, enc *fakeEncoder, idx *vecindex.Index, seg *fakeSegmenter, repo *fakeProductRepo) *visualSearchService {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	svc := NewVisualSearchService(nil, log, enc, idx, seg, repo, DefaultRankingWeights().Visual)
	return svc.(*visualSearchService)
}

func addEntry(t *testing.T, idx *vecindex.Index, id string, vec []float32, meta vecindex.Meta) {
	t.Helper()
	meta.ProductID = id
	if err := idx.Add(context.Background(), vecindex.Entry{ID: id, Vector: vec, Meta: meta}); err != nil {
		t.Fatalf("add %s: %v", id, err)
	}
}

func TestSearchByImageRoundTrip(t *testing.T) {
	idx := newTestIndex(t, 4)
	addEntry(t, idx, "exact", []float32{1, 0, 0, 0}, vecindex.Meta{InStock: true})
	addEntry(t, idx, "near", []float32{0.9, 0.1, 0, 0}, vecindex.Meta{InStock: true})
	addEntry(t, idx, "far", []float32{0, 0, 1, 0}, vecindex.Meta{InStock: true})

	enc := &fakeEncoder{imageVec: []float32{1, 0, 0, 0}}
	repo := &fakeProductRepo{rows: map[string]*types.Product{
		"exact": {ProductID: "exact", Title: "Exact Match", InStock: true},
	}}
	svc := newTestVisualService(t, enc, idx, nil, repo)

	hits, err := svc.SearchByImage(context.Background(), nil, testPNG(t, 300, 300), 2, nil)
	if err != nil {
		t.Fatalf("SearchByImage: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].ProductID != "exact" {
		t.Fatalf("top hit = %q, want exact", hits[0].ProductID)
	}
	if hits[0].Score < 0.999 {
		t.Fatalf("round-trip score = %v, want >= 0.999", hits[0].Score)
	}
	if hits[0].Title != "Exact Match" {
		t.Fatalf("title = %q, hydration failed", hits[0].Title)
	}
}

func TestSearchByImageIsIdempotent(t *testing.T) {
	idx := newTestIndex(t, 4)
	addEntry(t, idx, "a", []float32{1, 0, 0, 0}, vecindex.Meta{InStock: true})
	addEntry(t, idx, "b", []float32{0.7, 0.7, 0, 0}, vecindex.Meta{InStock: true})
	addEntry(t, idx, "c", []float32{0, 1, 0, 0}, vecindex.Meta{InStock: true})

	enc := &fakeEncoder{imageVec: []float32{0.8, 0.6, 0, 0}}
	svc := newTestVisualService(t, enc, idx, nil, &fakeProductRepo{})

	query := testPNG(t, 300, 300)
	first, err := svc.SearchByImage(context.Background(), nil, query, 3, nil)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := svc.SearchByImage(context.Background(), nil, query, 3, nil)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("result sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ProductID != second[i].ProductID {
			t.Fatalf("order differs at %d: %q vs %q", i, first[i].ProductID, second[i].ProductID)
		}
	}
}

func TestSearchByImageExcludesOutOfStockByDefault(t *testing.T) {
	idx := newTestIndex(t, 4)
	addEntry(t, idx, "in", []float32{1, 0, 0, 0}, vecindex.Meta{InStock: true})
	addEntry(t, idx, "out", []float32{1, 0, 0, 0.01}, vecindex.Meta{InStock: false})

	enc := &fakeEncoder{imageVec: []float32{1, 0, 0, 0}}
	svc := newTestVisualService(t, enc, idx, nil, &fakeProductRepo{})

	hits, err := svc.SearchByImage(context.Background(), nil, testPNG(t, 200, 200), 5, nil)
	if err != nil {
		t.Fatalf("SearchByImage: %v", err)
	}
	for _, h := range hits {
		if h.ProductID == "out" {
			t.Fatal("out-of-stock product surfaced without opt-in")
		}
	}

	opted, err := svc.SearchByImage(context.Background(), nil, testPNG(t, 200, 200), 5,
		&SearchFilter{IncludeOutOfStock: true})
	if err != nil {
		t.Fatalf("opted search: %v", err)
	}
	found := false
	for _, h := range opted {
		if h.ProductID == "out" {
			found = true
		}
	}
	if !found {
		t.Fatal("opt-in should include out-of-stock products")
	}
}

func TestSearchByImageBadImage(t *testing.T) {
	svc := newTestVisualService(t, &fakeEncoder{imageVec: []float32{1, 0, 0, 0}}, newTestIndex(t, 4), nil, &fakeProductRepo{})
	if _, err := svc.SearchByImage(context.Background(), nil, []byte("not an image"), 5, nil); !errors.Is(err, pkgerrors.ErrBadQueryImage) {
		t.Fatalf("err = %v, want ErrBadQueryImage", err)
	}
}

func TestSearchHybridTextOverridesVisualOrder(t *testing.T) {
	idx := newTestIndex(t, 4)
	// visually, "plain" edges out "target"
	addEntry(t, idx, "plain", []float32{1, 0, 0, 0}, vecindex.Meta{Category: "tops", InStock: true})
	addEntry(t, idx, "target", []float32{0.96, 0.28, 0, 0}, vecindex.Meta{Category: "dresses", Color: "red", InStock: true})

	enc := &fakeEncoder{
		imageVec: []float32{1, 0, 0, 0},
		// text embedding points straight at the target
		textVec: []float32{0.96, 0.28, 0, 0},
	}
	repo := &fakeProductRepo{rows: map[string]*types.Product{
		"plain":  {ProductID: "plain", Category: "tops", InStock: true},
		"target": {ProductID: "target", Category: "dresses", Color: "red", Material: "silk", InStock: true},
	}}
	svc := newTestVisualService(t, enc, idx, nil, repo)

	hits, err := svc.SearchHybrid(context.Background(), nil, testPNG(t, 200, 200),
		"red silk dresses", 2, nil, &FusionWeights{Image: 1, Text: 0})
	if err != nil {
		t.Fatalf("SearchHybrid: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
	// attribute matches on category, color and material outweigh the
	// small visual deficit
	if hits[0].ProductID != "target" {
		t.Fatalf("top hit = %q, want target", hits[0].ProductID)
	}
}

func TestShopTheLookPartialFailure(t *testing.T) {
	idx := newTestIndex(t, 4)
	addEntry(t, idx, "jacket", []float32{1, 0, 0, 0}, vecindex.Meta{Category: "outerwear", InStock: true})

	enc := &fakeEncoder{imageVec: []float32{1, 0, 0, 0}}
	seg := &fakeSegmenter{regions: []vision.Region{
		{Label: "outerwear", Score: 0.9, X0: 0.0, Y0: 0.0, X1: 0.5, Y1: 0.5},
		// inverted box fails the crop
		{Label: "bottoms", Score: 0.8, X0: 0.9, Y0: 0.9, X1: 0.1, Y1: 0.1},
	}}
	svc := newTestVisualService(t, enc, idx, seg, &fakeProductRepo{})

	regions, err := svc.ShopTheLook(context.Background(), nil, testPNG(t, 400, 400))
	if err != nil {
		t.Fatalf("ShopTheLook: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("regions = %d, want 2", len(regions))
	}
	if regions[0].Err != "" || len(regions[0].Hits) == 0 {
		t.Fatalf("good region should have hits, got %+v", regions[0])
	}
	if regions[1].Err == "" {
		t.Fatal("bad region should carry its error")
	}
}

func TestShopTheLookAllRegionsFail(t *testing.T) {
	enc := &fakeEncoder{imageVec: []float32{1, 0, 0, 0}}
	seg := &fakeSegmenter{regions: []vision.Region{
		{Label: "tops", X0: 0.9, Y0: 0.9, X1: 0.1, Y1: 0.1},
	}}
	svc := newTestVisualService(t, enc, idx4(t), seg, &fakeProductRepo{})

	_, err := svc.ShopTheLook(context.Background(), nil, testPNG(t, 200, 200))
	if !errors.Is(err, pkgerrors.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func idx4(t *testing.T) *vecindex.Index {
	return newTestIndex(t, 4)
}
