package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/yungbote/lookbook-backend/internal/clients/retailer"
	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
	"github.com/yungbote/lookbook-backend/internal/platform/vecindex"
)

// fakeFeed pages a canned catalog and serves one image for every URL.
type fakeFeed struct {
	pages [][]retailer.ProductRow
	image []byte
}

func (f *fakeFeed) FetchCatalog(ctx context.Context, cursor string, limit int) ([]retailer.ProductRow, string, error) {
	page := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "page-%d", &page)
	}
	if page >= len(f.pages) {
		return nil, "", nil
	}
	next := ""
	if page+1 < len(f.pages) {
		next = fmt.Sprintf("page-%d", page+1)
	}
	return f.pages[page], next, nil
}

func (f *fakeFeed) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if f.image == nil {
		return nil, fmt.Errorf("%w: no image", pkgerrors.ErrUpstreamUnavailable)
	}
	return f.image, nil
}

func (f *fakeFeed) SearchProducts(ctx context.Context, query string, filters *retailer.SearchFilters) ([]retailer.ProductRow, error) {
	var out []retailer.ProductRow
	for _, page := range f.pages {
		for _, row := range page {
			if filters != nil && filters.Category != "" && row.Category != filters.Category {
				continue
			}
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeFeed) GetProduct(ctx context.Context, productID string) (*retailer.ProductRow, error) {
	for _, page := range f.pages {
		for _, row := range page {
			if row.ProductID == productID {
				return &row, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: retailer product", pkgerrors.ErrNotFound)
}

func (f *fakeFeed) Autocomplete(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	for _, page := range f.pages {
		for _, row := range page {
			out = append(out, row.Title)
		}
	}
	return out, nil
}

func newTestCatalogService(t *testing.T, feed retailer.Client, repo *fakeProductRepo, idx *vecindex.Index) *catalogService {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	enc := &fakeEncoder{imageVec: []float32{1, 0, 0, 0}}
	svc := NewCatalogService(nil, log, repo, &fakeAnalyticsRepo{}, enc, idx, feed, nil)
	return svc.(*catalogService)
}

func TestUpsertProductIndexesInlineImage(t *testing.T) {
	idx := newTestIndex(t, 4)
	repo := &fakeProductRepo{}
	svc := newTestCatalogService(t, nil, repo, idx)

	row := retailer.ProductRow{
		ProductID: "sku-1",
		Title:     "Wool Coat",
		Category:  "Outerwear",
		Price:     250,
		InStock:   true,
	}
	p, err := svc.UpsertProduct(context.Background(), nil, UpsertProductInput{
		Row:        row,
		ImageBytes: testPNG(t, 300, 400),
	})
	if err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
	if p.ProductID != "sku-1" || p.Currency != "USD" {
		t.Fatalf("stored row = %+v", p)
	}
	if repo.rows["sku-1"] == nil {
		t.Fatal("product row not stored")
	}
	if _, ok := idx.Vector("sku-1"); !ok {
		t.Fatal("product vector not published")
	}
	meta, _ := idx.MetaFor("sku-1")
	if meta.Category != "outerwear" || !meta.InStock {
		t.Fatalf("index meta = %+v", meta)
	}
}

func TestUpsertProductWithoutImageStoresUnindexed(t *testing.T) {
	idx := newTestIndex(t, 4)
	repo := &fakeProductRepo{}
	svc := newTestCatalogService(t, nil, repo, idx)

	_, err := svc.UpsertProduct(context.Background(), nil, UpsertProductInput{
		Row: retailer.ProductRow{ProductID: "sku-2", Title: "Belt"},
	})
	if err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
	if repo.rows["sku-2"] == nil {
		t.Fatal("product row not stored")
	}
	if _, ok := idx.Vector("sku-2"); ok {
		t.Fatal("imageless product must not be indexed")
	}
}

func TestUpsertProductRejectsEmptyID(t *testing.T) {
	svc := newTestCatalogService(t, nil, &fakeProductRepo{}, newTestIndex(t, 4))
	_, err := svc.UpsertProduct(context.Background(), nil, UpsertProductInput{})
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestRemoveProductRetiresVector(t *testing.T) {
	idx := newTestIndex(t, 4)
	repo := &fakeProductRepo{}
	svc := newTestCatalogService(t, nil, repo, idx)

	if _, err := svc.UpsertProduct(context.Background(), nil, UpsertProductInput{
		Row:        retailer.ProductRow{ProductID: "sku-3", Title: "Dress", InStock: true},
		ImageBytes: testPNG(t, 200, 200),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.RemoveProduct(context.Background(), nil, "sku-3"); err != nil {
		t.Fatalf("RemoveProduct: %v", err)
	}
	if repo.rows["sku-3"].InStock {
		t.Fatal("product should be out of stock")
	}
	if _, ok := idx.Vector("sku-3"); ok {
		t.Fatal("vector should be retired")
	}

	if err := svc.RemoveProduct(context.Background(), nil, "ghost"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("removing unknown product = %v, want ErrNotFound", err)
	}
}

func TestImportFeedWalksAllPages(t *testing.T) {
	idx := newTestIndex(t, 4)
	repo := &fakeProductRepo{}
	feed := &fakeFeed{
		image: nil, // rows carry no image URL, stored unindexed
		pages: [][]retailer.ProductRow{
			{{ProductID: "a", Title: "A"}, {ProductID: "b", Title: "B"}},
			{{ProductID: "c", Title: "C"}},
		},
	}
	svc := newTestCatalogService(t, feed, repo, idx)

	n, err := svc.ImportFeed(context.Background(), nil)
	if err != nil {
		t.Fatalf("ImportFeed: %v", err)
	}
	if n != 3 {
		t.Fatalf("imported = %d, want 3", n)
	}
	for _, id := range []string{"a", "b", "c"} {
		if repo.rows[id] == nil {
			t.Fatalf("row %q missing after import", id)
		}
	}
}

func TestLookupFallsBackToRetailer(t *testing.T) {
	feed := &fakeFeed{
		pages: [][]retailer.ProductRow{{{ProductID: "remote", Title: "Remote Row"}}},
	}
	repo := &fakeProductRepo{}
	svc := newTestCatalogService(t, feed, repo, newTestIndex(t, 4))

	p, err := svc.Lookup(context.Background(), nil, "remote")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Title != "Remote Row" {
		t.Fatalf("title = %q", p.Title)
	}
	if repo.rows["remote"] == nil {
		t.Fatal("remote row should be cached locally after lookup")
	}

	if _, err := svc.Lookup(context.Background(), nil, "nope"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("unknown product = %v, want ErrNotFound", err)
	}
}

func TestSearchTextFiltersByCategory(t *testing.T) {
	feed := &fakeFeed{
		pages: [][]retailer.ProductRow{{
			{ProductID: "j1", Title: "Biker Jacket", Category: "jackets"},
			{ProductID: "d1", Title: "Slip Dress", Category: "dresses"},
		}},
	}
	svc := newTestCatalogService(t, feed, &fakeProductRepo{}, newTestIndex(t, 4))

	rows, err := svc.SearchText(context.Background(), "jacket", &retailer.SearchFilters{Category: "jackets"})
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if len(rows) != 1 || rows[0].ProductID != "j1" {
		t.Fatalf("rows = %+v", rows)
	}

	if _, err := svc.SearchText(context.Background(), "  ", nil); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("blank query = %v, want ErrInvalidArgument", err)
	}
}

func TestAutocompleteEmptyPrefixIsNoop(t *testing.T) {
	feed := &fakeFeed{
		pages: [][]retailer.ProductRow{{{ProductID: "j1", Title: "Biker Jacket"}}},
	}
	svc := newTestCatalogService(t, feed, &fakeProductRepo{}, newTestIndex(t, 4))

	got, err := svc.Autocomplete(context.Background(), "")
	if err != nil || got != nil {
		t.Fatalf("empty prefix = %v, %v", got, err)
	}

	got, err = svc.Autocomplete(context.Background(), "bik")
	if err != nil {
		t.Fatalf("Autocomplete: %v", err)
	}
	if len(got) != 1 || got[0] != "Biker Jacket" {
		t.Fatalf("suggestions = %v", got)
	}
}

func TestUpsertProductRecordsPrice(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	analytics := &fakeAnalyticsRepo{}
	enc := &fakeEncoder{imageVec: []float32{1, 0, 0, 0}}
	svc := NewCatalogService(nil, log, &fakeProductRepo{}, analytics, enc, newTestIndex(t, 4), nil, nil)

	if _, err := svc.UpsertProduct(context.Background(), nil, UpsertProductInput{
		Row: retailer.ProductRow{ProductID: "sku-p", Title: "Linen Shirt", Price: 80, InStock: true},
	}); err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
	if got := analytics.prices["sku-p"]; len(got) != 1 || got[0] != 80 {
		t.Fatalf("expected price 80 recorded, got %v", got)
	}

	// Rows without a price leave the analytics trail alone.
	if _, err := svc.UpsertProduct(context.Background(), nil, UpsertProductInput{
		Row: retailer.ProductRow{ProductID: "sku-free", Title: "Sample", InStock: true},
	}); err != nil {
		t.Fatalf("UpsertProduct (no price): %v", err)
	}
	if _, ok := analytics.prices["sku-free"]; ok {
		t.Fatal("zero price should not be recorded")
	}
}
