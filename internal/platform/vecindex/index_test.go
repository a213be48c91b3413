package vecindex

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

func testIndex(t *testing.T, dim int, path string) *Index {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	idx, err := New(log, Config{Dim: dim, Path: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return idx
}

func TestIndexSearchRanksByInnerProduct(t *testing.T) {
	idx := testIndex(t, 3, "")
	ctx := context.Background()

	entries := []Entry{
		{ID: "x-axis", Vector: []float32{1, 0, 0}, Meta: Meta{ProductID: "x-axis", InStock: true}},
		{ID: "diag", Vector: []float32{1, 1, 0}, Meta: Meta{ProductID: "diag", InStock: true}},
		{ID: "y-axis", Vector: []float32{0, 1, 0}, Meta: Meta{ProductID: "y-axis", InStock: true}},
	}
	if err := idx.Rebuild(ctx, entries); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	got, err := idx.Search(ctx, []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search: expected 2 matches, got %d", len(got))
	}
	if got[0].ID != "x-axis" {
		t.Fatalf("Search: expected x-axis first, got %q", got[0].ID)
	}
	if math.Abs(got[0].Score-1.0) > 1e-6 {
		t.Fatalf("Search: expected unit score for identical vector, got %v", got[0].Score)
	}
	if got[1].ID != "diag" {
		t.Fatalf("Search: expected diag second, got %q", got[1].ID)
	}
}

func TestIndexSearchTieBreaksOnID(t *testing.T) {
	idx := testIndex(t, 2, "")
	ctx := context.Background()

	err := idx.Rebuild(ctx, []Entry{
		{ID: "bbb", Vector: []float32{1, 0}},
		{ID: "aaa", Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	got, err := idx.Search(ctx, []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got[0].ID != "aaa" || got[1].ID != "bbb" {
		t.Fatalf("expected lexicographic tie break, got %q then %q", got[0].ID, got[1].ID)
	}
}

func TestIndexEmptyIsUnavailable(t *testing.T) {
	idx := testIndex(t, 2, "")
	_, err := idx.Search(context.Background(), []float32{1, 0}, 5, nil)
	if !errors.Is(err, pkgerrors.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestIndexDimensionMismatch(t *testing.T) {
	idx := testIndex(t, 3, "")
	ctx := context.Background()

	err := idx.Add(ctx, Entry{ID: "p1", Vector: []float32{1, 0}})
	if !errors.Is(err, pkgerrors.ErrDimensionMismatch) {
		t.Fatalf("Add: expected ErrDimensionMismatch, got %v", err)
	}

	if err := idx.Add(ctx, Entry{ID: "p1", Vector: []float32{1, 0, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err = idx.Search(ctx, []float32{1, 0}, 5, nil)
	if !errors.Is(err, pkgerrors.ErrDimensionMismatch) {
		t.Fatalf("Search: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestIndexAddRemoveUpsert(t *testing.T) {
	idx := testIndex(t, 2, "")
	ctx := context.Background()

	if err := idx.Add(ctx, Entry{ID: "p1", Vector: []float32{1, 0}, Meta: Meta{ProductID: "p1", Brand: "acme"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(ctx, Entry{ID: "p1", Vector: []float32{0, 1}, Meta: Meta{ProductID: "p1", Brand: "zephyr"}}); err != nil {
		t.Fatalf("Add (upsert): %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("expected upsert to keep one entry, got %d", idx.Len())
	}
	if m, ok := idx.MetaFor("p1"); !ok || m.Brand != "zephyr" {
		t.Fatalf("expected upsert to replace meta, got %+v ok=%v", m, ok)
	}

	if err := idx.Remove(ctx, "p1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := idx.Remove(ctx, "p1"); err != nil {
		t.Fatalf("Remove (missing): %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("expected empty index, got %d", idx.Len())
	}
}

func TestIndexSearchFilter(t *testing.T) {
	idx := testIndex(t, 2, "")
	ctx := context.Background()

	err := idx.Rebuild(ctx, []Entry{
		{ID: "cheap", Vector: []float32{1, 0}, Meta: Meta{ProductID: "cheap", Category: "tops", Price: 20, InStock: true}},
		{ID: "pricey", Vector: []float32{1, 0}, Meta: Meta{ProductID: "pricey", Category: "tops", Price: 300, InStock: true}},
		{ID: "gone", Vector: []float32{1, 0}, Meta: Meta{ProductID: "gone", Category: "tops", Price: 25, InStock: false}},
		{ID: "shoes", Vector: []float32{1, 0}, Meta: Meta{ProductID: "shoes", Category: "footwear", Price: 22, InStock: true}},
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	max := 100.0
	got, err := idx.Search(ctx, []float32{1, 0}, 10, &Filter{
		Categories:  []string{"tops"},
		InStockOnly: true,
		PriceMax:    &max,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "cheap" {
		t.Fatalf("expected only cheap to pass the filter, got %+v", got)
	}
}

func TestIndexFilteredSearchIsSubsetOfUnfiltered(t *testing.T) {
	idx := testIndex(t, 2, "")
	ctx := context.Background()

	entries := []Entry{
		{ID: "t1", Vector: []float32{1, 0}, Meta: Meta{ProductID: "t1", Category: "tops", Price: 30, InStock: true}},
		{ID: "t2", Vector: []float32{0.9, 0.1}, Meta: Meta{ProductID: "t2", Category: "tops", Price: 120, InStock: true}},
		{ID: "b1", Vector: []float32{0.8, 0.2}, Meta: Meta{ProductID: "b1", Category: "bottoms", Price: 45, InStock: true}},
		{ID: "b2", Vector: []float32{0.5, 0.5}, Meta: Meta{ProductID: "b2", Category: "bottoms", Price: 60, InStock: false}},
		{ID: "f1", Vector: []float32{0.2, 0.8}, Meta: Meta{ProductID: "f1", Category: "footwear", Price: 80, InStock: true}},
	}
	if err := idx.Rebuild(ctx, entries); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	query := []float32{1, 0}
	k := len(entries)
	unfiltered, err := idx.Search(ctx, query, k, nil)
	if err != nil {
		t.Fatalf("Search (unfiltered): %v", err)
	}
	pool := make(map[string]bool, len(unfiltered))
	for _, hit := range unfiltered {
		pool[hit.ID] = true
	}

	max := 100.0
	filters := []*Filter{
		{Categories: []string{"tops"}},
		{InStockOnly: true},
		{PriceMax: &max},
		{Categories: []string{"tops", "bottoms"}, InStockOnly: true, PriceMax: &max},
	}
	for _, f := range filters {
		got, err := idx.Search(ctx, query, k, f)
		if err != nil {
			t.Fatalf("Search (%+v): %v", f, err)
		}
		for _, hit := range got {
			if !pool[hit.ID] {
				t.Fatalf("filter %+v surfaced %q outside the unfiltered result set", f, hit.ID)
			}
		}
	}
}

func TestIndexSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products")
	ctx := context.Background()

	idx := testIndex(t, 3, path)
	err := idx.Rebuild(ctx, []Entry{
		{ID: "p1", Vector: []float32{1, 2, 3}, Meta: Meta{ProductID: "p1", Brand: "acme", Price: 10, InStock: true}},
		{ID: "p2", Vector: []float32{3, 2, 1}, Meta: Meta{ProductID: "p2", Brand: "zephyr", Price: 20, InStock: true}},
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if err := idx.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := testIndex(t, 3, path)
	if err := restored.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored.Len() != 2 {
		t.Fatalf("expected 2 restored entries, got %d", restored.Len())
	}

	want, _ := idx.Vector("p1")
	got, ok := restored.Vector("p1")
	if !ok {
		t.Fatalf("restored index missing p1")
	}
	for i := range want {
		if math.Abs(float64(want[i]-got[i])) > 1e-6 {
			t.Fatalf("restored vector differs at %d: %v vs %v", i, want[i], got[i])
		}
	}
	if m, ok := restored.MetaFor("p2"); !ok || m.Brand != "zephyr" {
		t.Fatalf("restored meta wrong: %+v ok=%v", m, ok)
	}
}

func TestIndexLoadMissingFilesIsEmpty(t *testing.T) {
	idx := testIndex(t, 3, filepath.Join(t.TempDir(), "nothing"))
	if err := idx.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Len() != 0 {
		t.Fatalf("expected empty index after loading nothing, got %d", idx.Len())
	}
}
