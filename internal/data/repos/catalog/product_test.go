package catalog

import (
	"context"
	"testing"

	"github.com/yungbote/lookbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	"gorm.io/datatypes"
)

func TestProductRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewProductRepo(db, testutil.Logger(t))
	ctx := context.Background()

	p := &types.Product{
		ProductID: "sku-100",
		Title:     "linen shirt",
		Brand:     "acme",
		Category:  "tops",
		Color:     "white",
		Features:  datatypes.JSON([]byte(`["linen","button-down"]`)),
		Price:     79.0,
		Currency:  "USD",
		InStock:   true,
	}
	if err := repo.Upsert(ctx, tx, p); err != nil {
		t.Fatalf("Upsert (insert): %v", err)
	}

	p.Price = 59.0
	p.InStock = false
	if err := repo.Upsert(ctx, tx, p); err != nil {
		t.Fatalf("Upsert (update): %v", err)
	}

	got, err := repo.GetByProductID(ctx, tx, "sku-100")
	if err != nil {
		t.Fatalf("GetByProductID: %v", err)
	}
	if got == nil {
		t.Fatalf("GetByProductID: expected product")
	}
	if got.Price != 59.0 || got.InStock {
		t.Fatalf("Upsert did not replace fields: %+v", got)
	}
	if feats := got.FeatureList(); len(feats) != 2 || feats[0] != "linen" {
		t.Fatalf("unexpected features: %v", feats)
	}

	missing, err := repo.GetByProductID(ctx, tx, "sku-missing")
	if err != nil {
		t.Fatalf("GetByProductID (missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("GetByProductID (missing): expected nil")
	}

	if err := repo.SetInStock(ctx, tx, "sku-100", true); err != nil {
		t.Fatalf("SetInStock: %v", err)
	}
	got, err = repo.GetByProductID(ctx, tx, "sku-100")
	if err != nil {
		t.Fatalf("GetByProductID (after stock): %v", err)
	}
	if !got.InStock {
		t.Fatalf("SetInStock did not apply")
	}

	batch := []*types.Product{
		{ProductID: "sku-101", Title: "denim jacket", Brand: "acme", Category: "outerwear", Price: 120},
		{ProductID: "sku-102", Title: "wool scarf", Brand: "zephyr", Category: "accessories", Price: 35},
	}
	if err := repo.UpsertBatch(ctx, tx, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	many, err := repo.GetByProductIDs(ctx, tx, []string{"sku-100", "sku-101", "sku-102", "sku-missing"})
	if err != nil {
		t.Fatalf("GetByProductIDs: %v", err)
	}
	if len(many) != 3 {
		t.Fatalf("GetByProductIDs: expected 3 products, got %d", len(many))
	}

	var scanned int
	err = repo.Scan(ctx, tx, 2, func(b []*types.Product) error {
		scanned += len(b)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if scanned < 3 {
		t.Fatalf("Scan: expected at least 3 products, got %d", scanned)
	}
}
