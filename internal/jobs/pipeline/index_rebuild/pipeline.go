package index_rebuild

import (
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/lookbook-backend/internal/clients/gcp"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	jobrt "github.com/yungbote/lookbook-backend/internal/jobs/runtime"
	"github.com/yungbote/lookbook-backend/internal/platform/clip"
	"github.com/yungbote/lookbook-backend/internal/platform/vecindex"
)

const (
	scanBatch   = 200
	encodeBatch = 32
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	if p == nil || p.db == nil || p.products == nil || p.encoder == nil || p.index == nil {
		jc.Fail("validate", fmt.Errorf("index_rebuild: pipeline not configured"))
		return nil
	}

	jc.Progress("encode", 0)
	var entries []vecindex.Entry
	var pending []*types.Product
	var images [][]byte
	encoded, skipped := 0, 0

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		vecs, err := p.encoder.EncodeImageBatch(jc.Ctx, images)
		if err != nil {
			return err
		}
		for i, product := range pending {
			entries = append(entries, vecindex.Entry{
				ID:     product.ProductID,
				Vector: vecs[i],
				Meta: vecindex.Meta{
					ProductID: product.ProductID,
					Category:  strings.ToLower(product.Category),
					Brand:     strings.ToLower(product.Brand),
					Color:     strings.ToLower(product.Color),
					Price:     product.Price,
					InStock:   product.InStock,
				},
			})
		}
		encoded += len(pending)
		pending = pending[:0]
		images = images[:0]
		return nil
	}

	err := p.products.Scan(jc.Ctx, nil, scanBatch, func(batch []*types.Product) error {
		for _, product := range batch {
			raw, err := p.productImage(jc, product)
			if err != nil {
				p.log.Warn("product skipped", "product_id", product.ProductID, "error", err.Error())
				skipped++
				continue
			}
			prepared, err := clip.PrepareImage(raw)
			if err != nil {
				p.log.Warn("product image undecodable", "product_id", product.ProductID, "error", err.Error())
				skipped++
				continue
			}
			pending = append(pending, product)
			images = append(images, prepared)
			if len(pending) >= encodeBatch {
				if err := flush(); err != nil {
					return err
				}
				jc.Progress("encode", min(encoded/10, 80))
			}
		}
		return nil
	})
	if err != nil {
		jc.Fail("encode", err)
		return nil
	}
	if err := flush(); err != nil {
		jc.Fail("encode", err)
		return nil
	}

	jc.Progress("publish", 90)
	if err := p.index.Rebuild(jc.Ctx, entries); err != nil {
		jc.Fail("publish", err)
		return nil
	}
	if err := p.index.Save(); err != nil {
		jc.Fail("persist", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"encoded": encoded,
		"skipped": skipped,
	})
	return nil
}

// productImage reads the cached copy when present, falling back to the
// retailer image URL.
func (p *Pipeline) productImage(jc *jobrt.Context, product *types.Product) ([]byte, error) {
	if p.bucket != nil {
		rc, err := p.bucket.DownloadFile(jc.Ctx, gcp.BucketCategoryProduct, product.ProductID+".jpg")
		if err == nil {
			defer rc.Close()
			raw, readErr := io.ReadAll(io.LimitReader(rc, 20<<20))
			if readErr == nil && len(raw) > 0 {
				return raw, nil
			}
		}
	}
	if p.feed != nil && product.ImageURL != "" {
		return p.feed.FetchImage(jc.Ctx, product.ImageURL)
	}
	return nil, fmt.Errorf("no image source for %s", product.ProductID)
}
