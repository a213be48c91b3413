package analytics_rebuild

import (
	"fmt"
	"sort"

	types "github.com/yungbote/lookbook-backend/internal/domain"
	jobrt "github.com/yungbote/lookbook-backend/internal/jobs/runtime"
)

const (
	scanBatch    = 1000
	replaceBatch = 500
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	if p == nil || p.db == nil || p.interactions == nil || p.analytics == nil {
		jc.Fail("validate", fmt.Errorf("analytics_rebuild: pipeline not configured"))
		return nil
	}

	jc.Progress("scan", 0)
	counters := map[string]*types.ProductAnalytics{}
	scanned := 0
	err := p.interactions.Scan(jc.Ctx, nil, scanBatch, func(batch []*types.Interaction) error {
		for _, rec := range batch {
			if rec.ItemID == "" || rec.ItemType != types.ItemTypeProduct {
				continue
			}
			row := counters[rec.ItemID]
			if row == nil {
				row = &types.ProductAnalytics{ProductID: rec.ItemID}
				counters[rec.ItemID] = row
			}
			switch rec.ActionType {
			case types.ActionViewProduct:
				row.ViewCount++
			case types.ActionFavoriteProduct:
				row.FavoriteCount++
			case types.ActionCanvasAdd:
				row.CanvasAddCount++
			case types.ActionClickToRetailer:
				row.ClickThroughCount++
			}
		}
		scanned += len(batch)
		return nil
	})
	if err != nil {
		jc.Fail("scan", err)
		return nil
	}

	jc.Progress("replace", 50)
	for _, row := range counters {
		if row.FavoriteCount > 0 {
			row.WishlistToCanvasRate = float64(row.CanvasAddCount) / float64(row.FavoriteCount)
		}
	}

	ids := make([]string, 0, len(counters))
	for id := range counters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	replaced := 0
	for start := 0; start < len(ids); start += replaceBatch {
		end := start + replaceBatch
		if end > len(ids) {
			end = len(ids)
		}
		rows := make([]*types.ProductAnalytics, 0, end-start)
		for _, id := range ids[start:end] {
			rows = append(rows, counters[id])
		}
		if err := p.analytics.Replace(jc.Ctx, nil, rows); err != nil {
			jc.Fail("replace", err)
			return nil
		}
		replaced += len(rows)
		jc.Progress("replace", 50+replaced*50/len(ids))
	}

	jc.Succeed("done", map[string]any{
		"interactions": scanned,
		"products":     replaced,
	})
	return nil
}
