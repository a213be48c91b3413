package catalog_import

import (
	"fmt"

	jobrt "github.com/yungbote/lookbook-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	if p == nil || p.catalog == nil {
		jc.Fail("validate", fmt.Errorf("catalog_import: pipeline not configured"))
		return nil
	}

	jc.Progress("import", 0)
	imported, err := p.catalog.ImportFeed(jc.Ctx, nil)
	if err != nil {
		jc.Fail("import", err)
		return nil
	}
	jc.Succeed("done", map[string]any{"imported": imported})
	return nil
}
