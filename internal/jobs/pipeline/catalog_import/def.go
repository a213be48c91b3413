package catalog_import

import (
	"gorm.io/gorm"

	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
	"github.com/yungbote/lookbook-backend/internal/services"
)

// Pipeline walks the retailer feed and upserts every product, encoding
// images as it goes. Triggered from the catalog API rather than the
// nightly schedule since feed timing is the retailer's call.
type Pipeline struct {
	db      *gorm.DB
	log     *logger.Logger
	catalog services.CatalogService
}

func New(db *gorm.DB, baseLog *logger.Logger, catalog services.CatalogService) *Pipeline {
	return &Pipeline{
		db:      db,
		log:     baseLog.With("job", types.JobTypeCatalogImport),
		catalog: catalog,
	}
}

func (p *Pipeline) Type() string { return types.JobTypeCatalogImport }
