package index_rebuild

import (
	"gorm.io/gorm"

	"github.com/yungbote/lookbook-backend/internal/clients/gcp"
	"github.com/yungbote/lookbook-backend/internal/clients/retailer"
	"github.com/yungbote/lookbook-backend/internal/data/repos"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/platform/clip"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
	"github.com/yungbote/lookbook-backend/internal/platform/vecindex"
)

// Pipeline re-encodes the whole catalog and swaps the vector index in a
// single atomic publish, then persists the new generation to disk.
// Product images come from the bucket cache first, the retailer second.
type Pipeline struct {
	db       *gorm.DB
	log      *logger.Logger
	products repos.ProductRepo
	encoder  clip.Client
	index    *vecindex.Index
	bucket   gcp.BucketService
	feed     retailer.Client
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	products repos.ProductRepo,
	encoder clip.Client,
	index *vecindex.Index,
	bucket gcp.BucketService,
	feed retailer.Client,
) *Pipeline {
	return &Pipeline{
		db:       db,
		log:      baseLog.With("job", types.JobTypeIndexRebuild),
		products: products,
		encoder:  encoder,
		index:    index,
		bucket:   bucket,
		feed:     feed,
	}
}

func (p *Pipeline) Type() string { return types.JobTypeIndexRebuild }
