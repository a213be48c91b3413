package app

import (
	"fmt"

	"github.com/yungbote/lookbook-backend/internal/clients/gcp"
	redisclient "github.com/yungbote/lookbook-backend/internal/clients/redis"
	"github.com/yungbote/lookbook-backend/internal/clients/retailer"
	"github.com/yungbote/lookbook-backend/internal/clients/vision"
	"github.com/yungbote/lookbook-backend/internal/platform/clip"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
	"github.com/yungbote/lookbook-backend/internal/platform/vecindex"
)

// Clients hold every external dependency. Encoder and Index are
// required; the rest degrade to nil and the services that take them
// tolerate that.
type Clients struct {
	Counters  redisclient.Counters
	Bucket    gcp.BucketService
	Segmenter vision.Segmenter
	Retailer  retailer.Client
	Encoder   clip.Client
	Index     *vecindex.Index
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	counters, err := redisclient.NewCounters(log)
	if err != nil {
		log.Warn("redis counters unavailable", "error", err.Error())
	} else {
		c.Counters = counters
	}

	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		log.Warn("gcs bucket unavailable", "error", err.Error())
	} else {
		c.Bucket = bucket
	}

	segmenter, err := vision.NewSegmenter(log)
	if err != nil {
		log.Warn("vision segmenter unavailable, shop-the-look disabled", "error", err.Error())
	} else {
		c.Segmenter = segmenter
	}

	feed, err := retailer.NewClient(log)
	if err != nil {
		log.Warn("retailer feed unavailable", "error", err.Error())
	} else {
		c.Retailer = feed
	}

	clipCfg, err := clip.ResolveConfigFromEnv()
	if err != nil {
		return c, fmt.Errorf("resolve clip config: %w", err)
	}
	encoder, err := clip.NewClient(log, clipCfg)
	if err != nil {
		return c, fmt.Errorf("init clip client: %w", err)
	}
	c.Encoder = encoder

	indexCfg, err := vecindex.ResolveConfigFromEnv()
	if err != nil {
		return c, fmt.Errorf("resolve index config: %w", err)
	}
	index, err := vecindex.New(log, indexCfg)
	if err != nil {
		return c, fmt.Errorf("init vector index: %w", err)
	}
	if err := index.Load(); err != nil {
		// a missing snapshot is normal on first boot, the nightly
		// rebuild fills the index
		log.Warn("vector index snapshot not loaded", "error", err.Error())
	}
	c.Index = index

	return c, nil
}
