package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

// Counters keeps hot rolling per-product counters in hourly buckets so
// trending can read a window without touching Postgres. The store is
// best-effort: a missing or unreachable Redis must never fail the
// interaction write path, so callers treat errors as advisory.
type Counters interface {
	Bump(ctx context.Context, productID string, actionType string) error
	// WindowCounts sums the buckets of the last window hours per action
	// type for the given product.
	WindowCounts(ctx context.Context, productID string, window time.Duration) (map[string]int64, error)
	Close() error
}

type counters struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewCounters(log *logger.Logger) (Counters, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_COUNTER_PREFIX"))
	if prefix == "" {
		prefix = "lb:counters"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &counters{
		log:    log.With("service", "RedisCounters"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    8 * 24 * time.Hour,
	}, nil
}

func (c *counters) key(productID, actionType string, bucket time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.prefix, productID, actionType, bucket.UTC().Format("2006010215"))
}

func (c *counters) Bump(ctx context.Context, productID string, actionType string) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis counters not initialized")
	}
	if productID == "" || actionType == "" {
		return nil
	}
	key := c.key(productID, actionType, time.Now())
	pipe := c.rdb.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *counters) WindowCounts(ctx context.Context, productID string, window time.Duration) (map[string]int64, error) {
	if c == nil || c.rdb == nil {
		return nil, fmt.Errorf("redis counters not initialized")
	}
	hours := int(window.Hours())
	if hours <= 0 {
		hours = 1
	}

	// One key per (action, hour bucket); MGET the whole window at once.
	actions := []string{"view_product", "favorite_product", "canvas_add", "click_to_retailer"}
	now := time.Now()
	keys := make([]string, 0, hours*len(actions))
	keyAction := make([]string, 0, hours*len(actions))
	for _, action := range actions {
		for h := 0; h < hours; h++ {
			keys = append(keys, c.key(productID, action, now.Add(-time.Duration(h)*time.Hour)))
			keyAction = append(keyAction, action)
		}
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(actions))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, convErr := strconv.ParseInt(s, 10, 64)
		if convErr != nil {
			continue
		}
		out[keyAction[i]] += n
	}
	return out, nil
}

func (c *counters) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
