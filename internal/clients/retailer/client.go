package retailer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
	"github.com/yungbote/lookbook-backend/internal/pkg/httpx"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

// ProductRow is one feed entry from a retailer catalog export.
type ProductRow struct {
	ProductID     string   `json:"product_id"`
	Title         string   `json:"title"`
	Brand         string   `json:"brand"`
	Category      string   `json:"category"`
	Color         string   `json:"color"`
	Material      string   `json:"material"`
	Features      []string `json:"features"`
	Price         float64  `json:"price"`
	Currency      string   `json:"currency"`
	ImageURL      string   `json:"image_url"`
	AffiliateLink string   `json:"affiliate_link"`
	Retailer      string   `json:"retailer"`
	InStock       bool     `json:"in_stock"`
}

// SearchFilters narrow a retailer product search.
type SearchFilters struct {
	Category    string
	Brand       string
	PriceMin    *float64
	PriceMax    *float64
	InStockOnly bool
}

// Client pulls product feeds and product imagery from an affiliate
// aggregator. Paging is cursor based; an empty next cursor ends the feed.
type Client interface {
	FetchCatalog(ctx context.Context, cursor string, limit int) ([]ProductRow, string, error)
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
	SearchProducts(ctx context.Context, query string, filters *SearchFilters) ([]ProductRow, error)
	GetProduct(ctx context.Context, productID string) (*ProductRow, error)
	Autocomplete(ctx context.Context, prefix string) ([]string, error)
}

type client struct {
	log        *logger.Logger
	feedURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	feedURL := strings.TrimSpace(os.Getenv("RETAILER_FEED_URL"))
	if feedURL == "" {
		return nil, fmt.Errorf("missing RETAILER_FEED_URL")
	}
	return &client{
		log:        log.With("service", "RetailerClient"),
		feedURL:    strings.TrimRight(feedURL, "/"),
		apiKey:     strings.TrimSpace(os.Getenv("RETAILER_API_KEY")),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type feedResponse struct {
	Products   []ProductRow `json:"products"`
	NextCursor string       `json:"next_cursor"`
}

func (c *client) FetchCatalog(ctx context.Context, cursor string, limit int) ([]ProductRow, string, error) {
	if limit <= 0 {
		limit = 200
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL+"/products?"+q.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: retailer feed: %v", pkgerrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if httpx.IsRetryableHTTPStatus(resp.StatusCode) {
			return nil, "", fmt.Errorf("%w: retailer feed status %d", pkgerrors.ErrUpstreamUnavailable, resp.StatusCode)
		}
		return nil, "", fmt.Errorf("retailer feed status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, "", fmt.Errorf("%w: decode retailer feed: %v", pkgerrors.ErrUpstreamUnavailable, err)
	}
	return feed.Products, feed.NextCursor, nil
}

func (c *client) SearchProducts(ctx context.Context, query string, filters *SearchFilters) ([]ProductRow, error) {
	q := url.Values{}
	q.Set("q", strings.TrimSpace(query))
	if filters != nil {
		if filters.Category != "" {
			q.Set("category", filters.Category)
		}
		if filters.Brand != "" {
			q.Set("brand", filters.Brand)
		}
		if filters.PriceMin != nil {
			q.Set("price_min", strconv.FormatFloat(*filters.PriceMin, 'f', 2, 64))
		}
		if filters.PriceMax != nil {
			q.Set("price_max", strconv.FormatFloat(*filters.PriceMax, 'f', 2, 64))
		}
		if filters.InStockOnly {
			q.Set("in_stock", "true")
		}
	}
	var out struct {
		Products []ProductRow `json:"products"`
	}
	if err := c.getJSON(ctx, "/products/search?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *client) GetProduct(ctx context.Context, productID string) (*ProductRow, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: product id required", pkgerrors.ErrInvalidArgument)
	}
	var out ProductRow
	if err := c.getJSON(ctx, "/products/"+url.PathEscape(productID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) Autocomplete(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	q := url.Values{}
	q.Set("prefix", prefix)
	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := c.getJSON(ctx, "/autocomplete?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

func (c *client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL+path, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: retailer api: %v", pkgerrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: retailer product", pkgerrors.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		if httpx.IsRetryableHTTPStatus(resp.StatusCode) {
			return fmt.Errorf("%w: retailer api status %d", pkgerrors.ErrUpstreamUnavailable, resp.StatusCode)
		}
		return fmt.Errorf("retailer api status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode retailer response: %v", pkgerrors.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (c *client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, fmt.Errorf("%w: empty image url", pkgerrors.ErrInvalidArgument)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch image: %v", pkgerrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: image status %d", pkgerrors.ErrUpstreamUnavailable, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %v", pkgerrors.ErrUpstreamUnavailable, err)
	}
	return raw, nil
}
