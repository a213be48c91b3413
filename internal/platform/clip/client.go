package clip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
	"github.com/yungbote/lookbook-backend/internal/pkg/httpx"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

// Client embeds images and text into the same vector space via the
// encoder sidecar. Returned vectors are L2-normalized and always of
// length Dim().
type Client interface {
	EncodeImage(ctx context.Context, image []byte) ([]float32, error)
	EncodeImageBatch(ctx context.Context, images [][]byte) ([][]float32, error)
	EncodeText(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	maxRetries := 3
	if raw := strings.TrimSpace(os.Getenv("CLIP_MAX_RETRIES")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &client{
		log:        log.With("service", "ClipClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: maxRetries,
	}, nil
}

func (c *client) Dim() int { return c.cfg.EmbedDim }

type encodeImageRequest struct {
	Images []string `json:"images"`
}

type encodeTextRequest struct {
	Texts []string `json:"texts"`
}

type encodeResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (c *client) EncodeImage(ctx context.Context, image []byte) ([]float32, error) {
	out, err := c.EncodeImageBatch(ctx, [][]byte{image})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *client) EncodeImageBatch(ctx context.Context, images [][]byte) ([][]float32, error) {
	if len(images) == 0 {
		return [][]float32{}, nil
	}
	req := encodeImageRequest{Images: make([]string, len(images))}
	for i, img := range images {
		if len(img) == 0 {
			return nil, fmt.Errorf("%w: empty image at index %d", pkgerrors.ErrBadQueryImage, i)
		}
		req.Images[i] = base64.StdEncoding.EncodeToString(img)
	}

	var resp encodeResponse
	if err := c.do(ctx, "/encode/image", req, &resp); err != nil {
		return nil, err
	}
	return c.convert(resp.Embeddings, len(images))
}

func (c *client) EncodeText(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", pkgerrors.ErrInvalidArgument)
	}

	var resp encodeResponse
	if err := c.do(ctx, "/encode/text", encodeTextRequest{Texts: []string{text}}, &resp); err != nil {
		return nil, err
	}
	out, err := c.convert(resp.Embeddings, 1)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *client) convert(raw [][]float64, want int) ([][]float32, error) {
	if len(raw) != want {
		return nil, fmt.Errorf("%w: encoder returned %d embeddings for %d inputs",
			pkgerrors.ErrUpstreamUnavailable, len(raw), want)
	}
	out := make([][]float32, len(raw))
	for i, emb := range raw {
		if len(emb) != c.cfg.EmbedDim {
			return nil, fmt.Errorf("%w: encoder emitted dim %d, expected %d",
				pkgerrors.ErrDimensionMismatch, len(emb), c.cfg.EmbedDim)
		}
		out[i] = normalize(emb)
	}
	return out, nil
}

type clipHTTPError struct {
	StatusCode int
	Body       string
}

func (e *clipHTTPError) Error() string {
	return fmt.Sprintf("clip http %d: %s", e.StatusCode, e.Body)
}

func (e *clipHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := string(raw)
		if len(body) > 512 {
			body = body[:512]
		}
		return resp, raw, &clipHTTPError{StatusCode: resp.StatusCode, Body: body}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, path string, body any, out any) error {
	backoff := 500 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("%w: decode encoder response: %v", pkgerrors.ErrUpstreamUnavailable, uErr)
			}
			return nil
		}
		lastErr = err

		if !httpx.IsRetryableError(err) {
			break
		}
		if attempt == c.maxRetries {
			break
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 5*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("clip request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("%w: %v", pkgerrors.ErrUpstreamUnavailable, lastErr)
}

func normalize(vec []float64) []float32 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	out := make([]float32, len(vec))
	if sum == 0 {
		for i, v := range vec {
			out[i] = float32(v)
		}
		return out
	}
	norm := math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}
