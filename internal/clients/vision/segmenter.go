package vision

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/apiv1"
	"google.golang.org/api/option"

	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
	"github.com/yungbote/lookbook-backend/internal/platform/ctxutil"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

// Region is one detected garment in an outfit photo. The bounding box is
// fractional so crops survive any later resize.
type Region struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
}

// Segmenter finds individual garment regions in a full-outfit image.
type Segmenter interface {
	DetectGarments(ctx context.Context, img []byte) ([]Region, error)
	Close() error
}

// garmentLabels is the subset of object-localization labels treated as
// shoppable garments. Everything else (person, face, furniture) is noise.
var garmentLabels = map[string]string{
	"top":        "tops",
	"shirt":      "tops",
	"t-shirt":    "tops",
	"blouse":     "tops",
	"sweater":    "tops",
	"outerwear":  "outerwear",
	"jacket":     "outerwear",
	"coat":       "outerwear",
	"pants":      "bottoms",
	"jeans":      "bottoms",
	"shorts":     "bottoms",
	"skirt":      "bottoms",
	"dress":      "dresses",
	"shoe":       "footwear",
	"boot":       "footwear",
	"sandal":     "footwear",
	"high heels": "footwear",
	"sneakers":   "footwear",
	"handbag":    "accessories",
	"bag":        "accessories",
	"backpack":   "accessories",
	"hat":        "accessories",
	"sunglasses": "accessories",
	"glasses":    "accessories",
	"scarf":      "accessories",
	"belt":       "accessories",
	"watch":      "accessories",
	"necklace":   "accessories",
	"earrings":   "accessories",
}

const minRegionScore = 0.5

type segmenter struct {
	log    *logger.Logger
	client *vision.ImageAnnotatorClient
}

func NewSegmenter(log *logger.Logger) (Segmenter, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "VisionSegmenter")

	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	ctx := context.Background()

	var (
		client *vision.ImageAnnotatorClient
		err    error
	)
	if creds != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(creds))
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &segmenter{log: slog, client: client}, nil
}

func (s *segmenter) DetectGarments(ctx context.Context, img []byte) ([]Region, error) {
	if len(img) == 0 {
		return nil, fmt.Errorf("%w: empty image", pkgerrors.ErrBadQueryImage)
	}

	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	vimg, err := vision.NewImageFromReader(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrBadQueryImage, err)
	}

	annotations, err := s.client.LocalizeObjects(ctx, vimg, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: vision LocalizeObjects: %v", pkgerrors.ErrUpstreamUnavailable, err)
	}

	regions := make([]Region, 0, len(annotations))
	for _, obj := range annotations {
		label, ok := garmentLabels[strings.ToLower(strings.TrimSpace(obj.Name))]
		if !ok || float64(obj.Score) < minRegionScore {
			continue
		}
		if obj.BoundingPoly == nil || len(obj.BoundingPoly.NormalizedVertices) == 0 {
			continue
		}
		r := Region{Label: label, Score: float64(obj.Score), X0: 1, Y0: 1}
		for _, v := range obj.BoundingPoly.NormalizedVertices {
			x := clamp01(float64(v.X))
			y := clamp01(float64(v.Y))
			if x < r.X0 {
				r.X0 = x
			}
			if y < r.Y0 {
				r.Y0 = y
			}
			if x > r.X1 {
				r.X1 = x
			}
			if y > r.Y1 {
				r.Y1 = y
			}
		}
		if r.X1-r.X0 <= 0 || r.Y1-r.Y0 <= 0 {
			continue
		}
		regions = append(regions, r)
	}

	s.log.Debug("garment regions detected", "total_objects", len(annotations), "garments", len(regions))
	return regions, nil
}

func (s *segmenter) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
