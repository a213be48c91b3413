package services

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StrategyWeights blend the per-layer scores in the hybrid feed. The
// defaults prioritize conversion power over pure popularity.
type StrategyWeights struct {
	Behavioral    float64 `yaml:"behavioral"`
	Creator       float64 `yaml:"creator"`
	SimilarUsers  float64 `yaml:"similar_users"`
	Visual        float64 `yaml:"visual"`
	Wardrobe      float64 `yaml:"wardrobe"`
	Collaborative float64 `yaml:"collaborative"`
	Trending      float64 `yaml:"trending"`
}

// ContentWeights combine the five content-based sub-scores.
type ContentWeights struct {
	Behavioral      float64 `yaml:"behavioral"`
	Visual          float64 `yaml:"visual"`
	Attributes      float64 `yaml:"attributes"`
	WardrobeGap     float64 `yaml:"wardrobe_gap"`
	OutfitPotential float64 `yaml:"outfit_potential"`
}

// VisualWeights re-rank visual search candidates against profile and
// attribute signals.
type VisualWeights struct {
	Visual   float64 `yaml:"visual"`
	Text     float64 `yaml:"text"`
	Category float64 `yaml:"category"`
	Color    float64 `yaml:"color"`
	Features float64 `yaml:"features"`
	Material float64 `yaml:"material"`
}

type RankingWeights struct {
	Strategies StrategyWeights `yaml:"strategies"`
	Content    ContentWeights  `yaml:"content"`
	Visual     VisualWeights   `yaml:"visual"`
}

// DefaultRankingWeights are the tuned production defaults. A yaml file
// referenced by RANKING_WEIGHTS_PATH overrides individual values.
func DefaultRankingWeights() RankingWeights {
	return RankingWeights{
		Strategies: StrategyWeights{
			Behavioral:    0.35,
			Creator:       0.25,
			SimilarUsers:  0.20,
			Visual:        0.10,
			Wardrobe:      0.05,
			Collaborative: 0.03,
			Trending:      0.02,
		},
		Content: ContentWeights{
			Behavioral:      0.35,
			Visual:          0.25,
			Attributes:      0.15,
			WardrobeGap:     0.15,
			OutfitPotential: 0.10,
		},
		Visual: VisualWeights{
			Visual:   0.40,
			Text:     0.20,
			Category: 0.15,
			Color:    0.10,
			Features: 0.10,
			Material: 0.05,
		},
	}
}

// LoadRankingWeights reads the override file when configured. Missing
// path or empty env falls back to defaults; a present but unreadable
// file is a hard error so a typo cannot silently revert tuning.
func LoadRankingWeights() (RankingWeights, error) {
	out := DefaultRankingWeights()
	path := strings.TrimSpace(os.Getenv("RANKING_WEIGHTS_PATH"))
	if path == "" {
		return out, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return RankingWeights{}, fmt.Errorf("read ranking weights %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return RankingWeights{}, fmt.Errorf("parse ranking weights %q: %w", path, err)
	}
	return out, nil
}
