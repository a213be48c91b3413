package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/lookbook-backend/internal/data/repos"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

const (
	// ProfileWindow is how far back the builder reads the interaction log.
	ProfileWindow = 90 * 24 * time.Hour

	recencyFloor = 0.3

	topKAttributes = 10
	topKKeywords   = 15
)

type StyleProfileService interface {
	// Get returns the stored profile, or ErrNotFound when none was built.
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StyleProfile, error)
	// Rebuild recomputes the profile from the last 90 days of the log and
	// replaces the stored row atomically.
	Rebuild(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StyleProfile, error)
}

type styleProfileService struct {
	db           *gorm.DB
	log          *logger.Logger
	interactions repos.InteractionRepo
	profiles     repos.StyleProfileRepo
}

func NewStyleProfileService(
	db *gorm.DB,
	baseLog *logger.Logger,
	interactions repos.InteractionRepo,
	profiles repos.StyleProfileRepo,
) StyleProfileService {
	return &styleProfileService{
		db:           db,
		log:          baseLog.With("service", "StyleProfileService"),
		interactions: interactions,
		profiles:     profiles,
	}
}

func (s *styleProfileService) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StyleProfile, error) {
	p, err := s.profiles.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: style profile for user", pkgerrors.ErrNotFound)
	}
	return p, nil
}

func (s *styleProfileService) Rebuild(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StyleProfile, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id required", pkgerrors.ErrInvalidArgument)
	}
	now := time.Now().UTC()
	window, err := s.interactions.ListByUser(ctx, tx, userID, now.Add(-ProfileWindow), nil, 0)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}

	profile := BuildStyleProfile(userID, window, now)
	if err := s.profiles.Upsert(ctx, tx, profile); err != nil {
		return nil, fmt.Errorf("store profile: %w", err)
	}
	s.log.Debug("style profile rebuilt",
		"user_id", userID.String(),
		"interactions", len(window),
		"engagement", profile.EngagementScore,
	)
	return profile, nil
}

// positiveActionSet drives token aggregation.
var positiveActionSet = func() map[string]bool {
	out := make(map[string]bool, len(types.PositiveActions))
	for _, a := range types.PositiveActions {
		out[a] = true
	}
	return out
}()

// priceActions contribute (price, w_eff) pairs to the budget stats.
var priceActions = map[string]bool{
	types.ActionFavoriteProduct:  true,
	types.ActionClickToRetailer:  true,
	types.ActionPurchaseComplete: true,
}

// BuildStyleProfile is the pure aggregation at the heart of the nightly
// rebuild. Given the same records and clock it always produces the same
// profile; ties resolve by lexicographic token order.
func BuildStyleProfile(userID uuid.UUID, records []*types.Interaction, now time.Time) *types.StyleProfile {
	brandWeights := map[string]float64{}
	colorWeights := map[string]float64{}
	categoryWeights := map[string]float64{}
	keywordWeights := map[string]float64{}
	creatorStyleWeights := map[string]float64{}

	// category -> size -> occurrences
	sizeCounts := map[string]map[string]int{}

	searchedCategories := map[string]bool{}
	positiveCategories := map[string]bool{}

	var priceSum, priceWeight float64
	var priceMin, priceMax *float64

	var totalEffective float64
	activeDays := map[string]bool{}
	frequencyCount := 0

	for _, rec := range records {
		actionWeight, known := types.ActionWeights[rec.ActionType]
		if !known {
			continue
		}
		daysAgo := now.Sub(rec.CreatedAt).Hours() / 24
		recency := 1 - daysAgo/90
		if recency < recencyFloor {
			recency = recencyFloor
		}
		wEff := actionWeight * recency * rec.Weight

		totalEffective += wEff
		activeDays[rec.CreatedAt.UTC().Format("2006-01-02")] = true

		if rec.ActionType == types.ActionFavoriteProduct || rec.ActionType == types.ActionClickToRetailer {
			frequencyCount++
		}

		if rec.ActionType == types.ActionSearch {
			if cat := normToken(rec.MetaString(types.MetaCategory)); cat != "" {
				searchedCategories[cat] = true
			}
		}

		if style := normToken(rec.MetaString(types.MetaCreatorStyle)); style != "" &&
			(rec.ActionType == types.ActionFollowCreator || rec.ActionType == types.ActionFavoriteFromCreator) {
			creatorStyleWeights[style] += wEff
		}

		if !positiveActionSet[rec.ActionType] {
			continue
		}

		if brand := normToken(rec.MetaString(types.MetaBrand)); brand != "" {
			brandWeights[brand] += wEff
		}
		if color := normToken(rec.MetaString(types.MetaColor)); color != "" {
			colorWeights[color] += wEff
		}
		category := normToken(rec.MetaString(types.MetaCategory))
		if category != "" {
			categoryWeights[category] += wEff
			positiveCategories[category] = true
		}
		for _, tag := range rec.MetaStrings(types.MetaTags) {
			if t := normToken(tag); t != "" {
				keywordWeights[t] += wEff
			}
		}

		if category != "" {
			if size := normToken(rec.MetaString(types.MetaSize)); size != "" {
				if sizeCounts[category] == nil {
					sizeCounts[category] = map[string]int{}
				}
				sizeCounts[category][size]++
			}
		}

		if priceActions[rec.ActionType] {
			if price, ok := rec.MetaFloat(types.MetaPrice); ok && price > 0 && wEff > 0 {
				priceSum += price * wEff
				priceWeight += wEff
				if priceMin == nil || price < *priceMin {
					priceMin = &price
				}
				if priceMax == nil || price > *priceMax {
					priceMax = &price
				}
			}
		}
	}

	avoided := make([]string, 0)
	for cat := range searchedCategories {
		if !positiveCategories[cat] {
			avoided = append(avoided, cat)
		}
	}
	sort.Strings(avoided)

	sizePrefs := datatypes.JSONMap{}
	for category, counts := range sizeCounts {
		sizePrefs[category] = mostFrequent(counts)
	}

	var avgPrice *float64
	if priceWeight > 0 {
		v := priceSum / priceWeight
		avgPrice = &v
	}

	frequency := types.FrequencyLow
	switch {
	case frequencyCount > 30:
		frequency = types.FrequencyHigh
	case frequencyCount > 10:
		frequency = types.FrequencyMedium
	}

	engagement := 0.0
	if len(records) > 0 {
		days := len(activeDays)
		if days < 1 {
			days = 1
		}
		engagement = totalEffective / float64(days)
		if engagement < 0 {
			engagement = 0
		}
	}

	profile := &types.StyleProfile{
		ID:                    uuid.New(),
		UserID:                userID,
		FavoriteColors:        tokensJSON(topTokens(colorWeights, topKAttributes)),
		FavoriteBrands:        tokensJSON(topTokens(brandWeights, topKAttributes)),
		FavoriteCategories:    tokensJSON(topTokens(categoryWeights, topKAttributes)),
		StyleKeywords:         tokensJSON(topTokens(keywordWeights, topKKeywords)),
		SizePreferences:       sizePrefs,
		AvgPricePoint:         avgPrice,
		BudgetMin:             priceMin,
		BudgetMax:             priceMax,
		ShoppingFrequency:     frequency,
		FollowedCreatorStyles: tokensJSON(topTokens(creatorStyleWeights, topKAttributes)),
		AvoidedCategories:     tokensJSON(avoided),
		EngagementScore:       engagement,
	}
	if len(records) > 0 {
		analyzedAt := now
		profile.LastAnalyzedAt = &analyzedAt
	}
	return profile
}

func normToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// topTokens orders by accumulated weight descending, lexicographic on
// ties, and keeps the first k.
func topTokens(weights map[string]float64, k int) []string {
	tokens := make([]string, 0, len(weights))
	for t := range weights {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(a, b int) bool {
		if weights[tokens[a]] != weights[tokens[b]] {
			return weights[tokens[a]] > weights[tokens[b]]
		}
		return tokens[a] < tokens[b]
	})
	if len(tokens) > k {
		tokens = tokens[:k]
	}
	return tokens
}

func mostFrequent(counts map[string]int) string {
	best := ""
	bestCount := -1
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > bestCount {
			best = k
			bestCount = counts[k]
		}
	}
	return best
}

func tokensJSON(tokens []string) datatypes.JSON {
	if tokens == nil {
		tokens = []string{}
	}
	raw, err := json.Marshal(tokens)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

// TokensFromJSON decodes an ordered token list column, nil-safe.
func TokensFromJSON(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
