package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisclient "github.com/yungbote/lookbook-backend/internal/clients/redis"
	"github.com/yungbote/lookbook-backend/internal/data/repos"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
	"github.com/yungbote/lookbook-backend/internal/platform/vecindex"
)

// Recommendation strategies selectable per request.
const (
	StrategyHybrid        = "hybrid"
	StrategyContent       = "content"
	StrategyCollaborative = "collaborative"
	StrategyTrending      = "trending"
	StrategyCreator       = "creator"
	StrategySimilarUsers  = "similar_users"
)

// Priority buckets, strongest first.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

const (
	defaultRecLimit  = 20
	maxRecLimit      = 100
	recWindow        = 90 * 24 * time.Hour
	trendingWindow   = 24 * time.Hour
	recInteractions  = 2000
	poolInteractions = 20000
	candidatePool    = 200
	// trendingMinEvents gates the recently-engaged candidate scan.
	trendingMinEvents = 5
	// countersMaxWindow is the longest lookback the Redis hourly
	// buckets can serve before their TTL ages them out.
	countersMaxWindow = 7 * 24 * time.Hour
)

// trendingWindows are the selectable trending lookbacks, picked with a
// ":window" strategy suffix such as "trending:week".
var trendingWindows = map[string]time.Duration{
	"day":   trendingWindow,
	"week":  7 * 24 * time.Hour,
	"month": 30 * 24 * time.Hour,
	"all":   recWindow,
}

// Recommendation is one ranked product with the provenance that put it
// there.
type Recommendation struct {
	ProductID  string   `json:"product_id"`
	Score      float64  `json:"score"`
	Reason     string   `json:"reason"`
	Strategies []string `json:"strategies"`
	Priority   string   `json:"priority"`
	Signals    []string `json:"signals,omitempty"`
}

type RecommendationService interface {
	// Recommend returns up to limit products for the user under the given
	// strategy. Products the user has already interacted with are never
	// returned. Cold-start users degrade to trending.
	Recommend(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int, strategy string) ([]Recommendation, error)
}

type recommendationService struct {
	db           *gorm.DB
	log          *logger.Logger
	interactions repos.InteractionRepo
	profiles     repos.StyleProfileRepo
	analytics    repos.ProductAnalyticsRepo
	products     repos.ProductRepo
	index        *vecindex.Index
	counters     redisclient.Counters
	weights      RankingWeights
}

// NewRecommendationService wires the read side of the ranking engine.
// counters may be nil; trending then reads the database only.
func NewRecommendationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	interactions repos.InteractionRepo,
	profiles repos.StyleProfileRepo,
	analytics repos.ProductAnalyticsRepo,
	products repos.ProductRepo,
	index *vecindex.Index,
	counters redisclient.Counters,
	weights RankingWeights,
) RecommendationService {
	return &recommendationService{
		db:           db,
		log:          baseLog.With("service", "RecommendationService"),
		interactions: interactions,
		profiles:     profiles,
		analytics:    analytics,
		products:     products,
		index:        index,
		counters:     counters,
		weights:      weights,
	}
}

func (s *recommendationService) Recommend(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int, strategy string) ([]Recommendation, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id required", pkgerrors.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = defaultRecLimit
	}
	if limit > maxRecLimit {
		limit = maxRecLimit
	}
	strategy, window, err := parseStrategy(strategy)
	if err != nil {
		return nil, err
	}

	in, err := s.loadInput(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	s.attachHotCounts(ctx, in, window)

	var recs []Recommendation
	switch strategy {
	case StrategyHybrid:
		recs, err = s.hybrid(in)
	case StrategyContent:
		recs, err = s.contentOnly(in)
	case StrategyCollaborative:
		recs = fromLayer(collaborativeScores(in), StrategyCollaborative)
	case StrategyTrending:
		recs = fromLayer(trendingScores(in, window), StrategyTrending)
	case StrategyCreator:
		recs = fromLayer(creatorScores(in), StrategyCreator)
	case StrategySimilarUsers:
		recs = fromLayer(similarUserScores(in), StrategySimilarUsers)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", pkgerrors.ErrInvalidArgument, strategy)
	}
	if err != nil {
		return nil, err
	}

	sortRecommendations(recs)
	if len(recs) > limit {
		recs = recs[:limit]
	}
	s.log.Info("recommendations served",
		"user_id", userID.String(),
		"strategy", strategy,
		"count", len(recs))
	return recs, nil
}

// parseStrategy splits an optional ":window" suffix off the trending
// strategy, e.g. "trending:week". Every other strategy keeps the default
// day window for its trending layer.
func parseStrategy(strategy string) (string, time.Duration, error) {
	strategy = strings.ToLower(strings.TrimSpace(strategy))
	if strategy == "" {
		return StrategyHybrid, trendingWindow, nil
	}
	base, suffix, found := strings.Cut(strategy, ":")
	if !found {
		return base, trendingWindow, nil
	}
	if base != StrategyTrending {
		return "", 0, fmt.Errorf("%w: strategy %q takes no window", pkgerrors.ErrInvalidArgument, base)
	}
	window, ok := trendingWindows[suffix]
	if !ok {
		return "", 0, fmt.Errorf("%w: unknown trending window %q", pkgerrors.ErrInvalidArgument, suffix)
	}
	return base, window, nil
}

// attachHotCounts overlays the Redis rolling counters onto the candidate
// pool so trending sees events the interaction snapshot may have missed.
// Best effort: any failure leaves the snapshot database-only, and windows
// past the buckets' TTL never touch Redis at all.
func (s *recommendationService) attachHotCounts(ctx context.Context, in *recInput, window time.Duration) {
	if s.counters == nil || window > countersMaxWindow {
		return
	}
	hot := make(map[string]map[string]int64, len(in.analytics))
	for productID := range in.analytics {
		counts, err := s.counters.WindowCounts(ctx, productID, window)
		if err != nil {
			s.log.Debug("hot counters unavailable, trending stays on the database", "error", err.Error())
			return
		}
		if len(counts) > 0 {
			hot[productID] = counts
		}
	}
	in.hotCounts = hot
	in.hotWindow = window
}

// loadInput assembles one consistent snapshot for all scorers.
func (s *recommendationService) loadInput(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*recInput, error) {
	now := time.Now().UTC()
	since := now.Add(-recWindow)

	profile, err := s.profiles.GetByUserID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	own, err := s.interactions.ListByUser(ctx, tx, userID, since, nil, recInteractions)
	if err != nil {
		return nil, err
	}
	all, err := s.interactions.ListByActionsSince(ctx, tx, nil, since, poolInteractions)
	if err != nil {
		return nil, err
	}
	otherProfiles, err := s.profiles.ListOthers(ctx, tx, userID, 0)
	if err != nil {
		return nil, err
	}
	top, err := s.analytics.TopEngaged(ctx, tx, candidatePool)
	if err != nil {
		return nil, err
	}
	// Freshly engaged products may not have climbed into the lifetime top
	// yet; the windowed scan keeps them in the candidate pool.
	recent, err := s.analytics.ListEngagedSince(ctx, tx, now.Add(-trendingWindow), trendingMinEvents, candidatePool)
	if err != nil {
		return nil, err
	}

	analytics := make(map[string]*types.ProductAnalytics, len(top)+len(recent))
	ids := make([]string, 0, len(top)+len(recent))
	for _, a := range append(top, recent...) {
		if _, ok := analytics[a.ProductID]; ok {
			continue
		}
		analytics[a.ProductID] = a
		ids = append(ids, a.ProductID)
	}
	productRows, err := s.products.GetByProductIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	products := make(map[string]*types.Product, len(productRows))
	for _, p := range productRows {
		products[p.ProductID] = p
	}

	in := &recInput{
		userID:        userID,
		now:           now,
		profile:       profile,
		own:           own,
		all:           all,
		otherProfiles: otherProfiles,
		analytics:     analytics,
		products:      products,
	}
	if s.index != nil {
		in.productVector = s.index.Vector
		in.wardrobeCentroid = s.wardrobeCentroid(own)
	}
	return in, nil
}

// wardrobeCentroid averages the index vectors of the user's wardrobe
// uploads. Empty when none of the uploads are indexed.
func (s *recommendationService) wardrobeCentroid(own []*types.Interaction) []float32 {
	var sum []float64
	n := 0
	for _, rec := range own {
		if rec.ActionType != types.ActionWardrobeUpload || rec.ItemID == "" {
			continue
		}
		vec, ok := s.index.Vector(rec.ItemID)
		if !ok {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(vec))
		}
		if len(vec) != len(sum) {
			continue
		}
		for i, v := range vec {
			sum[i] += float64(v)
		}
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]float32, len(sum))
	var norm float64
	for i, v := range sum {
		v /= float64(n)
		out[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range out {
			out[i] *= inv
		}
	}
	return out
}

// contentOnly runs the five-part composite, falling back to trending when
// the user is too cold for content scoring to mean anything.
func (s *recommendationService) contentOnly(in *recInput) ([]Recommendation, error) {
	if coldStart(in) {
		return s.coldStartRecs(in), nil
	}
	scores := contentScores(in, s.weights.Content)
	recs := make([]Recommendation, 0, len(scores))
	for productID, cs := range scores {
		recs = append(recs, Recommendation{
			ProductID:  productID,
			Score:      cs.Total,
			Reason:     "Matches your style",
			Strategies: []string{StrategyContent},
			Priority:   priorityForScore(cs.Total),
		})
	}
	return recs, nil
}

// hybrid blends every strategy layer under the configured weights and
// applies multi-signal boosts.
func (s *recommendationService) hybrid(in *recInput) ([]Recommendation, error) {
	if coldStart(in) {
		return s.coldStartRecs(in), nil
	}
	w := s.weights.Strategies

	content := contentScores(in, s.weights.Content)
	behavioral := map[string]layerScore{}
	visual := map[string]layerScore{}
	wardrobe := map[string]layerScore{}
	for productID, cs := range content {
		if cs.Behavioral > 0 {
			behavioral[productID] = layerScore{Score: cs.Behavioral, Reason: "Matches your style"}
		}
		if cs.Visual > 0 {
			visual[productID] = layerScore{Score: cs.Visual, Reason: "Looks like your wardrobe"}
		}
		if cs.WardrobeGap > 0 {
			wardrobe[productID] = layerScore{Score: cs.WardrobeGap, Reason: "Fills a gap in your wardrobe"}
		}
	}

	layers := []struct {
		name   string
		weight float64
		scores map[string]layerScore
	}{
		{StrategyContent, w.Behavioral, behavioral},
		{StrategyCreator, w.Creator, creatorScores(in)},
		{StrategySimilarUsers, w.SimilarUsers, similarUserScores(in)},
		{"visual", w.Visual, visual},
		{"wardrobe", w.Wardrobe, wardrobe},
		{StrategyCollaborative, w.Collaborative, collaborativeScores(in)},
		{StrategyTrending, w.Trending, trendingScores(in, trendingWindow)},
	}

	type blended struct {
		score      float64
		topLayer   string
		topScore   float64
		reason     string
		strategies []string
		signals    []string
		hasCreator bool
		hasSimilar bool
		hasBehav   bool
	}
	byProduct := map[string]*blended{}
	for _, layer := range layers {
		for productID, ls := range layer.scores {
			b := byProduct[productID]
			if b == nil {
				b = &blended{}
				byProduct[productID] = b
			}
			b.score += layer.weight * ls.Score
			b.strategies = append(b.strategies, layer.name)
			b.signals = append(b.signals, ls.Signals...)
			if layer.weight*ls.Score > b.topScore {
				b.topScore = layer.weight * ls.Score
				b.topLayer = layer.name
				b.reason = ls.Reason
			}
			switch layer.name {
			case StrategyCreator:
				b.hasCreator = true
			case StrategySimilarUsers:
				b.hasSimilar = true
			case StrategyContent:
				b.hasBehav = true
			}
		}
	}

	recs := make([]Recommendation, 0, len(byProduct))
	for productID, b := range byProduct {
		score := b.score
		priority := ""
		signals := b.signals
		switch {
		case b.hasBehav && b.hasCreator && b.hasSimilar:
			score *= 2.0
			priority = PriorityUrgent
			signals = append(signals, "triple signal")
		case b.hasCreator && b.hasSimilar:
			score *= 1.4
			priority = PriorityUrgent
		case twoOfThree(b.hasBehav, b.hasCreator, b.hasSimilar):
			score *= 1.5
			priority = PriorityUrgent
		default:
			priority = priorityForScore(score)
		}
		recs = append(recs, Recommendation{
			ProductID:  productID,
			Score:      score,
			Reason:     b.reason,
			Strategies: dedupeStrings(b.strategies),
			Priority:   priority,
			Signals:    signals,
		})
	}
	return recs, nil
}

// coldStartRecs is the degraded path for users with no usable history:
// trending only, capped priority.
func (s *recommendationService) coldStartRecs(in *recInput) []Recommendation {
	recs := fromLayer(trendingScores(in, trendingWindow), StrategyTrending)
	if len(recs) == 0 {
		// widen to the weekly window before giving up
		recs = fromLayer(trendingScores(in, 7*24*time.Hour), StrategyTrending)
	}
	for i := range recs {
		if recs[i].Priority == PriorityUrgent {
			recs[i].Priority = PriorityHigh
		}
	}
	s.log.Info("cold start, serving trending", "user_id", in.userID.String(), "count", len(recs))
	return recs
}

func coldStart(in *recInput) bool {
	return in.profile.Cold() && len(in.own) == 0
}

func fromLayer(scores map[string]layerScore, strategy string) []Recommendation {
	recs := make([]Recommendation, 0, len(scores))
	for productID, ls := range scores {
		recs = append(recs, Recommendation{
			ProductID:  productID,
			Score:      ls.Score,
			Reason:     ls.Reason,
			Strategies: []string{strategy},
			Priority:   priorityForScore(ls.Score),
			Signals:    ls.Signals,
		})
	}
	return recs
}

func priorityForScore(score float64) string {
	switch {
	case score >= 50:
		return PriorityHigh
	case score >= 20:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

var priorityRank = map[string]int{
	PriorityUrgent: 3,
	PriorityHigh:   2,
	PriorityMedium: 1,
	PriorityLow:    0,
}

// sortRecommendations orders by priority bucket then score, descending,
// with product ID as the final tiebreak so output is repeatable.
func sortRecommendations(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if priorityRank[recs[i].Priority] != priorityRank[recs[j].Priority] {
			return priorityRank[recs[i].Priority] > priorityRank[recs[j].Priority]
		}
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].ProductID < recs[j].ProductID
	})
}

func twoOfThree(a, b, c bool) bool {
	n := 0
	if a {
		n++
	}
	if b {
		n++
	}
	if c {
		n++
	}
	return n == 2
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

