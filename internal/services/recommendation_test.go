package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

func newTestRecService(t *testing.T) *recommendationService {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &recommendationService{
		log:     log.With("service", "RecommendationService"),
		weights: DefaultRankingWeights(),
	}
}

// tripleSignalInput builds a user whose behavioral, creator and
// similar-user layers all agree on the product "star".
func tripleSignalInput(userID uuid.UUID) *recInput {
	fan := uuid.New()
	peer := uuid.New()
	creatorMeta := map[string]any{types.MetaCreatorID: "creator-1"}

	profile := &types.StyleProfile{
		UserID:             userID,
		FavoriteBrands:     tokensJSON([]string{"zara"}),
		FavoriteCategories: tokensJSON([]string{"tops"}),
		EngagementScore:    12,
	}
	peerProfile := &types.StyleProfile{
		UserID:             peer,
		FavoriteBrands:     tokensJSON([]string{"zara"}),
		FavoriteCategories: tokensJSON([]string{"tops"}),
		EngagementScore:    12,
	}

	return &recInput{
		userID:  userID,
		now:     scoringNow,
		profile: profile,
		own: []*types.Interaction{
			rec(userID, types.ActionFollowCreator, "creator-1", 10*24*time.Hour, creatorMeta),
		},
		all: []*types.Interaction{
			rec(fan, types.ActionFavoriteFromCreator, "star", 6*time.Hour, creatorMeta),
			rec(peer, types.ActionPurchaseComplete, "star", 12*time.Hour, nil),
			rec(fan, types.ActionFavoriteProduct, "runner-up", time.Hour, nil),
		},
		otherProfiles: []*types.StyleProfile{peerProfile},
		analytics: map[string]*types.ProductAnalytics{
			"star":      {ProductID: "star", FavoriteCount: 5},
			"runner-up": {ProductID: "runner-up", ViewCount: 40},
		},
		products: map[string]*types.Product{
			"star":      {ProductID: "star", Category: "tops", Price: 80},
			"runner-up": {ProductID: "runner-up", Category: "bottoms", Price: 60},
		},
	}
}

func TestHybridTripleSignalBoost(t *testing.T) {
	svc := newTestRecService(t)
	userID := uuid.New()

	recs, err := svc.hybrid(tripleSignalInput(userID))
	if err != nil {
		t.Fatalf("hybrid: %v", err)
	}
	sortRecommendations(recs)
	if len(recs) == 0 {
		t.Fatal("expected recommendations")
	}

	top := recs[0]
	if top.ProductID != "star" {
		t.Fatalf("top product = %q, want star", top.ProductID)
	}
	if top.Priority != PriorityUrgent {
		t.Fatalf("triple-signal priority = %q, want urgent", top.Priority)
	}
	if !containsString(top.Signals, "triple signal") {
		t.Fatalf("expected triple signal marker, got %v", top.Signals)
	}
	for _, want := range []string{StrategyContent, StrategyCreator, StrategySimilarUsers} {
		if !containsString(top.Strategies, want) {
			t.Fatalf("expected strategy %q in %v", want, top.Strategies)
		}
	}
	for _, r := range recs[1:] {
		if r.Priority == PriorityUrgent {
			t.Fatalf("only the triple-signal product should be urgent, got %q", r.ProductID)
		}
	}
}

func TestHybridNeverReturnsSeenProducts(t *testing.T) {
	svc := newTestRecService(t)
	userID := uuid.New()
	in := tripleSignalInput(userID)
	in.own = append(in.own, rec(userID, types.ActionViewProduct, "star", time.Hour, nil))

	recs, err := svc.hybrid(in)
	if err != nil {
		t.Fatalf("hybrid: %v", err)
	}
	for _, r := range recs {
		if r.ProductID == "star" {
			t.Fatal("seen product surfaced in hybrid output")
		}
	}
}

func TestHybridColdStartFallsBackToTrending(t *testing.T) {
	svc := newTestRecService(t)
	userID := uuid.New()
	other := uuid.New()

	in := &recInput{
		userID:  userID,
		now:     scoringNow,
		profile: nil,
		all: []*types.Interaction{
			rec(other, types.ActionFavoriteProduct, "hot", time.Hour, nil),
			rec(other, types.ActionCanvasAdd, "hot", 2*time.Hour, nil),
		},
	}
	recs, err := svc.hybrid(in)
	if err != nil {
		t.Fatalf("hybrid: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("cold start should still serve trending products")
	}
	for _, r := range recs {
		if r.Priority == PriorityUrgent {
			t.Fatalf("cold start must not emit urgent priorities, got %q", r.ProductID)
		}
		if len(r.Strategies) != 1 || r.Strategies[0] != StrategyTrending {
			t.Fatalf("cold start strategies = %v, want trending only", r.Strategies)
		}
	}
}

func TestSortRecommendationsPriorityBeforeScore(t *testing.T) {
	recs := []Recommendation{
		{ProductID: "big-low", Score: 900, Priority: PriorityLow},
		{ProductID: "small-urgent", Score: 5, Priority: PriorityUrgent},
		{ProductID: "mid-urgent", Score: 50, Priority: PriorityUrgent},
		{ProductID: "tie-b", Score: 10, Priority: PriorityMedium},
		{ProductID: "tie-a", Score: 10, Priority: PriorityMedium},
	}
	sortRecommendations(recs)

	want := []string{"mid-urgent", "small-urgent", "tie-a", "tie-b", "big-low"}
	for i, id := range want {
		if recs[i].ProductID != id {
			t.Fatalf("position %d = %q, want %q (order %v)", i, recs[i].ProductID, id, recs)
		}
	}
}

func TestContentOnlyEmptyCandidatesIsEmptyNotError(t *testing.T) {
	svc := newTestRecService(t)
	userID := uuid.New()
	in := &recInput{
		userID: userID,
		now:    scoringNow,
		profile: &types.StyleProfile{
			UserID:          userID,
			EngagementScore: 5,
		},
		own: []*types.Interaction{
			rec(userID, types.ActionViewProduct, "something", time.Hour, nil),
		},
	}
	recs, err := svc.contentOnly(in)
	if err != nil {
		t.Fatalf("contentOnly: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("no candidates should mean no recommendations, got %v", recs)
	}
}

func TestParseStrategyTrendingWindows(t *testing.T) {
	cases := map[string]time.Duration{
		"trending":       trendingWindow,
		"trending:day":   24 * time.Hour,
		"trending:week":  7 * 24 * time.Hour,
		"trending:month": 30 * 24 * time.Hour,
		"trending:all":   recWindow,
	}
	for raw, want := range cases {
		base, window, err := parseStrategy(raw)
		if err != nil {
			t.Fatalf("parseStrategy(%q): %v", raw, err)
		}
		if base != StrategyTrending || window != want {
			t.Fatalf("parseStrategy(%q) = %q, %v; want trending, %v", raw, base, window, want)
		}
	}

	if base, window, err := parseStrategy(""); err != nil || base != StrategyHybrid || window != trendingWindow {
		t.Fatalf("blank strategy = %q, %v, %v", base, window, err)
	}
	if _, _, err := parseStrategy("trending:year"); err == nil {
		t.Fatal("unknown window must be rejected")
	}
	if _, _, err := parseStrategy("content:week"); err == nil {
		t.Fatal("window suffix on a non-trending strategy must be rejected")
	}
}

// hybridScoreOf runs the blend and returns one product's final score.
func hybridScoreOf(t *testing.T, svc *recommendationService, in *recInput, productID string) float64 {
	t.Helper()
	recs, err := svc.hybrid(in)
	if err != nil {
		t.Fatalf("hybrid: %v", err)
	}
	for _, r := range recs {
		if r.ProductID == productID {
			return r.Score
		}
	}
	t.Fatalf("product %q missing from hybrid output", productID)
	return 0
}

func TestHybridScoreMonotonicUnderStrongerSignals(t *testing.T) {
	svc := newTestRecService(t)
	userID := uuid.New()

	baseStar := hybridScoreOf(t, svc, tripleSignalInput(userID), "star")
	baseRunnerUp := hybridScoreOf(t, svc, tripleSignalInput(userID), "runner-up")

	// More engagement on a product raises one layer's input; the blended
	// score must never move the other way.
	amped := tripleSignalInput(userID)
	booster := uuid.New()
	amped.all = append(amped.all,
		rec(booster, types.ActionFavoriteProduct, "star", time.Hour, nil),
		rec(booster, types.ActionCanvasAdd, "star", 2*time.Hour, nil),
		rec(booster, types.ActionFavoriteProduct, "runner-up", time.Hour, nil),
		rec(booster, types.ActionCanvasAdd, "runner-up", 30*time.Minute, nil),
	)
	if got := hybridScoreOf(t, svc, amped, "star"); got < baseStar {
		t.Fatalf("star score dropped from %v to %v after stronger signals", baseStar, got)
	}
	if got := hybridScoreOf(t, svc, amped, "runner-up"); got < baseRunnerUp {
		t.Fatalf("runner-up score dropped from %v to %v after stronger signals", baseRunnerUp, got)
	}

	// Same check on a raised analytics sub-score.
	richer := tripleSignalInput(userID)
	richer.analytics["runner-up"].FavoriteCount = 50
	if got := hybridScoreOf(t, svc, richer, "runner-up"); got < baseRunnerUp {
		t.Fatalf("runner-up score dropped from %v to %v after richer analytics", baseRunnerUp, got)
	}
}

func TestAttachHotCountsHonorsWindowAndFailures(t *testing.T) {
	svc := newTestRecService(t)
	in := &recInput{
		analytics: map[string]*types.ProductAnalytics{
			"hot": {ProductID: "hot"},
		},
	}

	// No counters wired: snapshot stays database-only.
	svc.attachHotCounts(context.Background(), in, trendingWindow)
	if in.hotCounts != nil {
		t.Fatal("hot counts attached without a counter store")
	}

	svc.counters = &fakeCounters{windows: map[string]map[string]int64{
		"hot": {types.ActionViewProduct: 9},
	}}
	svc.attachHotCounts(context.Background(), in, trendingWindow)
	if in.hotCounts["hot"][types.ActionViewProduct] != 9 || in.hotWindow != trendingWindow {
		t.Fatalf("hot counts not attached: %+v", in.hotCounts)
	}

	// Windows past the bucket TTL never touch the store.
	wide := &recInput{analytics: in.analytics}
	svc.attachHotCounts(context.Background(), wide, 30*24*time.Hour)
	if wide.hotCounts != nil {
		t.Fatal("month window must stay on the database")
	}

	// A failing store degrades to the database instead of erroring.
	svc.counters = &fakeCounters{err: errors.New("redis down")}
	broken := &recInput{analytics: in.analytics}
	svc.attachHotCounts(context.Background(), broken, trendingWindow)
	if broken.hotCounts != nil {
		t.Fatal("failed counter reads must leave the snapshot database-only")
	}
}
