package services

import (
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/lookbook-backend/internal/domain"
)

func TestBuildStyleProfileSingleFavorite(t *testing.T) {
	userID := uuid.New()
	records := []*types.Interaction{
		rec(userID, types.ActionFavoriteProduct, "jacket-1", 9*24*time.Hour, map[string]any{
			types.MetaBrand:    "Zara",
			types.MetaColor:    "Black",
			types.MetaCategory: "Jackets",
			types.MetaPrice:    80.0,
			types.MetaSize:     "M",
			types.MetaTags:     []any{"minimal", "street"},
		}),
		rec(userID, types.ActionSearch, "", 5*24*time.Hour, map[string]any{
			types.MetaCategory: "Dresses",
		}),
	}

	p := BuildStyleProfile(userID, records, scoringNow)

	if got := TokensFromJSON(p.FavoriteBrands); !reflect.DeepEqual(got, []string{"zara"}) {
		t.Fatalf("brands = %v", got)
	}
	if got := TokensFromJSON(p.FavoriteColors); !reflect.DeepEqual(got, []string{"black"}) {
		t.Fatalf("colors = %v", got)
	}
	if got := TokensFromJSON(p.FavoriteCategories); !reflect.DeepEqual(got, []string{"jackets"}) {
		t.Fatalf("categories = %v", got)
	}
	// equal weights fall back to lexicographic order
	if got := TokensFromJSON(p.StyleKeywords); !reflect.DeepEqual(got, []string{"minimal", "street"}) {
		t.Fatalf("keywords = %v", got)
	}
	if got := TokensFromJSON(p.AvoidedCategories); !reflect.DeepEqual(got, []string{"dresses"}) {
		t.Fatalf("avoided = %v", got)
	}
	if got, ok := p.SizePreferences["jackets"].(string); !ok || got != "m" {
		t.Fatalf("size preference = %v", p.SizePreferences)
	}
	if p.AvgPricePoint == nil || *p.AvgPricePoint != 80 {
		t.Fatalf("avg price = %v", p.AvgPricePoint)
	}
	if *p.BudgetMin != 80 || *p.BudgetMax != 80 {
		t.Fatalf("budget = [%v, %v]", *p.BudgetMin, *p.BudgetMax)
	}
	if p.ShoppingFrequency != types.FrequencyLow {
		t.Fatalf("frequency = %q", p.ShoppingFrequency)
	}
	if p.LastAnalyzedAt == nil || !p.LastAnalyzedAt.Equal(scoringNow) {
		t.Fatalf("last analyzed = %v", p.LastAnalyzedAt)
	}

	// favorite 9 days ago over two active days:
	// w_eff = 15 * (1 - 9/90) * 15, search adds 17 * (1 - 5/90) * 17
	favEff := 15 * 0.9 * 15.0
	searchEff := 17 * (1 - 5.0/90) * 17.0
	want := (favEff + searchEff) / 2
	if math.Abs(p.EngagementScore-want) > 1e-9 {
		t.Fatalf("engagement = %v, want %v", p.EngagementScore, want)
	}
}

func TestBuildStyleProfileCanonicalFixture(t *testing.T) {
	userID := uuid.New()
	records := []*types.Interaction{
		rec(userID, types.ActionFavoriteProduct, "jacket-1", 3*24*time.Hour, map[string]any{
			types.MetaBrand: "Zara", types.MetaColor: "black", types.MetaPrice: 80.0,
		}),
		rec(userID, types.ActionCanvasAdd, "jacket-1", 24*time.Hour, map[string]any{
			types.MetaBrand: "Zara", types.MetaCategory: "jackets", types.MetaPrice: 80.0,
		}),
		rec(userID, types.ActionSearch, "", 24*time.Hour, map[string]any{
			types.MetaQuery: "black leather jacket",
		}),
	}
	p := BuildStyleProfile(userID, records, scoringNow)

	if got := TokensFromJSON(p.FavoriteBrands); !reflect.DeepEqual(got, []string{"zara"}) {
		t.Fatalf("brands = %v", got)
	}
	if got := TokensFromJSON(p.FavoriteCategories); !reflect.DeepEqual(got, []string{"jackets"}) {
		t.Fatalf("categories = %v", got)
	}
	if got := TokensFromJSON(p.FavoriteColors); !reflect.DeepEqual(got, []string{"black"}) {
		t.Fatalf("colors = %v", got)
	}
	if p.AvgPricePoint == nil || math.Abs(*p.AvgPricePoint-80) > 1e-9 {
		t.Fatalf("avg price = %v, want 80", p.AvgPricePoint)
	}
	if p.ShoppingFrequency != types.FrequencyLow {
		t.Fatalf("frequency = %q, want low", p.ShoppingFrequency)
	}
}

func TestBuildStyleProfileIsDeterministic(t *testing.T) {
	userID := uuid.New()
	records := []*types.Interaction{
		rec(userID, types.ActionFavoriteProduct, "a", 24*time.Hour, map[string]any{
			types.MetaBrand: "Acne", types.MetaCategory: "Tops",
		}),
		rec(userID, types.ActionCanvasAdd, "b", 48*time.Hour, map[string]any{
			types.MetaBrand: "Cos", types.MetaCategory: "Bottoms",
		}),
	}
	first := BuildStyleProfile(userID, records, scoringNow)
	second := BuildStyleProfile(userID, records, scoringNow)

	if !reflect.DeepEqual(TokensFromJSON(first.FavoriteBrands), TokensFromJSON(second.FavoriteBrands)) {
		t.Fatal("brand order is not stable across rebuilds")
	}
	if first.EngagementScore != second.EngagementScore {
		t.Fatal("engagement differs across rebuilds")
	}
	if first.ShoppingFrequency != second.ShoppingFrequency {
		t.Fatal("frequency differs across rebuilds")
	}
}

func TestBuildStyleProfileRecencyFloor(t *testing.T) {
	userID := uuid.New()
	records := []*types.Interaction{
		rec(userID, types.ActionFavoriteProduct, "old", 80*24*time.Hour, nil),
	}
	p := BuildStyleProfile(userID, records, scoringNow)

	// 80 days out the raw decay is 1/9 but the floor holds at 0.3
	want := 15 * 0.3 * 15.0
	if math.Abs(p.EngagementScore-want) > 1e-9 {
		t.Fatalf("engagement = %v, want floored %v", p.EngagementScore, want)
	}
}

func TestBuildStyleProfileTopKTruncation(t *testing.T) {
	userID := uuid.New()
	var records []*types.Interaction
	for i := 0; i < 12; i++ {
		brand := fmt.Sprintf("brand-%02d", i)
		// later brands repeat more, so brand-11 ends up heaviest
		for n := 0; n <= i; n++ {
			records = append(records, rec(userID, types.ActionFavoriteProduct,
				fmt.Sprintf("p-%d-%d", i, n), 24*time.Hour, map[string]any{types.MetaBrand: brand}))
		}
	}
	p := BuildStyleProfile(userID, records, scoringNow)

	brands := TokensFromJSON(p.FavoriteBrands)
	if len(brands) != topKAttributes {
		t.Fatalf("brand list length = %d, want %d", len(brands), topKAttributes)
	}
	if brands[0] != "brand-11" {
		t.Fatalf("heaviest brand = %q, want brand-11", brands[0])
	}
	// the two lightest brands fall off the end
	for _, b := range brands {
		if b == "brand-00" || b == "brand-01" {
			t.Fatalf("brand %q should have been truncated", b)
		}
	}
}

func TestBuildStyleProfileFrequencyBuckets(t *testing.T) {
	userID := uuid.New()
	build := func(n int) string {
		var records []*types.Interaction
		for i := 0; i < n; i++ {
			records = append(records, rec(userID, types.ActionFavoriteProduct,
				fmt.Sprintf("p-%d", i), 24*time.Hour, nil))
		}
		return BuildStyleProfile(userID, records, scoringNow).ShoppingFrequency
	}
	if got := build(5); got != types.FrequencyLow {
		t.Fatalf("5 favorites = %q, want low", got)
	}
	if got := build(11); got != types.FrequencyMedium {
		t.Fatalf("11 favorites = %q, want medium", got)
	}
	if got := build(31); got != types.FrequencyHigh {
		t.Fatalf("31 favorites = %q, want high", got)
	}
}

func TestBuildStyleProfileEmptyLog(t *testing.T) {
	p := BuildStyleProfile(uuid.New(), nil, scoringNow)
	if p.EngagementScore != 0 {
		t.Fatalf("engagement = %v, want 0", p.EngagementScore)
	}
	if p.LastAnalyzedAt != nil {
		t.Fatal("empty log must not stamp last_analyzed_at")
	}
	if p.ShoppingFrequency != types.FrequencyLow {
		t.Fatalf("frequency = %q, want low", p.ShoppingFrequency)
	}
	if got := TokensFromJSON(p.FavoriteBrands); len(got) != 0 {
		t.Fatalf("brands = %v, want empty", got)
	}
	if !p.Cold() {
		t.Fatal("empty profile should read as cold")
	}
}
