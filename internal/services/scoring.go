package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/lookbook-backend/internal/domain"
)

// recInput is everything the scorers read. Loaded once per request so
// every strategy sees one consistent snapshot.
type recInput struct {
	userID uuid.UUID
	now    time.Time

	profile *types.StyleProfile // nil means cold start
	own     []*types.Interaction
	all     []*types.Interaction // recent interactions across all users

	otherProfiles []*types.StyleProfile
	analytics     map[string]*types.ProductAnalytics
	products      map[string]*types.Product

	wardrobeCentroid []float32
	productVector    func(productID string) ([]float32, bool)

	// hotCounts holds per-product per-action sums from the Redis rolling
	// counters, valid for the hotWindow lookback only.
	hotCounts map[string]map[string]int64
	hotWindow time.Duration
}

// seenProducts are excluded from every strategy's output.
func (in *recInput) seenProducts() map[string]bool {
	seen := map[string]bool{}
	for _, rec := range in.own {
		if rec.ItemID != "" && rec.ItemType == types.ItemTypeProduct {
			seen[rec.ItemID] = true
		}
	}
	return seen
}

// layerScore is one strategy's verdict on one candidate.
type layerScore struct {
	Score   float64
	Reason  string
	Signals []string
}

// idealWardrobe is the target category distribution used by the
// wardrobe-gap analysis.
var idealWardrobe = map[string]int{
	"tops":        8,
	"bottoms":     6,
	"dresses":     4,
	"outerwear":   3,
	"shoes":       5,
	"accessories": 4,
}

type contentScore struct {
	Behavioral      float64
	Visual          float64
	Attributes      float64
	WardrobeGap     float64
	OutfitPotential float64
	Total           float64
}

// contentScores computes the five-part composite per candidate. Each
// sub-score lives in [0,100]; only candidates with a positive total
// survive.
func contentScores(in *recInput, w ContentWeights) map[string]contentScore {
	seen := in.seenProducts()
	owned := wardrobeCounts(in.own)

	out := map[string]contentScore{}
	for productID, a := range in.analytics {
		if seen[productID] {
			continue
		}
		var cs contentScore

		cs.Behavioral = clamp(a.EngagementScore(), 0, 100)
		cs.OutfitPotential = clamp(a.EngagementScore()/2, 0, 100)

		product := in.products[productID]
		cs.Visual = visualScore(in, productID)
		cs.Attributes = attributeScore(in.profile, product)
		if product != nil {
			cs.WardrobeGap = wardrobeGapScore(product.Category, owned)
		}

		cs.Total = w.Behavioral*cs.Behavioral +
			w.Visual*cs.Visual +
			w.Attributes*cs.Attributes +
			w.WardrobeGap*cs.WardrobeGap +
			w.OutfitPotential*cs.OutfitPotential
		if cs.Total > 0 {
			out[productID] = cs
		}
	}
	return out
}

// visualScore is cosine similarity of the product embedding against the
// user's wardrobe centroid, scaled to [0,100]. Zero when either side is
// missing.
func visualScore(in *recInput, productID string) float64 {
	if len(in.wardrobeCentroid) == 0 || in.productVector == nil {
		return 0
	}
	vec, ok := in.productVector(productID)
	if !ok || len(vec) != len(in.wardrobeCentroid) {
		return 0
	}
	var sim float64
	for i := range vec {
		sim += float64(vec[i]) * float64(in.wardrobeCentroid[i])
	}
	return clamp(sim*100, 0, 100)
}

// attributeScore grants up to 30 points for price proximity to the
// profile's average price point plus an engagement-scaled boost.
func attributeScore(profile *types.StyleProfile, product *types.Product) float64 {
	if profile == nil {
		return 0
	}
	score := 0.0
	if product != nil && product.Price > 0 && profile.AvgPricePoint != nil && *profile.AvgPricePoint > 0 {
		ratio := math.Abs(product.Price-*profile.AvgPricePoint) / *profile.AvgPricePoint
		switch {
		case ratio <= 0.30:
			score += 30
		case ratio <= 0.50:
			score += 15
		}
	}
	score += clamp(profile.EngagementScore/5, 0, 20)
	return clamp(score, 0, 100)
}

func wardrobeCounts(own []*types.Interaction) map[string]int {
	counts := map[string]int{}
	for _, rec := range own {
		if rec.ActionType != types.ActionWardrobeUpload {
			continue
		}
		if cat := normToken(rec.MetaString(types.MetaCategory)); cat != "" {
			counts[cat]++
		}
	}
	return counts
}

// wardrobeGapScore rewards candidates whose category fills a gap against
// the ideal distribution, proportional to how empty the slot is.
func wardrobeGapScore(category string, owned map[string]int) float64 {
	cat := normToken(category)
	ideal, ok := idealWardrobe[cat]
	if !ok {
		return 0
	}
	gap := ideal - owned[cat]
	if gap <= 0 {
		return 0
	}
	return clamp(float64(gap)/float64(ideal)*100, 0, 100)
}

// collaborativeScores finds behaviorally similar users and surfaces
// their heaviest items. Similarity = 0.6 Jaccard over item sets + 0.4
// cosine over action-type counters, kept above 0.1, top 10 users.
func collaborativeScores(in *recInput) map[string]layerScore {
	targetItems, targetActions := userSignature(in.own)
	if len(targetItems) == 0 {
		return map[string]layerScore{}
	}
	seen := in.seenProducts()

	type neighbor struct {
		userID     uuid.UUID
		similarity float64
		itemWeight map[string]float64
	}

	byUser := groupByUser(in.all, in.userID)
	neighbors := make([]neighbor, 0, len(byUser))
	for otherID, records := range byUser {
		items, actions := userSignature(records)
		if len(items) == 0 {
			continue
		}
		sim := 0.6*jaccard(targetItems, items) + 0.4*cosineCounts(targetActions, actions)
		if sim <= 0.1 {
			continue
		}
		itemWeight := map[string]float64{}
		for _, rec := range records {
			if rec.ItemID == "" || rec.ItemType != types.ItemTypeProduct {
				continue
			}
			if rec.Weight > itemWeight[rec.ItemID] {
				itemWeight[rec.ItemID] = rec.Weight
			}
		}
		neighbors = append(neighbors, neighbor{userID: otherID, similarity: sim, itemWeight: itemWeight})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		if neighbors[i].similarity != neighbors[j].similarity {
			return neighbors[i].similarity > neighbors[j].similarity
		}
		return neighbors[i].userID.String() < neighbors[j].userID.String()
	})
	if len(neighbors) > 10 {
		neighbors = neighbors[:10]
	}

	out := map[string]layerScore{}
	for _, n := range neighbors {
		for itemID, weight := range n.itemWeight {
			if seen[itemID] {
				continue
			}
			score := weight * n.similarity
			if prev, ok := out[itemID]; !ok || score > prev.Score {
				out[itemID] = layerScore{
					Score:  score,
					Reason: "Popular with shoppers like you",
				}
			}
		}
	}
	return out
}

// trendingScores ranks by recent engagement volume inside the window:
// fav*2 + canvas*3 + view*0.1.
func trendingScores(in *recInput, window time.Duration) map[string]layerScore {
	seen := in.seenProducts()
	cutoff := in.now.Add(-window)

	type counts struct{ views, favorites, canvasAdds float64 }
	perProduct := map[string]*counts{}
	for _, rec := range in.all {
		if rec.ItemID == "" || rec.ItemType != types.ItemTypeProduct || rec.CreatedAt.Before(cutoff) {
			continue
		}
		c := perProduct[rec.ItemID]
		if c == nil {
			c = &counts{}
			perProduct[rec.ItemID] = c
		}
		switch rec.ActionType {
		case types.ActionViewProduct:
			c.views++
		case types.ActionFavoriteProduct:
			c.favorites++
		case types.ActionCanvasAdd:
			c.canvasAdds++
		}
	}

	// The Redis counters see every instance, while the interaction
	// snapshot is capped; take the larger of the two per action. Counts
	// loaded for a different lookback are ignored.
	if in.hotCounts != nil && in.hotWindow == window {
		for productID, byAction := range in.hotCounts {
			c := perProduct[productID]
			if c == nil {
				c = &counts{}
				perProduct[productID] = c
			}
			if v := float64(byAction[types.ActionViewProduct]); v > c.views {
				c.views = v
			}
			if v := float64(byAction[types.ActionFavoriteProduct]); v > c.favorites {
				c.favorites = v
			}
			if v := float64(byAction[types.ActionCanvasAdd]); v > c.canvasAdds {
				c.canvasAdds = v
			}
		}
	}

	out := map[string]layerScore{}
	for productID, c := range perProduct {
		if seen[productID] {
			continue
		}
		score := c.favorites*2 + c.canvasAdds*3 + c.views*0.1
		if score <= 0 {
			continue
		}
		out[productID] = layerScore{Score: score, Reason: "Trending now"}
	}
	return out
}

// creatorScores surfaces items from creators the user follows, with
// scarcity boosts for fresh or fast-moving posts.
func creatorScores(in *recInput) map[string]layerScore {
	followed := map[string]bool{}
	for _, rec := range in.own {
		if rec.ActionType != types.ActionFollowCreator {
			continue
		}
		if id := rec.MetaString(types.MetaCreatorID); id != "" {
			followed[id] = true
		}
	}
	if len(followed) == 0 {
		return map[string]layerScore{}
	}

	seen := in.seenProducts()
	weekAgo := in.now.Add(-7 * 24 * time.Hour)
	twoDaysAgo := in.now.Add(-48 * time.Hour)
	dayAgo := in.now.Add(-24 * time.Hour)

	type creatorItem struct {
		weight     float64
		last24h    int
		total      int
		newestSeen time.Time
	}
	perItem := map[string]*creatorItem{}
	for _, rec := range in.all {
		if rec.ItemID == "" || rec.CreatedAt.Before(weekAgo) {
			continue
		}
		if rec.ActionType != types.ActionFavoriteFromCreator && rec.ActionType != types.ActionViewPost {
			continue
		}
		if !followed[rec.MetaString(types.MetaCreatorID)] {
			continue
		}
		item := perItem[rec.ItemID]
		if item == nil {
			item = &creatorItem{}
			perItem[rec.ItemID] = item
		}
		item.weight += rec.Weight
		item.total++
		if rec.CreatedAt.After(dayAgo) {
			item.last24h++
		}
		if rec.CreatedAt.After(item.newestSeen) {
			item.newestSeen = rec.CreatedAt
		}
	}

	out := map[string]layerScore{}
	for itemID, item := range perItem {
		if seen[itemID] {
			continue
		}
		score := item.weight
		signals := []string{}
		if item.newestSeen.After(twoDaysAgo) {
			score += 10
			hours := int(in.now.Sub(item.newestSeen).Hours())
			signals = append(signals, fmt.Sprintf("from creator you follow, %dh ago", hours))
		}
		if item.last24h >= 10 {
			score += 15
			signals = append(signals, "selling fast")
		} else if item.total >= 5 {
			score += 10
			signals = append(signals, "trending from creator")
		}
		out[itemID] = layerScore{
			Score:   score,
			Reason:  "From a creator you follow",
			Signals: signals,
		}
	}
	return out
}

// similarUserScores matches on profile overlap, then aggregates the
// high-intent actions of the closest 20 users over 14 days.
func similarUserScores(in *recInput) map[string]layerScore {
	if in.profile == nil {
		return map[string]layerScore{}
	}
	targetBrands := tokenSet(TokensFromJSON(in.profile.FavoriteBrands))
	targetCategories := tokenSet(TokensFromJSON(in.profile.FavoriteCategories))

	type match struct {
		userID     uuid.UUID
		similarity float64
	}
	matches := make([]match, 0, len(in.otherProfiles))
	for _, other := range in.otherProfiles {
		if other == nil || other.UserID == in.userID {
			continue
		}
		sim := 0.4*jaccard(targetBrands, tokenSet(TokensFromJSON(other.FavoriteBrands))) +
			0.3*jaccard(targetCategories, tokenSet(TokensFromJSON(other.FavoriteCategories))) +
			0.3*engagementRatio(in.profile.EngagementScore, other.EngagementScore)
		if sim > 0.15 {
			matches = append(matches, match{userID: other.UserID, similarity: sim})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].similarity != matches[j].similarity {
			return matches[i].similarity > matches[j].similarity
		}
		return matches[i].userID.String() < matches[j].userID.String()
	})
	if len(matches) > 20 {
		matches = matches[:20]
	}
	if len(matches) == 0 {
		return map[string]layerScore{}
	}
	matchedUsers := map[uuid.UUID]bool{}
	for _, m := range matches {
		matchedUsers[m.userID] = true
	}

	highIntent := map[string]bool{}
	for _, a := range types.HighIntentActions {
		highIntent[a] = true
	}

	seen := in.seenProducts()
	cutoff := in.now.Add(-14 * 24 * time.Hour)
	twoDaysAgo := in.now.Add(-48 * time.Hour)

	type social struct {
		users  map[uuid.UUID]bool
		recent bool
	}
	perItem := map[string]*social{}
	for _, rec := range in.all {
		if rec.ItemID == "" || rec.ItemType != types.ItemTypeProduct {
			continue
		}
		if rec.CreatedAt.Before(cutoff) || !matchedUsers[rec.UserID] || !highIntent[rec.ActionType] {
			continue
		}
		item := perItem[rec.ItemID]
		if item == nil {
			item = &social{users: map[uuid.UUID]bool{}}
			perItem[rec.ItemID] = item
		}
		item.users[rec.UserID] = true
		if rec.CreatedAt.After(twoDaysAgo) {
			item.recent = true
		}
	}

	out := map[string]layerScore{}
	for itemID, item := range perItem {
		if seen[itemID] {
			continue
		}
		count := len(item.users)
		score := float64(count) * 10
		signals := []string{}
		switch {
		case count >= 5:
			score += 20
			signals = append(signals, fmt.Sprintf("%d similar shoppers picked this up", count))
		case count >= 2:
			score += 10
			signals = append(signals, fmt.Sprintf("%d similar shoppers picked this up", count))
		}
		if item.recent {
			score += 5
			signals = append(signals, "added in the last 48h")
		}
		out[itemID] = layerScore{
			Score:   score,
			Reason:  "Shoppers with your taste bought this",
			Signals: signals,
		}
	}
	return out
}

func userSignature(records []*types.Interaction) (map[string]bool, map[string]float64) {
	items := map[string]bool{}
	actions := map[string]float64{}
	for _, rec := range records {
		if rec.ItemID != "" && rec.ItemType == types.ItemTypeProduct {
			items[rec.ItemID] = true
		}
		actions[rec.ActionType]++
	}
	return items, actions
}

func groupByUser(all []*types.Interaction, exclude uuid.UUID) map[uuid.UUID][]*types.Interaction {
	out := map[uuid.UUID][]*types.Interaction{}
	for _, rec := range all {
		if rec.UserID == exclude {
			continue
		}
		out[rec.UserID] = append(out[rec.UserID], rec)
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func cosineCounts(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for k, va := range a {
		na += va * va
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		nb += vb * vb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func engagementRatio(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a < b {
		return a / b
	}
	return b / a
}

func tokenSet(tokens []string) map[string]bool {
	out := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		out[t] = true
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

