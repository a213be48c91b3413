package vecindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	pkgerrors "github.com/yungbote/lookbook-backend/internal/pkg/errors"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

// Meta is the payload carried per vector so search can filter and rank
// without a catalog round trip.
type Meta struct {
	ProductID string  `json:"product_id"`
	Category  string  `json:"category,omitempty"`
	Brand     string  `json:"brand,omitempty"`
	Color     string  `json:"color,omitempty"`
	Price     float64 `json:"price,omitempty"`
	InStock   bool    `json:"in_stock"`
}

// Entry is one vector plus payload, the unit of Add and Rebuild.
type Entry struct {
	ID     string
	Vector []float32
	Meta   Meta
}

// Match is a search hit. Score is inner product over unit vectors, so it
// equals cosine similarity and falls in [-1, 1].
type Match struct {
	ID    string
	Score float64
	Meta  Meta
}

// snapshot is one immutable generation of the index. Readers grab the
// current snapshot and never see partial writes.
type snapshot struct {
	dim  int
	ids  []string
	vecs [][]float32
	meta []Meta
	byID map[string]int
}

// Index is a flat in-process vector index with exact inner-product
// search. Writers are serialized; every mutation installs a fresh
// snapshot, so reads stay lock-free.
type Index struct {
	log *logger.Logger
	cfg Config

	mu  sync.Mutex
	cur atomic.Pointer[snapshot]
}

func New(log *logger.Logger, cfg Config) (*Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	idx := &Index{
		log: log.With("service", "VectorIndex"),
		cfg: cfg,
	}
	idx.cur.Store(&snapshot{dim: cfg.Dim, byID: map[string]int{}})
	return idx, nil
}

func (x *Index) Dim() int { return x.cfg.Dim }

func (x *Index) Len() int {
	snap := x.cur.Load()
	if snap == nil {
		return 0
	}
	return len(snap.ids)
}

// Add upserts a single vector. The stored copy is L2-normalized.
func (x *Index) Add(ctx context.Context, entry Entry) error {
	const op = "add"
	if entry.ID == "" {
		return opErr(op, OperationErrorValidation, "vector id is required", pkgerrors.ErrInvalidArgument)
	}
	vec, err := normalized(op, entry.Vector, x.cfg.Dim)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	old := x.cur.Load()
	next := old.clone()
	if i, ok := next.byID[entry.ID]; ok {
		next.vecs[i] = vec
		next.meta[i] = entry.Meta
	} else {
		next.byID[entry.ID] = len(next.ids)
		next.ids = append(next.ids, entry.ID)
		next.vecs = append(next.vecs, vec)
		next.meta = append(next.meta, entry.Meta)
	}
	x.cur.Store(next)
	return nil
}

// Remove drops a vector. Unknown IDs are a no-op.
func (x *Index) Remove(ctx context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	old := x.cur.Load()
	i, ok := old.byID[id]
	if !ok {
		return nil
	}
	next := &snapshot{
		dim:  old.dim,
		ids:  make([]string, 0, len(old.ids)-1),
		vecs: make([][]float32, 0, len(old.ids)-1),
		meta: make([]Meta, 0, len(old.ids)-1),
		byID: make(map[string]int, len(old.ids)-1),
	}
	for j := range old.ids {
		if j == i {
			continue
		}
		next.byID[old.ids[j]] = len(next.ids)
		next.ids = append(next.ids, old.ids[j])
		next.vecs = append(next.vecs, old.vecs[j])
		next.meta = append(next.meta, old.meta[j])
	}
	x.cur.Store(next)
	return nil
}

// Rebuild replaces the whole index in one swap. Searches running against
// the previous generation finish against it unaffected.
func (x *Index) Rebuild(ctx context.Context, entries []Entry) error {
	const op = "rebuild"
	next := &snapshot{
		dim:  x.cfg.Dim,
		ids:  make([]string, 0, len(entries)),
		vecs: make([][]float32, 0, len(entries)),
		meta: make([]Meta, 0, len(entries)),
		byID: make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if e.ID == "" {
			return opErr(op, OperationErrorValidation, "vector id is required", pkgerrors.ErrInvalidArgument)
		}
		if _, dup := next.byID[e.ID]; dup {
			continue
		}
		vec, err := normalized(op, e.Vector, x.cfg.Dim)
		if err != nil {
			return err
		}
		next.byID[e.ID] = len(next.ids)
		next.ids = append(next.ids, e.ID)
		next.vecs = append(next.vecs, vec)
		next.meta = append(next.meta, e.Meta)
	}

	x.mu.Lock()
	x.cur.Store(next)
	x.mu.Unlock()
	x.log.Info("vector index rebuilt", "size", len(next.ids), "dim", next.dim)
	return nil
}

// Search returns the top k matches by inner product, best first. Ties
// break on ID so results are stable. An empty index is unavailable, not
// an empty result, so callers can fall back.
func (x *Index) Search(ctx context.Context, query []float32, k int, filter *Filter) ([]Match, error) {
	const op = "search"
	snap := x.cur.Load()
	if snap == nil || len(snap.ids) == 0 {
		return nil, opErr(op, OperationErrorUnavailable, "index is empty", pkgerrors.ErrIndexUnavailable)
	}
	q, err := normalized(op, query, snap.dim)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 10
	}

	matches := make([]Match, 0, len(snap.ids))
	for i := range snap.ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !filter.matches(snap.meta[i]) {
			continue
		}
		matches = append(matches, Match{
			ID:    snap.ids[i],
			Score: dot(q, snap.vecs[i]),
			Meta:  snap.meta[i],
		})
	}
	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		return matches[a].ID < matches[b].ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Vector returns a copy of the stored (normalized) vector.
func (x *Index) Vector(id string) ([]float32, bool) {
	snap := x.cur.Load()
	if snap == nil {
		return nil, false
	}
	i, ok := snap.byID[id]
	if !ok {
		return nil, false
	}
	out := make([]float32, len(snap.vecs[i]))
	copy(out, snap.vecs[i])
	return out, true
}

func (x *Index) MetaFor(id string) (Meta, bool) {
	snap := x.cur.Load()
	if snap == nil {
		return Meta{}, false
	}
	i, ok := snap.byID[id]
	if !ok {
		return Meta{}, false
	}
	return snap.meta[i], true
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		dim:  s.dim,
		ids:  make([]string, len(s.ids)),
		vecs: make([][]float32, len(s.vecs)),
		meta: make([]Meta, len(s.meta)),
		byID: make(map[string]int, len(s.byID)),
	}
	copy(next.ids, s.ids)
	copy(next.vecs, s.vecs)
	copy(next.meta, s.meta)
	for k, v := range s.byID {
		next.byID[k] = v
	}
	return next
}

func normalized(op string, vec []float32, dim int) ([]float32, error) {
	if len(vec) == 0 {
		return nil, opErr(op, OperationErrorValidation, "vector required", pkgerrors.ErrInvalidArgument)
	}
	if dim > 0 && len(vec) != dim {
		return nil, opErr(
			op,
			OperationErrorDimensionMismatch,
			fmt.Sprintf("dimension mismatch: expected=%d got=%d", dim, len(vec)),
			pkgerrors.ErrDimensionMismatch,
		)
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	out := make([]float32, len(vec))
	if sum == 0 {
		copy(out, vec)
		return out, nil
	}
	norm := math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
