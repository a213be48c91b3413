package vecindex

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// On-disk layout: <path>.vec holds the raw vectors (little-endian header
// of dim and count as uint32, then count*dim float32 values), <path>.json
// holds IDs and payloads in storage order. Both are written to temp files
// and renamed so a crash never leaves a torn index behind.

const persistVersion = 1

type sidecar struct {
	Version int      `json:"version"`
	Dim     int      `json:"dim"`
	IDs     []string `json:"ids"`
	Meta    []Meta   `json:"meta"`
}

// Save persists the current snapshot. No-op when the index has no
// configured path.
func (x *Index) Save() error {
	const op = "save"
	if x.cfg.Path == "" {
		return nil
	}
	snap := x.cur.Load()
	if snap == nil {
		return opErr(op, OperationErrorUnavailable, "no snapshot to persist", nil)
	}
	if err := os.MkdirAll(filepath.Dir(x.cfg.Path), 0o755); err != nil {
		return opErr(op, OperationErrorPersistFailed, "create index directory", err)
	}

	vecPath := x.cfg.Path + ".vec"
	metaPath := x.cfg.Path + ".json"

	if err := writeVectors(vecPath, snap); err != nil {
		return opErr(op, OperationErrorPersistFailed, "write vectors", err)
	}
	side := sidecar{
		Version: persistVersion,
		Dim:     snap.dim,
		IDs:     snap.ids,
		Meta:    snap.meta,
	}
	raw, err := json.Marshal(side)
	if err != nil {
		return opErr(op, OperationErrorPersistFailed, "encode sidecar", err)
	}
	if err := writeAtomic(metaPath, raw); err != nil {
		return opErr(op, OperationErrorPersistFailed, "write sidecar", err)
	}
	x.log.Info("vector index persisted", "path", x.cfg.Path, "size", len(snap.ids))
	return nil
}

// Load restores a previously saved index. A missing file pair is not an
// error; the index simply starts empty.
func (x *Index) Load() error {
	const op = "load"
	if x.cfg.Path == "" {
		return nil
	}
	vecPath := x.cfg.Path + ".vec"
	metaPath := x.cfg.Path + ".json"

	rawSide, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return opErr(op, OperationErrorLoadFailed, "read sidecar", err)
	}
	var side sidecar
	if err := json.Unmarshal(rawSide, &side); err != nil {
		return opErr(op, OperationErrorLoadFailed, "decode sidecar", err)
	}
	if side.Dim != x.cfg.Dim {
		return opErr(
			op,
			OperationErrorDimensionMismatch,
			fmt.Sprintf("persisted dim %d does not match configured dim %d", side.Dim, x.cfg.Dim),
			nil,
		)
	}

	vecs, err := readVectors(vecPath, side.Dim, len(side.IDs))
	if err != nil {
		return opErr(op, OperationErrorLoadFailed, "read vectors", err)
	}
	if len(side.Meta) != len(side.IDs) {
		return opErr(op, OperationErrorLoadFailed, "sidecar ids and meta disagree", nil)
	}

	next := &snapshot{
		dim:  side.Dim,
		ids:  side.IDs,
		vecs: vecs,
		meta: side.Meta,
		byID: make(map[string]int, len(side.IDs)),
	}
	for i, id := range side.IDs {
		next.byID[id] = i
	}

	x.mu.Lock()
	x.cur.Store(next)
	x.mu.Unlock()
	x.log.Info("vector index loaded", "path", x.cfg.Path, "size", len(next.ids))
	return nil
}

func writeVectors(path string, snap *snapshot) error {
	buf := make([]byte, 8+len(snap.vecs)*snap.dim*4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(snap.dim))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(snap.vecs)))
	off := 8
	for _, vec := range snap.vecs {
		for _, v := range vec {
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
			off += 4
		}
	}
	return writeAtomic(path, buf)
}

func readVectors(path string, dim, count int) ([][]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("vector file truncated")
	}
	gotDim := int(binary.LittleEndian.Uint32(raw[0:4]))
	gotCount := int(binary.LittleEndian.Uint32(raw[4:8]))
	if gotDim != dim || gotCount != count {
		return nil, fmt.Errorf("vector file header (dim=%d count=%d) does not match sidecar (dim=%d count=%d)",
			gotDim, gotCount, dim, count)
	}
	want := 8 + count*dim*4
	if len(raw) != want {
		return nil, fmt.Errorf("vector file size %d, expected %d", len(raw), want)
	}

	out := make([][]float32, count)
	off := 8
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off : off+4]))
			off += 4
		}
		out[i] = vec
	}
	return out, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
