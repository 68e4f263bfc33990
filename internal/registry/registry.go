// Package registry persists trained models, one slot per (user, technique).
//
// A slot lives at <dir>/<technique dir>/<escaped username>.gob.gz and holds a
// single artifact. Writes go to a temp file in the same directory which is
// fsynced and renamed over the slot, so readers see either the old or the new
// artifact, never a partial one.
package registry

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/logging"
	"github.com/actuallystonmai/beer-recommender/internal/regression"
)

const fileSuffix = ".gob.gz"

// Artifact is what inference needs: the fitted model and the feature
// selection it was trained with.
type Artifact struct {
	Model            *regression.Model
	FeatureSelection domain.FeatureSelection
}

// Metadata describes a stored artifact.
type Metadata struct {
	Username   string             `json:"username"`
	Technique  domain.Technique   `json:"technique"`
	RunID      string             `json:"run_id"`
	TrainedAt  time.Time          `json:"trained_at"`
	SavedAt    time.Time          `json:"saved_at"`
	MAE        float64            `json:"mae"`
	QuarterPct float64            `json:"quarter_pct"`
	HalfPct    float64            `json:"half_pct"`
	BestParams map[string]float64 `json:"best_params,omitempty"`
	Checksum   string             `json:"checksum"`
	SizeBytes  int64              `json:"size_bytes"`
}

// storedFile is the on-disk format of a slot.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

type Store struct {
	baseDir string
	mu      sync.RWMutex
}

// NewStore creates the registry rooted at baseDir.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// slotDir maps a technique to its directory. Content-based and collaborative
// share the existing-user slot.
func slotDir(t domain.Technique) string {
	if t == domain.TechniqueHybrid {
		return "hybrid-model"
	}
	return "existing-user-model"
}

// Path returns the slot file of (username, technique).
func (s *Store) Path(username string, technique domain.Technique) string {
	return filepath.Join(s.baseDir, slotDir(technique), url.PathEscape(username)+fileSuffix)
}

// Save replaces the slot of (meta.Username, meta.Technique) with art. A run id
// is generated when meta has none. The stored metadata is returned.
func (s *Store) Save(ctx context.Context, art Artifact, meta Metadata) (*Metadata, error) {
	if art.Model == nil {
		return nil, errors.New("save artifact: nil model")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(art); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	raw := buf.Bytes()
	hash := sha256.Sum256(raw)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	if meta.RunID == "" {
		meta.RunID = uuid.NewString()
	}
	if meta.TrainedAt.IsZero() {
		meta.TrainedAt = time.Now().UTC()
	}
	meta.SavedAt = time.Now().UTC()
	meta.Checksum = hex.EncodeToString(hash[:])
	meta.SizeBytes = int64(compressed.Len())

	path := s.Path(meta.Username, meta.Technique)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(path, storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return nil, err
	}

	logging.Info().
		Str("user", meta.Username).
		Str("technique", string(meta.Technique)).
		Str("run_id", meta.RunID).
		Int64("size_bytes", meta.SizeBytes).
		Msg("[registry] model saved")
	return &meta, nil
}

func writeAtomic(path string, sf storedFile) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create slot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".slot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := gob.NewEncoder(tmp).Encode(sf); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("swap model file: %w", err)
	}
	return nil
}

// Load reads the slot of (username, technique). A missing slot is
// domain.ErrNoModel; an unreadable one is domain.ErrCorruptModel.
func (s *Store) Load(ctx context.Context, username string, technique domain.Technique) (*Artifact, *Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	data, err := os.ReadFile(s.Path(username, technique))
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w for %s (%s)", domain.ErrNoModel, username, technique)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read model file: %w", err)
	}

	art, meta, err := decode(data)
	if err != nil {
		logging.Error().Err(err).Str("user", username).Str("technique", string(technique)).
			Msg("[registry] stored model is unreadable")
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrCorruptModel, err)
	}
	return art, meta, nil
}

func decode(data []byte) (*Artifact, *Metadata, error) {
	var sf storedFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sf); err != nil {
		return nil, nil, fmt.Errorf("read model file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }()
	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if sum := hex.EncodeToString(hash[:]); sum != sf.Metadata.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, sum)
	}

	var art Artifact
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&art); err != nil {
		return nil, nil, fmt.Errorf("decode model: %w", err)
	}
	if art.Model == nil {
		return nil, nil, errors.New("artifact has no model")
	}
	return &art, &sf.Metadata, nil
}
