package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/regression"
)

func testModel() *regression.Model {
	return &regression.Model{
		Algorithm: domain.AlgorithmRidge,
		Params:    regression.Params{Alpha: 0.03},
		Features:  []string{"abv", "ibu"},
		Coef:      []float64{0.4, -0.01},
		Intercept: 1.2,
	}
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	m := testModel()

	meta, err := s.Save(ctx, Artifact{Model: m, FeatureSelection: domain.FeatureTfidfVect},
		Metadata{Username: "hopsfan", Technique: domain.TechniqueContentBased, MAE: 0.3})
	if err != nil {
		t.Fatal(err)
	}
	if meta.RunID == "" || meta.Checksum == "" {
		t.Errorf("expected run id and checksum, got %+v", meta)
	}

	art, got, err := s.Load(ctx, "hopsfan", domain.TechniqueContentBased)
	if err != nil {
		t.Fatal(err)
	}
	if art.FeatureSelection != domain.FeatureTfidfVect {
		t.Errorf("feature selection = %s", art.FeatureSelection)
	}
	if got.RunID != meta.RunID || got.MAE != 0.3 {
		t.Errorf("metadata mismatch: %+v", got)
	}

	rows := [][]float64{{5, 30}, {8.5, 70}, {0, 0}}
	if !reflect.DeepEqual(m.Predict(rows), art.Model.Predict(rows)) {
		t.Error("loaded model predicts differently")
	}
}

func TestSlotsAreKeyedByUserAndTechnique(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.Save(ctx, Artifact{Model: testModel(), FeatureSelection: domain.FeatureSimple},
		Metadata{Username: "a", Technique: domain.TechniqueHybrid}); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.Load(ctx, "a", domain.TechniqueContentBased); !errors.Is(err, domain.ErrNoModel) {
		t.Errorf("cbf slot should be empty, got %v", err)
	}
	if _, _, err := s.Load(ctx, "b", domain.TechniqueHybrid); !errors.Is(err, domain.ErrNoModel) {
		t.Errorf("other user's slot should be empty, got %v", err)
	}
	if !strings.Contains(s.Path("a", domain.TechniqueHybrid), "hybrid-model") {
		t.Errorf("unexpected hybrid path %s", s.Path("a", domain.TechniqueHybrid))
	}
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	meta := Metadata{Username: "a", Technique: domain.TechniqueContentBased}

	if _, err := s.Save(ctx, Artifact{Model: testModel(), FeatureSelection: domain.FeatureSimple}, meta); err != nil {
		t.Fatal(err)
	}
	second := testModel()
	second.Intercept = 2
	if _, err := s.Save(ctx, Artifact{Model: second, FeatureSelection: domain.FeatureCountVect}, meta); err != nil {
		t.Fatal(err)
	}

	art, _, err := s.Load(ctx, "a", domain.TechniqueContentBased)
	if err != nil {
		t.Fatal(err)
	}
	if art.Model.Intercept != 2 || art.FeatureSelection != domain.FeatureCountVect {
		t.Errorf("expected the second artifact, got %+v", art)
	}

	entries, _ := os.ReadDir(filepath.Dir(s.Path("a", domain.TechniqueContentBased)))
	if len(entries) != 1 {
		t.Errorf("expected a single slot file, found %d entries", len(entries))
	}
}

func TestLoadCorrupt(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	path := s.Path("broken", domain.TechniqueContentBased)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not a model"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.Load(ctx, "broken", domain.TechniqueContentBased); !errors.Is(err, domain.ErrCorruptModel) {
		t.Errorf("expected ErrCorruptModel, got %v", err)
	}
}

func TestUsernameIsEscaped(t *testing.T) {
	s := newStore(t)
	path := s.Path("../../etc/passwd", domain.TechniqueContentBased)
	if filepath.Dir(path) != filepath.Join(s.baseDir, "existing-user-model") {
		t.Errorf("username escaped the slot directory: %s", path)
	}
}

func TestConcurrentSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	meta := Metadata{Username: "busy", Technique: domain.TechniqueContentBased}
	if _, err := s.Save(ctx, Artifact{Model: testModel()}, meta); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := s.Save(ctx, Artifact{Model: testModel()}, meta); err != nil {
				t.Errorf("save: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, _, err := s.Load(ctx, "busy", domain.TechniqueContentBased); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	wg.Wait()
}
