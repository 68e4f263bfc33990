package similarity

import (
	"errors"
	"math"
	"testing"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
)

func ratings() []domain.Rating {
	r := func(u, b string, v float64) domain.Rating {
		return domain.Rating{Username: u, BeerName: b, UserRating: v}
	}
	return []domain.Rating{
		r("alice", "pils", 4), r("alice", "stout", 2), r("alice", "ipa", 5),
		r("bob", "pils", 4), r("bob", "stout", 2), r("bob", "ipa", 5),
		r("carol", "stout", 5),
		r("dave", "pils", 3), r("dave", "ipa", 4), r("dave", "ipa", 5),
		r("erin", "porter", 4),
	}
}

func TestBuildMatrixMeansDuplicates(t *testing.T) {
	m, err := BuildMatrix(ratings(), FillZero)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Items) != 4 || m.Items[0] != "ipa" {
		t.Fatalf("unexpected items %v", m.Items)
	}
	row, _ := m.Row("dave")
	if row[0] != 4.5 {
		t.Errorf("expected mean 4.5 for dave/ipa, got %v", row[0])
	}
	if row[3] != 0 {
		t.Errorf("expected zero fill for dave/stout, got %v", row[3])
	}
}

func TestBuildMatrixFillMethods(t *testing.T) {
	m, err := BuildMatrix(ratings(), FillItemMean)
	if err != nil {
		t.Fatal(err)
	}
	row, _ := m.Row("carol")
	// ipa rated by alice 5, bob 5, dave 4.5
	if math.Abs(row[0]-(14.5/3)) > 1e-12 {
		t.Errorf("item mean fill: got %v", row[0])
	}

	m, err = BuildMatrix(ratings(), FillUserMean)
	if err != nil {
		t.Fatal(err)
	}
	row, _ = m.Row("carol")
	if row[0] != 5 {
		t.Errorf("user mean fill: got %v", row[0])
	}

	if _, err := BuildMatrix(ratings(), "median"); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors: got %v", got)
	}
	if got := Cosine([]float64{1, 2}, []float64{2, 4}); math.Abs(got-1) > 1e-12 {
		t.Errorf("parallel vectors: got %v", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{2, 4}); got != 0 {
		t.Errorf("zero vector: got %v", got)
	}
}

func TestRankMonotonic(t *testing.T) {
	ranking, err := RankUsers(ratings(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(ranking) != 4 {
		t.Fatalf("expected 4 neighbors, got %d", len(ranking))
	}
	if ranking[0].Username != "bob" || ranking[0].Rank != 1 {
		t.Errorf("expected bob first, got %+v", ranking[0])
	}
	for i := 1; i < len(ranking); i++ {
		if ranking[i].Similarity > ranking[i-1].Similarity {
			t.Errorf("similarity increases at rank %d", ranking[i].Rank)
		}
		if ranking[i].Rank != i+1 {
			t.Errorf("rank %d at position %d", ranking[i].Rank, i)
		}
	}
	for _, n := range ranking {
		if n.Username == "alice" {
			t.Error("target must not rank itself")
		}
	}
}

func TestRankTiesKeepRowOrder(t *testing.T) {
	r := func(u, b string, v float64) domain.Rating {
		return domain.Rating{Username: u, BeerName: b, UserRating: v}
	}
	rs := []domain.Rating{
		r("target", "a", 1),
		r("zed", "b", 3),
		r("amy", "b", 2),
	}
	ranking, err := RankUsers(rs, "target")
	if err != nil {
		t.Fatal(err)
	}
	if ranking[0].Username != "amy" || ranking[1].Username != "zed" {
		t.Errorf("ties should follow row order, got %+v", ranking)
	}
}

func TestRankUnknownUser(t *testing.T) {
	if _, err := RankUsers(ratings(), "zoe"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
