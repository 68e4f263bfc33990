package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/evaluate"
	"github.com/actuallystonmai/beer-recommender/internal/features"
	"github.com/actuallystonmai/beer-recommender/internal/frame"
	"github.com/actuallystonmai/beer-recommender/internal/regression"
)

// fiveByEight is 5 users who each rated the same 8 beers. Every user likes
// stronger beer, with a per-user offset.
func fiveByEight() []domain.Rating {
	var rs []domain.Rating
	for u := 0; u < 5; u++ {
		for b := 0; b < 8; b++ {
			abv := 4 + 0.5*float64(b)
			rs = append(rs, domain.Rating{
				Username:        fmt.Sprintf("user%d", u),
				BeerName:        fmt.Sprintf("beer%d", b),
				BeerDescription: "Pale Lager",
				ABV:             abv,
				IBU:             float64(10 + (b*13)%40),
				GlobalRating:    3 + 0.1*float64(b%3),
				UserRating:      0.5*abv + 1 + 0.1*float64(u),
			})
		}
	}
	return rs
}

func userFrame(t *testing.T, rs []domain.Rating, user string) *frame.Frame {
	t.Helper()
	f, err := features.Simple{}.Transform(frame.FromRatings(domain.FilterUser(rs, user)), frame.ColDescription)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestContentBasedRidgeScenario(t *testing.T) {
	f := userFrame(t, fiveByEight(), "user2")

	res, err := ContentBased(f, frame.ColUserRating, domain.AlgorithmRidge, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Metrics.Count != 2 {
		t.Errorf("expected 2 held-out rows, got %d", res.Metrics.Count)
	}
	// Seed 12 holds out beer5 and beer2; the smallest alpha of the grid wins.
	if res.Params.Alpha != 0.01 {
		t.Errorf("alpha = %v, want 0.01", res.Params.Alpha)
	}
	if math.Abs(res.Metrics.MAE-0.0165077) > 1e-6 {
		t.Errorf("MAE = %v, want 0.0165077", res.Metrics.MAE)
	}
	if math.Abs(res.Metrics.MSE-0.000306881) > 1e-8 {
		t.Errorf("MSE = %v, want 0.000306881", res.Metrics.MSE)
	}
	if res.Metrics.QuarterPct != 100 {
		t.Errorf("quarter band = %v, want 100", res.Metrics.QuarterPct)
	}
	want := []string{frame.ColABV, frame.ColIBU, frame.ColGlobalRating}
	if fmt.Sprint(res.Model.Features) != fmt.Sprint(want) {
		t.Errorf("features = %v, want %v", res.Model.Features, want)
	}
}

func TestContentBasedDeterministic(t *testing.T) {
	rs := fiveByEight()
	for _, alg := range []domain.Algorithm{domain.AlgorithmLasso, domain.AlgorithmRidge, domain.AlgorithmElasticNet} {
		t.Run(string(alg), func(t *testing.T) {
			a, err := ContentBased(userFrame(t, rs, "user1"), frame.ColUserRating, alg, DefaultOptions())
			if err != nil {
				t.Fatal(err)
			}
			b, err := ContentBased(userFrame(t, rs, "user1"), frame.ColUserRating, alg, DefaultOptions())
			if err != nil {
				t.Fatal(err)
			}
			if a.Params != b.Params {
				t.Errorf("params differ: %+v vs %+v", a.Params, b.Params)
			}
			if a.Metrics.MAE != b.Metrics.MAE {
				t.Errorf("MAE differs: %v vs %v", a.Metrics.MAE, b.Metrics.MAE)
			}
		})
	}
}

func TestContentBasedErrors(t *testing.T) {
	rs := fiveByEight()
	if _, err := ContentBased(userFrame(t, rs, "user0"), frame.ColUserRating, "OLS", DefaultOptions()); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	few := userFrame(t, rs[:4], "user0")
	if _, err := ContentBased(few, frame.ColUserRating, domain.AlgorithmRidge, DefaultOptions()); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestCollaborativeSingleBeerIsSkipped(t *testing.T) {
	rs := append(fiveByEight(), domain.Rating{Username: "newbie", BeerName: "house brew", UserRating: 4})

	res, err := Collaborative(rs, "newbie")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "house brew" {
		t.Errorf("skipped = %v", res.Skipped)
	}
	if res.Metrics != (evaluate.Metrics{}) {
		t.Errorf("expected empty metrics, got %+v", res.Metrics)
	}
}

func TestCollaborativeUsesNearestNeighbor(t *testing.T) {
	r := func(u, b string, v float64) domain.Rating {
		return domain.Rating{Username: u, BeerName: b, UserRating: v}
	}
	rs := []domain.Rating{
		r("me", "pils", 4), r("me", "stout", 2),
		r("twin", "pils", 4), r("twin", "stout", 2),
		r("far", "pils", 1), r("far", "stout", 5), r("far", "ipa", 3),
		r("twin", "ipa", 4.5),
	}

	res, err := Collaborative(rs, "me")
	if err != nil {
		t.Fatal(err)
	}
	if res.Metrics.Count != 2 || res.Metrics.MAE != 0 {
		t.Errorf("expected exact estimates from twin, got %+v", res.Metrics)
	}
	for _, e := range res.Estimates {
		if e.Neighbor != "twin" || e.NeighborRank != 1 {
			t.Errorf("estimate for %s came from %s (rank %d)", e.BeerName, e.Neighbor, e.NeighborRank)
		}
	}

	hood, err := NewNeighborhood(rs, "me")
	if err != nil {
		t.Fatal(err)
	}
	if v, nb, ok := hood.Estimate("ipa"); !ok || v != 4.5 || nb.Username != "twin" {
		t.Errorf("ipa estimate = %v from %s, %v", v, nb.Username, ok)
	}
	if _, _, ok := hood.Estimate("porter"); ok {
		t.Error("porter has no rating and should not resolve")
	}

	if _, err := Collaborative(rs, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

// crowd is 12 users rating 6 beers each, rating tracking ABV.
func crowd() *frame.Frame {
	var rs []domain.Rating
	for u := 0; u < 12; u++ {
		for b := 0; b < 6; b++ {
			beer := (u + b) % 9
			abv := 4 + 0.6*float64(beer)
			rs = append(rs, domain.Rating{
				Username:     fmt.Sprintf("u%02d", u),
				BeerName:     fmt.Sprintf("beer%d", beer),
				ABV:          abv,
				IBU:          float64(15 + (beer*11)%30),
				GlobalRating: 3.5,
				UserRating:   math.Min(5, 0.4*abv+1+0.05*float64(u%3)),
			})
		}
	}
	return frame.FromRatings(rs).Drop(frame.ColDescription)
}

func TestHybridGrid(t *testing.T) {
	opts := DefaultOptions()
	opts.Concurrency = 4
	cs, err := Hybrid(context.Background(), crowd(), "u00", frame.ColUserRating, opts)
	if err != nil {
		t.Fatal(err)
	}
	// 11 eligible neighbors at threshold 0 allow cutoffs 5 and 10.
	if len(cs) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cs))
	}
	if cs[0].Neighbors != 5 || cs[1].Neighbors != 10 || cs[0].MinRatings != 0 {
		t.Errorf("unexpected grid order %+v %+v", cs[0], cs[1])
	}
	for _, c := range cs {
		if c.Metrics.Count != 6 {
			t.Errorf("candidate scored on %d rows, want 6", c.Metrics.Count)
		}
		if c.Model.Algorithm != domain.AlgorithmLasso {
			t.Errorf("hybrid candidates are Lasso, got %s", c.Model.Algorithm)
		}
	}

	best, ok := BestCandidate(cs)
	if !ok {
		t.Fatal("expected a best candidate")
	}
	for _, c := range cs {
		if c.Metrics.MAE < best.Metrics.MAE {
			t.Errorf("best MAE %v is not minimal (%v)", best.Metrics.MAE, c.Metrics.MAE)
		}
	}
}

func TestHybridIndependentOfConcurrency(t *testing.T) {
	serial := DefaultOptions()
	serial.Concurrency = 1
	parallel := DefaultOptions()
	parallel.Concurrency = 8

	a, err := Hybrid(context.Background(), crowd(), "u03", frame.ColUserRating, serial)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Hybrid(context.Background(), crowd(), "u03", frame.ColUserRating, parallel)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i].Metrics != b[i].Metrics || a[i].Model.Params != b[i].Model.Params {
			t.Errorf("candidate %d differs between serial and parallel runs", i)
		}
	}
}

func TestHybridNotEnoughNeighbors(t *testing.T) {
	// The target and 4 neighbors are 5 users, which is not more than the
	// smallest cutoff.
	small := crowd().Filter(func(i int) bool { return i < 6*5 })
	if _, err := Hybrid(context.Background(), small, "u00", frame.ColUserRating, DefaultOptions()); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestHybridCutoffCountsTarget(t *testing.T) {
	six := crowd().Filter(func(i int) bool { return i < 6*6 })
	cs, err := Hybrid(context.Background(), six, "u00", frame.ColUserRating, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 1 || cs[0].Neighbors != 5 || cs[0].MinRatings != 0 {
		t.Fatalf("expected one candidate with 5 neighbors, got %+v", cs)
	}
	if cs[0].Metrics.Count != 6 {
		t.Errorf("candidate scored on %d rows, want 6", cs[0].Metrics.Count)
	}
}

func TestBestCandidateSkipsEmpty(t *testing.T) {
	cs := []Candidate{
		{Model: &regression.Model{}, Metrics: evaluate.Metrics{}},
		{Model: &regression.Model{}, Metrics: evaluate.Metrics{MAE: 0.4, Count: 3}},
		{Model: &regression.Model{}, Metrics: evaluate.Metrics{MAE: 0.4, Count: 2}},
	}
	best, ok := BestCandidate(cs)
	if !ok || best.Metrics.Count != 3 {
		t.Errorf("expected first non-empty minimum, got %+v", best)
	}
	if _, ok := BestCandidate(cs[:1]); ok {
		t.Error("empty candidates cannot be best")
	}
}
