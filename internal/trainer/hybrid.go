package trainer

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/evaluate"
	"github.com/actuallystonmai/beer-recommender/internal/frame"
	"github.com/actuallystonmai/beer-recommender/internal/logging"
	"github.com/actuallystonmai/beer-recommender/internal/metrics"
	"github.com/actuallystonmai/beer-recommender/internal/regression"
	"github.com/actuallystonmai/beer-recommender/internal/similarity"
)

var (
	// MinRatingsGrid are the activity thresholds: a neighbor is eligible when
	// it has strictly more ratings than the threshold.
	MinRatingsGrid = []int{0, 50, 100, 250, 500}
	// NeighborGrid are the neighbor cutoffs tried for each threshold.
	NeighborGrid = []int{5, 10, 15, 20, 30, 40, 50}
)

// Candidate is one point of the hybrid grid.
type Candidate struct {
	MinRatings int
	Neighbors  int
	Model      *regression.Model
	Metrics    evaluate.Metrics
}

type hybridJob struct {
	minRatings int
	neighbors  []string
}

// Hybrid trains a cross-validated Lasso on the rows of the user's nearest
// neighbors for every (threshold, cutoff) combination and scores it on the
// user's own rows. f must carry the username and beer name columns next to
// the numeric features. Candidates come back in grid order.
func Hybrid(ctx context.Context, f *frame.Frame, user, target string, opts Options) ([]Candidate, error) {
	opts = opts.withDefaults()
	users := f.Text(frame.ColUsername)
	beers := f.Text(frame.ColBeerName)
	y := f.Float(target)
	if users == nil || beers == nil || y == nil {
		return nil, fmt.Errorf("hybrid frame needs %s, %s and %s columns", frame.ColUsername, frame.ColBeerName, target)
	}

	rs := make([]domain.Rating, f.Len())
	counts := make(map[string]int)
	for i := range rs {
		rs[i] = domain.Rating{Username: users[i], BeerName: beers[i], UserRating: y[i]}
		counts[users[i]]++
	}
	ranking, err := similarity.RankUsers(rs, user)
	if err != nil {
		return nil, err
	}

	features := featureNames(f, target)
	f = f.ImputeMean(features...)
	test := f.Filter(func(i int) bool { return users[i] == user })
	testX, testY := test.Matrix(features), test.Float(target)

	jobs := hybridJobs(user, ranking, counts)
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: not enough neighbors for %s", domain.ErrInsufficientData, user)
	}

	out := make([]Candidate, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chosen := make(map[string]bool, len(job.neighbors))
			for _, u := range job.neighbors {
				chosen[u] = true
			}
			train := f.Filter(func(r int) bool { return chosen[users[r]] })

			m, err := regression.LassoCV(train.Matrix(features), train.Float(target), opts.Folds)
			if err != nil {
				return fmt.Errorf("hybrid min=%d n=%d: %w", job.minRatings, len(job.neighbors), err)
			}
			m.Features = features
			out[i] = Candidate{
				MinRatings: job.minRatings,
				Neighbors:  len(job.neighbors),
				Model:      m,
				Metrics:    evaluate.Summarize(m.Predict(testX), testY),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	metrics.HybridCandidates.Add(float64(len(out)))

	logging.Info().
		Str("user", user).
		Int("candidates", len(out)).
		Int("neighbors", len(ranking)).
		Msg("[trainer] hybrid grid evaluated")
	return out, nil
}

// hybridJobs expands the grid in order. A cutoff is tried only when it is
// smaller than the number of users above the threshold, the target included
// when it qualifies itself; the target is never one of its own neighbors.
func hybridJobs(user string, ranking []similarity.Neighbor, counts map[string]int) []hybridJob {
	var jobs []hybridJob
	for _, minRatings := range MinRatingsGrid {
		var eligible []string
		for _, nb := range ranking {
			if counts[nb.Username] > minRatings {
				eligible = append(eligible, nb.Username)
			}
		}
		active := len(eligible)
		if counts[user] > minRatings {
			active++
		}
		for _, n := range NeighborGrid {
			if n >= active || n > len(eligible) {
				continue
			}
			jobs = append(jobs, hybridJob{minRatings: minRatings, neighbors: eligible[:n]})
		}
	}
	return jobs
}

// BestCandidate returns the scored candidate with the lowest MAE. Earlier
// candidates win ties.
func BestCandidate(cs []Candidate) (Candidate, bool) {
	best, found := Candidate{}, false
	for _, c := range cs {
		if c.Model == nil || c.Metrics.Empty() {
			continue
		}
		if !found || c.Metrics.MAE < best.Metrics.MAE {
			best, found = c, true
		}
	}
	return best, found
}
