package trainer

import (
	"math"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/evaluate"
	"github.com/actuallystonmai/beer-recommender/internal/logging"
	"github.com/actuallystonmai/beer-recommender/internal/metrics"
	"github.com/actuallystonmai/beer-recommender/internal/similarity"
)

// Neighborhood answers "what did the closest user who tried this beer think
// of it" for one target user.
type Neighborhood struct {
	ranking []similarity.Neighbor
	// ratings[user][beer] is the first rating the user gave the beer.
	ratings map[string]map[string]float64
}

// NewNeighborhood ranks every user of rs against target.
func NewNeighborhood(rs []domain.Rating, target string) (*Neighborhood, error) {
	ranking, err := similarity.RankUsers(rs, target)
	if err != nil {
		return nil, err
	}
	return newNeighborhood(ranking, rs), nil
}

func newNeighborhood(ranking []similarity.Neighbor, rs []domain.Rating) *Neighborhood {
	idx := make(map[string]map[string]float64)
	for _, r := range rs {
		if math.IsNaN(r.UserRating) {
			continue
		}
		byBeer, ok := idx[r.Username]
		if !ok {
			byBeer = make(map[string]float64)
			idx[r.Username] = byBeer
		}
		if _, seen := byBeer[r.BeerName]; !seen {
			byBeer[r.BeerName] = r.UserRating
		}
	}
	return &Neighborhood{ranking: ranking, ratings: idx}
}

// Estimate returns the rating of the best ranked neighbor who rated beer.
func (n *Neighborhood) Estimate(beer string) (float64, similarity.Neighbor, bool) {
	for _, nb := range n.ranking {
		if v, ok := n.ratings[nb.Username][beer]; ok {
			return v, nb, true
		}
	}
	return 0, similarity.Neighbor{}, false
}

type Estimate struct {
	BeerName     string  `json:"beer_name"`
	Actual       float64 `json:"actual"`
	Estimated    float64 `json:"estimated"`
	Neighbor     string  `json:"neighbor"`
	NeighborRank int     `json:"neighbor_rank"`
}

type CollaborativeResult struct {
	Estimates []Estimate
	Skipped   []string
	Metrics   evaluate.Metrics
}

// Collaborative scores nearest-neighbor estimates against the target's own
// ratings. Beers no other user rated are skipped; when every beer is skipped
// the metrics are empty rather than an error.
func Collaborative(rs []domain.Rating, user string) (*CollaborativeResult, error) {
	hood, err := NewNeighborhood(rs, user)
	if err != nil {
		return nil, err
	}

	res := &CollaborativeResult{}
	var pred, actual []float64
	seen := make(map[string]bool)
	for _, r := range rs {
		if r.Username != user || seen[r.BeerName] {
			continue
		}
		seen[r.BeerName] = true

		mine, ok := hood.ratings[user][r.BeerName]
		if !ok {
			continue
		}
		est, nb, ok := hood.Estimate(r.BeerName)
		if !ok {
			res.Skipped = append(res.Skipped, r.BeerName)
			metrics.SkippedBeers.Inc()
			logging.Warn().Str("user", user).Str("beer", r.BeerName).
				Msg("[trainer] skipping beer, no neighbor rated it")
			continue
		}
		res.Estimates = append(res.Estimates, Estimate{
			BeerName:     r.BeerName,
			Actual:       mine,
			Estimated:    est,
			Neighbor:     nb.Username,
			NeighborRank: nb.Rank,
		})
		pred = append(pred, est)
		actual = append(actual, mine)
	}
	res.Metrics = evaluate.Summarize(pred, actual)

	logging.Info().
		Str("user", user).
		Int("evaluated", res.Metrics.Count).
		Int("skipped", len(res.Skipped)).
		Float64("mae", res.Metrics.MAE).
		Msg("[trainer] collaborative filtering evaluated")
	return res, nil
}
