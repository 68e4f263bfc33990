package seeds

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/logging"
)

const (
	numUsers   = 30
	maxRatings = 40
	// rows per bulk insert
	insertBatch = 500
)

type style struct {
	name     string
	abv, ibu float64
	global   float64
}

var styles = []style{
	{"American IPA", 6.5, 60, 3.9},
	{"Imperial Stout", 10, 55, 4.2},
	{"Pilsner", 4.8, 35, 3.5},
	{"Hefeweizen", 5.2, 12, 3.7},
	{"Belgian Tripel", 9, 30, 4.0},
	{"Sour Ale", 5, 8, 3.8},
	{"Porter", 6, 30, 3.8},
	{"New England IPA", 7, 45, 4.1},
}

var (
	breweries = []string{"Hoppy Trails", "Old Mill", "Copper Kettle", "Northern Lights", "Stone Bridge"}
	adjs      = []string{"hoppy", "malty", "crisp", "dark", "golden", "funky"}
	nouns     = []string{"monk", "brewer", "fan", "hound", "pilgrim"}
)

// Writer is the write side of the ratings table.
type Writer interface {
	ResetRatings(ctx context.Context) error
	InsertRatings(ctx context.Context, rs []domain.Rating) error
}

// Setup empties the ratings table and inserts a deterministic sample.
func Setup(ctx context.Context, w Writer) error {
	rng := rand.New(rand.NewSource(42))

	logging.Info().Msg("[seed] truncating existing data")
	if err := w.ResetRatings(ctx); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	rs := Generate(rng)
	logging.Info().Int("rows", len(rs)).Msg("[seed] inserting ratings")
	for start := 0; start < len(rs); start += insertBatch {
		end := min(start+insertBatch, len(rs))
		if err := w.InsertRatings(ctx, rs[start:end]); err != nil {
			return fmt.Errorf("seed ratings %d-%d: %w", start, end, err)
		}
	}

	logging.Info().Msg("[seed] seeding complete")
	return nil
}

// Generate builds the sample ratings. Each user prefers stronger or lighter
// beer and some styles over others; activity follows a power law. A few rows
// miss their IBU and a few are repeated.
func Generate(rng *rand.Rand) []domain.Rating {
	catalog := beers(rng)

	var rs []domain.Rating
	for i := range numUsers {
		username := fmt.Sprintf("%s_%s%d", adjs[i%len(adjs)], nouns[i%len(nouns)], i)
		abvTaste := rng.NormFloat64() * 0.25
		affinity := make(map[string]float64, len(styles))
		for _, s := range styles {
			affinity[s.name] = rng.NormFloat64() * 0.5
		}

		n := int(math.Ceil(math.Pow(rng.Float64(), 1.5) * maxRatings))
		n = max(8, min(n, len(catalog)))
		for _, idx := range rng.Perm(len(catalog))[:n] {
			b := catalog[idx]
			raw := b.GlobalRating + abvTaste*(b.ABV-6) + affinity[b.Description] + rng.NormFloat64()*0.3
			r := domain.Rating{
				Username:        username,
				BeerName:        b.Name,
				BeerDescription: b.Description,
				ABV:             b.ABV,
				IBU:             b.IBU,
				GlobalRating:    b.GlobalRating,
				UserRating:      math.Round(domain.ClampRating(raw)*4) / 4,
			}
			if rng.Float64() < 0.05 {
				r.IBU = math.NaN()
			}
			rs = append(rs, r)
			if rng.Float64() < 0.03 {
				rs = append(rs, r)
			}
		}
	}
	return rs
}

// beers builds the catalog; the description of a beer is its style.
func beers(rng *rand.Rand) []domain.Beer {
	var out []domain.Beer
	for bi, brewery := range breweries {
		for si, s := range styles {
			if (bi+si)%3 == 2 {
				continue
			}
			out = append(out, domain.Beer{
				Name:         fmt.Sprintf("%s %s", brewery, s.name),
				Description:  s.name,
				ABV:          math.Round((s.abv+rng.NormFloat64()*0.4)*10) / 10,
				IBU:          math.Round(math.Max(5, s.ibu+rng.NormFloat64()*5)),
				GlobalRating: math.Round((s.global+rng.NormFloat64()*0.15)*100) / 100,
			})
		}
	}
	return out
}
