// Package model scores the beer catalog for one user, either with a stored
// regression artifact or with the nearest-neighbor estimate.
package model

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/features"
	"github.com/actuallystonmai/beer-recommender/internal/frame"
	"github.com/actuallystonmai/beer-recommender/internal/logging"
	"github.com/actuallystonmai/beer-recommender/internal/registry"
	"github.com/actuallystonmai/beer-recommender/internal/trainer"
)

type Predictor struct{}

func NewPredictor() *Predictor {
	return &Predictor{}
}

// InferenceError is a failure while applying a stored artifact, as opposed to
// a bad request.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("model inference failed at %s: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func IsInferenceError(err error) bool {
	var target *InferenceError
	return errors.As(err, &target)
}

type ScoreInput struct {
	Artifact *registry.Artifact
	Catalog  []domain.Beer
}

// Score predicts a rating for every distinct beer of the catalog. The catalog
// is transformed with the artifact's feature strategy, averaged per beer name
// and aligned to the model's columns. Results are clamped to 0..5 and sorted by
// rating descending, then by name.
func (p *Predictor) Score(in ScoreInput) ([]domain.ScoredBeer, error) {
	if in.Artifact == nil || in.Artifact.Model == nil {
		return nil, domain.ErrNoModel
	}
	strategy, err := features.ForSelection(in.Artifact.FeatureSelection)
	if err != nil {
		return nil, err
	}
	if len(in.Catalog) == 0 {
		return nil, nil
	}

	f, err := strategy.Transform(frame.FromBeers(in.Catalog), frame.ColDescription)
	if err != nil {
		return nil, &InferenceError{Stage: "features", Err: err}
	}
	perBeer := f.GroupMean(frame.ColBeerName).ImputeMean(in.Artifact.Model.Features...)
	if miss := perBeer.Missing(in.Artifact.Model.Features); len(miss) > 0 {
		logging.Debug().Strs("features", miss).Msg("[model] catalog lacks model features, scoring them as zero")
	}

	raw := in.Artifact.Model.PredictFrame(perBeer)
	names := perBeer.Text(frame.ColBeerName)
	scored := make([]domain.ScoredBeer, 0, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &InferenceError{Stage: "predict", Err: fmt.Errorf("non-finite prediction for %q", names[i])}
		}
		scored = append(scored, domain.ScoredBeer{BeerName: names[i], Rating: domain.ClampRating(v)})
	}
	return sortBest(scored), nil
}

// ScoreNeighbors estimates each beer with the rating of the closest user who
// rated it. Beers nobody else rated are left out.
func (p *Predictor) ScoreNeighbors(hood *trainer.Neighborhood, beers []string) []domain.ScoredBeer {
	scored := make([]domain.ScoredBeer, 0, len(beers))
	seen := make(map[string]bool, len(beers))
	for _, b := range beers {
		if seen[b] {
			continue
		}
		seen[b] = true
		if v, _, ok := hood.Estimate(b); ok {
			scored = append(scored, domain.ScoredBeer{BeerName: b, Rating: domain.ClampRating(v)})
		}
	}
	return sortBest(scored)
}

func sortBest(scored []domain.ScoredBeer) []domain.ScoredBeer {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Rating != scored[j].Rating {
			return scored[i].Rating > scored[j].Rating
		}
		return scored[i].BeerName < scored[j].BeerName
	})
	return scored
}
