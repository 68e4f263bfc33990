package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/logging"
	"github.com/actuallystonmai/beer-recommender/internal/metrics"
	"github.com/actuallystonmai/beer-recommender/internal/model"
	"github.com/actuallystonmai/beer-recommender/internal/trainer"
)

// Predictions returns the user's predicted rating for every beer of the
// catalog, best first, served from the cache when possible.
func (s *Service) Predictions(ctx context.Context, username string, tech domain.Technique) (*domain.PredictionResult, error) {
	cached, err := s.cache.Get(ctx, username, tech)
	if err != nil {
		logging.Warn().Err(err).Str("user", username).Msg("[service] cache get error")
	}
	if cached != nil {
		return &domain.PredictionResult{Predictions: cached, CacheHit: true}, nil
	}

	gen := s.generation(username)
	preds, err := s.generatePredictions(ctx, username, tech)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, username, tech, preds); err != nil {
		logging.Warn().Err(err).Str("user", username).Msg("[service] cache set error")
	}
	// Training replaced the model while these were computed.
	if s.generation(username) != gen {
		s.invalidate(ctx, username)
	}
	return &domain.PredictionResult{Predictions: preds}, nil
}

func (s *Service) generatePredictions(ctx context.Context, username string, tech domain.Technique) ([]domain.ScoredBeer, error) {
	if tech == domain.TechniqueCollaborative {
		rs, err := s.store.RatingTriples(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch ratings: %w", err)
		}
		hood, err := trainer.NewNeighborhood(rs, username)
		if err != nil {
			return nil, err
		}
		beers, err := s.store.ListBeers(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch beers: %w", err)
		}
		return s.predictor.ScoreNeighbors(hood, beers), nil
	}

	art, _, err := s.registry.Load(ctx, username, tech)
	if err != nil {
		return nil, err
	}
	catalog, err := s.store.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	return s.predictor.Score(model.ScoreInput{Artifact: art, Catalog: catalog})
}

// PredictSingle rates one beer for the user.
func (s *Service) PredictSingle(ctx context.Context, username, technique, beer string) (domain.ScoredBeer, error) {
	tech, err := domain.ParseTechnique(technique)
	if err != nil {
		return domain.ScoredBeer{}, err
	}
	if err := s.requireBeers(ctx, []string{beer}); err != nil {
		return domain.ScoredBeer{}, err
	}

	res, err := s.Predictions(ctx, username, tech)
	if err != nil {
		return domain.ScoredBeer{}, err
	}
	for _, p := range res.Predictions {
		if p.BeerName == beer {
			metrics.PredictionsServed.WithLabelValues("single", string(tech)).Inc()
			return p, nil
		}
	}
	return domain.ScoredBeer{}, fmt.Errorf("%w: no estimate for %s", domain.ErrInsufficientData, beer)
}

// PredictRanked rates the given beers and orders them best first. Beers the
// technique cannot estimate are left out.
func (s *Service) PredictRanked(ctx context.Context, username, technique string, beers []string) ([]domain.ScoredBeer, error) {
	tech, err := domain.ParseTechnique(technique)
	if err != nil {
		return nil, err
	}
	if len(beers) == 0 {
		return []domain.ScoredBeer{}, nil
	}
	if err := s.requireBeers(ctx, beers); err != nil {
		return nil, err
	}

	res, err := s.Predictions(ctx, username, tech)
	if err != nil {
		return nil, err
	}
	ranked := make([]domain.ScoredBeer, 0, len(beers))
	for _, p := range res.Predictions {
		if slices.Contains(beers, p.BeerName) {
			ranked = append(ranked, p)
		}
	}
	metrics.PredictionsServed.WithLabelValues("ranked", string(tech)).Add(float64(len(ranked)))
	return ranked, nil
}

// Suggest picks at random among the ten lowest rated beers of the catalog.
func (s *Service) Suggest(ctx context.Context, username, technique string) (domain.ScoredBeer, error) {
	tech, err := domain.ParseTechnique(technique)
	if err != nil {
		return domain.ScoredBeer{}, err
	}
	return s.suggest(ctx, username, tech)
}

func (s *Service) suggest(ctx context.Context, username string, tech domain.Technique) (domain.ScoredBeer, error) {
	res, err := s.Predictions(ctx, username, tech)
	if err != nil {
		return domain.ScoredBeer{}, err
	}
	if len(res.Predictions) == 0 {
		return domain.ScoredBeer{}, fmt.Errorf("%w: no beer could be scored for %s", domain.ErrInsufficientData, username)
	}
	// Predictions are sorted best first, so the lowest sit at the tail.
	pool := res.Predictions[max(0, len(res.Predictions)-suggestionPool):]

	s.mu.Lock()
	pick := pool[s.rng.Intn(len(pool))]
	s.mu.Unlock()

	metrics.PredictionsServed.WithLabelValues("suggest", string(tech)).Inc()
	return pick, nil
}

// requireBeers fails with domain.ErrBeerNotFound when any name is not in the
// catalog.
func (s *Service) requireBeers(ctx context.Context, names []string) error {
	found, err := s.store.BeersByName(ctx, names)
	if err != nil {
		return fmt.Errorf("look up beers: %w", err)
	}
	known := make(map[string]bool, len(found))
	for _, b := range found {
		known[b.Name] = true
	}
	var missing []string
	for _, n := range names {
		if !known[n] && !slices.Contains(missing, n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", domain.ErrBeerNotFound, missing)
	}
	return nil
}
