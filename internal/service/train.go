package service

import (
	"context"
	"fmt"
	"time"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/evaluate"
	"github.com/actuallystonmai/beer-recommender/internal/features"
	"github.com/actuallystonmai/beer-recommender/internal/frame"
	"github.com/actuallystonmai/beer-recommender/internal/logging"
	"github.com/actuallystonmai/beer-recommender/internal/metrics"
	"github.com/actuallystonmai/beer-recommender/internal/registry"
	"github.com/actuallystonmai/beer-recommender/internal/trainer"
)

// Train fits the requested technique for one user. Content-based and hybrid
// models replace the user's registry slot; collaborative filtering is only
// evaluated.
func (s *Service) Train(ctx context.Context, req domain.TrainRequest) (*domain.TrainResult, error) {
	tech, err := domain.ParseTechnique(req.Technique)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var res *domain.TrainResult
	switch tech {
	case domain.TechniqueContentBased:
		res, err = s.trainContentBased(ctx, req)
	case domain.TechniqueCollaborative:
		res, err = s.trainCollaborative(ctx, req)
	case domain.TechniqueHybrid:
		res, err = s.trainHybrid(ctx, req)
	}
	metrics.TrainingDuration.WithLabelValues(string(tech)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TrainingRuns.WithLabelValues(string(tech), "failed").Inc()
		return nil, fmt.Errorf("train %s for %s: %w", tech, req.Username, err)
	}
	metrics.TrainingRuns.WithLabelValues(string(tech), "success").Inc()

	if res.Persisted {
		s.modelReplaced(ctx, req.Username)
	}
	return res, nil
}

func (s *Service) trainContentBased(ctx context.Context, req domain.TrainRequest) (*domain.TrainResult, error) {
	sel, err := domain.ParseFeatureSelection(req.FeatureSelection)
	if err != nil {
		return nil, err
	}
	alg, err := domain.ParseAlgorithm(req.Algorithm)
	if err != nil {
		return nil, err
	}
	strategy, err := features.ForSelection(sel)
	if err != nil {
		return nil, err
	}

	f, err := s.userFeatures(ctx, req.Username, strategy)
	if err != nil {
		return nil, err
	}
	fit, err := trainer.ContentBased(f, frame.ColUserRating, alg, s.opts)
	if err != nil {
		return nil, err
	}

	res := newResult(req.Username, domain.TechniqueContentBased, fit.Metrics)
	res.FeatureSelection = sel
	res.Algorithm = alg
	res.BestParams = fit.Params.Map(alg)
	return s.persist(ctx, res, registry.Artifact{Model: fit.Model, FeatureSelection: sel})
}

// userFeatures builds the user's training table. Vocabulary based strategies
// are fitted on every row so the columns match the whole catalog; the simple
// strategy only needs the user's own rows.
func (s *Service) userFeatures(ctx context.Context, username string, strategy features.Strategy) (*frame.Frame, error) {
	if strategy.Selection() == domain.FeatureSimple {
		rs, err := s.store.UserRatings(ctx, username)
		if err != nil {
			return nil, err
		}
		return strategy.Transform(frame.FromRatings(rs), frame.ColDescription)
	}

	rs, err := s.store.AllRatings(ctx)
	if err != nil {
		return nil, err
	}
	if len(domain.FilterUser(rs, username)) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
	}
	f, err := strategy.Transform(frame.FromRatings(rs), frame.ColDescription)
	if err != nil {
		return nil, err
	}
	users := f.Text(frame.ColUsername)
	return f.Filter(func(i int) bool { return users[i] == username }), nil
}

func (s *Service) trainCollaborative(ctx context.Context, req domain.TrainRequest) (*domain.TrainResult, error) {
	rs, err := s.store.RatingTriples(ctx)
	if err != nil {
		return nil, err
	}
	eval, err := trainer.Collaborative(rs, req.Username)
	if err != nil {
		return nil, err
	}
	return newResult(req.Username, domain.TechniqueCollaborative, eval.Metrics), nil
}

func (s *Service) trainHybrid(ctx context.Context, req domain.TrainRequest) (*domain.TrainResult, error) {
	sel, err := domain.ParseFeatureSelection(req.FeatureSelection)
	if err != nil {
		return nil, err
	}
	strategy, err := features.ForSelection(sel)
	if err != nil {
		return nil, err
	}

	rs, err := s.store.AllRatings(ctx)
	if err != nil {
		return nil, err
	}
	f, err := strategy.Transform(frame.FromRatings(rs), frame.ColDescription)
	if err != nil {
		return nil, err
	}
	candidates, err := trainer.Hybrid(ctx, f, req.Username, frame.ColUserRating, s.opts)
	if err != nil {
		return nil, err
	}
	best, ok := trainer.BestCandidate(candidates)
	if !ok {
		return nil, fmt.Errorf("%w: no hybrid candidate could be scored", domain.ErrInsufficientData)
	}

	res := newResult(req.Username, domain.TechniqueHybrid, best.Metrics)
	res.FeatureSelection = sel
	res.Algorithm = domain.AlgorithmLasso
	res.BestParams = map[string]float64{
		"alpha":       best.Model.Params.Alpha,
		"min_ratings": float64(best.MinRatings),
		"neighbors":   float64(best.Neighbors),
	}
	return s.persist(ctx, res, registry.Artifact{Model: best.Model, FeatureSelection: sel})
}

func (s *Service) persist(ctx context.Context, res *domain.TrainResult, art registry.Artifact) (*domain.TrainResult, error) {
	meta, err := s.registry.Save(ctx, art, registry.Metadata{
		Username:   res.Username,
		Technique:  res.Technique,
		TrainedAt:  res.TrainedAt,
		MAE:        res.MAE,
		QuarterPct: res.QuarterPct,
		HalfPct:    res.HalfPct,
		BestParams: res.BestParams,
	})
	if err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	res.RunID = meta.RunID
	res.Persisted = true
	logging.Info().Str("user", res.Username).Str("technique", string(res.Technique)).Str("run_id", res.RunID).
		Msg("[service] model saved")
	return res, nil
}

func newResult(username string, tech domain.Technique, m evaluate.Metrics) *domain.TrainResult {
	return &domain.TrainResult{
		Username:   username,
		Technique:  tech,
		MAE:        m.MAE,
		QuarterPct: m.QuarterPct,
		HalfPct:    m.HalfPct,
		Evaluated:  m.Count,
		TrainedAt:  time.Now().UTC(),
	}
}
