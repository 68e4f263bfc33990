// Package service runs the recommendation pipeline: it reads ratings, prepares
// features, trains and stores models, and serves predictions from them.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/logging"
	"github.com/actuallystonmai/beer-recommender/internal/model"
	"github.com/actuallystonmai/beer-recommender/internal/registry"
	"github.com/actuallystonmai/beer-recommender/internal/trainer"
)

const (
	batchConcurrency = 10
	suggestionPool   = 10
)

// Store is the read side of the ratings table.
type Store interface {
	ListUsernames(ctx context.Context) ([]string, error)
	ListBeers(ctx context.Context) ([]string, error)
	UsernamesPage(ctx context.Context, page, limit int) ([]string, error)
	CountUsers(ctx context.Context) (int, error)
	UserRatings(ctx context.Context, username string) ([]domain.Rating, error)
	AllRatings(ctx context.Context) ([]domain.Rating, error)
	RatingTriples(ctx context.Context) ([]domain.Rating, error)
	Catalog(ctx context.Context) ([]domain.Beer, error)
	BeersByName(ctx context.Context, names []string) ([]domain.Beer, error)
}

type PredictionCache interface {
	Get(ctx context.Context, username string, technique domain.Technique) ([]domain.ScoredBeer, error)
	Set(ctx context.Context, username string, technique domain.Technique, preds []domain.ScoredBeer) error
	ClearUser(ctx context.Context, username string) error
}

type Registry interface {
	Save(ctx context.Context, art registry.Artifact, meta registry.Metadata) (*registry.Metadata, error)
	Load(ctx context.Context, username string, technique domain.Technique) (*registry.Artifact, *registry.Metadata, error)
}

type Service struct {
	store     Store
	cache     PredictionCache
	registry  Registry
	predictor *model.Predictor
	opts      trainer.Options

	mu  sync.Mutex
	rng *rand.Rand
	// gens counts persisted models per user.
	gens map[string]uint64
}

func NewService(store Store, cache PredictionCache, reg Registry, opts trainer.Options) *Service {
	return &Service{
		store:     store,
		cache:     cache,
		registry:  reg,
		predictor: model.NewPredictor(),
		opts:      opts,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		gens:      make(map[string]uint64),
	}
}

func (s *Service) generation(username string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[username]
}

// modelReplaced bumps the user's generation and drops cached predictions.
// The bump comes first so an in-flight Predictions either sees it or has
// already written the entry this clears.
func (s *Service) modelReplaced(ctx context.Context, username string) {
	s.mu.Lock()
	s.gens[username]++
	s.mu.Unlock()
	s.invalidate(ctx, username)
}

func (s *Service) invalidate(ctx context.Context, username string) {
	if err := s.cache.ClearUser(ctx, username); err != nil {
		logging.Warn().Err(err).Str("user", username).Msg("[service] cache invalidation error")
	}
}

func (s *Service) ListUsernames(ctx context.Context) ([]string, error) {
	return s.store.ListUsernames(ctx)
}

func (s *Service) ListBeers(ctx context.Context) ([]string, error) {
	return s.store.ListBeers(ctx)
}

// BatchSuggest computes one suggestion for every user of a page.
func (s *Service) BatchSuggest(ctx context.Context, technique string, page, limit int) (*domain.BatchResponse, error) {
	start := time.Now()
	tech, err := domain.ParseTechnique(technique)
	if err != nil {
		return nil, err
	}

	usernames, err := s.store.UsernamesPage(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch usernames: %w", err)
	}
	totalUsers, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	// Process users concurrently with bounded worker pool
	results := make([]domain.BatchUserResult, len(usernames))
	var wg sync.WaitGroup
	sem := make(chan struct{}, batchConcurrency)

	for i, username := range usernames {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = s.processUserForBatch(ctx, name, tech)
		}(i, username)
	}
	wg.Wait()

	successCount, failedCount := 0, 0
	for _, r := range results {
		if r.Status == domain.StatusSuccess {
			successCount++
		} else {
			failedCount++
		}
	}

	return &domain.BatchResponse{
		Technique:  tech,
		Page:       page,
		Limit:      limit,
		TotalUsers: totalUsers,
		Results:    results,
		Summary: domain.BatchSummary{
			SuccessCount:     successCount,
			FailedCount:      failedCount,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
		Metadata: domain.BatchMeta{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

func (s *Service) processUserForBatch(ctx context.Context, username string, tech domain.Technique) domain.BatchUserResult {
	suggestion, err := s.suggest(ctx, username, tech)
	if err != nil {
		logging.Warn().Err(err).Str("user", username).Msg("[service] batch: suggestion failed")
		code, msg := categorizeError(err)
		return domain.BatchUserResult{
			Username: username,
			Status:   domain.StatusFailed,
			Error:    code,
			Message:  msg,
		}
	}
	return domain.BatchUserResult{
		Username:   username,
		Suggestion: &suggestion,
		Status:     domain.StatusSuccess,
	}
}

func categorizeError(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found", "user not found"
	case errors.Is(err, domain.ErrNoModel):
		return "no_model", "no model trained yet"
	case errors.Is(err, domain.ErrInsufficientData):
		return "insufficient_data", "not enough ratings to make a suggestion"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable", "ratings store is unavailable"
	case errors.Is(err, domain.ErrCorruptModel), model.IsInferenceError(err):
		return "model_inference_error", "stored model failed to generate a prediction"
	}
	return "internal_error", "an unexpected error occurred"
}
