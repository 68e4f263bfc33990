// Package trainer fits and scores the per-user rating models.
package trainer

import (
	"fmt"
	"slices"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/evaluate"
	"github.com/actuallystonmai/beer-recommender/internal/frame"
	"github.com/actuallystonmai/beer-recommender/internal/logging"
	"github.com/actuallystonmai/beer-recommender/internal/regression"
)

type Options struct {
	Seed           int64
	Folds          int
	TestFraction   float64
	RemoveOutliers bool
	// Concurrency bounds the hybrid grid workers.
	Concurrency int
}

func DefaultOptions() Options {
	return Options{
		Seed:           12,
		Folds:          regression.DefaultFolds,
		TestFraction:   0.2,
		RemoveOutliers: true,
		Concurrency:    4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Folds == 0 {
		o.Folds = d.Folds
	}
	if o.TestFraction == 0 {
		o.TestFraction = d.TestFraction
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	return o
}

// Result is a fitted content-based model with its held-out score.
type Result struct {
	Model   *regression.Model
	Params  regression.Params
	Metrics evaluate.Metrics
}

// ContentBased fits alg on one user's feature table. Every numeric column other
// than target is a feature. The best grid configuration is scored on a seeded
// hold-out split and then refit on every row.
func ContentBased(f *frame.Frame, target string, alg domain.Algorithm, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if _, err := regression.Grid(alg); err != nil {
		return nil, err
	}
	if !f.Has(target) {
		return nil, fmt.Errorf("target column %q not found", target)
	}

	if opts.RemoveOutliers {
		before := f.Len()
		f = f.Rows(regression.RemoveOutliers(f.Float(target)))
		if dropped := before - f.Len(); dropped > 0 {
			logging.Debug().Int("dropped", dropped).Msg("[trainer] removed target outliers")
		}
	}

	features := featureNames(f, target)
	f = f.ImputeMean(features...)

	trainIdx, testIdx := regression.TrainTestSplit(f.Len(), opts.TestFraction, opts.Seed)
	if len(trainIdx) < opts.Folds {
		return nil, fmt.Errorf("%w: %d training rows for %d folds", domain.ErrInsufficientData, len(trainIdx), opts.Folds)
	}
	train, test := f.Rows(trainIdx), f.Rows(testIdx)

	params, cvMAE, err := regression.GridSearch(alg, train.Matrix(features), train.Float(target), opts.Folds)
	if err != nil {
		return nil, fmt.Errorf("grid search: %w", err)
	}

	scored, err := regression.Fit(alg, params, train.Matrix(features), train.Float(target))
	if err != nil {
		return nil, fmt.Errorf("fit best params: %w", err)
	}
	metrics := evaluate.Summarize(scored.Predict(test.Matrix(features)), test.Float(target))

	final, err := regression.Fit(alg, params, f.Matrix(features), f.Float(target))
	if err != nil {
		return nil, fmt.Errorf("refit on all rows: %w", err)
	}
	final.Features = features

	logging.Info().
		Str("algorithm", string(alg)).
		Float64("alpha", params.Alpha).
		Float64("cv_mae", cvMAE).
		Float64("test_mae", metrics.MAE).
		Int("rows", f.Len()).
		Msg("[trainer] content-based model fitted")

	return &Result{Model: final, Params: params, Metrics: metrics}, nil
}

// featureNames lists the numeric columns of f other than target.
func featureNames(f *frame.Frame, target string) []string {
	return slices.DeleteFunc(f.FloatNames(), func(n string) bool { return n == target })
}
