package domain

import "time"

// TrainRequest is the input of a training run. Tags are raw strings and are
// parsed by the service.
type TrainRequest struct {
	Username         string
	Technique        string
	FeatureSelection string
	Algorithm        string
}

type TrainResult struct {
	Username         string             `json:"username"`
	Technique        Technique          `json:"technique"`
	FeatureSelection FeatureSelection   `json:"feature_selection,omitempty"`
	Algorithm        Algorithm          `json:"algorithm,omitempty"`
	MAE              float64            `json:"mae"`
	QuarterPct       float64            `json:"quarter_pct"`
	HalfPct          float64            `json:"half_pct"`
	Evaluated        int                `json:"evaluated"`
	BestParams       map[string]float64 `json:"best_params,omitempty"`
	RunID            string             `json:"run_id,omitempty"`
	Persisted        bool               `json:"persisted"`
	TrainedAt        time.Time          `json:"trained_at"`
}

type ScoredBeer struct {
	BeerName string  `json:"beer_name"`
	Rating   float64 `json:"rating"`
}

// ClampRating maps a raw prediction onto the 0..5 rating scale.
func ClampRating(p float64) float64 {
	return min(5.0, max(0.0, p))
}

// PredictionResult is a user's catalog predictions for one technique.
type PredictionResult struct {
	Predictions []ScoredBeer
	CacheHit    bool
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

type BatchUserResult struct {
	Username   string      `json:"username"`
	Suggestion *ScoredBeer `json:"suggestion,omitempty"`
	Status     string      `json:"status"`
	Error      string      `json:"error,omitempty"`
	Message    string      `json:"message,omitempty"`
}

type BatchSummary struct {
	SuccessCount     int   `json:"success_count"`
	FailedCount      int   `json:"failed_count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

type BatchMeta struct {
	GeneratedAt string `json:"generated_at"`
}

type BatchResponse struct {
	Technique  Technique         `json:"technique"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalUsers int               `json:"total_users"`
	Results    []BatchUserResult `json:"results"`
	Summary    BatchSummary      `json:"summary"`
	Metadata   BatchMeta         `json:"metadata"`
}
