package handler

import "github.com/actuallystonmai/beer-recommender/internal/domain"

type TrainModelRequest struct {
	Technique        string `json:"technique" validate:"required"`
	FeatureSelection string `json:"feature_selection" validate:"required_unless=Technique collab-filt"`
	Algorithm        string `json:"algorithm" validate:"required_if=Technique cbf"`
}

type RankBeersRequest struct {
	Technique string   `json:"technique" validate:"required"`
	Beers     []string `json:"beers" validate:"required,min=1,max=200,dive,required"`
}

type ListResponse struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
}

type PredictionResponse struct {
	Username   string            `json:"username"`
	Technique  string            `json:"technique"`
	Prediction domain.ScoredBeer `json:"prediction"`
}

type RankingResponse struct {
	Username  string              `json:"username"`
	Technique string              `json:"technique"`
	Rankings  []domain.ScoredBeer `json:"rankings"`
	Metadata  ResponseMeta        `json:"metadata"`
}

type SuggestionResponse struct {
	Username   string            `json:"username"`
	Technique  string            `json:"technique"`
	Suggestion domain.ScoredBeer `json:"suggestion"`
}

type ResponseMeta struct {
	GeneratedAt string `json:"generated_at"`
	TotalCount  int    `json:"total_count"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
