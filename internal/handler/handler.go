package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
	"github.com/actuallystonmai/beer-recommender/internal/logging"
	"github.com/actuallystonmai/beer-recommender/internal/model"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Recommender is the service surface the handlers call.
type Recommender interface {
	ListUsernames(ctx context.Context) ([]string, error)
	ListBeers(ctx context.Context) ([]string, error)
	Train(ctx context.Context, req domain.TrainRequest) (*domain.TrainResult, error)
	PredictSingle(ctx context.Context, username, technique, beer string) (domain.ScoredBeer, error)
	PredictRanked(ctx context.Context, username, technique string, beers []string) ([]domain.ScoredBeer, error)
	Suggest(ctx context.Context, username, technique string) (domain.ScoredBeer, error)
	BatchSuggest(ctx context.Context, technique string, page, limit int) (*domain.BatchResponse, error)
}

type Handler struct {
	service Recommender
	db      Pinger
	cache   Pinger
}

func NewHandler(svc Recommender) *Handler {
	return &Handler{service: svc}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("[handler] encode response")
	}
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// writeServiceError maps a pipeline error onto a status code. Client errors
// carry the error text; server errors get a fixed message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, domain.ErrBeerNotFound):
		writeError(w, http.StatusNotFound, "beer_not_found", err.Error())
	case errors.Is(err, domain.ErrNoModel):
		writeError(w, http.StatusConflict, "no_model", "No model trained yet, train one first")
	case errors.Is(err, domain.ErrInsufficientData):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_data", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable",
			"Ratings store is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request_timeout",
			"Request timed out, please try again")
	case errors.Is(err, domain.ErrCorruptModel), model.IsInferenceError(err):
		logging.Ctx(r.Context()).Error().Err(err).Msg("[handler] stored model failed")
		writeError(w, http.StatusInternalServerError, "model_inference_error",
			"Stored model failed to generate a prediction, retrain it")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("[handler] unexpected error")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// decodeBody reads a JSON body into v and validates it.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// usernameParam returns the decoded {username} path segment.
func usernameParam(r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "username")
	name, err := url.PathUnescape(raw)
	if err != nil || name == "" || len(name) > 255 {
		return "", false
	}
	return name, true
}
