package handler

import (
	"net/http"
	"time"
)

// GET /users/{username}/predictions?technique=&beer=
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid username parameter")
		return
	}
	technique := r.URL.Query().Get("technique")
	beer := r.URL.Query().Get("beer")
	if beer == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Missing beer parameter")
		return
	}

	pred, err := h.service.PredictSingle(r.Context(), username, technique, beer)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PredictionResponse{
		Username:   username,
		Technique:  technique,
		Prediction: pred,
	})
}

// POST /users/{username}/rankings
func (h *Handler) RankBeers(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid username parameter")
		return
	}
	var req RankBeersRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	ranked, err := h.service.PredictRanked(r.Context(), username, req.Technique, req.Beers)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RankingResponse{
		Username:  username,
		Technique: req.Technique,
		Rankings:  ranked,
		Metadata: ResponseMeta{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			TotalCount:  len(ranked),
		},
	})
}

// GET /users/{username}/suggestion?technique=
func (h *Handler) GetSuggestion(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid username parameter")
		return
	}
	technique := r.URL.Query().Get("technique")

	pick, err := h.service.Suggest(r.Context(), username, technique)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuggestionResponse{
		Username:   username,
		Technique:  technique,
		Suggestion: pick,
	})
}
