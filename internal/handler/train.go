package handler

import (
	"net/http"

	"github.com/actuallystonmai/beer-recommender/internal/domain"
)

// POST /users/{username}/models
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	username, ok := usernameParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid username parameter")
		return
	}

	var req TrainModelRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	res, err := h.service.Train(r.Context(), domain.TrainRequest{
		Username:         username,
		Technique:        req.Technique,
		FeatureSelection: req.FeatureSelection,
		Algorithm:        req.Algorithm,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if res.Persisted {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}
