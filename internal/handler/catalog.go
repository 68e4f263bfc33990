package handler

import "net/http"

// GET /usernames
func (h *Handler) ListUsernames(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.ListUsernames(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(names))
}

// GET /beers
func (h *Handler) ListBeers(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.ListBeers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse(names))
}

func listResponse(items []string) ListResponse {
	if items == nil {
		items = []string{}
	}
	return ListResponse{Items: items, Count: len(items)}
}
