package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// ListRequests возвращает последние запросы из истории.
// GET /api/v1/requests?limit=...
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		Unavailable(w, "request history is disabled")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	requests, err := h.history.ListRecent(r.Context(), limit)
	if HandleHistoryError(w, h.logger, err, "") {
		return
	}

	result := make([]RequestResponse, len(requests))
	for i, req := range requests {
		result[i] = RequestFromHistory(req)
	}

	List(w, result, len(result))
}

// GetRequest возвращает запрос по ID.
// GET /api/v1/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		Unavailable(w, "request history is disabled")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid request id")
		return
	}

	req, err := h.history.GetByID(r.Context(), id)
	if HandleHistoryError(w, h.logger, err, "request not found") {
		return
	}

	Success(w, RequestFromHistory(*req))
}
