package server

import (
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

// defaultEventLimit caps GET /v1/events when no limit is given.
const defaultEventLimit = 100

// handleListEvents handles GET /v1/events?record=<id>&limit=<n>, newest first.
func (s *BackofficeServer) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultEventLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 1000)
	}

	evts, err := s.store.GetEvents(r.Context(), q.Get("record"), limit)
	if err != nil {
		writeFailure(w, r, err, "Failed to fetch events")
		return
	}
	if evts == nil {
		evts = []*model.Event{}
	}
	writeSuccess(w, http.StatusOK, evts)
}
