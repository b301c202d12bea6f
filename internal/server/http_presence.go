package server

import (
	"net/http"
	"strconv"
	"time"
)

// handlePresence handles GET /v1/presence.
// Returns the dashboard users seen recently, most recent first.
func (s *BackofficeServer) handlePresence(w http.ResponseWriter, r *http.Request) {
	// Optional stale_threshold_secs query param (default: 30 min).
	staleThreshold := 30 * time.Minute
	if v := r.URL.Query().Get("stale_threshold_secs"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			staleThreshold = time.Duration(secs) * time.Second
		}
	}
	writeSuccess(w, http.StatusOK, s.Presence.Roster(staleThreshold))
}
