package server

import (
	"net/http"

	"github.com/alfredjeanlab/backoffice/internal/form"
)

// handleGetFilters handles GET /v1/filters/{entity}. The body is the entity's
// filter config, which clients use to build their controls.
func (s *BackofficeServer) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	cfg, err := entityConfig(r.PathValue("entity"))
	if err != nil {
		writeFailure(w, r, err, "Failed to fetch filters")
		return
	}
	writeSuccess(w, http.StatusOK, cfg)
}

// handleListViews handles GET /v1/views/{entity}.
func (s *BackofficeServer) handleListViews(w http.ResponseWriter, r *http.Request) {
	views, err := s.listViews(r.Context(), r.PathValue("entity"))
	if err != nil {
		writeFailure(w, r, err, "Failed to fetch views")
		return
	}
	writeSuccess(w, http.StatusOK, views)
}

// handleGetView handles GET /v1/views/{entity}/{name}.
func (s *BackofficeServer) handleGetView(w http.ResponseWriter, r *http.Request) {
	view, err := s.getView(r.Context(), r.PathValue("entity"), r.PathValue("name"))
	if err != nil {
		writeFailure(w, r, err, "Failed to fetch view")
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

// handleSaveView handles PUT /v1/views/{entity}/{name}. The body carries the
// encoded filter state in "query".
func (s *BackofficeServer) handleSaveView(w http.ResponseWriter, r *http.Request) {
	f, err := form.Parse(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	view, err := s.saveView(r.Context(), principalFrom(r.Context()), r.PathValue("entity"), r.PathValue("name"), f.Get("query"))
	if err != nil {
		writeFailure(w, r, err, "Failed to save view")
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

// handleDeleteView handles DELETE /v1/views/{entity}/{name}.
func (s *BackofficeServer) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteView(r.Context(), principalFrom(r.Context()), r.PathValue("entity"), r.PathValue("name")); err != nil {
		writeFailure(w, r, err, "Failed to delete view")
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}
