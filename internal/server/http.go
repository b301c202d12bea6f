package server

import (
	"encoding/json"
	"net/http"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

// NewHTTPHandler returns an http.Handler with all routes registered, wrapped
// in recovery, request logging and authentication. serviceToken, when
// non-empty, is accepted in place of a session (see AuthMiddleware).
func (s *BackofficeServer) NewHTTPHandler(serviceToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/users", s.handleListUsers)
	mux.HandleFunc("POST /v1/users", s.handleCreateUser)
	mux.HandleFunc("GET /v1/users/{id}", s.handleGetUser)
	mux.HandleFunc("PUT /v1/users/{id}", s.handleUpdateUser)
	mux.HandleFunc("DELETE /v1/users/{id}", s.handleDeleteUser)
	mux.HandleFunc("POST /v1/users/{id}/verified", s.handleSetUserVerified)
	mux.HandleFunc("POST /v1/users/{id}/image", s.handleUploadUserImage)
	mux.HandleFunc("DELETE /v1/users/{id}/image", s.handleDeleteUserImage)
	mux.HandleFunc("GET /v1/products", s.handleListProducts)
	mux.HandleFunc("POST /v1/products", s.handleCreateProduct)
	mux.HandleFunc("GET /v1/products/{id}", s.handleGetProduct)
	mux.HandleFunc("PUT /v1/products/{id}", s.handleUpdateProduct)
	mux.HandleFunc("DELETE /v1/products/{id}", s.handleDeleteProduct)
	mux.HandleFunc("POST /v1/products/{id}/active", s.handleSetProductActive)
	mux.HandleFunc("GET /v1/filters/{entity}", s.handleGetFilters)
	mux.HandleFunc("GET /v1/views/{entity}", s.handleListViews)
	mux.HandleFunc("GET /v1/views/{entity}/{name}", s.handleGetView)
	mux.HandleFunc("PUT /v1/views/{entity}/{name}", s.handleSaveView)
	mux.HandleFunc("DELETE /v1/views/{entity}/{name}", s.handleDeleteView)
	mux.HandleFunc("GET /v1/events", s.handleListEvents)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /v1/presence", s.handlePresence)
	mux.HandleFunc("POST /v1/sessions", s.handleIssueSession)
	mux.HandleFunc("DELETE /v1/session", s.handleSignOut)
	mux.HandleFunc("GET /v1/health", s.handleHealth)

	var h http.Handler = s.AuthMiddleware(serviceToken, mux)
	h = LoggingMiddleware(h)
	h = RecoveryMiddleware(h)
	return RequestIDMiddleware(h)
}

// handleHealth handles GET /v1/health.
func (s *BackofficeServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// success is the envelope of a successful single-record operation.
type success struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// failure is the envelope of a failed operation. Details lists per-field
// messages for validation failures.
type failure struct {
	Success bool               `json:"success"`
	Error   string             `json:"error"`
	Details []model.FieldError `json:"details,omitempty"`
}

// listResponse is the body of a list endpoint.
type listResponse[T any] struct {
	Data       []T              `json:"data"`
	Pagination model.Pagination `json:"pagination"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeSuccess writes {success:true, data}.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, success{Success: true, Data: data})
}

// writeError writes {success:false, error}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failure{Error: message})
}
