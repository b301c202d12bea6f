package server

import (
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/backoffice/internal/form"
	"github.com/alfredjeanlab/backoffice/internal/listing"
	"github.com/alfredjeanlab/backoffice/internal/model"
)

// handleListUsers handles GET /v1/users.
func (s *BackofficeServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q, err := listing.ParseUsers(r.URL.Query())
	if err != nil {
		writeFailure(w, r, err, "Failed to fetch users")
		return
	}

	users, total, err := s.store.ListUsers(r.Context(), q)
	if err != nil {
		writeFailure(w, r, err, "Failed to fetch users")
		return
	}
	if users == nil {
		users = []*model.User{}
	}

	writeJSON(w, http.StatusOK, listResponse[*model.User]{
		Data:       users,
		Pagination: model.NewPagination(q.Page.Page, q.Page.PageSize, total),
	})
}

// handleGetUser handles GET /v1/users/{id}.
func (s *BackofficeServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, r, notFound(err, "User"), "Failed to fetch user")
		return
	}
	writeSuccess(w, http.StatusOK, user)
}

// handleCreateUser handles POST /v1/users.
func (s *BackofficeServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	f, err := form.Parse(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	user, err := s.createUser(r.Context(), principalFrom(r.Context()), f)
	if err != nil {
		writeFailure(w, r, err, "Failed to create user")
		return
	}
	writeSuccess(w, http.StatusCreated, user)
}

// handleUpdateUser handles PUT /v1/users/{id}.
func (s *BackofficeServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	f, err := form.Parse(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	user, err := s.updateUser(r.Context(), principalFrom(r.Context()), r.PathValue("id"), f)
	if err != nil {
		writeFailure(w, r, err, "Failed to update user")
		return
	}
	writeSuccess(w, http.StatusOK, user)
}

// handleDeleteUser handles DELETE /v1/users/{id}.
func (s *BackofficeServer) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteUser(r.Context(), principalFrom(r.Context()), r.PathValue("id")); err != nil {
		writeFailure(w, r, err, "Failed to delete user")
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// handleSetUserVerified handles POST /v1/users/{id}/verified.
func (s *BackofficeServer) handleSetUserVerified(w http.ResponseWriter, r *http.Request) {
	verified, err := toggleValue(r)
	if err != nil {
		writeFailure(w, r, err, "Failed to update user verification")
		return
	}
	if err := s.setUserVerified(r.Context(), principalFrom(r.Context()), r.PathValue("id"), verified); err != nil {
		writeFailure(w, r, err, "Failed to update user verification")
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// handleUploadUserImage handles POST /v1/users/{id}/image. The image is the
// "file" part of a multipart body, or the raw body with an image content type.
func (s *BackofficeServer) handleUploadUserImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+form.MaxMemory)

	body, contentType := r.Body, r.Header.Get("Content-Type")
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		body, contentType = file, header.Header.Get("Content-Type")
	}

	user, err := s.setUserImage(r.Context(), principalFrom(r.Context()), r.PathValue("id"), body, contentType)
	if err != nil {
		writeFailure(w, r, err, "Failed to upload image")
		return
	}
	writeSuccess(w, http.StatusOK, user)
}

// handleDeleteUserImage handles DELETE /v1/users/{id}/image.
func (s *BackofficeServer) handleDeleteUserImage(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteUserImage(r.Context(), principalFrom(r.Context()), r.PathValue("id")); err != nil {
		writeFailure(w, r, err, "Failed to delete image")
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// toggleValue reads the "value" field of a toggle request.
func toggleValue(r *http.Request) (bool, error) {
	f, err := form.Parse(r)
	if err != nil {
		return false, inputError("invalid form body")
	}
	if !f.Has("value") {
		f = form.FromValues(r.URL.Query())
	}
	v, err := strconv.ParseBool(f.Get("value"))
	if err != nil {
		return false, inputError("value must be true or false")
	}
	return v, nil
}
