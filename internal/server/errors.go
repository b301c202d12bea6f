package server

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alfredjeanlab/backoffice/internal/blob"
	"github.com/alfredjeanlab/backoffice/internal/model"
)

// inputError indicates invalid user input that is not tied to one field.
// Transports map this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// notFoundError names the entity that was looked up, e.g. "Product not found".
type notFoundError string

func (e notFoundError) Error() string { return string(e) + " not found" }

// authError is a 401 with a message safe to show the caller.
type authError string

func (e authError) Error() string { return string(e) }

const (
	errSignIn         authError = "Unauthorized - Please sign in"
	errSessionExpired authError = "Session expired - Please sign in again"
)

// notFound maps sql.ErrNoRows to a notFoundError for entity and passes other
// errors through.
func notFound(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundError(entity)
	}
	return err
}

// writeFailure maps an operation error onto the failure envelope. Errors
// outside the taxonomy are logged and collapsed to fallback so internals
// never reach the caller.
func writeFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		ie inputError
		nf notFoundError
		ae authError
		ve *model.ValidationError
		ce *model.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, failure{Error: "Validation failed", Details: ve.Errors})
	case errors.As(err, &ce):
		writeError(w, http.StatusConflict, ce.Message)
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, nf.Error())
	case errors.As(err, &ae):
		writeError(w, http.StatusUnauthorized, ae.Error())
	case errors.Is(err, blob.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, blob.ErrNotConfigured.Error())
	default:
		slog.Error(fallback, "method", r.Method, "path", r.URL.Path, "request_id", requestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
