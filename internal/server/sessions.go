package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alfredjeanlab/backoffice/internal/form"
	"github.com/alfredjeanlab/backoffice/internal/idgen"
	"github.com/alfredjeanlab/backoffice/internal/model"
)

// DefaultSessionTTL is the lifetime of a session when none is requested.
const DefaultSessionTTL = 24 * time.Hour

// issueSession mints a session for the user with the given email. A zero
// ttl means the server's SessionTTL.
func (s *BackofficeServer) issueSession(ctx context.Context, email string, ttl time.Duration, r *http.Request) (*model.Session, error) {
	if email == "" {
		return nil, inputError("email is required")
	}
	if ttl <= 0 {
		ttl = s.SessionTTL
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFound(err, "User")
	}
	token, err := idgen.Token()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	now := s.now().UTC()
	sess := &model.Session{
		Token:     token,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// PurgeExpiredSessions deletes every session past its expiry.
func (s *BackofficeServer) PurgeExpiredSessions(ctx context.Context) (int, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}

// handleIssueSession handles POST /v1/sessions. Only the service token may
// mint sessions; the body names the user by "email" and may set "ttl" as a
// Go duration.
func (s *BackofficeServer) handleIssueSession(w http.ResponseWriter, r *http.Request) {
	if principalFrom(r.Context()).UserID != "" {
		writeError(w, http.StatusForbidden, "Only the service token can issue sessions")
		return
	}
	f, err := form.Parse(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	var ttl time.Duration
	if v := f.Get("ttl"); v != "" {
		if ttl, err = time.ParseDuration(v); err != nil {
			writeError(w, http.StatusBadRequest, "ttl must be a duration such as 24h")
			return
		}
	}

	sess, err := s.issueSession(r.Context(), f.Get("email"), ttl, r)
	if err != nil {
		writeFailure(w, r, err, "Failed to issue session")
		return
	}
	writeSuccess(w, http.StatusCreated, sess)
}
