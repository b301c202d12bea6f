package server

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alfredjeanlab/backoffice/internal/presence"
)

// SessionCookie is the cookie carrying a dashboard session token.
const SessionCookie = "session_token"

// serviceActor is the actor recorded for requests made with the static token.
const serviceActor = "service"

// principal is the caller behind an authenticated request.
type principal struct {
	UserID    string // empty for the static service token
	Name      string
	SessionID string
}

// actor is the name recorded on audit events.
func (p principal) actor() string {
	if p.UserID == "" {
		return serviceActor
	}
	return p.UserID
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// principalFrom returns the caller stored by AuthMiddleware.
func principalFrom(ctx context.Context) principal {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

// bearerToken extracts the session token from the Authorization header or
// the session cookie.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// AuthMiddleware resolves the caller before any handler runs. A request must
// carry either the static service token or a live session; GET /v1/health is
// always exempt. Signed-in users are recorded in the presence roster.
func (s *BackofficeServer) AuthMiddleware(serviceToken string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, errSignIn.Error())
			return
		}

		if serviceToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(serviceToken)) == 1 {
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal{})))
			return
		}

		p, err := s.authenticate(r.Context(), token)
		if err != nil {
			writeFailure(w, r, err, "Authentication failed")
			return
		}

		s.Presence.Record(presence.Activity{
			UserID:     p.UserID,
			Name:       p.Name,
			SessionID:  p.SessionID,
			Method:     r.Method,
			Path:       r.URL.Path,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

// authenticate looks the token up in the sessions table. Expired sessions
// are deleted as they are found.
func (s *BackofficeServer) authenticate(ctx context.Context, token string) (principal, error) {
	sess, err := s.store.GetSession(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return principal{}, errSignIn
	}
	if err != nil {
		return principal{}, err
	}
	if sess.Expired(s.now()) {
		if err := s.store.DeleteSession(ctx, token); err != nil && !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("failed to delete expired session", "user_id", sess.UserID, "error", err)
		}
		s.Presence.Forget(sess.UserID, sessionID(token))
		return principal{}, errSessionExpired
	}

	p := principal{UserID: sess.UserID, SessionID: sessionID(token)}
	if user, err := s.store.GetUser(ctx, sess.UserID); err == nil {
		p.Name = user.Name
	}
	return p, nil
}

// sessionID is the non-secret prefix of a token used to tell sessions apart
// in the presence roster.
func sessionID(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}

// handleSignOut handles DELETE /v1/session.
func (s *BackofficeServer) handleSignOut(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if p.UserID == "" {
		writeSuccess(w, http.StatusOK, nil)
		return
	}
	token := bearerToken(r)
	if err := s.store.DeleteSession(r.Context(), token); err != nil && !errors.Is(err, sql.ErrNoRows) {
		writeFailure(w, r, err, "Failed to sign out")
		return
	}
	s.Presence.Forget(p.UserID, p.SessionID)
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeSuccess(w, http.StatusOK, nil)
}
