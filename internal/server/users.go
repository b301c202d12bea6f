package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/alfredjeanlab/backoffice/internal/blob"
	"github.com/alfredjeanlab/backoffice/internal/events"
	"github.com/alfredjeanlab/backoffice/internal/form"
	"github.com/alfredjeanlab/backoffice/internal/idgen"
	"github.com/alfredjeanlab/backoffice/internal/model"
	"github.com/alfredjeanlab/backoffice/internal/store"
)

// maxImageSize bounds user image uploads.
const maxImageSize = 5 << 20

// userImageKey is the blob key holding a user's image.
func userImageKey(id string) string { return "users/" + id + "/image" }

// createUser validates the form, checks email uniqueness and inserts the
// user in one transaction.
func (s *BackofficeServer) createUser(ctx context.Context, who principal, f *form.Form) (*model.User, error) {
	user := &model.User{
		Name:          f.Get("name"),
		Email:         f.Get("email"),
		EmailVerified: f.Bool("emailVerified"),
		Image:         f.Get("image"),
	}
	if err := model.ValidateUser(user); err != nil {
		return nil, err
	}

	id, err := idgen.New("user")
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	user.ID = id

	err = s.store.RunInTransaction(ctx, func(tx store.Store) error {
		if err := emailTaken(ctx, tx, user.Email, "User with this email already exists"); err != nil {
			return err
		}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.recordAndPublish(ctx, events.TopicUserCreated, user.ID, who.actor(), events.UserCreated{User: user})
	return user, nil
}

// updateUser merges the submitted fields onto the stored user, validates the
// result and writes it. Changing the email re-checks uniqueness.
func (s *BackofficeServer) updateUser(ctx context.Context, who principal, id string, f *form.Form) (*model.User, error) {
	var (
		user    *model.User
		changes = map[string]any{}
	)
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		existing, err := tx.GetUser(ctx, id)
		if err != nil {
			return notFound(err, "User")
		}
		user = existing
		oldEmail := user.Email

		if f.Has("name") {
			user.Name = f.Get("name")
			changes["name"] = user.Name
		}
		if f.Has("email") {
			user.Email = f.Get("email")
			changes["email"] = user.Email
		}
		if f.Has("emailVerified") {
			user.EmailVerified = f.Bool("emailVerified")
			changes["emailVerified"] = user.EmailVerified
		}
		if err := model.ValidateUser(user); err != nil {
			return err
		}
		if user.Email != oldEmail {
			if err := emailTaken(ctx, tx, user.Email, "Email already exists"); err != nil {
				return err
			}
		}
		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.recordAndPublish(ctx, events.TopicUserUpdated, user.ID, who.actor(), events.UserUpdated{User: user, Changes: changes})
	return user, nil
}

// deleteUser removes the user and, best-effort, their image.
func (s *BackofficeServer) deleteUser(ctx context.Context, who principal, id string) error {
	var image string
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		user, err := tx.GetUser(ctx, id)
		if err != nil {
			return notFound(err, "User")
		}
		image = user.Image
		return notFound(tx.DeleteUser(ctx, id), "User")
	})
	if err != nil {
		return err
	}

	if image != "" {
		if err := s.Blobs.Delete(ctx, userImageKey(id)); err != nil && !errors.Is(err, blob.ErrNotFound) {
			slog.Warn("failed to delete user image", "user_id", id, "error", err)
		}
	}

	s.recordAndPublish(ctx, events.TopicUserDeleted, id, who.actor(), events.UserDeleted{UserID: id})
	return nil
}

// setUserVerified sets the email-verified flag.
func (s *BackofficeServer) setUserVerified(ctx context.Context, who principal, id string, verified bool) error {
	err := s.store.RunInTransaction(ctx, func(tx store.Store) error {
		user, err := tx.GetUser(ctx, id)
		if err != nil {
			return notFound(err, "User")
		}
		user.EmailVerified = verified
		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		return err
	}

	s.recordAndPublish(ctx, events.TopicUserVerified, id, who.actor(), events.UserVerified{UserID: id, Verified: verified})
	return nil
}

// setUserImage uploads an image and points the user at it.
func (s *BackofficeServer) setUserImage(ctx context.Context, who principal, id string, r io.Reader, contentType string) (*model.User, error) {
	if _, ok := s.Blobs.(blob.Unconfigured); ok {
		return nil, blob.ErrNotConfigured
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, inputError("File must be an image")
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, "User")
	}

	url, err := s.Blobs.Put(ctx, userImageKey(id), io.LimitReader(r, maxImageSize), contentType)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	user.Image = url
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, notFound(err, "User")
	}

	s.recordAndPublish(ctx, events.TopicUserUpdated, id, who.actor(), events.UserUpdated{
		User:    user,
		Changes: map[string]any{"image": url},
	})
	return user, nil
}

// deleteUserImage removes the user's image object and clears the field.
func (s *BackofficeServer) deleteUserImage(ctx context.Context, who principal, id string) error {
	if _, ok := s.Blobs.(blob.Unconfigured); ok {
		return blob.ErrNotConfigured
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return notFound(err, "User")
	}
	if err := s.Blobs.Delete(ctx, userImageKey(id)); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("delete image: %w", err)
	}
	user.Image = ""
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return notFound(err, "User")
	}

	s.recordAndPublish(ctx, events.TopicUserUpdated, id, who.actor(), events.UserUpdated{
		User:    user,
		Changes: map[string]any{"image": ""},
	})
	return nil
}

// emailTaken returns a ConflictError carrying msg when email belongs to a
// user already.
func emailTaken(ctx context.Context, tx store.Store, email, msg string) error {
	_, err := tx.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return &model.ConflictError{Field: "email", Message: msg}
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return fmt.Errorf("check email: %w", err)
	}
}
