package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alfredjeanlab/backoffice/internal/blob"
	"github.com/alfredjeanlab/backoffice/internal/events"
	"github.com/alfredjeanlab/backoffice/internal/model"
)

func TestCreateUser(t *testing.T) {
	_, ms, h := newTestServer()

	rec := call(t, h, "POST", "/v1/users", map[string]any{"name": "Ada", "email": "ada@example.com"})
	requireStatus(t, rec, http.StatusCreated)

	var resp envelope[model.User]
	decodeJSON(t, rec, &resp)
	if !strings.HasPrefix(resp.Data.ID, "user_") {
		t.Fatalf("expected user_ id, got %q", resp.Data.ID)
	}
	if resp.Data.EmailVerified {
		t.Fatal("expected emailVerified to default to false")
	}
	if _, err := ms.GetUserByEmail(context.Background(), "ada@example.com"); err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
}

func TestCreateUser_InvalidEmail(t *testing.T) {
	_, _, h := newTestServer()
	rec := call(t, h, "POST", "/v1/users", map[string]any{"name": "Ada", "email": "not-an-email"})
	requireStatus(t, rec, http.StatusBadRequest)

	var resp envelope[any]
	decodeJSON(t, rec, &resp)
	if len(resp.Details) != 1 || resp.Details[0] != (model.FieldError{Field: "email", Message: "Invalid email address"}) {
		t.Fatalf("unexpected details: %+v", resp.Details)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, ms, h := newTestServer()
	seedUser(t, ms, "user_a", "Ada", "ada@example.com", false)

	rec := call(t, h, "POST", "/v1/users", map[string]any{"name": "Other Ada", "email": "ada@example.com"})
	requireStatus(t, rec, http.StatusConflict)

	var resp envelope[any]
	decodeJSON(t, rec, &resp)
	if resp.Error != "User with this email already exists" {
		t.Fatalf("unexpected error %q", resp.Error)
	}
}

func TestUpdateUser(t *testing.T) {
	_, ms, h := newTestServer()
	seedUser(t, ms, "user_a", "Ada", "ada@example.com", false)
	seedUser(t, ms, "user_b", "Bob", "bob@example.com", false)

	rec := call(t, h, "PUT", "/v1/users/user_a", map[string]any{"name": "Ada Lovelace"})
	requireStatus(t, rec, http.StatusOK)
	var resp envelope[model.User]
	decodeJSON(t, rec, &resp)
	if resp.Data.Name != "Ada Lovelace" || resp.Data.Email != "ada@example.com" {
		t.Fatalf("unexpected user after merge: %+v", resp.Data)
	}

	rec = call(t, h, "PUT", "/v1/users/user_a", map[string]any{"email": "bob@example.com"})
	requireStatus(t, rec, http.StatusConflict)
	var conflict envelope[any]
	decodeJSON(t, rec, &conflict)
	if conflict.Error != "Email already exists" {
		t.Fatalf("unexpected error %q", conflict.Error)
	}
}

func TestSetUserVerified(t *testing.T) {
	_, ms, h := newTestServer()
	seedUser(t, ms, "user_a", "Ada", "ada@example.com", false)

	requireStatus(t, call(t, h, "POST", "/v1/users/user_a/verified", map[string]any{"value": true}), http.StatusOK)

	u, _ := ms.GetUser(context.Background(), "user_a")
	if !u.EmailVerified {
		t.Fatal("expected user to be verified")
	}
	evts, _ := ms.GetEvents(context.Background(), "user_a", 0)
	if len(evts) != 1 || evts[0].Topic != events.TopicUserVerified {
		t.Fatalf("expected one verified event, got %+v", evts)
	}
}

func TestDeleteUser_RemovesImage(t *testing.T) {
	srv, ms, h := newTestServer()
	blobs := blob.NewMemory()
	srv.Blobs = blobs
	seedUser(t, ms, "user_a", "Ada", "ada@example.com", false)

	requireStatus(t, uploadImage(t, h, "user_a", "image/png", []byte("png-bytes")), http.StatusOK)
	requireStatus(t, call(t, h, "DELETE", "/v1/users/user_a", nil), http.StatusOK)

	if _, ok := blobs.Get(userImageKey("user_a")); ok {
		t.Fatal("expected image to be deleted with the user")
	}
}

// uploadImage posts data as a multipart "file" part.
func uploadImage(t *testing.T, h http.Handler, id, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="avatar"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest("POST", "/v1/users/"+id+"/image", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUploadUserImage(t *testing.T) {
	srv, ms, h := newTestServer()
	blobs := blob.NewMemory()
	srv.Blobs = blobs
	seedUser(t, ms, "user_a", "Ada", "ada@example.com", false)

	rec := uploadImage(t, h, "user_a", "image/png", []byte("png-bytes"))
	requireStatus(t, rec, http.StatusOK)

	var resp envelope[model.User]
	decodeJSON(t, rec, &resp)
	if resp.Data.Image != "memory://users/user_a/image" {
		t.Fatalf("unexpected image url %q", resp.Data.Image)
	}
	obj, ok := blobs.Get("users/user_a/image")
	if !ok || string(obj.Data) != "png-bytes" || obj.ContentType != "image/png" {
		t.Fatalf("unexpected stored object: %+v ok=%v", obj, ok)
	}

	requireStatus(t, call(t, h, "DELETE", "/v1/users/user_a/image", nil), http.StatusOK)
	if _, ok := blobs.Get("users/user_a/image"); ok {
		t.Fatal("expected image object to be deleted")
	}
	u, _ := ms.GetUser(context.Background(), "user_a")
	if u.Image != "" {
		t.Fatalf("expected image to be cleared, got %q", u.Image)
	}
}

func TestUploadUserImage_RawBody(t *testing.T) {
	srv, ms, h := newTestServer()
	srv.Blobs = blob.NewMemory()
	seedUser(t, ms, "user_a", "Ada", "ada@example.com", false)

	req := httptest.NewRequest("POST", "/v1/users/user_a/image", strings.NewReader("jpeg-bytes"))
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	requireStatus(t, rec, http.StatusOK)
}

func TestUploadUserImage_Errors(t *testing.T) {
	t.Run("NotImage", func(t *testing.T) {
		srv, ms, h := newTestServer()
		srv.Blobs = blob.NewMemory()
		seedUser(t, ms, "user_a", "Ada", "ada@example.com", false)

		rec := uploadImage(t, h, "user_a", "text/plain", []byte("hello"))
		requireStatus(t, rec, http.StatusBadRequest)
		var resp envelope[any]
		decodeJSON(t, rec, &resp)
		if resp.Error != "File must be an image" {
			t.Fatalf("unexpected error %q", resp.Error)
		}
	})

	t.Run("Unconfigured", func(t *testing.T) {
		_, ms, h := newTestServer()
		seedUser(t, ms, "user_a", "Ada", "ada@example.com", false)

		rec := uploadImage(t, h, "user_a", "image/png", []byte("png"))
		requireStatus(t, rec, http.StatusServiceUnavailable)
		var resp envelope[any]
		decodeJSON(t, rec, &resp)
		if resp.Error != blob.ErrNotConfigured.Error() {
			t.Fatalf("unexpected error %q", resp.Error)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		srv, _, h := newTestServer()
		srv.Blobs = blob.NewMemory()
		requireStatus(t, uploadImage(t, h, "user_x", "image/png", []byte("png")), http.StatusNotFound)
	})
}
