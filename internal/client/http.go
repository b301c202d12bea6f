package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/alfredjeanlab/backoffice/internal/model"
	"github.com/alfredjeanlab/backoffice/internal/presence"
)

// HTTPClient implements BackofficeClient using the backoffice HTTP/JSON API.
// Requests that fail with a connection error or a 5xx are retried, except
// POSTs that reached the server.
type HTTPClient struct {
	baseURL string
	token   string
	retry   *retryablehttp.Client
}

// NewHTTPClient talks to the server at baseURL, such as
// "http://localhost:8080", sending token as a Bearer credential when set.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = slog.Default()
	rc.CheckRetry = retryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		retry:   rc,
	}
}

// retryPolicy is the default policy minus retries of POSTs the server
// answered, which may not be idempotent.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil && resp.Request != nil && resp.Request.Method == http.MethodPost {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Close holds no resources to release.
func (c *HTTPClient) Close() error { return nil }

// --- Users ---

func (c *HTTPClient) ListUsers(ctx context.Context, query url.Values) (*List[*model.User], error) {
	var resp List[*model.User]
	if err := c.send(ctx, http.MethodGet, withQuery("/v1/users", query), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := c.sendData(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) CreateUser(ctx context.Context, req *UserRequest) (*model.User, error) {
	var user model.User
	if err := c.sendData(ctx, http.MethodPost, "/v1/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) UpdateUser(ctx context.Context, id string, req *UserRequest) (*model.User, error) {
	var user model.User
	if err := c.sendData(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(id), req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) DeleteUser(ctx context.Context, id string) error {
	return c.sendData(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) SetUserVerified(ctx context.Context, id string, verified bool) error {
	body := map[string]bool{"value": verified}
	return c.sendData(ctx, http.MethodPost, "/v1/users/"+url.PathEscape(id)+"/verified", body, nil)
}

// UploadUserImage sends r as the "file" part of a multipart form.
func (c *HTTPClient) UploadUserImage(ctx context.Context, id string, r io.Reader, contentType string) (*model.User, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="image"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var user model.User
	path := "/v1/users/" + url.PathEscape(id) + "/image"
	if err := c.roundTrip(ctx, http.MethodPost, path, buf.Bytes(), mw.FormDataContentType(), &envelope{Data: &user}); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *HTTPClient) DeleteUserImage(ctx context.Context, id string) error {
	return c.sendData(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(id)+"/image", nil, nil)
}

// --- Products ---

func (c *HTTPClient) ListProducts(ctx context.Context, query url.Values) (*List[*model.Product], error) {
	var resp List[*model.Product]
	if err := c.send(ctx, http.MethodGet, withQuery("/v1/products", query), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	if err := c.sendData(ctx, http.MethodGet, "/v1/products/"+url.PathEscape(id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *HTTPClient) CreateProduct(ctx context.Context, req *ProductRequest) (*model.Product, error) {
	var product model.Product
	if err := c.sendData(ctx, http.MethodPost, "/v1/products", req, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *HTTPClient) UpdateProduct(ctx context.Context, id string, req *ProductRequest) (*model.Product, error) {
	var product model.Product
	if err := c.sendData(ctx, http.MethodPut, "/v1/products/"+url.PathEscape(id), req, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *HTTPClient) DeleteProduct(ctx context.Context, id string) error {
	return c.sendData(ctx, http.MethodDelete, "/v1/products/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) SetProductActive(ctx context.Context, id string, active bool) error {
	body := map[string]bool{"value": active}
	return c.sendData(ctx, http.MethodPost, "/v1/products/"+url.PathEscape(id)+"/active", body, nil)
}

// --- Filters and views ---

func (c *HTTPClient) Filters(ctx context.Context, entity string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.sendData(ctx, http.MethodGet, "/v1/filters/"+url.PathEscape(entity), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *HTTPClient) ListViews(ctx context.Context, entity string) ([]*model.SavedView, error) {
	var views []*model.SavedView
	if err := c.sendData(ctx, http.MethodGet, "/v1/views/"+url.PathEscape(entity), nil, &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (c *HTTPClient) GetView(ctx context.Context, entity, name string) (*model.SavedView, error) {
	var view model.SavedView
	if err := c.sendData(ctx, http.MethodGet, viewPath(entity, name), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *HTTPClient) SaveView(ctx context.Context, entity, name, query string) (*model.SavedView, error) {
	var view model.SavedView
	body := map[string]string{"query": query}
	if err := c.sendData(ctx, http.MethodPut, viewPath(entity, name), body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *HTTPClient) DeleteView(ctx context.Context, entity, name string) error {
	return c.sendData(ctx, http.MethodDelete, viewPath(entity, name), nil, nil)
}

func viewPath(entity, name string) string {
	return "/v1/views/" + url.PathEscape(entity) + "/" + url.PathEscape(name)
}

// --- Events ---

func (c *HTTPClient) GetEvents(ctx context.Context, recordID string, limit int) ([]*model.Event, error) {
	q := url.Values{}
	if recordID != "" {
		q.Set("record", recordID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var evts []*model.Event
	if err := c.sendData(ctx, http.MethodGet, withQuery("/v1/events", q), nil, &evts); err != nil {
		return nil, err
	}
	return evts, nil
}

// Stream follows GET /v1/events/stream and calls fn for every event until
// ctx is cancelled, the server closes the stream, or fn returns an error.
// The stream is not retried.
func (c *HTTPClient) Stream(ctx context.Context, query url.Values, fn func(StreamEvent) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+withQuery("/v1/events/stream", query), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req.Header)

	resp, err := c.retry.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("opening stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return newAPIError(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var evt StreamEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			evt.ID = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			evt.Topic = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			evt.Data = json.RawMessage(strings.TrimPrefix(line, "data:"))
		case line == "":
			if evt.Topic != "" {
				if err := fn(evt); err != nil {
					return err
				}
			}
			evt = StreamEvent{}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

// --- Sessions and presence ---

func (c *HTTPClient) IssueSession(ctx context.Context, email string, ttl time.Duration) (*model.Session, error) {
	body := map[string]string{"email": email}
	if ttl > 0 {
		body["ttl"] = ttl.String()
	}
	var sess model.Session
	if err := c.sendData(ctx, http.MethodPost, "/v1/sessions", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *HTTPClient) Presence(ctx context.Context) ([]presence.Entry, error) {
	var entries []presence.Entry
	if err := c.sendData(ctx, http.MethodGet, "/v1/presence", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var h struct {
		Status string `json:"status"`
	}
	err := c.send(ctx, http.MethodGet, "/v1/health", nil, &h)
	return h.Status, err
}

// envelope is the {success, data} wrapper of single-record responses.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func (c *HTTPClient) authorize(h http.Header) {
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
}

// sendData is send for endpoints that answer with an envelope; out receives
// its data.
func (c *HTTPClient) sendData(ctx context.Context, method, path string, in, out any) error {
	return c.send(ctx, method, path, in, &envelope{Data: out})
}

// send encodes in (if any) as JSON and decodes the reply into out (if any).
func (c *HTTPClient) send(ctx context.Context, method, path string, in, out any) error {
	if in == nil {
		return c.roundTrip(ctx, method, path, nil, "", out)
	}
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", method, path, err)
	}
	return c.roundTrip(ctx, method, path, b, "application/json", out)
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, payload []byte, contentType string, out any) error {
	var rb any // a nil []byte would still count as a body
	if payload != nil {
		rb = payload
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, rb)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.authorize(req.Header)

	resp, err := c.retry.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return newAPIError(resp.StatusCode, raw)
	case resp.StatusCode == http.StatusNoContent || out == nil:
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: bad response: %w", method, path, err)
	}
	return nil
}
