package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/backoffice/internal/client"
	"github.com/alfredjeanlab/backoffice/internal/events"
)

// liveServer is a test server on a real listener plus an API client for it.
type liveServer struct {
	api *client.HTTPClient
}

func startLiveServer(t *testing.T) *liveServer {
	t.Helper()
	_, _, handler := newTestServer()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return &liveServer{api: client.NewHTTPClient(ts.URL, testToken)}
}

// follow streams events matching query into a channel until the test ends.
func (ls *liveServer) follow(t *testing.T, query url.Values) <-chan client.StreamEvent {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan client.StreamEvent, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		err := ls.api.Stream(ctx, query, func(e client.StreamEvent) error {
			select {
			case out <- e:
			case <-ctx.Done():
			}
			return nil
		})
		if err != nil {
			t.Errorf("Stream() error = %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give the handler time to register the subscription.
	time.Sleep(50 * time.Millisecond)
	return out
}

// next skips events until one with topic arrives.
func next(t *testing.T, ch <-chan client.StreamEvent, topic string) client.StreamEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				t.Fatalf("stream ended before %s", topic)
			}
			if e.Topic == topic {
				return e
			}
		case <-deadline:
			t.Fatalf("no %s event within 2s", topic)
		}
	}
}

func decodeEvent[T any](t *testing.T, e client.StreamEvent) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		t.Fatalf("decoding %s payload %s: %v", e.Topic, e.Data, err)
	}
	return v
}

func (ls *liveServer) createProduct(t *testing.T, name, sku string) string {
	t.Helper()
	price := "9.99"
	p, err := ls.api.CreateProduct(context.Background(), &client.ProductRequest{Name: &name, Price: &price, SKU: &sku})
	if err != nil {
		t.Fatalf("CreateProduct(%s) error = %v", sku, err)
	}
	return p.ID
}

func TestStreamLive_ProductLifecycle(t *testing.T) {
	ls := startLiveServer(t)
	ctx := context.Background()
	stream := ls.follow(t, nil)

	id := ls.createProduct(t, "Widget", "WID-1")
	created := next(t, stream, events.TopicProductCreated)
	if created.ID == "" {
		t.Error("created event has no id")
	}
	if got := decodeEvent[events.ProductCreated](t, created); got.Product == nil || got.Product.ID != id {
		t.Fatalf("created payload = %s, want product %s", created.Data, id)
	}

	name := "Widget XL"
	if _, err := ls.api.UpdateProduct(ctx, id, &client.ProductRequest{Name: &name}); err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}
	updated := decodeEvent[events.ProductUpdated](t, next(t, stream, events.TopicProductUpdated))
	if updated.Product.Name != name {
		t.Errorf("updated name = %q, want %q", updated.Product.Name, name)
	}
	if len(updated.Changes) != 1 || updated.Changes["name"] != name {
		t.Errorf("changes = %v, want only name", updated.Changes)
	}

	if err := ls.api.DeleteProduct(ctx, id); err != nil {
		t.Fatalf("DeleteProduct() error = %v", err)
	}
	if got := decodeEvent[events.ProductDeleted](t, next(t, stream, events.TopicProductDeleted)); got.ProductID != id {
		t.Errorf("deleted product_id = %q, want %q", got.ProductID, id)
	}
}

func TestStreamLive_TopicFilter(t *testing.T) {
	ls := startLiveServer(t)
	first := ls.createProduct(t, "Widget", "WID-1")
	stream := ls.follow(t, url.Values{"topics": {events.TopicProductActivated}})

	ls.createProduct(t, "Gadget", "GAD-1")
	if err := ls.api.SetProductActive(context.Background(), first, false); err != nil {
		t.Fatalf("SetProductActive() error = %v", err)
	}

	var e client.StreamEvent
	select {
	case e = <-stream:
	case <-time.After(2 * time.Second):
		t.Fatal("no event within 2s")
	}
	if e.Topic != events.TopicProductActivated {
		t.Fatalf("first event = %s, want %s", e.Topic, events.TopicProductActivated)
	}
	if got := decodeEvent[events.ProductActivated](t, e); got.ProductID != first || got.Active {
		t.Errorf("activation payload = %+v", got)
	}
	select {
	case extra, ok := <-stream:
		if ok {
			t.Errorf("unexpected %s event", extra.Topic)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStreamLive_FanOut(t *testing.T) {
	ls := startLiveServer(t)
	all := ls.follow(t, nil)
	products := ls.follow(t, url.Values{"entity": {"products"}})
	users := ls.follow(t, url.Values{"entity": {"users"}})

	id := ls.createProduct(t, "Widget", "WID-1")
	for name, ch := range map[string]<-chan client.StreamEvent{"all": all, "products": products} {
		if e := next(t, ch, events.TopicProductCreated); !strings.Contains(string(e.Data), id) {
			t.Errorf("%s: payload %s does not mention %s", name, e.Data, id)
		}
	}
	select {
	case e := <-users:
		t.Errorf("users stream got %s", e.Topic)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStreamLive_UserAndViewEvents(t *testing.T) {
	ls := startLiveServer(t)
	ctx := context.Background()
	stream := ls.follow(t, url.Values{"topics": {"backoffice.user.*,backoffice.view.*"}})

	name, email := "Ada", "ada@example.com"
	u, err := ls.api.CreateUser(ctx, &client.UserRequest{Name: &name, Email: &email})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	next(t, stream, events.TopicUserCreated)

	if err := ls.api.SetUserVerified(ctx, u.ID, true); err != nil {
		t.Fatalf("SetUserVerified() error = %v", err)
	}
	if got := decodeEvent[events.UserVerified](t, next(t, stream, events.TopicUserVerified)); got.UserID != u.ID || !got.Verified {
		t.Errorf("verified payload = %+v", got)
	}

	if _, err := ls.api.SaveView(ctx, "users", "verified", "emailVerified=true"); err != nil {
		t.Fatalf("SaveView() error = %v", err)
	}
	saved := decodeEvent[events.ViewSaved](t, next(t, stream, events.TopicViewSaved))
	if saved.View == nil || saved.View.Query != "emailVerified=true" {
		t.Errorf("saved view payload = %+v", saved.View)
	}
}

func TestStreamLive_UnknownEntity(t *testing.T) {
	ls := startLiveServer(t)
	err := ls.api.Stream(context.Background(), url.Values{"entity": {"orders"}}, func(client.StreamEvent) error { return nil })
	if err == nil {
		t.Fatal("Stream() with unknown entity succeeded")
	}
}
