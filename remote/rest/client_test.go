package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fulldump/box"
	. "github.com/fulldump/biff"

	"github.com/fulldump/replica/api"
	"github.com/fulldump/replica/database"
	"github.com/fulldump/replica/query"
	"github.com/fulldump/replica/remote"
	"github.com/fulldump/replica/remote/memory"
	"github.com/fulldump/replica/service"
)

func newServer(paginate memory.Paginate) *httptest.Server {
	db := database.NewDatabase(&database.Config{
		Services: []string{"users"},
		Paginate: paginate,
	})
	db.Load()

	b := api.Build(db, "test", "key", "secret")
	b.WithInterceptors(
		api.RecoverFromPanic,
		api.PrettyErrorInterceptor,
	)

	return httptest.NewServer(box.Box2Http(b))
}

func newClient(server *httptest.Server) *Client {
	return New(Options{
		Base:      server.URL,
		Service:   "users",
		ApiKey:    "key",
		ApiSecret: "secret",
	})
}

func TestClient_Records(t *testing.T) {

	Alternative("Records", func(a *A) {

		ctx := context.Background()
		server := newServer(memory.Paginate{})
		defer server.Close()
		c := newClient(server)

		created, err := c.Create(ctx, map[string]any{"id": "u1", "name": "Fulanez"}, remote.Params{})
		AssertNil(err)
		AssertEqual(created, map[string]any{"id": "u1", "name": "Fulanez"})

		a.Alternative("get", func(a *A) {
			r, err := c.Get(ctx, "u1", remote.Params{})
			AssertNil(err)
			AssertEqual(r["name"], "Fulanez")
		})

		a.Alternative("get missing", func(a *A) {
			_, err := c.Get(ctx, "nope", remote.Params{})
			AssertTrue(errors.Is(err, remote.ErrNotFound))
			AssertEqual(err.Error(), "No record found for id 'nope'")
		})

		a.Alternative("patch", func(a *A) {
			r, err := c.Patch(ctx, "u1", map[string]any{"age": 33}, remote.Params{})
			AssertNil(err)
			AssertEqual(r, map[string]any{"id": "u1", "name": "Fulanez", "age": 33.0})
		})

		a.Alternative("update", func(a *A) {
			r, err := c.Update(ctx, "u1", map[string]any{"name": "Menganez"}, remote.Params{})
			AssertNil(err)
			AssertEqual(r, map[string]any{"id": "u1", "name": "Menganez"})
		})

		a.Alternative("remove", func(a *A) {
			_, err := c.Remove(ctx, "u1", remote.Params{})
			AssertNil(err)
			_, err = c.Get(ctx, "u1", remote.Params{})
			AssertTrue(errors.Is(err, remote.ErrNotFound))
		})

		a.Alternative("find plain list", func(a *A) {
			page, err := c.Find(ctx, remote.Params{Query: map[string]any{"name": "Fulanez"}})
			AssertNil(err)
			AssertFalse(page.Paginated)
			AssertEqual(len(page.Data), 1)
		})

		a.Alternative("invalid query", func(a *A) {
			_, err := c.Find(ctx, remote.Params{Query: map[string]any{"$bogus": 1}})
			AssertTrue(errors.Is(err, query.ErrInvalidQuery))
		})

		a.Alternative("wrong credentials", func(a *A) {
			c := New(Options{Base: server.URL, Service: "users"})
			_, err := c.Get(ctx, "u1", remote.Params{})
			AssertNotNil(err)
			AssertFalse(errors.Is(err, remote.ErrNotFound))
		})
	})
}

func TestClient_FindPaginated(t *testing.T) {

	ctx := context.Background()
	server := newServer(memory.Paginate{Default: 2})
	defer server.Close()
	c := newClient(server)

	for i := 0; i < 3; i++ {
		c.Create(ctx, map[string]any{"n": i}, remote.Params{})
	}

	page, err := c.Find(ctx, remote.Params{})

	AssertNil(err)
	AssertTrue(page.Paginated)
	AssertEqual(page.Total, 3)
	AssertEqual(page.Limit, 2)
	AssertEqual(len(page.Data), 2)
}

func TestClient_Listen(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := newServer(memory.Paginate{})
	defer server.Close()

	c := newClient(server)
	connected := make(chan struct{}, 1)
	c.connected = func() {
		select {
		case connected <- struct{}{}:
		default:
		}
	}

	received := make(chan remote.Message, 10)
	for _, event := range remote.Events {
		event := event
		c.On(event, func(data map[string]any) {
			received <- remote.Message{Event: event, Data: data}
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Listen(ctx)
	}()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream not connected")
	}

	other := newClient(server)
	other.Create(ctx, map[string]any{"id": "u1", "name": "Fulanez"}, remote.Params{})
	other.Remove(ctx, "u1", remote.Params{})

	for _, expected := range []string{remote.EventCreated, remote.EventRemoved} {
		select {
		case message := <-received:
			AssertEqual(message.Event, expected)
			AssertEqual(message.Data["id"], "u1")
		case <-time.After(2 * time.Second):
			t.Fatalf("event '%s' not received", expected)
		}
	}

	cancel()
	select {
	case err := <-done:
		AssertNil(err)
	case <-time.After(2 * time.Second):
		t.Fatal("listen did not stop")
	}
}

func TestClient_SynchronizedService(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := newServer(memory.Paginate{Default: 10})
	defer server.Close()

	c := newClient(server)
	connected := make(chan struct{}, 1)
	c.connected = func() {
		select {
		case connected <- struct{}{}:
		default:
		}
	}
	go c.Listen(ctx)
	<-connected

	s := service.New(c, service.Options{})
	defer s.Close()

	// Local mutation through the remote
	temp := s.New(map[string]any{"name": "Fulanez"})
	created, err := s.Save(ctx, temp, service.Params{})
	AssertNil(err)
	AssertEqual(created.TempID(), temp.TempID())
	id, _ := created.ID("id")

	// Mutation by somebody else, pushed through the event stream
	newClient(server).Patch(ctx, id, map[string]any{"age": 40}, remote.Params{})

	deadline := time.Now().Add(2 * time.Second)
	for created.Fields()["age"] != 40.0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	AssertEqual(created.Fields()["age"], 40.0)

	result, err := s.Find(ctx, service.Params{})
	AssertNil(err)
	AssertEqual(result.Total, 1)
}

func TestClient_PlainErrorBody(t *testing.T) {

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream is down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newClient(server).Get(context.Background(), "u1", remote.Params{})

	AssertNotNil(err)
	AssertTrue(strings.Contains(err.Error(), "unexpected status 502: upstream is down"))
}
