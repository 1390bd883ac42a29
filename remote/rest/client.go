package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsonv2 "github.com/go-json-experiment/json"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	"github.com/fulldump/replica/query"
	"github.com/fulldump/replica/remote"
)

type Options struct {
	// Base is the server address, like http://localhost:8080
	Base    string
	Service string

	ApiKey    string
	ApiSecret string

	HTTPClient *http.Client

	// ReconnectInterval is the first wait before reconnecting the event
	// stream, it grows up to MaxReconnectInterval.
	ReconnectInterval    time.Duration
	MaxReconnectInterval time.Duration
}

// Client is a remote.Service served over HTTP. Push events arrive through a
// websocket opened by Listen.
type Client struct {
	*remote.Emitter

	options Options
	dialer  *websocket.Dialer

	connected func()
}

func New(options Options) *Client {
	options.Base = strings.TrimSuffix(options.Base, "/")
	if options.HTTPClient == nil {
		options.HTTPClient = http.DefaultClient
	}
	if options.ReconnectInterval <= 0 {
		options.ReconnectInterval = 100 * time.Millisecond
	}
	if options.MaxReconnectInterval <= 0 {
		options.MaxReconnectInterval = 10 * time.Second
	}
	return &Client{
		Emitter: remote.NewEmitter(),
		options: options,
		dialer:  websocket.DefaultDialer,
	}
}

func (c *Client) serviceURL() string {
	return c.options.Base + "/v1/services/" + url.PathEscape(c.options.Service)
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	if c.options.ApiKey != "" {
		h.Set("X-Api-Key", c.options.ApiKey)
		h.Set("X-Api-Secret", c.options.ApiSecret)
	}
	return h
}

type errorResponse struct {
	Error struct {
		Message     string `json:"message"`
		Description string `json:"description"`
	} `json:"error"`
}

// call posts body to a service action and returns the raw response body.
func (c *Client) call(ctx context.Context, action string, body remote.Request) ([]byte, error) {

	payload, err := jsonv2.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL()+":"+action, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header = c.headers()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.options.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", action, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	e := errorResponse{}
	if err := jsonv2.Unmarshal(data, &e); err != nil {
		glog.V(2).Infof("[rest] %s: status %d with undecodable body: %s", action, resp.StatusCode, err.Error())
		e.Error.Message = strings.TrimSpace(string(data))
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		if body.ID != nil {
			return nil, &remote.NotFoundError{ID: body.ID}
		}
		return nil, fmt.Errorf("%w: %s", remote.ErrNotFound, e.Error.Message)
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", query.ErrInvalidQuery, e.Error.Message)
	}

	return nil, fmt.Errorf("%s: unexpected status %d: %s", action, resp.StatusCode, e.Error.Message)
}

func (c *Client) record(ctx context.Context, action string, body remote.Request) (map[string]any, error) {
	data, err := c.call(ctx, action, body)
	if err != nil {
		return nil, err
	}
	result := map[string]any{}
	if err := jsonv2.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", action, err)
	}
	return result, nil
}

// Find decodes either a page or, when the server does not paginate, a plain
// list of records.
func (c *Client) Find(ctx context.Context, params remote.Params) (*remote.Page, error) {

	data, err := c.call(ctx, "find", remote.Request{Query: params.Query})
	if err != nil {
		return nil, err
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		list := []map[string]any{}
		if err := jsonv2.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode find response: %w", err)
		}
		return &remote.Page{Data: list}, nil
	}

	page := &remote.Page{}
	if err := jsonv2.Unmarshal(data, page); err != nil {
		return nil, fmt.Errorf("decode find response: %w", err)
	}
	if page.Data == nil {
		page.Data = []map[string]any{}
	}
	page.Paginated = true
	return page, nil
}

func (c *Client) Get(ctx context.Context, id any, params remote.Params) (map[string]any, error) {
	return c.record(ctx, "get", remote.Request{ID: id, Query: params.Query})
}

func (c *Client) Create(ctx context.Context, data map[string]any, params remote.Params) (map[string]any, error) {
	return c.record(ctx, "create", remote.Request{Data: data, Query: params.Query})
}

func (c *Client) Update(ctx context.Context, id any, data map[string]any, params remote.Params) (map[string]any, error) {
	return c.record(ctx, "update", remote.Request{ID: id, Data: data, Query: params.Query})
}

func (c *Client) Patch(ctx context.Context, id any, data map[string]any, params remote.Params) (map[string]any, error) {
	return c.record(ctx, "patch", remote.Request{ID: id, Data: data, Query: params.Query})
}

func (c *Client) Remove(ctx context.Context, id any, params remote.Params) (map[string]any, error) {
	return c.record(ctx, "remove", remote.Request{ID: id, Query: params.Query})
}

func (c *Client) eventsURL() string {
	u := c.serviceURL() + "/events"
	if strings.HasPrefix(u, "https://") {
		return "wss://" + strings.TrimPrefix(u, "https://")
	}
	return "ws://" + strings.TrimPrefix(u, "http://")
}

// Listen emits the events received from the server until ctx is done. Lost
// connections are opened again with exponential backoff.
func (c *Client) Listen(ctx context.Context) error {

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.options.ReconnectInterval
	b.MaxInterval = c.options.MaxReconnectInterval
	b.MaxElapsedTime = 0

	err := backoff.RetryNotify(func() error {
		err := c.listen(ctx, b.Reset)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		glog.V(2).Infof("[rest] %s events: %s, reconnecting in %s", c.options.Service, err.Error(), wait)
	})

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (c *Client) listen(ctx context.Context, onConnect func()) error {

	conn, _, err := c.dialer.DialContext(ctx, c.eventsURL(), c.headers())
	if err != nil {
		return err
	}
	defer conn.Close()

	onConnect()
	if c.connected != nil {
		c.connected()
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		message := remote.Message{}
		if err := jsonv2.Unmarshal(data, &message); err != nil {
			glog.Warningf("[rest] %s events: bad message: %s", c.options.Service, err.Error())
			continue
		}
		c.Emit(message.Event, message.Data)
	}
}
