package remote

import (
	"context"
	"errors"
	"fmt"
)

// Push events emitted by a service after every successful mutation.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventPatched = "patched"
	EventRemoved = "removed"
)

var Events = []string{EventCreated, EventUpdated, EventPatched, EventRemoved}

var ErrNotFound = errors.New("not found")

type NotFoundError struct {
	ID any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No record found for id '%v'", e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

type Params struct {
	Query map[string]any
}

// Page is a find response. Paginated is false when the service returned a
// plain list, in that case Total, Limit and Skip are meaningless.
type Page struct {
	Data      []map[string]any `json:"data"`
	Total     int              `json:"total"`
	Limit     int              `json:"limit"`
	Skip      int              `json:"skip"`
	Paginated bool             `json:"-"`
}

type EventHandler func(data map[string]any)

// Service is the remote side of a synchronized collection.
type Service interface {
	Find(ctx context.Context, params Params) (*Page, error)
	Get(ctx context.Context, id any, params Params) (map[string]any, error)
	Create(ctx context.Context, data map[string]any, params Params) (map[string]any, error)
	Update(ctx context.Context, id any, data map[string]any, params Params) (map[string]any, error)
	Patch(ctx context.Context, id any, data map[string]any, params Params) (map[string]any, error)
	Remove(ctx context.Context, id any, params Params) (map[string]any, error)

	// On subscribes handler to event, the returned function unsubscribes.
	On(event string, handler EventHandler) (off func())
}
