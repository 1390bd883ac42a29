package remote

import (
	"errors"
	"testing"

	. "github.com/fulldump/biff"
)

func TestEmitter(t *testing.T) {

	e := NewEmitter()
	received := []string{}

	offA := e.On(EventCreated, func(data map[string]any) {
		received = append(received, "a:"+data["name"].(string))
	})
	e.On(EventCreated, func(data map[string]any) {
		panic("handler failure")
	})
	e.On(EventCreated, func(data map[string]any) {
		received = append(received, "c:"+data["name"].(string))
	})

	e.Emit(EventCreated, map[string]any{"name": "one"})
	offA()
	e.Emit(EventCreated, map[string]any{"name": "two"})
	e.Emit(EventRemoved, map[string]any{"name": "three"})

	AssertEqual(received, []string{"a:one", "c:one", "c:two"})
}

func TestNotFoundError(t *testing.T) {

	var err error = &NotFoundError{ID: 42}

	AssertEqual(err.Error(), "No record found for id '42'")
	AssertTrue(errors.Is(err, ErrNotFound))
}
