package hooks

import (
	"context"
	"errors"
	"testing"

	. "github.com/fulldump/biff"
)

type call struct {
	trace []string
}

func tracer(name string) Hook[*call] {
	return func(next Handler[*call]) Handler[*call] {
		return func(ctx context.Context, c *call) error {
			c.trace = append(c.trace, "before "+name)
			err := next(ctx, c)
			c.trace = append(c.trace, "after "+name)
			return err
		}
	}
}

func TestCompose(t *testing.T) {

	Alternative("Compose", func(a *A) {

		c := &call{}

		a.Alternative("order", func(a *A) {
			h := Compose(func(ctx context.Context, c *call) error {
				c.trace = append(c.trace, "final")
				return nil
			}, tracer("a"), nil, tracer("b"))

			err := h(context.Background(), c)

			AssertNil(err)
			AssertEqual(c.trace, []string{"before a", "before b", "final", "after b", "after a"})
		})

		a.Alternative("errors propagate after cleanup", func(a *A) {
			boom := errors.New("boom")
			h := Compose(func(ctx context.Context, c *call) error {
				return boom
			}, tracer("a"))

			err := h(context.Background(), c)

			AssertEqual(err, boom)
			AssertEqual(c.trace, []string{"before a", "after a"})
		})

		a.Alternative("short circuit", func(a *A) {
			skip := func(next Handler[*call]) Handler[*call] {
				return func(ctx context.Context, c *call) error {
					return nil
				}
			}
			h := Compose(func(ctx context.Context, c *call) error {
				c.trace = append(c.trace, "final")
				return nil
			}, tracer("a"), skip, tracer("b"))

			h(context.Background(), c)

			AssertEqual(c.trace, []string{"before a", "after a"})
		})
	})
}
