package hooks

import (
	"context"
)

// Handler processes a call context.
type Handler[C any] func(ctx context.Context, c C) error

// Hook wraps the next handler, running code around it.
type Hook[C any] func(next Handler[C]) Handler[C]

// Compose folds hooks around final. The first hook is the outermost one.
func Compose[C any](final Handler[C], hooks ...Hook[C]) Handler[C] {
	h := final
	for i := len(hooks) - 1; i >= 0; i-- {
		if hooks[i] == nil {
			continue
		}
		h = hooks[i](h)
	}
	return h
}
