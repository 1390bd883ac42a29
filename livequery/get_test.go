package livequery

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/fulldump/biff"

	"github.com/fulldump/replica/record"
	"github.com/fulldump/replica/remote"
	"github.com/fulldump/replica/remote/memory"
	"github.com/fulldump/replica/service"
)

func TestGet(t *testing.T) {

	Alternative("Live get", func(a *A) {

		ctx := context.Background()
		backend := newCounting(memory.Paginate{})
		seedRemote(backend, 2)
		s := service.New(backend, service.Options{})

		a.Alternative("loads the record", func(a *A) {
			g := NewGet(ctx, s, 1, GetOptions{})
			defer g.Close()
			AssertNil(g.Data())

			r, err := g.Get(ctx)

			AssertNil(err)
			AssertTrue(r == g.Data())
			AssertTrue(g.HaveLoaded())
			AssertFalse(g.IsPending())
			AssertEqual(g.Data().Fields()["n"], 0)
		})

		a.Alternative("follows the store", func(a *A) {
			g := NewGet(ctx, s, 1, GetOptions{})
			defer g.Close()
			g.Get(ctx)

			s.RemoveFromStore(1, service.Params{})
			AssertNil(g.Data())

			s.CreateInStore(record.New(map[string]any{"id": 1.0, "n": 7}))
			AssertEqual(g.Data().Fields()["n"], 7)
		})

		a.Alternative("answers from the store", func(a *A) {
			s.CreateInStore(record.New(map[string]any{"id": 2.0, "n": 1}))
			g := NewGet(ctx, s, 2, GetOptions{SkipRequestIfExists: true})
			defer g.Close()

			_, err := g.Get(ctx)

			AssertNil(err)
			_, gets := backend.counts()
			AssertEqual(gets, 0)
			AssertTrue(g.HaveLoaded())
		})

		a.Alternative("not found", func(a *A) {
			g := NewGet(ctx, s, 404, GetOptions{})
			defer g.Close()

			_, err := g.Get(ctx)

			AssertTrue(errors.Is(err, remote.ErrNotFound))
			AssertTrue(errors.Is(g.Error(), remote.ErrNotFound))
			AssertFalse(g.HaveLoaded())
			AssertNil(g.Data())
		})

		a.Alternative("set id", func(a *A) {
			g := NewGet(ctx, s, 1, GetOptions{Immediate: true})
			defer g.Close()
			time.Sleep(50 * time.Millisecond)
			AssertTrue(g.HaveLoaded())

			g.SetID(2)
			AssertEqual(g.ID(), 2)
			time.Sleep(50 * time.Millisecond)

			AssertTrue(g.HaveLoaded())
			AssertEqual(g.Data().Fields()["n"], 1)
		})
	})
}
