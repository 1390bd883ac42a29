package pagination

import (
	"testing"

	. "github.com/fulldump/biff"
)

func TestPageData(t *testing.T) {

	Alternative("Page math", func(a *A) {

		p := &PageData{Limit: 10, Skip: 0, Total: 25}

		AssertEqual(p.PageCount(), 3)
		AssertEqual(p.CurrentPage(), 1)
		AssertFalse(p.CanPrev())
		AssertTrue(p.CanNext())

		a.Alternative("skip 20 is the last page", func(a *A) {
			p.Skip = 20
			AssertEqual(p.CurrentPage(), 3)
			AssertFalse(p.CanNext())
		})

		a.Alternative("clamp above page count", func(a *A) {
			p.SetCurrentPage(7)
			AssertEqual(p.CurrentPage(), 3)
			AssertEqual(p.Skip, 20)
		})

		a.Alternative("clamp below 1", func(a *A) {
			p.Skip = 10
			p.SetCurrentPage(-2)
			AssertEqual(p.CurrentPage(), 1)
			AssertEqual(p.Skip, 0)
		})

		a.Alternative("navigation", func(a *A) {
			p.Next()
			AssertEqual(p.CurrentPage(), 2)
			p.ToEnd()
			AssertEqual(p.CurrentPage(), 3)
			p.Next()
			AssertEqual(p.CurrentPage(), 3)
			p.Prev()
			AssertEqual(p.Skip, 10)
			p.ToStart()
			AssertEqual(p.Skip, 0)
			p.ToPage(2)
			AssertEqual(p.Skip, 10)
		})

		a.Alternative("no results is one page", func(a *A) {
			p.Total = 0
			AssertEqual(p.PageCount(), 1)
		})
	})
}
