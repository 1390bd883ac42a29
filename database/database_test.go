package database

import (
	"context"
	"errors"
	"testing"

	. "github.com/fulldump/biff"

	"github.com/fulldump/replica/remote"
	"github.com/fulldump/replica/remote/memory"
)

func TestDatabase(t *testing.T) {

	Alternative("Database", func(a *A) {

		db := NewDatabase(&Config{
			Services: []string{"users", "messages"},
			Paginate: memory.Paginate{Default: 10},
		})
		AssertEqual(db.GetStatus(), StatusOpening)

		err := db.Load()
		AssertNil(err)
		AssertEqual(db.GetStatus(), StatusOperating)
		AssertEqual(db.ListServices(), []string{"messages", "users"})

		a.Alternative("Get service", func(a *A) {
			s, err := db.GetService("users")
			AssertNil(err)
			AssertNotNil(s)

			page, _ := s.Find(context.Background(), remote.Params{})
			AssertTrue(page.Paginated)
		})

		a.Alternative("Get missing service", func(a *A) {
			_, err := db.GetService("nope")
			AssertTrue(errors.Is(err, ErrorServiceNotFound))
		})

		a.Alternative("Create existing service", func(a *A) {
			_, err := db.CreateService("users")
			AssertTrue(errors.Is(err, ErrorServiceAlreadyExists))
		})

		a.Alternative("Drop service", func(a *A) {
			AssertNil(db.DropService("users"))
			AssertEqual(db.ListServices(), []string{"messages"})
			AssertTrue(errors.Is(db.DropService("users"), ErrorServiceNotFound))
		})

		a.Alternative("Stop", func(a *A) {
			db.Stop()
			AssertEqual(db.GetStatus(), StatusClosing)
		})
	})
}
