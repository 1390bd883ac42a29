package configuration

import (
	"testing"

	. "github.com/fulldump/biff"
)

func TestDefault(t *testing.T) {

	c := Default()

	AssertEqual(c.IdField, "id")
	AssertEqual(c.Upstream, "")
	AssertTrue(c.PaginateDefault <= c.PaginateMax)
}
