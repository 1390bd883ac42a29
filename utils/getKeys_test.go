package utils

import (
	"testing"

	. "github.com/fulldump/biff"
)

func TestGetKeys(t *testing.T) {

	keys := GetKeys(map[string]bool{"$lt": true, "$eq": true, "$in": false})

	AssertEqual(keys, []string{"$eq", "$in", "$lt"})
	AssertEqual(GetKeys(map[string]int{}), []string{})
}
