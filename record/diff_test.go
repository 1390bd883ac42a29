package record

import (
	"testing"

	. "github.com/fulldump/biff"
)

func TestDiff(t *testing.T) {

	Alternative("changed field", func(a *A) {
		diff := Diff(map[string]any{"a": 1, "b": 2}, map[string]any{"a": 1, "b": 3}, nil)
		AssertEqual(diff, map[string]any{"b": 3})
	})

	Alternative("deep equal objects", func(a *A) {
		diff := Diff(
			map[string]any{"a": map[string]any{"x": []any{1.0, "y"}}},
			map[string]any{"a": map[string]any{"x": []any{1, "y"}}},
			nil,
		)
		AssertEqual(diff, map[string]any{})
	})

	Alternative("new field", func(a *A) {
		diff := Diff(map[string]any{"a": 1}, map[string]any{"a": 1, "c": nil}, nil)
		AssertEqual(diff, map[string]any{"c": nil})
	})

	Alternative("restricted to keys", func(a *A) {
		diff := Diff(map[string]any{"a": 1, "b": 2}, map[string]any{"a": 5, "b": 3}, []string{"a", "z"})
		AssertEqual(diff, map[string]any{"a": 5})
	})

	Alternative("reserved fields are ignored", func(a *A) {
		diff := Diff(map[string]any{}, map[string]any{TempIDField: "t", IsCloneField: true}, nil)
		AssertEqual(diff, map[string]any{})
	})
}

func TestPick(t *testing.T) {
	AssertEqual(Pick(map[string]any{"a": 1, "b": 2}, []string{"b", "c"}), map[string]any{"b": 2})
}

func TestEqual(t *testing.T) {
	AssertTrue(Equal(1, 1.0))
	AssertTrue(Equal(nil, nil))
	AssertFalse(Equal(1, "1"))
	AssertFalse(Equal([]any{1}, []any{1, 2}))
	AssertFalse(Equal(map[string]any{"a": 1}, map[string]any{"b": 1}))
}
