package record

import (
	"regexp"
	"sort"
	"testing"

	. "github.com/fulldump/biff"
)

func TestNew_ReservedFields(t *testing.T) {

	r := New(map[string]any{
		"name":       "Fulanez",
		TempIDField:  "abc",
		IsCloneField: true,
		IsTempField:  true,
	})

	AssertEqual(r.Fields(), map[string]any{"name": "Fulanez"})
	AssertEqual(r.TempID(), "abc")
	AssertTrue(r.IsClone())
	AssertTrue(r.IsTemp("id"))
}

func TestRecord_Assign(t *testing.T) {

	// Setup
	r := New(map[string]any{"id": 1, "a": 1, TempIDField: "t1"})

	// Run
	r.Assign(map[string]any{
		"a":          2,
		"b":          3,
		IsCloneField: true,
		TempIDField:  "",
	})

	// Check
	AssertEqual(r.Fields(), map[string]any{"id": 1, "a": 2, "b": 3})
	AssertFalse(r.IsClone())
	AssertEqual(r.TempID(), "t1")
}

func TestRecord_Replace(t *testing.T) {

	r := New(map[string]any{"id": 1, "custom": true, TempIDField: "t1", IsCloneField: true})

	r.Replace(map[string]any{"id": 1, "name": "x"})

	AssertEqual(r.Fields(), map[string]any{"id": 1, "name": "x"})
	AssertEqual(r.TempID(), "t1")
	AssertTrue(r.IsClone())
}

func TestRecord_Copy(t *testing.T) {

	original := New(map[string]any{
		"id":   1,
		"tags": []any{"a"},
		"nested": map[string]any{
			"x": 1,
		},
	})
	original.SetClone(true)

	copied := original.Copy()
	nested, _ := copied.Get("nested")
	nested.(map[string]any)["x"] = 2
	copied.Set("name", "new")

	AssertEqual(original.Document(), map[string]any{
		"id":         1,
		"tags":       []any{"a"},
		"nested":     map[string]any{"x": 1},
		IsCloneField: true,
	})
	AssertTrue(copied.IsClone())
}

func TestRecord_Key(t *testing.T) {

	Alternative("with identifier", func(a *A) {
		key, ok := New(map[string]any{"id": 3.0, TempIDField: "t"}).Key("id")
		AssertTrue(ok)
		AssertEqual(key, "3")
	})

	Alternative("with temp id only", func(a *A) {
		key, ok := New(map[string]any{TempIDField: "t"}).Key("id")
		AssertTrue(ok)
		AssertEqual(key, "t")
	})

	Alternative("without any", func(a *A) {
		_, ok := New(map[string]any{"name": "x"}).Key("id")
		AssertFalse(ok)
	})
}

func TestKey_NumericNormalization(t *testing.T) {
	AssertEqual(Key(3), Key(3.0))
	AssertEqual(Key(int64(3)), Key(float32(3)))
	AssertEqual(Key("3"), "3")
}

func TestRecord_Version(t *testing.T) {

	r := New(map[string]any{})
	v0 := r.Version()

	r.Set("a", 1)
	r.Delete("a")

	AssertEqual(r.Version(), v0+2)
}

func TestRecord_MarshalJSON(t *testing.T) {

	r := New(map[string]any{"b": 2, "a": 1, TempIDField: "t"})

	data, err := r.MarshalJSON()

	AssertNil(err)
	AssertEqual(string(data), `{"__tempId":"t","a":1,"b":2}`)
}

func TestNewTempID(t *testing.T) {

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = NewTempID()
	}

	hex24 := regexp.MustCompile(`^[0-9a-f]{24}$`)
	seen := map[string]bool{}
	for _, id := range ids {
		AssertTrue(hex24.MatchString(id))
		AssertFalse(seen[id])
		seen[id] = true
	}

	AssertTrue(sort.StringsAreSorted(ids[:2]))
}
