package store

import (
	"errors"
	"testing"

	. "github.com/fulldump/biff"

	"github.com/fulldump/replica/query"
	"github.com/fulldump/replica/record"
)

func newFixture() *Store {
	s := New(Options{})
	ages := []float64{4, 5, 6, 5, 21, 23, 24, 25, 44, 55, 66, 77}
	for i, age := range ages {
		s.CreateInStore(record.New(map[string]any{
			"id":  float64(i + 1),
			"age": age,
		}))
	}
	return s
}

func TestStore_FindInStore(t *testing.T) {

	s := newFixture()

	result, err := s.FindInStore(Params{Query: map[string]any{
		"age": map[string]any{"$lt": 6},
	}})

	AssertNil(err)
	AssertEqual(result.Total, 3)
	AssertEqual(len(result.Data), 3)
}

func TestStore_FindInStore_Temps(t *testing.T) {

	s := newFixture()
	s.CreateInStore(record.New(map[string]any{record.TempIDField: "t1", "age": 1.0}))

	Alternative("Temps", func(a *A) {

		a.Alternative("excluded by default", func(a *A) {
			total, _ := s.CountInStore(Params{Query: map[string]any{"age": 1}})
			AssertEqual(total, 0)
		})

		a.Alternative("included when asked", func(a *A) {
			total, _ := s.CountInStore(Params{Query: map[string]any{"age": 1}, Temps: true})
			AssertEqual(total, 1)
		})
	})
}

func TestStore_FindInStore_Clones(t *testing.T) {

	s := newFixture()

	result, err := s.FindInStore(Params{
		Query:  map[string]any{"age": 4},
		Clones: true,
	})

	AssertNil(err)
	AssertTrue(result.Data[0].IsClone())
	AssertTrue(s.Tiers().Clones.Has("1"))

	again, _ := s.FindInStore(Params{Query: map[string]any{"age": 4}, Clones: true})
	AssertTrue(again.Data[0] == result.Data[0])
}

func TestStore_FindInStore_InvalidQuery(t *testing.T) {

	s := newFixture()

	_, err := s.FindInStore(Params{Query: map[string]any{"$unknown": 1}})

	AssertTrue(errors.Is(err, query.ErrInvalidQuery))
}

func TestStore_GetFromStore(t *testing.T) {

	s := newFixture()
	s.CreateInStore(record.New(map[string]any{record.TempIDField: "t1", "name": "temp"}))

	Alternative("Get", func(a *A) {

		a.Alternative("numeric id", func(a *A) {
			r, err := s.GetFromStore(3, Params{})
			AssertNil(err)
			AssertEqual(r.Fields()["age"], 6.0)
		})

		a.Alternative("temp id", func(a *A) {
			r, _ := s.GetFromStore("t1", Params{})
			AssertEqual(r.Fields()["name"], "temp")
		})

		a.Alternative("missing", func(a *A) {
			r, err := s.GetFromStore(99, Params{})
			AssertNil(err)
			AssertNil(r)
		})

		a.Alternative("select", func(a *A) {
			r, _ := s.GetFromStore(3, Params{Query: map[string]any{"$select": []string{"id"}}})
			AssertEqual(r.Fields(), map[string]any{"id": 3.0})
			stored, _ := s.GetFromStore(3, Params{})
			AssertEqual(len(stored.Fields()), 2)
		})
	})
}

func TestStore_PatchInStore(t *testing.T) {

	Alternative("Patch", func(a *A) {

		s := newFixture()
		held, _ := s.GetFromStore(1, Params{})

		a.Alternative("by id keeps identity", func(a *A) {
			patched, err := s.PatchInStore(1.0, map[string]any{"name": "Evan"}, Params{})
			AssertNil(err)
			AssertEqual(len(patched), 1)
			AssertTrue(patched[0] == held)
			AssertEqual(held.Fields()["name"], "Evan")
		})

		a.Alternative("by list of ids", func(a *A) {
			patched, _ := s.PatchInStore([]any{1, "2", 99}, map[string]any{"flag": true}, Params{})
			AssertEqual(len(patched), 2)
		})

		a.Alternative("by query", func(a *A) {
			patched, err := s.PatchInStore(nil, map[string]any{"young": true}, Params{
				Query: map[string]any{"age": map[string]any{"$lt": 6}},
			})
			AssertNil(err)
			AssertEqual(len(patched), 3)
			total, _ := s.CountInStore(Params{Query: map[string]any{"young": true}})
			AssertEqual(total, 3)
		})

		a.Alternative("without target nor query", func(a *A) {
			_, err := s.PatchInStore(nil, map[string]any{"x": 1}, Params{Query: map[string]any{}})
			AssertTrue(errors.Is(err, query.ErrInvalidQuery))
			total, _ := s.CountInStore(Params{Query: map[string]any{"x": 1}})
			AssertEqual(total, 0)
		})
	})
}

func TestStore_RemoveFromStore(t *testing.T) {

	Alternative("Remove", func(a *A) {

		s := newFixture()

		a.Alternative("by id", func(a *A) {
			removed, err := s.RemoveFromStore(2, Params{})
			AssertNil(err)
			AssertEqual(len(removed), 1)

			a.Alternative("twice is a no-op", func(a *A) {
				removed, err := s.RemoveFromStore(2, Params{})
				AssertNil(err)
				AssertEqual(len(removed), 0)
			})
		})

		a.Alternative("by query including clones", func(a *A) {
			item, _ := s.GetFromStore(12, Params{})
			s.Clone(item, nil, false)
			s.RemoveFromStore(item, Params{})
			s.CreateInStore(record.New(map[string]any{"id": 77.0, "age": 77.0, record.IsCloneField: true}))

			removed, _ := s.RemoveFromStore(nil, Params{Query: map[string]any{"age": 77}})

			AssertEqual(len(removed), 1)
			AssertEqual(s.Tiers().Clones.Len(), 0)
		})

		a.Alternative("everything", func(a *A) {
			removed, _ := s.RemoveFromStore(nil, Params{})
			AssertEqual(len(removed), 12)
			AssertEqual(s.Tiers().Items.Len(), 0)
		})
	})
}

func TestStore_TempCloneCommit(t *testing.T) {

	s := New(Options{})
	temp := record.New(map[string]any{"name": "Evan"})
	temp.SetTempID(record.NewTempID())
	stored, _ := s.CreateInStore(temp)

	clone, _ := s.Clone(stored, nil, false)
	clone.Set("name", "George")
	committed, err := s.Commit(clone, nil)

	AssertNil(err)
	AssertEqual(committed.Fields()["name"], "George")
	AssertFalse(committed.IsClone())
	original, _ := s.GetFromStore(temp.TempID(), Params{})
	AssertTrue(original == committed)
}

func TestStore_Subscribe(t *testing.T) {

	s := New(Options{})
	changes := []Change{}
	unsubscribe := s.Subscribe(func(c Change) {
		changes = append(changes, c)
	})

	r, _ := s.CreateInStore(record.New(map[string]any{"id": 1}))
	s.PatchInStore(1, map[string]any{"a": 1}, Params{})
	s.RemoveFromStore(1, Params{})
	unsubscribe()
	s.CreateInStore(record.New(map[string]any{"id": 2}))

	AssertEqual(len(changes), 3)
	AssertEqual(changes[0], Change{Kind: Added, Tier: Items, Record: r})
	AssertEqual(changes[1].Kind, Updated)
	AssertEqual(changes[2].Kind, Removed)
}

func TestStore_ReplaceInStore(t *testing.T) {

	s := New(Options{})
	original, _ := s.CreateInStore(record.New(map[string]any{"id": 1, "tag": "a", "name": "x"}))

	seen := []map[string]any{}
	s.Subscribe(func(c Change) {
		seen = append(seen, c.Record.Fields())
	})

	replaced, err := s.ReplaceInStore(record.New(map[string]any{"id": 1, "name": "y"}))

	AssertNil(err)
	AssertTrue(replaced == original)
	AssertEqual(original.Fields(), map[string]any{"id": 1, "name": "y"})
	AssertEqual(seen, []map[string]any{{"id": 1, "name": "y"}})

	tagged, _ := s.FindInStore(Params{Query: map[string]any{"tag": "a"}})
	AssertEqual(tagged.Total, 0)
}
