package pagination

import (
	"testing"
	"time"

	. "github.com/fulldump/biff"

	"github.com/fulldump/replica/record"
)

func records(ids ...any) []*record.Record {
	result := make([]*record.Record, len(ids))
	for i, id := range ids {
		result[i] = record.New(map[string]any{"id": id})
	}
	return result
}

func TestGetQueryInfo(t *testing.T) {

	a, _ := GetQueryInfo("", map[string]any{"b": 1, "a": 2, "$limit": 10, "$skip": 0}, nil)
	b, _ := GetQueryInfo("default", map[string]any{"a": 2, "b": 1, "$limit": 10.0}, nil)

	AssertEqual(a.Qid, "default")
	AssertEqual(a.QueryID, `{"a":2,"b":1}`)
	AssertEqual(a.QueryID, b.QueryID)
	AssertEqual(a.PageID, `{"$limit":10,"$skip":0}`)
	AssertEqual(a.PageID, b.PageID)
}

func TestCache_Update(t *testing.T) {

	c := NewCache("id")
	q := map[string]any{"age": map[string]any{"$gt": 1}, "$limit": 2, "$skip": 0}

	info, err := c.Update(UpdateParams{
		Query: q,
		Response: Response{
			Data:  records(1, 2),
			Total: 5,
			Limit: 2,
			Skip:  0,
		},
	})

	AssertNil(err)
	AssertTrue(c.Has("default", q))
	AssertFalse(c.Has("other", q))
	AssertFalse(c.Has("default", map[string]any{"age": map[string]any{"$gt": 1}, "$limit": 2, "$skip": 2}))

	queryState, page := c.Lookup(info)
	AssertEqual(queryState.Total, 5)
	AssertEqual(page.IDs, []any{1, 2})
	AssertEqual(c.MostRecent("default"), info)

	c.Clear("default")
	AssertFalse(c.Has("default", q))
}

func TestCache_Ssr(t *testing.T) {

	c := NewCache("id")
	q := map[string]any{"$limit": 10, "$skip": 0}
	update := func(ssr, preserve bool) *PageInfo {
		info, _ := c.Update(UpdateParams{
			Query:       q,
			Response:    Response{Data: records(1), Total: 1, Limit: 10},
			Ssr:         ssr,
			PreserveSsr: preserve,
		})
		_, page := c.Lookup(info)
		return page
	}

	AssertTrue(update(true, false).Ssr)
	AssertTrue(update(false, true).Ssr)
	AssertFalse(update(false, false).Ssr)

	before := update(true, false)
	info, _ := GetQueryInfo("", q, nil)
	c.UnflagSsr(info)
	_, page := c.Lookup(info)
	AssertFalse(page.Ssr)

	// pages handed out are snapshots
	AssertTrue(before.Ssr)
	page.IDs[0] = "changed"
	_, page = c.Lookup(info)
	AssertEqual(page.IDs, []any{1})
}

func TestCache_ExtendedInfo(t *testing.T) {

	c := NewCache("id")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	live := map[any]*record.Record{}
	for _, r := range records("a", "b", "c") {
		id, _ := r.ID("id")
		live[id] = r
	}

	info, _ := c.Update(UpdateParams{
		Query:    map[string]any{},
		Response: Response{Data: records("a", "b", "c"), Total: 3, Limit: 3},
	})
	delete(live, "b")

	extended := c.ExtendedInfo(info, func(id any) *record.Record { return live[id] }, time.Minute)

	AssertEqual(extended.Total, 3)
	AssertEqual(len(extended.Items), 2)
	AssertTrue(extended.Items[0] == live["a"])
	AssertFalse(extended.IsExpired)

	now = now.Add(2 * time.Minute)
	AssertTrue(c.ExtendedInfo(info, func(id any) *record.Record { return live[id] }, time.Minute).IsExpired)
}
