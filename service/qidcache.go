package service

import (
	"sync"
	"time"

	"github.com/fulldump/replica/record"
	"github.com/fulldump/replica/remote"
)

type QidEntry struct {
	Page   *remote.Page
	Record map[string]any
}

func (e QidEntry) copy() QidEntry {
	c := QidEntry{
		Record: record.CloneFields(e.Record),
	}
	if e.Page != nil {
		page := *e.Page
		page.Data = make([]map[string]any, len(e.Page.Data))
		for i, row := range e.Page.Data {
			page.Data[i] = record.CloneFields(row)
		}
		c.Page = &page
	}
	return c
}

// QidCache keeps raw responses by qid. Entries are copied in and out.
type QidCache struct {
	mutex   *sync.Mutex
	entries map[string]QidEntry
	timers  map[string]*time.Timer
}

func NewQidCache() *QidCache {
	return &QidCache{
		mutex:   &sync.Mutex{},
		entries: map[string]QidEntry{},
		timers:  map[string]*time.Timer{},
	}
}

func (q *QidCache) Get(key string) (QidEntry, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	entry, ok := q.entries[key]
	if !ok {
		return QidEntry{}, false
	}
	return entry.copy(), true
}

func (q *QidCache) Set(key string, entry QidEntry) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.entries[key] = entry.copy()
}

// Expire removes key after ttl unless it is already scheduled.
func (q *QidCache) Expire(key string, ttl time.Duration) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if _, scheduled := q.timers[key]; scheduled {
		return
	}
	q.timers[key] = time.AfterFunc(ttl, func() {
		q.mutex.Lock()
		defer q.mutex.Unlock()
		delete(q.entries, key)
		delete(q.timers, key)
	})
}

// Snapshot returns every entry, used to ship a server side cache to the
// client.
func (q *QidCache) Snapshot() map[string]QidEntry {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	snapshot := make(map[string]QidEntry, len(q.entries))
	for key, entry := range q.entries {
		snapshot[key] = entry.copy()
	}
	return snapshot
}

// Hydrate loads entries produced by Snapshot.
func (q *QidCache) Hydrate(entries map[string]QidEntry) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	for key, entry := range entries {
		q.entries[key] = entry.copy()
	}
}

func (q *QidCache) Clear() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	for _, timer := range q.timers {
		timer.Stop()
	}
	q.entries = map[string]QidEntry{}
	q.timers = map[string]*time.Timer{}
}
