package storage

import (
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/fulldump/replica/record"
)

type entry struct {
	seq    uint64
	key    string
	record *record.Record
}

// Map is a keyed record collection. Iteration follows insertion order.
type Map struct {
	mutex   *sync.RWMutex
	GetID   func(r *record.Record) (string, bool)
	entries map[string]*entry
	order   *btree.BTreeG[*entry]
	seq     uint64

	// OnRead is applied to every record returned by Get and List.
	OnRead func(r *record.Record)
	// BeforeWrite is applied to every record before it is stored.
	BeforeWrite func(r *record.Record)
}

func NewMap(getID func(r *record.Record) (string, bool)) *Map {
	return &Map{
		mutex:   &sync.RWMutex{},
		GetID:   getID,
		entries: map[string]*entry{},
		order:   newOrder(),
	}
}

func newOrder() *btree.BTreeG[*entry] {
	return btree.NewG(32, func(a, b *entry) bool {
		return a.seq < b.seq
	})
}

func (m *Map) key(r *record.Record) (string, error) {
	key, ok := m.GetID(r)
	if !ok {
		return "", fmt.Errorf("%w: item has no id", record.ErrMissingIdentifier)
	}
	return key, nil
}

func (m *Map) read(r *record.Record) *record.Record {
	if m.OnRead != nil {
		m.OnRead(r)
	}
	return r
}

func (m *Map) Get(id string) (*record.Record, bool) {
	m.mutex.RLock()
	e, ok := m.entries[id]
	m.mutex.RUnlock()
	if !ok {
		return nil, false
	}
	return m.read(e.record), true
}

func (m *Map) Has(id string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.entries[id]
	return ok
}

// Set stores r, overwriting any record with the same id.
func (m *Map) Set(r *record.Record) (*record.Record, error) {
	key, err := m.key(r)
	if err != nil {
		return nil, err
	}
	if m.BeforeWrite != nil {
		m.BeforeWrite(r)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if e, exists := m.entries[key]; exists {
		e.record = r
		return r, nil
	}
	m.insert(key, r)
	return r, nil
}

func (m *Map) insert(key string, r *record.Record) {
	m.seq++
	e := &entry{seq: m.seq, key: key, record: r}
	m.entries[key] = e
	m.order.ReplaceOrInsert(e)
}

// Merge stores r when there is no record with the same id, otherwise it
// assigns r fields into the stored record, preserving its identity.
func (m *Map) Merge(r *record.Record) (*record.Record, error) {
	key, err := m.key(r)
	if err != nil {
		return nil, err
	}

	m.mutex.Lock()
	e, exists := m.entries[key]
	if !exists {
		if m.BeforeWrite != nil {
			m.BeforeWrite(r)
		}
		m.insert(key, r)
		m.mutex.Unlock()
		return r, nil
	}
	m.mutex.Unlock()

	stored := e.record
	if stored != r {
		stored.Assign(r.Document())
	}
	if m.BeforeWrite != nil {
		m.BeforeWrite(stored)
	}
	return m.read(stored), nil
}

func (m *Map) Remove(id string) (*record.Record, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	delete(m.entries, id)
	m.order.Delete(e)
	return e.record, true
}

func (m *Map) List() []*record.Record {
	m.mutex.RLock()
	list := make([]*record.Record, 0, len(m.entries))
	m.order.Ascend(func(e *entry) bool {
		list = append(list, e.record)
		return true
	})
	m.mutex.RUnlock()

	for _, r := range list {
		m.read(r)
	}
	return list
}

func (m *Map) IDs() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	ids := make([]string, 0, len(m.entries))
	m.order.Ascend(func(e *entry) bool {
		ids = append(ids, e.key)
		return true
	})
	return ids
}

func (m *Map) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.entries)
}

func (m *Map) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.entries = map[string]*entry{}
	m.order = newOrder()
}
