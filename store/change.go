package store

import (
	"github.com/fulldump/replica/record"
)

type ChangeKind string

const (
	Added   ChangeKind = "added"
	Updated ChangeKind = "updated"
	Removed ChangeKind = "removed"
	Cleared ChangeKind = "cleared"
)

type Tier string

const (
	Items  Tier = "items"
	Temps  Tier = "temps"
	Clones Tier = "clones"
)

// Change describes a write into the store. Record is the stored instance, so
// it keeps reflecting later mutations. Cleared changes carry no record.
type Change struct {
	Kind   ChangeKind
	Tier   Tier
	Record *record.Record
}

// Subscribe registers f to be called after every write. The returned
// function unsubscribes it.
func (s *Store) Subscribe(f func(Change)) (unsubscribe func()) {
	s.subscribersMutex.Lock()
	id := s.nextSubscriber
	s.nextSubscriber++
	s.subscribers[id] = f
	s.subscribersMutex.Unlock()

	return func() {
		s.subscribersMutex.Lock()
		delete(s.subscribers, id)
		s.subscribersMutex.Unlock()
	}
}
