package pending

import (
	"sync"
	"time"
)

type Event string

const (
	Created Event = "created"
	Updated Event = "updated"
	Patched Event = "patched"
	Removed Event = "removed"
)

var Events = []Event{Created, Updated, Patched, Removed}

// EventFor is the event a mutation triggers, empty for reads.
func EventFor(method Method) Event {
	switch method {
	case Create:
		return Created
	case Update:
		return Updated
	case Patch:
		return Patched
	case Remove:
		return Removed
	}
	return ""
}

const DefaultLockTTL = 250 * time.Millisecond

type lockKey struct {
	id    string
	event Event
}

// EventLocks suppress the echo of a local mutation coming back as a push
// event. Every lock expires after ttl.
type EventLocks struct {
	mutex *sync.Mutex
	ttl   time.Duration
	locks map[lockKey]*time.Timer
}

func NewEventLocks(ttl time.Duration) *EventLocks {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &EventLocks{
		mutex: &sync.Mutex{},
		ttl:   ttl,
		locks: map[lockKey]*time.Timer{},
	}
}

// Toggle sets the lock, or clears it when it was already set. Returns
// whether the lock is set afterwards.
func (l *EventLocks) Toggle(id string, event Event) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	key := lockKey{id: id, event: event}
	if timer, exists := l.locks[key]; exists {
		timer.Stop()
		delete(l.locks, key)
		return false
	}

	var timer *time.Timer
	timer = time.AfterFunc(l.ttl, func() {
		l.mutex.Lock()
		defer l.mutex.Unlock()
		// a newer lock on the same key must survive
		if l.locks[key] == timer {
			delete(l.locks, key)
		}
	})
	l.locks[key] = timer
	return true
}

func (l *EventLocks) Clear(id string, event Event) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	key := lockKey{id: id, event: event}
	if timer, exists := l.locks[key]; exists {
		timer.Stop()
		delete(l.locks, key)
	}
}

func (l *EventLocks) IsLocked(id string, event Event) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	_, exists := l.locks[lockKey{id: id, event: event}]
	return exists
}

func (l *EventLocks) ClearAll() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	for key, timer := range l.locks {
		timer.Stop()
		delete(l.locks, key)
	}
}
