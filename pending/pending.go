package pending

import (
	"sync"
)

type Method string

const (
	Find   Method = "find"
	Count  Method = "count"
	Get    Method = "get"
	Create Method = "create"
	Update Method = "update"
	Patch  Method = "patch"
	Remove Method = "remove"
)

var Methods = []Method{Find, Count, Get, Create, Update, Patch, Remove}

// Tracker holds pending flags per method and per record id. Flags are plain
// booleans: two overlapping calls of the same method share one flag and the
// first one to settle clears it.
type Tracker struct {
	mutex    *sync.RWMutex
	inFlight int
	methods  map[Method]bool
	byID     map[string]map[Method]bool
}

func NewTracker() *Tracker {
	return &Tracker{
		mutex:   &sync.RWMutex{},
		methods: map[Method]bool{},
		byID:    map[string]map[Method]bool{},
	}
}

// SetPending flags a method and counts the call as in flight while pending,
// uncounting it otherwise. The counter never goes below zero.
func (t *Tracker) SetPending(method Method, pending bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.methods[method] = pending
	if pending {
		t.inFlight++
	} else if t.inFlight > 0 {
		t.inFlight--
	}
}

func (t *Tracker) SetPendingByID(id string, method Method, pending bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	methods, ok := t.byID[id]
	if !ok {
		if !pending {
			return
		}
		methods = map[Method]bool{}
		t.byID[id] = methods
	}
	methods[method] = pending
}

// UnsetPendingByID forgets every flag of id.
func (t *Tracker) UnsetPendingByID(id string) {
	t.mutex.Lock()
	delete(t.byID, id)
	t.mutex.Unlock()
}

func (t *Tracker) IsPending(method Method) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.methods[method]
}

// IsPendingByID tells if method is pending for id. Without methods it
// tells if any method is.
func (t *Tracker) IsPendingByID(id string, methods ...Method) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	flags := t.byID[id]
	if len(methods) == 0 {
		for _, pending := range flags {
			if pending {
				return true
			}
		}
		return false
	}
	for _, method := range methods {
		if flags[method] {
			return true
		}
	}
	return false
}

// InFlight is the number of calls started and not yet settled.
func (t *Tracker) InFlight() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.inFlight
}

func (t *Tracker) IsAnyPending() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	for _, pending := range t.methods {
		if pending {
			return true
		}
	}
	return false
}

func (t *Tracker) ClearAll() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.inFlight = 0
	t.methods = map[Method]bool{}
	t.byID = map[string]map[Method]bool{}
}
