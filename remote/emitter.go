package remote

import (
	"sync"

	"github.com/golang/glog"
)

type listener struct {
	id      int
	handler EventHandler
}

// Emitter dispatches events to handlers synchronously, in subscription order.
type Emitter struct {
	mutex     *sync.RWMutex
	listeners map[string][]listener
	nextID    int
}

func NewEmitter() *Emitter {
	return &Emitter{
		mutex:     &sync.RWMutex{},
		listeners: map[string][]listener{},
	}
}

func (e *Emitter) On(event string, handler EventHandler) (off func()) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners[event] = append(e.listeners[event], listener{id: id, handler: handler})

	return func() {
		e.mutex.Lock()
		defer e.mutex.Unlock()
		list := e.listeners[event]
		for i, l := range list {
			if l.id == id {
				e.listeners[event] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func (e *Emitter) Emit(event string, data map[string]any) {
	e.mutex.RLock()
	handlers := e.listeners[event]
	e.mutex.RUnlock()

	for _, l := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					glog.Warningf("[emitter] handler for '%s' panicked: %v", event, r)
				}
			}()
			l.handler(data)
		}()
	}
}

func (e *Emitter) RemoveAll() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.listeners = map[string][]listener{}
}
