package livequery

import (
	"sync"

	"github.com/golang/glog"
)

type observers struct {
	mutex *sync.RWMutex
	next  int
	funcs map[int]func()
}

func newObservers() *observers {
	return &observers{
		mutex: &sync.RWMutex{},
		funcs: map[int]func(){},
	}
}

func (o *observers) add(f func()) (off func()) {
	o.mutex.Lock()
	id := o.next
	o.next++
	o.funcs[id] = f
	o.mutex.Unlock()

	return func() {
		o.mutex.Lock()
		delete(o.funcs, id)
		o.mutex.Unlock()
	}
}

func (o *observers) notify() {
	o.mutex.RLock()
	funcs := make([]func(), 0, len(o.funcs))
	for _, f := range o.funcs {
		funcs = append(funcs, f)
	}
	o.mutex.RUnlock()

	for _, f := range funcs {
		call(f)
	}
}

func (o *observers) clear() {
	o.mutex.Lock()
	o.funcs = map[int]func(){}
	o.mutex.Unlock()
}

func call(f func()) {
	defer func() {
		if r := recover(); r != nil {
			glog.Warningf("[livequery] observer panic: %v", r)
		}
	}()
	f()
}
