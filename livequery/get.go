package livequery

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/fulldump/replica/record"
	"github.com/fulldump/replica/service"
	"github.com/fulldump/replica/store"
)

type GetOptions struct {
	Qid string
	// Immediate requests the record once created and on every SetID.
	Immediate bool
	// SkipRequestIfExists answers from the store when the record is there.
	SkipRequestIfExists bool
}

// Get is a single record, by id, kept up to date against the store.
type Get struct {
	mutex   *sync.RWMutex
	service *service.Service
	options GetOptions
	ctx     context.Context
	cancel  context.CancelFunc

	id   any
	data *record.Record

	isPending         bool
	haveBeenRequested bool
	haveLoaded        bool
	err               error
	requests          uint64

	unsubscribe func()
	observers   *observers
}

func NewGet(ctx context.Context, s *service.Service, id any, options GetOptions) *Get {
	ctx, cancel := context.WithCancel(ctx)

	g := &Get{
		mutex:     &sync.RWMutex{},
		service:   s,
		options:   options,
		ctx:       ctx,
		cancel:    cancel,
		id:        id,
		observers: newObservers(),
	}

	g.unsubscribe = s.Store().Subscribe(func(store.Change) {
		g.refresh()
	})
	g.refresh()

	if options.Immediate && id != nil {
		go g.Get(g.ctx)
	}

	return g
}

func (g *Get) refresh() {
	g.mutex.RLock()
	id := g.id
	g.mutex.RUnlock()

	var r *record.Record
	if id != nil {
		r, _ = g.service.GetFromStore(id, service.Params{})
	}

	g.mutex.Lock()
	g.data = r
	g.mutex.Unlock()

	g.observers.notify()
}

// Get requests the record from the remote service. When the id changed
// meanwhile the response is not applied.
func (g *Get) Get(ctx context.Context) (*record.Record, error) {

	g.mutex.Lock()
	id := g.id
	g.requests++
	request := g.requests
	g.isPending = true
	g.haveBeenRequested = true
	g.mutex.Unlock()
	g.observers.notify()

	r, err := g.service.Get(ctx, id, service.Params{
		Qid:                 g.options.Qid,
		SkipRequestIfExists: g.options.SkipRequestIfExists,
	})

	g.mutex.Lock()
	if g.requests != request {
		g.mutex.Unlock()
		glog.V(2).Infof("[livequery] superseded get of '%v' ignored", id)
		return r, err
	}
	g.isPending = false
	g.err = err
	if err == nil {
		g.haveLoaded = true
	}
	g.mutex.Unlock()

	g.refresh()
	return r, err
}

func (g *Get) ID() any {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.id
}

// SetID points the live record to another id.
func (g *Get) SetID(id any) {
	g.mutex.Lock()
	g.id = id
	g.requests++
	g.isPending = false
	g.haveLoaded = false
	g.err = nil
	g.mutex.Unlock()

	g.refresh()
	if g.options.Immediate && id != nil {
		go g.Get(g.ctx)
	}
}

// Data is the stored record, nil until it is in the store.
func (g *Get) Data() *record.Record {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.data
}

func (g *Get) IsPending() bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.isPending
}

func (g *Get) HaveBeenRequested() bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.haveBeenRequested
}

func (g *Get) HaveLoaded() bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.haveLoaded
}

func (g *Get) Error() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.err
}

func (g *Get) OnChange(callback func()) (off func()) {
	return g.observers.add(callback)
}

func (g *Get) Close() {
	g.cancel()
	g.unsubscribe()
	g.observers.clear()
}
