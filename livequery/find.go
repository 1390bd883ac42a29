package livequery

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/fulldump/replica/pagination"
	"github.com/fulldump/replica/query"
	"github.com/fulldump/replica/record"
	"github.com/fulldump/replica/service"
	"github.com/fulldump/replica/store"
)

// PaginateOn tells where the pages of a live query come from.
type PaginateOn string

const (
	// PaginateOnClient pages over the local store.
	PaginateOnClient PaginateOn = "client"
	// PaginateOnServer shows the ids of the page the remote service returned.
	PaginateOnServer PaginateOn = "server"
	// PaginateOnHybrid pages locally but takes the total from the server.
	PaginateOnHybrid PaginateOn = "hybrid"
)

const DefaultDebounce = 100 * time.Millisecond

type Options struct {
	Qid        string
	PaginateOn PaginateOn

	// Limit and Skip of the first page, $limit and $skip in the query win.
	Limit int
	Skip  int

	// Temps includes unsaved records in local results.
	Temps bool

	// Debounce collapses remote requests issued within the window.
	Debounce time.Duration
	// Immediate requests the first page once created.
	Immediate bool
	// Watch requests again whenever the query or the page changes.
	Watch bool
}

func (o Options) withDefaults() Options {
	if o.PaginateOn == "" {
		o.PaginateOn = PaginateOnClient
	}
	if o.Limit <= 0 {
		o.Limit = 10
	}
	if o.Skip < 0 {
		o.Skip = 0
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	return o
}

// Find is a query kept up to date against the store of a service. Local
// results are recomputed on every store write, remote requests are debounced
// and only the latest one is applied.
type Find struct {
	mutex   *sync.RWMutex
	service *service.Service
	options Options
	ctx     context.Context
	cancel  context.CancelFunc

	query map[string]any
	page  pagination.PageData
	data  []*record.Record

	isPending         bool
	haveBeenRequested bool
	haveLoaded        bool
	err               error

	latest     string
	lastResult *query.Result
	timer      *time.Timer
	closed     bool

	unsubscribe func()
	observers   *observers
}

func NewFind(ctx context.Context, s *service.Service, q map[string]any, options Options) *Find {
	options = options.withDefaults()
	ctx, cancel := context.WithCancel(ctx)

	f := &Find{
		mutex:     &sync.RWMutex{},
		service:   s,
		options:   options,
		ctx:       ctx,
		cancel:    cancel,
		observers: newObservers(),
	}
	f.query, f.page = splitPage(q, options.Limit, options.Skip)

	f.unsubscribe = s.Store().Subscribe(func(store.Change) {
		f.refresh()
	})
	f.adoptSsr()
	f.refresh()

	if options.Immediate {
		f.schedule()
	}

	return f
}

func splitPage(q map[string]any, limit, skip int) (map[string]any, pagination.PageData) {
	base := record.CloneFields(q)
	if base == nil {
		base = map[string]any{}
	}
	if n, ok := record.ToFloat(base[query.KeyLimit]); ok {
		limit = int(n)
	}
	if n, ok := record.ToFloat(base[query.KeySkip]); ok {
		skip = int(n)
	}
	delete(base, query.KeyLimit)
	delete(base, query.KeySkip)
	return base, pagination.PageData{Limit: limit, Skip: skip}
}

// requestQuery is the query plus the current page, it must be called with the
// mutex held.
func (f *Find) requestQuery() map[string]any {
	q := record.CloneFields(f.query)
	q[query.KeyLimit] = f.page.Limit
	q[query.KeySkip] = f.page.Skip
	return q
}

// adoptSsr takes over a page rendered on the server, the client will fetch
// it again by itself.
func (f *Find) adoptSsr() {
	if f.options.PaginateOn == PaginateOnClient {
		return
	}
	f.mutex.RLock()
	q := f.requestQuery()
	f.mutex.RUnlock()

	info, err := pagination.GetQueryInfo(f.options.Qid, q, nil)
	if err != nil {
		return
	}
	if _, page := f.service.Pagination().Lookup(info); page != nil && page.Ssr {
		f.service.Pagination().UnflagSsr(info)
		f.mutex.Lock()
		f.haveLoaded = true
		f.mutex.Unlock()
	}
}

func (f *Find) refresh() {
	f.mutex.RLock()
	q := f.requestQuery()
	mode := f.options.PaginateOn
	last := f.lastResult
	f.mutex.RUnlock()

	var data []*record.Record
	total := 0

	local := func() bool {
		result, err := f.service.FindInStore(service.Params{Query: q, Temps: f.options.Temps})
		if err != nil {
			glog.V(2).Infof("[livequery] local query failed: %s", err.Error())
			return false
		}
		data, total = result.Data, result.Total
		return true
	}

	switch mode {
	case PaginateOnServer:
		if info := f.serverPage(q); info != nil {
			data, total = info.Items, info.Total
		} else if last != nil {
			data, total = f.alive(last.Data), last.Total
		}
	case PaginateOnHybrid:
		if !local() {
			return
		}
		if info := f.serverPage(q); info != nil {
			total = info.Total
		} else if last != nil {
			total = last.Total
		}
	default:
		if !local() {
			return
		}
	}

	if data == nil {
		data = []*record.Record{}
	}

	f.mutex.Lock()
	f.data = data
	f.page.Total = total
	f.mutex.Unlock()

	f.observers.notify()
}

func (f *Find) serverPage(q map[string]any) *pagination.ExtendedInfo {
	info, err := pagination.GetQueryInfo(f.options.Qid, q, nil)
	if err != nil {
		return nil
	}
	return f.service.Pagination().ExtendedInfo(info, f.lookup, 0)
}

func (f *Find) lookup(id any) *record.Record {
	r, _ := f.service.GetFromStore(id, service.Params{})
	return r
}

// alive drops the records evicted from the store since they were fetched.
func (f *Find) alive(records []*record.Record) []*record.Record {
	idField := f.service.IdField()
	result := make([]*record.Record, 0, len(records))
	for _, r := range records {
		id, ok := r.ID(idField)
		if !ok {
			continue
		}
		if stored := f.lookup(id); stored != nil {
			result = append(result, stored)
		}
	}
	return result
}

// Find requests the current page from the remote service. A request
// superseded by a newer one is not applied. The error is also kept in Error.
func (f *Find) Find(ctx context.Context) error {

	f.mutex.Lock()
	q := f.requestQuery()
	fingerprint, err := pagination.Fingerprint(q)
	if err != nil {
		f.err = err
		f.mutex.Unlock()
		f.observers.notify()
		return err
	}
	f.latest = fingerprint
	f.isPending = true
	f.haveBeenRequested = true
	f.mutex.Unlock()
	f.observers.notify()

	result, err := f.service.Find(ctx, service.Params{
		Query: q,
		Qid:   f.options.Qid,
	})

	f.mutex.Lock()
	if f.latest != fingerprint {
		f.mutex.Unlock()
		glog.V(2).Infof("[livequery] superseded result for %s ignored", fingerprint)
		return err
	}
	f.isPending = false
	f.err = err
	if err == nil {
		f.haveLoaded = true
		f.lastResult = result
	}
	f.mutex.Unlock()

	f.refresh()
	return err
}

func (f *Find) schedule() {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.closed {
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.options.Debounce, func() {
		f.Find(f.ctx)
	})
}

// changed recomputes local results right away and, when watching, requests
// the new page after the debounce window.
func (f *Find) changed() {
	f.refresh()
	if f.options.Watch {
		f.schedule()
	}
}

func (f *Find) Data() []*record.Record {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return append([]*record.Record{}, f.data...)
}

func (f *Find) Query() map[string]any {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return record.CloneFields(f.query)
}

// SetQuery replaces the query and goes back to the first page.
func (f *Find) SetQuery(q map[string]any) {
	f.mutex.Lock()
	base, page := splitPage(q, f.page.Limit, 0)
	f.query = base
	f.page.Limit = page.Limit
	f.page.Skip = page.Skip
	f.mutex.Unlock()
	f.changed()
}

func (f *Find) PageData() pagination.PageData {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.page
}

func (f *Find) Total() int {
	return f.PageData().Total
}

func (f *Find) Limit() int {
	return f.PageData().Limit
}

func (f *Find) Skip() int {
	return f.PageData().Skip
}

func (f *Find) CurrentPage() int {
	p := f.PageData()
	return p.CurrentPage()
}

func (f *Find) PageCount() int {
	p := f.PageData()
	return p.PageCount()
}

func (f *Find) CanNext() bool {
	p := f.PageData()
	return p.CanNext()
}

func (f *Find) CanPrev() bool {
	p := f.PageData()
	return p.CanPrev()
}

func (f *Find) move(m func(p *pagination.PageData)) {
	f.mutex.Lock()
	before := f.page.Skip
	m(&f.page)
	moved := f.page.Skip != before
	f.mutex.Unlock()
	if moved {
		f.changed()
	}
}

func (f *Find) Next() {
	f.move((*pagination.PageData).Next)
}

func (f *Find) Prev() {
	f.move((*pagination.PageData).Prev)
}

func (f *Find) ToStart() {
	f.move((*pagination.PageData).ToStart)
}

func (f *Find) ToEnd() {
	f.move((*pagination.PageData).ToEnd)
}

func (f *Find) ToPage(page int) {
	f.move(func(p *pagination.PageData) {
		p.ToPage(page)
	})
}

func (f *Find) IsPending() bool {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.isPending
}

func (f *Find) HaveBeenRequested() bool {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.haveBeenRequested
}

func (f *Find) HaveLoaded() bool {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.haveLoaded
}

// Error is the error of the last applied request.
func (f *Find) Error() error {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.err
}

// OnChange registers a callback run after every recomputation.
func (f *Find) OnChange(callback func()) (off func()) {
	return f.observers.add(callback)
}

// Close stops following the store and cancels pending requests.
func (f *Find) Close() {
	f.mutex.Lock()
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
	}
	f.mutex.Unlock()

	f.cancel()
	f.unsubscribe()
	f.observers.clear()
}
