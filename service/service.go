package service

import (
	"sync"
	"time"

	"github.com/fulldump/replica/hooks"
	"github.com/fulldump/replica/pagination"
	"github.com/fulldump/replica/pending"
	"github.com/fulldump/replica/query"
	"github.com/fulldump/replica/remote"
	"github.com/fulldump/replica/store"
)

// EventFilter decides whether a push event is applied to the store.
type EventFilter func(item map[string]any) bool

type Options struct {
	IdField string

	Whitelist     []string
	CustomFilters map[string]query.CustomFilter

	// DefaultLimit is the $limit of a find without one.
	DefaultLimit int

	EventLockTTL time.Duration
	QidCacheTTL  time.Duration

	// Ssr marks the service as running while rendering on a server: qid
	// responses are cached and pages are flagged.
	Ssr bool

	// HandleEvents overrides how push events are applied. A missing event
	// is applied as usual.
	HandleEvents map[string]EventFilter
	// DisableEvents ignores every push event.
	DisableEvents bool

	// Hooks run around the remote call, after the built in stages.
	Hooks []hooks.Hook[*Call]
}

func (o Options) withDefaults() Options {
	if o.IdField == "" {
		o.IdField = "id"
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 10
	}
	if o.EventLockTTL <= 0 {
		o.EventLockTTL = pending.DefaultLockTTL
	}
	if o.QidCacheTTL <= 0 {
		o.QidCacheTTL = 500 * time.Millisecond
	}
	return o
}

// Service binds a remote service to its local store. Every call goes through
// the reconciliation stages and its response is merged into the store.
type Service struct {
	options Options
	remote  remote.Service

	store      *store.Store
	pending    *pending.Tracker
	locks      *pending.EventLocks
	pagination *pagination.Cache
	qids       *QidCache

	handler hooks.Handler[*Call]

	offMutex *sync.Mutex
	offs     []func()
}

func New(r remote.Service, options Options) *Service {
	options = options.withDefaults()

	s := &Service{
		options: options,
		remote:  r,
		store: store.New(store.Options{
			IdField:       options.IdField,
			Whitelist:     options.Whitelist,
			CustomFilters: options.CustomFilters,
		}),
		pending:    pending.NewTracker(),
		locks:      pending.NewEventLocks(options.EventLockTTL),
		pagination: pagination.NewCache(options.IdField),
		qids:       NewQidCache(),
		offMutex:   &sync.Mutex{},
	}

	stages := []hooks.Hook[*Call]{
		s.normalizeParams,
		s.trackPending,
		s.eventLocks,
		s.syncStore,
		s.normalizeFind,
		s.skipGetIfExists,
		s.patchDiffing,
		s.qidCache,
	}
	stages = append(stages, options.Hooks...)
	s.handler = hooks.Compose(s.callRemote, stages...)

	if !options.DisableEvents {
		s.listen()
	}

	return s
}

func (s *Service) IdField() string {
	return s.options.IdField
}

func (s *Service) Store() *store.Store {
	return s.store
}

func (s *Service) Pending() *pending.Tracker {
	return s.pending
}

func (s *Service) Locks() *pending.EventLocks {
	return s.locks
}

func (s *Service) Pagination() *pagination.Cache {
	return s.pagination
}

func (s *Service) QidCache() *QidCache {
	return s.qids
}

func (s *Service) Remote() remote.Service {
	return s.remote
}

func (s *Service) Ssr() bool {
	return s.options.Ssr
}

// Close stops listening to push events. The store is kept.
func (s *Service) Close() {
	s.offMutex.Lock()
	offs := s.offs
	s.offs = nil
	s.offMutex.Unlock()

	for _, off := range offs {
		off()
	}
	s.locks.ClearAll()
}

// Reset empties the store and every cached state.
func (s *Service) Reset() {
	s.store.Clear()
	s.pending.ClearAll()
	s.locks.ClearAll()
	s.pagination.ClearAll()
	s.qids.Clear()
}
