package store

import (
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/fulldump/replica/query"
	"github.com/fulldump/replica/record"
	"github.com/fulldump/replica/storage"
)

type Options struct {
	IdField       string
	Whitelist     []string
	CustomFilters map[string]query.CustomFilter
}

// Params narrow a store read. Temps adds unsaved records to the candidates
// and Clones replaces every result by its clone.
type Params struct {
	Query  map[string]any
	Temps  bool
	Clones bool
}

// Store is the local copy of one service: three tiers of records queried with
// the query engine. Every write is announced to subscribers.
type Store struct {
	idField string
	tiers   *storage.Tiers
	engine  *query.Engine

	writeMutex *sync.Mutex

	subscribersMutex *sync.RWMutex
	subscribers      map[int]func(Change)
	nextSubscriber   int
}

func New(options Options) *Store {
	if options.IdField == "" {
		options.IdField = "id"
	}
	return &Store{
		idField: options.IdField,
		tiers:   storage.NewTiers(options.IdField),
		engine: query.NewEngine(query.Options{
			IdField:       options.IdField,
			Whitelist:     options.Whitelist,
			CustomFilters: options.CustomFilters,
		}),
		writeMutex:       &sync.Mutex{},
		subscribersMutex: &sync.RWMutex{},
		subscribers:      map[int]func(Change){},
	}
}

func (s *Store) IdField() string {
	return s.idField
}

func (s *Store) Tiers() *storage.Tiers {
	return s.tiers
}

func (s *Store) Engine() *query.Engine {
	return s.engine
}

// Original returns the stored item or temp r refers to, nil if none.
func (s *Store) Original(r *record.Record) *record.Record {
	return s.tiers.Original(r)
}

// FindInStore runs params.Query against Items, plus Temps if asked.
func (s *Store) FindInStore(params Params) (*query.Result, error) {

	values := s.tiers.Items.List()
	if params.Temps {
		values = append(values, s.tiers.Temps.List()...)
	}

	result, err := s.engine.Run(values, params.Query)
	if err != nil {
		return nil, err
	}

	if params.Clones {
		for i, r := range result.Data {
			clone, err := s.Clone(r, nil, true)
			if err != nil {
				return nil, err
			}
			result.Data[i] = clone
		}
	}

	return result, nil
}

func (s *Store) CountInStore(params Params) (int, error) {
	values := s.tiers.Items.List()
	if params.Temps {
		values = append(values, s.tiers.Temps.List()...)
	}
	return s.engine.Count(values, params.Query)
}

// GetFromStore returns the item with id or, failing that, the temp with that
// temp id. Nil when there is none.
func (s *Store) GetFromStore(id any, params Params) (*record.Record, error) {

	r := s.lookup(id)
	if r == nil {
		return nil, nil
	}

	if fields, ok := params.Query[query.KeySelect]; ok && fields != nil {
		result, err := s.engine.Run([]*record.Record{r}, map[string]any{query.KeySelect: fields})
		if err != nil {
			return nil, err
		}
		return result.Data[0], nil
	}

	return r, nil
}

func (s *Store) lookup(id any) *record.Record {
	key := record.Key(id)
	if r, ok := s.tiers.Items.Get(key); ok {
		return r
	}
	if r, ok := s.tiers.Temps.Get(key); ok {
		return r
	}
	return nil
}

// CreateInStore dispatches r to its tier and returns the stored record.
func (s *Store) CreateInStore(r *record.Record) (*record.Record, error) {
	s.writeMutex.Lock()
	stored, change, err := s.add(r)
	s.writeMutex.Unlock()
	if err != nil {
		return nil, err
	}
	s.emit(change)
	return stored, nil
}

// ReplaceInStore stores r like CreateInStore but the stored record ends up
// with exactly the fields of r, dropping the ones r does not carry.
func (s *Store) ReplaceInStore(r *record.Record) (*record.Record, error) {
	s.writeMutex.Lock()
	stored, change, err := s.add(r)
	if err == nil && stored != r {
		stored.Replace(r.Fields())
	}
	s.writeMutex.Unlock()
	if err != nil {
		return nil, err
	}
	s.emit(change)
	return stored, nil
}

func (s *Store) CreateManyInStore(records []*record.Record) ([]*record.Record, error) {
	result := make([]*record.Record, 0, len(records))
	for _, r := range records {
		stored, err := s.CreateInStore(r)
		if err != nil {
			return result, err
		}
		result = append(result, stored)
	}
	return result, nil
}

func (s *Store) add(r *record.Record) (*record.Record, Change, error) {

	existed := false
	if r.IsClone() {
		if key, ok := r.Key(s.idField); ok {
			existed = s.tiers.Clones.Has(key)
		}
	} else {
		existed = s.tiers.Original(r) != nil
	}

	stored, err := s.tiers.Add(r)
	if err != nil {
		return nil, Change{}, err
	}

	change := Change{
		Kind:   Added,
		Tier:   s.tierOf(stored),
		Record: stored,
	}
	if existed {
		change.Kind = Updated
	}
	return stored, change, nil
}

func (s *Store) tierOf(r *record.Record) Tier {
	if r.IsClone() {
		return Clones
	}
	if r.IsTemp(s.idField) {
		return Temps
	}
	return Items
}

// PatchInStore merges data into every target and stores them again. target
// can be an id, a record or a list of them. A nil target patches whatever
// params.Query matches, an empty query is refused.
func (s *Store) PatchInStore(target any, data map[string]any, params Params) ([]*record.Record, error) {

	var targets []*record.Record

	if target == nil {
		if len(query.Clean(params.Query)) == 0 {
			return nil, fmt.Errorf("%w: patch without target requires a query", query.ErrInvalidQuery)
		}
		result, err := s.FindInStore(Params{Query: params.Query, Temps: params.Temps})
		if err != nil {
			return nil, err
		}
		targets = result.Data
	} else {
		targets = s.resolve(target, false)
	}

	patched := make([]*record.Record, 0, len(targets))
	changes := make([]Change, 0, len(targets))

	s.writeMutex.Lock()
	for _, r := range targets {
		if len(data) > 0 {
			r.Assign(record.CloneFields(data))
		}
		stored, change, err := s.add(r)
		if err != nil {
			s.writeMutex.Unlock()
			s.emit(changes...)
			return patched, err
		}
		patched = append(patched, stored)
		changes = append(changes, change)
	}
	s.writeMutex.Unlock()

	s.emit(changes...)
	return patched, nil
}

// resolve turns ids and records into the stored records they refer to.
// Unknown ids are skipped.
func (s *Store) resolve(target any, withClones bool) []*record.Record {

	var list []any
	switch t := target.(type) {
	case []*record.Record:
		for _, r := range t {
			list = append(list, r)
		}
	case []any:
		list = t
	case []string:
		for _, id := range t {
			list = append(list, id)
		}
	default:
		list = []any{t}
	}

	result := make([]*record.Record, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case *record.Record:
			if v.IsClone() {
				if key, ok := v.Key(s.idField); ok {
					if clone, found := s.tiers.Clones.Get(key); found {
						result = append(result, clone)
						continue
					}
				}
				result = append(result, v)
				continue
			}
			if original := s.tiers.Original(v); original != nil {
				result = append(result, original)
				continue
			}
			result = append(result, v)
		case map[string]any:
			r := record.New(v)
			if original := s.tiers.Original(r); original != nil {
				result = append(result, original)
				continue
			}
			result = append(result, r)
		default:
			if r := s.lookup(v); r != nil {
				result = append(result, r)
				continue
			}
			if withClones {
				if clone, found := s.tiers.Clones.Get(record.Key(v)); found {
					result = append(result, clone)
				}
			}
		}
	}

	return result
}

// RemoveFromStore removes the target records and returns the ones actually
// removed. A nil target removes whatever params.Query matches across the
// three tiers, or everything when the query is empty.
func (s *Store) RemoveFromStore(target any, params Params) ([]*record.Record, error) {

	var targets []*record.Record

	if target == nil {
		if len(query.Clean(params.Query)) == 0 {
			removed := s.all()
			s.Clear()
			return removed, nil
		}
		result, err := s.engine.Run(s.all(), params.Query)
		if err != nil {
			return nil, err
		}
		targets = result.Data
	} else {
		targets = s.resolve(target, true)
	}

	removed := make([]*record.Record, 0, len(targets))
	changes := make([]Change, 0, len(targets))

	s.writeMutex.Lock()
	for _, r := range targets {
		tier := s.tierOf(r)
		if s.tiers.Remove(r) {
			removed = append(removed, r)
			changes = append(changes, Change{Kind: Removed, Tier: tier, Record: r})
		}
	}
	s.writeMutex.Unlock()

	s.emit(changes...)
	return removed, nil
}

func (s *Store) all() []*record.Record {
	all := s.tiers.Items.List()
	all = append(all, s.tiers.Temps.List()...)
	all = append(all, s.tiers.Clones.List()...)
	return all
}

func (s *Store) Clone(r *record.Record, data map[string]any, useExisting bool) (*record.Record, error) {
	s.writeMutex.Lock()
	clone, err := s.tiers.Clone(r, data, useExisting)
	s.writeMutex.Unlock()
	if err != nil {
		return nil, err
	}
	s.emit(Change{Kind: Updated, Tier: Clones, Record: clone})
	return clone, nil
}

func (s *Store) Commit(r *record.Record, data map[string]any) (*record.Record, error) {
	s.writeMutex.Lock()
	stored, err := s.tiers.Commit(r, data)
	s.writeMutex.Unlock()
	if err != nil {
		return nil, err
	}
	s.emit(Change{Kind: Updated, Tier: s.tierOf(stored), Record: stored})
	return stored, nil
}

func (s *Store) Reset(r *record.Record, data map[string]any) (*record.Record, error) {
	s.writeMutex.Lock()
	clone, err := s.tiers.Reset(r, data)
	s.writeMutex.Unlock()
	if err != nil {
		return nil, err
	}
	s.emit(Change{Kind: Updated, Tier: Clones, Record: clone})
	return clone, nil
}

// RestoreFields replaces the fields of a stored record, used to undo an eager
// update.
func (s *Store) RestoreFields(r *record.Record, fields map[string]any) {
	r.Replace(fields)
	s.emit(Change{Kind: Updated, Tier: s.tierOf(r), Record: r})
}

func (s *Store) Clear() {
	s.writeMutex.Lock()
	s.tiers.Clear()
	s.writeMutex.Unlock()
	s.emit(Change{Kind: Cleared})
}

func (s *Store) emit(changes ...Change) {
	if len(changes) == 0 {
		return
	}

	s.subscribersMutex.RLock()
	subscribers := make([]func(Change), 0, len(s.subscribers))
	for _, f := range s.subscribers {
		subscribers = append(subscribers, f)
	}
	s.subscribersMutex.RUnlock()

	for _, change := range changes {
		for _, f := range subscribers {
			notify(f, change)
		}
	}
}

func notify(f func(Change), change Change) {
	defer func() {
		if r := recover(); r != nil {
			glog.Warningf("[store] subscriber panic on %s: %v", change.Kind, r)
		}
	}()
	f(change)
}
