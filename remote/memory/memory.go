package memory

import (
	"context"
	"fmt"
	"sync"

	jsonpatch "github.com/evanphx/json-patch"
	jsonv2 "github.com/go-json-experiment/json"
	"github.com/google/uuid"

	"github.com/fulldump/replica/query"
	"github.com/fulldump/replica/record"
	"github.com/fulldump/replica/remote"
	"github.com/fulldump/replica/storage"
)

type Paginate struct {
	Default int
	Max     int
}

type Options struct {
	IdField string

	// Paginate enables paginated find responses when Default is not zero.
	Paginate Paginate

	// NewID generates identifiers for created documents lacking one.
	NewID func() any

	Whitelist []string
}

// Service is a remote.Service keeping documents in memory. Events are emitted
// synchronously, before the mutating call returns.
type Service struct {
	*remote.Emitter

	mutex   *sync.Mutex
	options Options
	docs    *storage.Map
	engine  *query.Engine
}

func New(options Options) *Service {
	if options.IdField == "" {
		options.IdField = "id"
	}
	if options.NewID == nil {
		options.NewID = func() any {
			return uuid.NewString()
		}
	}

	idField := options.IdField

	return &Service{
		Emitter: remote.NewEmitter(),
		mutex:   &sync.Mutex{},
		options: options,
		docs: storage.NewMap(func(r *record.Record) (string, bool) {
			id, ok := r.ID(idField)
			if !ok {
				return "", false
			}
			return record.Key(id), true
		}),
		engine: query.NewEngine(query.Options{
			IdField:   idField,
			Whitelist: options.Whitelist,
		}),
	}
}

func (s *Service) IdField() string {
	return s.options.IdField
}

func (s *Service) Len() int {
	return s.docs.Len()
}

func (s *Service) Find(ctx context.Context, params remote.Params) (*remote.Page, error) {

	q := map[string]any{}
	for key, value := range params.Query {
		q[key] = value
	}

	paginate := s.options.Paginate
	if paginate.Default > 0 {
		limit := paginate.Default
		if v, ok := q[query.KeyLimit]; ok {
			if n, ok := record.ToFloat(v); ok && n >= 0 {
				limit = int(n)
			}
		}
		if paginate.Max > 0 && limit > paginate.Max {
			limit = paginate.Max
		}
		q[query.KeyLimit] = limit
	}

	result, err := s.engine.Run(s.docs.List(), q)
	if err != nil {
		return nil, err
	}

	page := &remote.Page{
		Data:      make([]map[string]any, len(result.Data)),
		Total:     result.Total,
		Limit:     result.Limit,
		Skip:      result.Skip,
		Paginated: paginate.Default > 0,
	}
	for i, r := range result.Data {
		page.Data[i] = r.Wire()
	}

	return page, nil
}

func (s *Service) Get(ctx context.Context, id any, params remote.Params) (map[string]any, error) {

	r, ok := s.docs.Get(record.Key(id))
	if !ok {
		return nil, &remote.NotFoundError{ID: id}
	}

	if fields, ok := params.Query[query.KeySelect]; ok && fields != nil {
		result, err := s.engine.Run([]*record.Record{r}, map[string]any{query.KeySelect: fields})
		if err != nil {
			return nil, err
		}
		r = result.Data[0]
	}

	return r.Wire(), nil
}

func (s *Service) Create(ctx context.Context, data map[string]any, params remote.Params) (map[string]any, error) {

	doc := wireFields(data)
	if id, ok := doc[s.options.IdField]; !ok || id == nil {
		doc[s.options.IdField] = s.options.NewID()
	}

	s.mutex.Lock()
	if _, err := s.docs.Set(record.New(doc)); err != nil {
		s.mutex.Unlock()
		return nil, fmt.Errorf("create: %w", err)
	}
	s.mutex.Unlock()

	s.Emit(remote.EventCreated, record.CloneFields(doc))
	return record.CloneFields(doc), nil
}

func (s *Service) Update(ctx context.Context, id any, data map[string]any, params remote.Params) (map[string]any, error) {

	s.mutex.Lock()
	r, ok := s.docs.Get(record.Key(id))
	if !ok {
		s.mutex.Unlock()
		return nil, &remote.NotFoundError{ID: id}
	}
	doc := wireFields(data)
	doc[s.options.IdField], _ = r.ID(s.options.IdField)
	r.Replace(doc)
	result := r.Wire()
	s.mutex.Unlock()

	s.Emit(remote.EventUpdated, record.CloneFields(result))
	return result, nil
}

// Patch applies data as a JSON merge patch: null removes a field, objects
// are merged recursively.
func (s *Service) Patch(ctx context.Context, id any, data map[string]any, params remote.Params) (map[string]any, error) {

	s.mutex.Lock()
	r, ok := s.docs.Get(record.Key(id))
	if !ok {
		s.mutex.Unlock()
		return nil, &remote.NotFoundError{ID: id}
	}

	originalID, _ := r.ID(s.options.IdField)
	patched, err := mergePatch(r.Wire(), wireFields(data))
	if err != nil {
		s.mutex.Unlock()
		return nil, fmt.Errorf("patch: %w", err)
	}
	patched[s.options.IdField] = originalID
	r.Replace(patched)
	result := r.Wire()
	s.mutex.Unlock()

	s.Emit(remote.EventPatched, record.CloneFields(result))
	return result, nil
}

func (s *Service) Remove(ctx context.Context, id any, params remote.Params) (map[string]any, error) {

	s.mutex.Lock()
	r, ok := s.docs.Remove(record.Key(id))
	s.mutex.Unlock()
	if !ok {
		return nil, &remote.NotFoundError{ID: id}
	}

	result := r.Wire()
	s.Emit(remote.EventRemoved, record.CloneFields(result))
	return result, nil
}

func mergePatch(doc, patch map[string]any) (map[string]any, error) {
	docBytes, err := jsonv2.Marshal(doc)
	if err != nil {
		return nil, err
	}
	patchBytes, err := jsonv2.Marshal(patch)
	if err != nil {
		return nil, err
	}
	merged, err := jsonpatch.MergePatch(docBytes, patchBytes)
	if err != nil {
		return nil, err
	}
	result := map[string]any{}
	if err := jsonv2.Unmarshal(merged, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// wireFields copies data without the reserved record fields.
func wireFields(data map[string]any) map[string]any {
	doc := record.CloneFields(data)
	if doc == nil {
		doc = map[string]any{}
	}
	delete(doc, record.TempIDField)
	delete(doc, record.IsCloneField)
	delete(doc, record.IsTempField)
	return doc
}
