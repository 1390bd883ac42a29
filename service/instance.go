package service

import (
	"context"
	"fmt"

	"github.com/fulldump/replica/query"
	"github.com/fulldump/replica/record"
	"github.com/fulldump/replica/store"
)

// New builds an unsaved record. Without identifier it gets a temp id. It is
// not stored until CreateInStore or Save.
func (s *Service) New(fields map[string]any) *record.Record {
	r := record.New(record.CloneFields(fields))
	if r.IsTemp(s.options.IdField) && r.TempID() == "" {
		r.SetTempID(record.NewTempID())
	}
	return r
}

// Save creates temps and patches items.
func (s *Service) Save(ctx context.Context, r *record.Record, params Params) (*record.Record, error) {
	if r.IsTemp(s.options.IdField) {
		return s.Create(ctx, r, params)
	}
	return s.PatchRecord(ctx, r, params)
}

// PatchRecord patches r by its own identifier.
func (s *Service) PatchRecord(ctx context.Context, r *record.Record, params Params) (*record.Record, error) {
	id, ok := r.ID(s.options.IdField)
	if !ok {
		return nil, fmt.Errorf("patch: %w", record.ErrMissingIdentifier)
	}
	return s.Patch(ctx, id, r, params)
}

// RemoveRecord removes r remotely, temps are only removed from the store.
func (s *Service) RemoveRecord(ctx context.Context, r *record.Record, params Params) (*record.Record, error) {
	id, ok := r.ID(s.options.IdField)
	if !ok {
		removed, err := s.store.RemoveFromStore(r, store.Params{})
		if err != nil || len(removed) == 0 {
			return nil, err
		}
		return removed[0], nil
	}
	return s.Remove(ctx, id, params)
}

func (s *Service) FindInStore(params Params) (*query.Result, error) {
	return s.store.FindInStore(store.Params{Query: params.Query, Temps: params.Temps, Clones: params.Clones})
}

func (s *Service) CountInStore(params Params) (int, error) {
	return s.store.CountInStore(store.Params{Query: params.Query, Temps: params.Temps})
}

func (s *Service) GetFromStore(id any, params Params) (*record.Record, error) {
	return s.store.GetFromStore(id, store.Params{Query: params.Query})
}

func (s *Service) CreateInStore(r *record.Record) (*record.Record, error) {
	return s.store.CreateInStore(r)
}

func (s *Service) PatchInStore(target any, data map[string]any, params Params) ([]*record.Record, error) {
	return s.store.PatchInStore(target, data, store.Params{Query: params.Query, Temps: params.Temps})
}

func (s *Service) RemoveFromStore(target any, params Params) ([]*record.Record, error) {
	return s.store.RemoveFromStore(target, store.Params{Query: params.Query})
}

func (s *Service) Clone(r *record.Record, data map[string]any, useExisting bool) (*record.Record, error) {
	return s.store.Clone(r, data, useExisting)
}

func (s *Service) Commit(r *record.Record, data map[string]any) (*record.Record, error) {
	return s.store.Commit(r, data)
}

func (s *Service) ResetClone(r *record.Record, data map[string]any) (*record.Record, error) {
	return s.store.Reset(r, data)
}
