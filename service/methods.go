package service

import (
	"context"
	"fmt"

	"github.com/fulldump/replica/pending"
	"github.com/fulldump/replica/query"
	"github.com/fulldump/replica/record"
)

func (s *Service) Find(ctx context.Context, params Params) (*query.Result, error) {
	c := &Call{Method: pending.Find, Params: params}
	if err := s.handler(ctx, c); err != nil {
		return nil, err
	}
	if c.Page == nil {
		c.Page = &query.Result{Data: []*record.Record{}}
	}
	return c.Page, nil
}

// Count asks the remote service how many records match params.Query.
func (s *Service) Count(ctx context.Context, params Params) (int, error) {
	c := &Call{Method: pending.Count, Params: params}
	if err := s.handler(ctx, c); err != nil {
		return 0, err
	}
	return c.Count, nil
}

func (s *Service) Get(ctx context.Context, id any, params Params) (*record.Record, error) {
	if id == nil {
		return nil, fmt.Errorf("get: %w", record.ErrMissingIdentifier)
	}
	c := &Call{Method: pending.Get, ID: id, Params: params}
	if err := s.handler(ctx, c); err != nil {
		return nil, err
	}
	return c.Result, nil
}

// Create sends r to the remote service. When r carries a temp id the stored
// response keeps it and the temp is promoted to an item.
func (s *Service) Create(ctx context.Context, r *record.Record, params Params) (*record.Record, error) {
	c := &Call{
		Method: pending.Create,
		Params: params,
		Record: r,
		Data:   r.Wire(),
		tempID: r.TempID(),
	}
	if err := s.handler(ctx, c); err != nil {
		return nil, err
	}
	return c.Result, nil
}

// Update replaces the remote record. A nil id is taken from r.
func (s *Service) Update(ctx context.Context, id any, r *record.Record, params Params) (*record.Record, error) {
	c, err := s.mutation(pending.Update, id, r, params)
	if err != nil {
		return nil, err
	}
	if err := s.handler(ctx, c); err != nil {
		return nil, err
	}
	return c.Result, nil
}

// Patch sends r fields to the remote service. A clone is diffed against its
// original and only the changes are sent. A nil id is taken from r.
func (s *Service) Patch(ctx context.Context, id any, r *record.Record, params Params) (*record.Record, error) {
	c, err := s.mutation(pending.Patch, id, r, params)
	if err != nil {
		return nil, err
	}
	if err := s.handler(ctx, c); err != nil {
		return nil, err
	}
	return c.Result, nil
}

func (s *Service) mutation(method pending.Method, id any, r *record.Record, params Params) (*Call, error) {
	if id == nil && r != nil {
		id, _ = r.ID(s.options.IdField)
	}
	if id == nil {
		return nil, fmt.Errorf("%s: %w", method, record.ErrMissingIdentifier)
	}
	if r == nil {
		r = record.New(nil)
	}
	return &Call{
		Method: method,
		ID:     id,
		Params: params,
		Record: r,
		Data:   r.Wire(),
	}, nil
}

func (s *Service) Remove(ctx context.Context, id any, params Params) (*record.Record, error) {
	if id == nil {
		return nil, fmt.Errorf("remove: %w", record.ErrMissingIdentifier)
	}
	c := &Call{Method: pending.Remove, ID: id, Params: params}
	if err := s.handler(ctx, c); err != nil {
		return nil, err
	}
	return c.Result, nil
}
