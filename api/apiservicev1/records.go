package apiservicev1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fulldump/replica/record"
	"github.com/fulldump/replica/remote"
)

func requireID(input *remote.Request) error {
	if input.ID == nil {
		return fmt.Errorf("id: %w", record.ErrMissingIdentifier)
	}
	return nil
}

func get(ctx context.Context, input *remote.Request) (map[string]any, error) {

	if err := requireID(input); err != nil {
		return nil, err
	}
	s, err := urlService(ctx)
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, input.ID, remote.Params{Query: input.Query})
}

func create(ctx context.Context, w http.ResponseWriter, input *remote.Request) (map[string]any, error) {

	s, err := urlService(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.Create(ctx, input.Data, remote.Params{Query: input.Query})
	if err != nil {
		return nil, err
	}

	w.WriteHeader(http.StatusCreated)
	return result, nil
}

func update(ctx context.Context, input *remote.Request) (map[string]any, error) {

	if err := requireID(input); err != nil {
		return nil, err
	}
	s, err := urlService(ctx)
	if err != nil {
		return nil, err
	}

	return s.Update(ctx, input.ID, input.Data, remote.Params{Query: input.Query})
}

func patch(ctx context.Context, input *remote.Request) (map[string]any, error) {

	if err := requireID(input); err != nil {
		return nil, err
	}
	s, err := urlService(ctx)
	if err != nil {
		return nil, err
	}

	return s.Patch(ctx, input.ID, input.Data, remote.Params{Query: input.Query})
}

func remove(ctx context.Context, input *remote.Request) (map[string]any, error) {

	if err := requireID(input); err != nil {
		return nil, err
	}
	s, err := urlService(ctx)
	if err != nil {
		return nil, err
	}

	return s.Remove(ctx, input.ID, remote.Params{Query: input.Query})
}
