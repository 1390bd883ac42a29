package apiservicev1

import (
	"context"

	"github.com/fulldump/replica/remote"
)

// find answers a page, or a plain list when the service does not paginate.
func find(ctx context.Context, input *remote.Request) (any, error) {

	s, err := urlService(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.Find(ctx, remote.Params{Query: input.Query})
	if err != nil {
		return nil, err
	}

	if !page.Paginated {
		return page.Data, nil
	}
	return page, nil
}
