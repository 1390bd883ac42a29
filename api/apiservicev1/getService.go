package apiservicev1

import (
	"context"

	"github.com/fulldump/box"
)

func getService(ctx context.Context) (*ServiceResponse, error) {

	s, err := urlService(ctx)
	if err != nil {
		return nil, err
	}

	return &ServiceResponse{
		Name:  box.GetUrlParameter(ctx, "serviceName"),
		Total: s.Len(),
	}, nil
}
