package apiservicev1

import (
	"context"
	"net/http"
)

type createServiceRequest struct {
	Name string `json:"name"`
}

func createService(ctx context.Context, w http.ResponseWriter, input *createServiceRequest) (*ServiceResponse, error) {

	s, err := GetDatabase(ctx).CreateService(input.Name)
	if err != nil {
		return nil, err
	}

	w.WriteHeader(http.StatusCreated)
	return &ServiceResponse{
		Name:  input.Name,
		Total: s.Len(),
	}, nil
}
