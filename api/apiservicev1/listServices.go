package apiservicev1

import (
	"context"
)

func listServices(ctx context.Context) ([]*ServiceResponse, error) {

	db := GetDatabase(ctx)

	result := []*ServiceResponse{}
	for _, name := range db.ListServices() {
		s, err := db.GetService(name)
		if err != nil {
			continue // dropped meanwhile
		}
		result = append(result, &ServiceResponse{
			Name:  name,
			Total: s.Len(),
		})
	}

	return result, nil
}
