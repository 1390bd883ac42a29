package apiservicev1

type ServiceResponse struct {
	Name  string `json:"name"`
	Total int    `json:"total"`
}
