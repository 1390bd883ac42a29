package remote

// Request is the body of every HTTP call to a service.
type Request struct {
	ID    any            `json:"id,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
	Query map[string]any `json:"query,omitempty"`
}

// Message is a push event as sent over the event stream.
type Message struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}
