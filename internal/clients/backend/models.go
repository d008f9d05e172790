package backend

// errorResponse is the backend's error body
type errorResponse struct {
	Error string `json:"error"`
}
