package chessdto

// ErrorResponse is the body of every failed /api request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
