package chessdto

// StreamEvent is one WebSocket frame of a game stream.
type StreamEvent struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}
