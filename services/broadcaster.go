package services

// Broadcaster pushes live updates to connected clients. Implemented by the
// realtime websocket hub; a no-op implementation is fine for tests and
// batch tooling.
type Broadcaster interface {
	BroadcastToRoom(room string, messageType string, payload interface{})
}

// NopBroadcaster discards every broadcast.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastToRoom(string, string, interface{}) {}
