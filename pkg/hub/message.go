// Package hub fans status snapshots out to websocket clients.
//
// One goroutine (Run) owns the client set. Each client has its own write
// pump fed by a buffered channel; a client whose buffer is full is
// disconnected rather than allowed to stall the others.
package hub

// MessageType indicates the websocket frame type.
type MessageType int

const (
	// TextMessage is a JSON-encoded text frame.
	TextMessage MessageType = iota
	// BinaryMessage is a binary frame.
	BinaryMessage
)

// Message is one frame to broadcast.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: TextMessage, Data: data}
}
