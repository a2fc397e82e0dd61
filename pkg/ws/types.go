// Package ws defines the JSON frames exchanged on the chat WebSocket.
package ws

// Frame types
const (
	TypeMessage = "message"
	TypeStart   = "start"
	TypePing    = "ping"
	TypeReply   = "reply"
	TypePong    = "pong"
	TypeError   = "error"
)

// InboundFrame is sent by the client. Message is a pointer so a missing
// message can be told apart from an empty one.
type InboundFrame struct {
	Type      string  `json:"type"`
	Message   *string `json:"message,omitempty"`
	SessionID string  `json:"sessionId,omitempty"`
}

// OutboundFrame is sent by the server. Reply frames carry Reply and
// SessionID, with Error set to the failure kind when a fallback was used.
// Error frames carry Error, Code and Details from the error envelope.
type OutboundFrame struct {
	Type      string `json:"type"`
	Reply     string `json:"reply,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// Message builds a message frame
func Message(text, sessionID string) InboundFrame {
	return InboundFrame{Type: TypeMessage, Message: &text, SessionID: sessionID}
}
