package websocket

import "time"

// Message types pushed to clients
const (
	TypeConnection     = "connection"
	TypeDatasetUpdated = "dataset:updated"
	TypeDatasetFailed  = "dataset:failed"
	TypeHeartbeat      = "heartbeat"
)

// Message is the envelope of every frame sent to clients
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

func newMessage(msgType string, data interface{}, traceID string) Message {
	return Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   traceID,
	}
}
