// Package events defines the messages pushed to live dashboard clients.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MessageTypeConnect        MessageType = "connect"
	MessageTypeDatasetUpdated MessageType = "dataset_updated"
	MessageTypeError          MessageType = "error"
)

// Message is the envelope of every WebSocket message.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      any         `json:"data,omitempty"`
}

// ConnectData is sent to a client right after it connects.
type ConnectData struct {
	ClientID string `json:"client_id"`
	Message  string `json:"message"`
}

// DatasetUpdated announces that a feedstock/threshold dataset changed and
// dashboards showing it should refetch.
type DatasetUpdated struct {
	Feedstock      string `json:"feedstock"`
	Threshold      int    `json:"omega_threshold"`
	SamplesAdded   int    `json:"samples_added"`
	SummariesAdded int    `json:"summaries_added"`
}

// NewMessage stamps a message with the current time.
func NewMessage(t MessageType, data any) Message {
	return Message{Type: t, Timestamp: time.Now().UTC(), Data: data}
}
