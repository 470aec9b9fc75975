package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a server-originated message with the current timestamp.
func NewMessage(msgType string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		Type:      msgType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Server → Client message types.
const (
	TypeWatchUpdate = "watch.update"
	TypeWatchEvent  = "watch.event"
	TypeError       = "error"
)

// Client → Server message types.
const (
	TypeWatchCreate = "watch.create"
	TypeWatchStop   = "watch.stop"
)

// Error codes.
const (
	ErrWatchNotFound  = "WATCH_NOT_FOUND"
	ErrInvalidMessage = "INVALID_MESSAGE"
	ErrMaxWatches     = "MAX_WATCHES"
	ErrWatchFailed    = "WATCH_FAILED"
)

// Server → Client payloads.

type WatchUpdatePayload struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Path      string `json:"path"`
	Kind      string `json:"kind"`
	Recursive bool   `json:"recursive"`
	Label     string `json:"label"`
	CreatedAt string `json:"createdAt"`
}

type WatchEventPayload struct {
	WatchID   string `json:"watchId"`
	Event     string `json:"event"` // "created" | "deleted" | "updated"
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	FileSize  *int64 `json:"fileSize,omitempty"`
	Timestamp string `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Client → Server payloads.

type WatchCreatePayload struct {
	Path               string `json:"path" validate:"required"`
	Recursive          bool   `json:"recursive"`
	EventKind          string `json:"eventKind" validate:"omitempty,oneof=created deleted updated"`
	WaitForCompletion  *bool  `json:"waitForCompletion"`
	WaitDurationMs     int    `json:"waitDurationMs" validate:"omitempty,min=1"`
	MaxWatchDurationMs int    `json:"maxWatchDurationMs"`
	Label              string `json:"label"`
}

type WatchStopPayload struct {
	WatchID string `json:"watchId" validate:"required"`
}
