package session

import (
	"time"

	"sharewatch/internal/watcher"
)

// State represents the lifecycle state of a watch.
type State string

const (
	StateActive  State = "active"
	StateStopped State = "stopped"
	StateFailed  State = "failed"
)

// Watch holds metadata and state for a single watch session.
type Watch struct {
	ID        string            `json:"id"`
	State     State             `json:"state"`
	Path      string            `json:"path"`
	Kind      watcher.EventKind `json:"kind"`
	Recursive bool              `json:"recursive"`
	Label     string            `json:"label"`
	CreatedAt time.Time         `json:"createdAt"`
}

// WatchEvent is one emitted event tagged with its watch and time.
type WatchEvent struct {
	WatchID string `json:"watchId"`
	watcher.Event
	Timestamp time.Time `json:"timestamp"`
}
