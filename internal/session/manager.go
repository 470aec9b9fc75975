package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sharewatch/internal/watcher"
)

const (
	defaultRingBufCapacity  = 1000
	defaultSubscriberBufCap = 100
)

// ErrNotFound is returned when no watch exists for the given ID.
var ErrNotFound = errors.New("watch not found")

// ErrLimit is returned when the active-watch cap is reached.
var ErrLimit = errors.New("maximum watch limit reached")

// Config describes a watch to create.
type Config struct {
	Path              string
	Recursive         bool
	Kind              watcher.EventKind
	WaitForCompletion *bool // nil means the default (true)
	WaitDuration      time.Duration
	MaxWatchDuration  time.Duration
	Label             string
}

// Manager owns every watch session, buffers their emitted events, and
// fans them out to subscribers.
type Manager struct {
	mu         sync.RWMutex
	watches    map[string]*managedWatch
	maxWatches int
	src        watcher.Source
	logger     *slog.Logger
}

type managedWatch struct {
	Watch   *Watch
	session *watcher.Session
	ringBuf *RingBuffer

	subscribers map[string]chan WatchEvent
	subMu       sync.RWMutex
}

// NewManager creates a watch manager backed by src.
func NewManager(src watcher.Source, maxWatches int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		watches:    make(map[string]*managedWatch),
		maxWatches: maxWatches,
		src:        src,
		logger:     logger,
	}
}

// Create starts a new watch session. A subscription failure surfaces as
// the returned error; nothing is registered in that case.
func (m *Manager) Create(cfg Config) (*Watch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := 0
	for _, mw := range m.watches {
		if mw.Watch.State == StateActive {
			active++
		}
	}
	if active >= m.maxWatches {
		return nil, fmt.Errorf("%w (%d)", ErrLimit, m.maxWatches)
	}

	opts := watcher.DefaultOptions(cfg.Path)
	opts.Recursive = cfg.Recursive
	if cfg.Kind != "" {
		opts.Kind = cfg.Kind
	}
	if cfg.WaitForCompletion != nil {
		opts.WaitForCompletion = *cfg.WaitForCompletion
	}
	if cfg.WaitDuration > 0 {
		opts.WaitDuration = cfg.WaitDuration
	}
	if cfg.MaxWatchDuration != 0 {
		opts.MaxWatchDuration = cfg.MaxWatchDuration
	}

	id := uuid.New().String()
	w := &Watch{
		ID:        id,
		State:     StateActive,
		Path:      cfg.Path,
		Kind:      opts.Kind,
		Recursive: cfg.Recursive,
		Label:     cfg.Label,
		CreatedAt: time.Now().UTC(),
	}
	mw := &managedWatch{
		Watch:       w,
		ringBuf:     NewRingBuffer(defaultRingBufCapacity),
		subscribers: make(map[string]chan WatchEvent),
	}

	sess, err := watcher.NewSession(m.src, opts, func(ev watcher.Event) {
		m.deliver(mw, ev)
	}, m.logger.With("watchId", id))
	if err != nil {
		return nil, err
	}
	mw.session = sess

	m.watches[id] = mw
	return w, nil
}

// deliver records an emitted event and fans it out to subscribers.
func (m *Manager) deliver(mw *managedWatch, ev watcher.Event) {
	we := WatchEvent{
		WatchID:   mw.Watch.ID,
		Event:     ev,
		Timestamp: time.Now().UTC(),
	}
	mw.ringBuf.Write(we)

	mw.subMu.RLock()
	defer mw.subMu.RUnlock()
	for _, ch := range mw.subscribers {
		select {
		case ch <- we:
		default:
			// Subscriber channel full, drop the event.
		}
	}
}

// Get returns a watch by ID.
func (m *Manager) Get(id string) (*Watch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mw, ok := m.watches[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return mw.Watch, nil
}

// List returns all watches.
func (m *Manager) List() []*Watch {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Watch, 0, len(m.watches))
	for _, mw := range m.watches {
		result = append(result, mw.Watch)
	}
	return result
}

// Events returns a snapshot of a watch's recent emitted events.
func (m *Manager) Events(id string) ([]WatchEvent, error) {
	m.mu.RLock()
	mw, ok := m.watches[id]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return mw.ringBuf.ReadAll(), nil
}

// Stop tears down a watch session. All of its monitors are canceled
// before Stop returns, and its subscriber channels are closed.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	mw, ok := m.watches[id]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if mw.Watch.State == StateStopped {
		return nil // Already stopped.
	}

	mw.session.Stop()

	m.mu.Lock()
	mw.Watch.State = StateStopped
	m.mu.Unlock()

	mw.subMu.Lock()
	for subID, ch := range mw.subscribers {
		close(ch)
		delete(mw.subscribers, subID)
	}
	mw.subMu.Unlock()

	return nil
}

// Subscribe creates a channel that receives a watch's emitted events.
// Returns the subscription ID, the channel, and the buffered history.
func (m *Manager) Subscribe(id string) (string, <-chan WatchEvent, []WatchEvent, error) {
	m.mu.RLock()
	mw, ok := m.watches[id]
	m.mu.RUnlock()

	if !ok {
		return "", nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	subID := uuid.New().String()
	ch := make(chan WatchEvent, defaultSubscriberBufCap)

	// Get buffered history before subscribing to avoid a gap.
	history := mw.ringBuf.ReadAll()

	mw.subMu.Lock()
	mw.subscribers[subID] = ch
	mw.subMu.Unlock()

	return subID, ch, history, nil
}

// Unsubscribe removes a subscriber from a watch.
func (m *Manager) Unsubscribe(watchID, subID string) {
	m.mu.RLock()
	mw, ok := m.watches[watchID]
	m.mu.RUnlock()

	if !ok {
		return
	}

	mw.subMu.Lock()
	if ch, exists := mw.subscribers[subID]; exists {
		close(ch)
		delete(mw.subscribers, subID)
	}
	mw.subMu.Unlock()
}

// StopAll tears down every active watch.
func (m *Manager) StopAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.watches))
	for id, mw := range m.watches {
		if mw.Watch.State == StateActive {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.Stop(id); err != nil {
			m.logger.Warn("stop watch", "watchId", id, "error", err)
		}
	}
}
