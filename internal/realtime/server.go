package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"sharewatch/internal/protocol"
	"sharewatch/internal/session"
	"sharewatch/internal/watcher"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow localhost origins for dev.
	},
}

// Server manages WebSocket connections and routes messages between
// clients and the watch manager.
type Server struct {
	watches   *session.Manager
	logger    *slog.Logger
	clients   map[*client]bool
	clientsMu sync.RWMutex

	// subscriptions tracks which watch subscriptions exist per client.
	// key: client, value: map[watchID]subscriptionID
	subscriptions   map[*client]map[string]string
	subscriptionsMu sync.Mutex
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// New creates a new realtime server.
func New(watches *session.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		watches:       watches,
		logger:        logger,
		clients:       make(map[*client]bool),
		subscriptions: make(map[*client]map[string]string),
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	// WebSocket endpoint.
	r.Get("/ws", s.handleWebSocket)

	// REST API endpoints.
	r.Route("/watches", func(r chi.Router) {
		r.Post("/", s.handleCreateWatch)
		r.Get("/", s.handleListWatches)
		r.Get("/{id}", s.handleGetWatch)
		r.Get("/{id}/events", s.handleWatchEvents)
		r.Delete("/{id}", s.handleStopWatch)
	})

	return r
}

// handleWebSocket upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade error", "error", err)
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	s.subscriptionsMu.Lock()
	s.subscriptions[c] = make(map[string]string)
	s.subscriptionsMu.Unlock()

	// Send the current watch list to the new client, then subscribe it to
	// every active watch so it receives events for watches that existed
	// before this connection.
	s.sendWatchList(c)
	s.subscribeClientToActiveWatches(c)

	go c.writePump()
	go c.readPump()
}

// sendWatchList sends the current watch state to a client.
func (s *Server) sendWatchList(c *client) {
	for _, w := range s.watches.List() {
		msg, err := protocol.NewMessage(protocol.TypeWatchUpdate, watchUpdatePayload(w))
		if err != nil {
			continue
		}
		data, _ := json.Marshal(msg)
		select {
		case c.send <- data:
		default:
		}
	}
}

// readPump reads messages from the WebSocket connection.
func (c *client) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		c.server.handleMessage(c, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeClient cleans up a disconnected client.
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()

	// Unsubscribe from all watches.
	s.subscriptionsMu.Lock()
	subs := s.subscriptions[c]
	delete(s.subscriptions, c)
	s.subscriptionsMu.Unlock()

	for watchID, subID := range subs {
		s.watches.Unsubscribe(watchID, subID)
	}

	close(c.send)
}

// handleMessage processes a validated client message.
func (s *Server) handleMessage(c *client, raw []byte) {
	msg, err := protocol.ValidateClientMessage(raw)
	if err != nil {
		s.sendError(c, protocol.ErrInvalidMessage, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeWatchCreate:
		s.handleWSCreateWatch(c, msg)
	case protocol.TypeWatchStop:
		s.handleWSStopWatch(c, msg)
	}
}

func (s *Server) handleWSCreateWatch(c *client, msg *protocol.Message) {
	var payload protocol.WatchCreatePayload
	json.Unmarshal(msg.Payload, &payload)

	w, err := s.watches.Create(watchConfig(payload))
	if err != nil {
		code := protocol.ErrWatchFailed
		if errors.Is(err, session.ErrLimit) {
			code = protocol.ErrMaxWatches
		}
		s.sendError(c, code, err.Error())
		return
	}

	// Broadcast the new watch to all clients and subscribe them to its
	// events.
	s.broadcastWatchUpdate(w)
	s.subscribeAllClients(w.ID)
}

func (s *Server) handleWSStopWatch(c *client, msg *protocol.Message) {
	var payload protocol.WatchStopPayload
	json.Unmarshal(msg.Payload, &payload)

	if err := s.watches.Stop(payload.WatchID); err != nil {
		s.sendError(c, protocol.ErrWatchNotFound, err.Error())
		return
	}

	if w, err := s.watches.Get(payload.WatchID); err == nil {
		s.broadcastWatchUpdate(w)
	}
}

// broadcastWatchUpdate sends a watch update to all connected clients.
func (s *Server) broadcastWatchUpdate(w *session.Watch) {
	msg, err := protocol.NewMessage(protocol.TypeWatchUpdate, watchUpdatePayload(w))
	if err != nil {
		return
	}
	s.broadcast(msg)
}

// broadcast sends a message to all connected clients.
func (s *Server) broadcast(msg *protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full, skip.
		}
	}
}

// subscribeAllClients subscribes all connected clients to a watch's events.
func (s *Server) subscribeAllClients(watchID string) {
	s.clientsMu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.RUnlock()

	for _, c := range clients {
		s.subscribeClient(c, watchID)
	}
}

// subscribeClientToActiveWatches subscribes a single client to all active
// watches.
func (s *Server) subscribeClientToActiveWatches(c *client) {
	for _, w := range s.watches.List() {
		if w.State == session.StateActive {
			s.subscribeClient(c, w.ID)
		}
	}
}

// subscribeClient subscribes a single client to a watch's events, replaying
// buffered history first.
func (s *Server) subscribeClient(c *client, watchID string) {
	s.subscriptionsMu.Lock()
	if _, exists := s.subscriptions[c][watchID]; exists {
		s.subscriptionsMu.Unlock()
		return // Already subscribed.
	}
	s.subscriptionsMu.Unlock()

	subID, ch, history, err := s.watches.Subscribe(watchID)
	if err != nil {
		return
	}

	s.subscriptionsMu.Lock()
	if s.subscriptions[c] == nil {
		s.subscriptions[c] = make(map[string]string)
	}
	s.subscriptions[c][watchID] = subID
	s.subscriptionsMu.Unlock()

	// Send history.
	for _, event := range history {
		s.sendWatchEvent(c, event)
	}

	// Forward new events until the channel closes (watch stopped or
	// client unsubscribed).
	go func() {
		for event := range ch {
			s.sendWatchEvent(c, event)
		}
	}()
}

func (s *Server) sendWatchEvent(c *client, event session.WatchEvent) {
	msg, _ := protocol.NewMessage(protocol.TypeWatchEvent, protocol.WatchEventPayload{
		WatchID:   event.WatchID,
		Event:     string(event.Event.Event),
		Filename:  event.Filename,
		Path:      event.Path,
		FileSize:  event.FileSize,
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
	})
	data, _ := json.Marshal(msg)
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) sendError(c *client, code, message string) {
	msg, _ := protocol.NewErrorMessage(code, message)
	data, _ := json.Marshal(msg)
	select {
	case c.send <- data:
	default:
	}
}

// watchUpdatePayload converts a watch to its wire representation.
func watchUpdatePayload(w *session.Watch) protocol.WatchUpdatePayload {
	return protocol.WatchUpdatePayload{
		ID:        w.ID,
		State:     string(w.State),
		Path:      w.Path,
		Kind:      string(w.Kind),
		Recursive: w.Recursive,
		Label:     w.Label,
		CreatedAt: w.CreatedAt.Format(time.RFC3339Nano),
	}
}

// watchConfig converts a wire payload to a watch config.
func watchConfig(p protocol.WatchCreatePayload) session.Config {
	return session.Config{
		Path:              p.Path,
		Recursive:         p.Recursive,
		Kind:              watcher.EventKind(p.EventKind),
		WaitForCompletion: p.WaitForCompletion,
		WaitDuration:      time.Duration(p.WaitDurationMs) * time.Millisecond,
		MaxWatchDuration:  time.Duration(p.MaxWatchDurationMs) * time.Millisecond,
		Label:             p.Label,
	}
}
