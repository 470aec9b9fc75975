package realtime

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sharewatch/internal/protocol"
	"sharewatch/internal/session"
)

func (s *Server) handleCreateWatch(w http.ResponseWriter, r *http.Request) {
	var req protocol.WatchCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := protocol.ValidateWatchCreate(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	watch, err := s.watches.Create(watchConfig(req))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrLimit) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	// Broadcast to WebSocket clients.
	s.broadcastWatchUpdate(watch)
	s.subscribeAllClients(watch.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(watch)
}

func (s *Server) handleListWatches(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.watches.List())
}

func (s *Server) handleGetWatch(w http.ResponseWriter, r *http.Request) {
	watch, err := s.watches.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "watch not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(watch)
}

func (s *Server) handleWatchEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.watches.Events(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "watch not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

func (s *Server) handleStopWatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.watches.Stop(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if watch, err := s.watches.Get(id); err == nil {
		s.broadcastWatchUpdate(watch)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"stopped"}`))
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
