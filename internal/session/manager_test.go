package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"sharewatch/internal/watcher"
)

// stubSource implements watcher.Source for manager tests. Size reads are
// never exercised because the tests watch for updated events, which emit
// immediately.
type stubSource struct {
	mu       sync.Mutex
	onBatch  func(watcher.Batch)
	watchErr error
}

func (s *stubSource) Watch(path string, recursive bool, onBatch func(watcher.Batch)) (func(), error) {
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	s.mu.Lock()
	s.onBatch = onBatch
	s.mu.Unlock()
	return func() {}, nil
}

func (s *stubSource) Open(path string) (watcher.File, error) {
	return nil, errors.New("not implemented")
}

func (s *stubSource) deliver(batch watcher.Batch) {
	s.mu.Lock()
	onBatch := s.onBatch
	s.mu.Unlock()
	onBatch(batch)
}

func updatedConfig(path string) Config {
	return Config{Path: path, Kind: watcher.KindUpdated}
}

func modified(name string) watcher.Batch {
	return watcher.Batch{Data: []watcher.RawChange{{
		Action:   watcher.ActionModified,
		Filename: name,
	}}}
}

func TestNewManager(t *testing.T) {
	mgr := NewManager(&stubSource{}, 10, nil)
	if mgr == nil {
		t.Fatal("expected non-nil manager")
	}
}

func TestManager_MaxWatchesLimit(t *testing.T) {
	mgr := NewManager(&stubSource{}, 0, nil)
	_, err := mgr.Create(updatedConfig("/remote/in"))
	if !errors.Is(err, ErrLimit) {
		t.Fatalf("expected ErrLimit, got %v", err)
	}
}

func TestManager_CreateSourceFailure(t *testing.T) {
	src := &stubSource{watchErr: errors.New("share unreachable")}
	mgr := NewManager(src, 10, nil)

	_, err := mgr.Create(updatedConfig("/remote/in"))
	if err == nil {
		t.Fatal("expected error when the source subscription fails")
	}

	// Nothing may be registered after a failed create.
	if len(mgr.List()) != 0 {
		t.Errorf("expected no watches, got %d", len(mgr.List()))
	}
}

func TestManager_GetNotFound(t *testing.T) {
	mgr := NewManager(&stubSource{}, 10, nil)
	_, err := mgr.Get("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_ListEmpty(t *testing.T) {
	mgr := NewManager(&stubSource{}, 10, nil)
	watches := mgr.List()
	if len(watches) != 0 {
		t.Errorf("expected empty list, got %d watches", len(watches))
	}
}

func TestManager_StopNotFound(t *testing.T) {
	mgr := NewManager(&stubSource{}, 10, nil)
	if err := mgr.Stop("nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_EventsNotFound(t *testing.T) {
	mgr := NewManager(&stubSource{}, 10, nil)
	if _, err := mgr.Events("nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_SubscribeNotFound(t *testing.T) {
	mgr := NewManager(&stubSource{}, 10, nil)
	_, _, _, err := mgr.Subscribe("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_UnsubscribeNotFound(t *testing.T) {
	mgr := NewManager(&stubSource{}, 10, nil)
	// Should not panic.
	mgr.Unsubscribe("nonexistent", "sub-id")
}

func TestManager_CreateAndStop(t *testing.T) {
	mgr := NewManager(&stubSource{}, 10, nil)

	w, err := mgr.Create(Config{Path: "/remote/in", Kind: watcher.KindUpdated, Label: "inbox"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if w.ID == "" {
		t.Error("expected non-empty watch ID")
	}
	if w.State != StateActive {
		t.Errorf("expected state active, got %s", w.State)
	}
	if w.Label != "inbox" {
		t.Errorf("expected label 'inbox', got %s", w.Label)
	}
	if w.Kind != watcher.KindUpdated {
		t.Errorf("expected kind updated, got %s", w.Kind)
	}

	if len(mgr.List()) != 1 {
		t.Fatalf("expected 1 watch, got %d", len(mgr.List()))
	}

	got, err := mgr.Get(w.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != w.ID {
		t.Errorf("expected ID %s, got %s", w.ID, got.ID)
	}

	if err := mgr.Stop(w.ID); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got.State != StateStopped {
		t.Errorf("expected state stopped, got %s", got.State)
	}

	// Stopping twice is a no-op.
	if err := mgr.Stop(w.ID); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}

func TestManager_SubscribeReceivesEvents(t *testing.T) {
	src := &stubSource{}
	mgr := NewManager(src, 10, nil)

	w, err := mgr.Create(updatedConfig("/remote/in"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, ch, history, err := mgr.Subscribe(w.ID)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d events", len(history))
	}

	src.deliver(modified("report.csv"))

	select {
	case ev := <-ch:
		if ev.WatchID != w.ID {
			t.Errorf("expected watch ID %s, got %s", w.ID, ev.WatchID)
		}
		if ev.Filename != "report.csv" {
			t.Errorf("expected filename report.csv, got %s", ev.Filename)
		}
		if ev.FileSize != nil {
			t.Error("expected no fileSize on an immediate emission")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	// Late subscribers get the buffered history.
	_, _, history, err = mgr.Subscribe(w.ID)
	if err != nil {
		t.Fatalf("second Subscribe failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 buffered event, got %d", len(history))
	}
}

func TestManager_EventsSnapshot(t *testing.T) {
	src := &stubSource{}
	mgr := NewManager(src, 10, nil)

	w, err := mgr.Create(updatedConfig("/remote/in"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	src.deliver(modified("a.csv"))
	src.deliver(modified("b.csv"))

	events, err := mgr.Events(w.ID)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestManager_StopClosesSubscribers(t *testing.T) {
	mgr := NewManager(&stubSource{}, 10, nil)

	w, err := mgr.Create(updatedConfig("/remote/in"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, ch, _, err := mgr.Subscribe(w.ID)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := mgr.Stop(w.ID); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after Stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestManager_StopAll(t *testing.T) {
	mgr := NewManager(&stubSource{}, 10, nil)

	w1, _ := mgr.Create(updatedConfig("/remote/in"))
	w2, _ := mgr.Create(updatedConfig("/remote/out"))

	mgr.StopAll()

	for _, id := range []string{w1.ID, w2.ID} {
		w, err := mgr.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if w.State != StateStopped {
			t.Errorf("watch %s: expected state stopped, got %s", id, w.State)
		}
	}
}
