package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Session binds one watched path to a notification source and owns the
// lifecycle of everything spawned for it. Events flow source → dispatcher
// → (classifier, pending set, monitors) → emit callback, one at a time.
type Session struct {
	opts    Options
	logger  *slog.Logger
	pending *PendingSet

	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	stopOnce    sync.Once

	dispatcher *Dispatcher
}

// NewSession subscribes to src and starts dispatching its batches. A
// subscription failure is fatal: no partial session is left running.
func NewSession(src Source, opts Options, emit func(Event), logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		opts:    opts,
		logger:  logger,
		pending: NewPendingSet(),
		cancel:  cancel,
	}
	s.dispatcher = &Dispatcher{
		src:     src,
		pending: s.pending,
		opts:    opts,
		emit:    emit,
		logger:  logger,
		ctx:     ctx,
		wg:      &s.wg,
	}

	unsubscribe, err := src.Watch(opts.Path, opts.Recursive, s.dispatcher.Dispatch)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to %s: %w", opts.Path, err)
	}
	s.unsubscribe = unsubscribe

	logger.Info("watch session started",
		"path", opts.Path,
		"kind", opts.Kind,
		"recursive", opts.Recursive,
		"waitForCompletion", opts.WaitForCompletion)
	return s, nil
}

// Pending exposes the session's de-duplication set.
func (s *Session) Pending() *PendingSet {
	return s.pending
}

// Stop tears the session down: unsubscribes from the source, cancels
// every live monitor, and clears the pending set. When Stop returns no
// monitor can fire and no further events are emitted. Safe to call more
// than once and safe when nothing was ever observed.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.unsubscribe()
		s.cancel()
		s.wg.Wait()
		s.pending.Clear()
		s.logger.Info("watch session stopped", "path", s.opts.Path)
	})
}
