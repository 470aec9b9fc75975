package watcher

import (
	"context"
	"log/slog"
	"path"
	"time"
)

// monitor polls a single file's size at a fixed interval until the write
// settles. Terminal outcomes: stable (emits the created event with the
// confirmed size), aborted (truncated back to empty), errored (size read
// failed), timed out, or canceled at session teardown. Every outcome
// releases the filename from the pending set; only stable emits.
type monitor struct {
	src     Source
	pending *PendingSet
	logger  *slog.Logger
	emit    func(Event)

	filename string
	path     string
	interval time.Duration
	maxWait  time.Duration

	prevSize int64
	havePrev bool
}

// joinPath builds the full file path, normalizing any "." segments the
// source may report in directory paths.
func joinPath(dir, name string) string {
	return path.Join(dir, name)
}

// run drives the poll loop until a terminal outcome. It is the only
// goroutine touching the monitor's state after start.
func (m *monitor) run(ctx context.Context) {
	defer m.pending.Remove(m.filename)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if m.maxWait > 0 {
		timer := time.NewTimer(m.maxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("stability watch canceled", "filename", m.filename)
			return

		case <-deadline:
			m.logger.Warn("stability watch gave up", "filename", m.filename, "after", m.maxWait)
			return

		case <-ticker.C:
			size, err := m.sample()
			if err != nil {
				// Vanished, locked, or unreadable. Absorb and release.
				m.logger.Debug("stability watch errored", "filename", m.filename, "error", err)
				return
			}

			switch {
			case !m.havePrev:
				m.prevSize = size
				m.havePrev = true

			case size == m.prevSize:
				// Two consecutive samples agree: the write is done.
				if ctx.Err() != nil {
					return
				}
				s := size
				m.emit(Event{
					Event:    KindCreated,
					Filename: m.filename,
					Path:     m.path,
					FileSize: &s,
				})
				return

			case m.prevSize > 0 && size == 0:
				// Truncated back to empty: the write was abandoned.
				m.logger.Debug("stability watch aborted", "filename", m.filename)
				return

			default:
				// Still changing.
				m.prevSize = size
			}
		}
	}
}

// sample reads the file's current size, releasing the handle on every
// path out of the tick.
func (m *monitor) sample() (int64, error) {
	f, err := m.src.Open(m.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.Size(), nil
}
