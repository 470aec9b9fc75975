package watcher

// Shared test doubles for the watcher package.

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeFile is an open handle with a fixed size.
type fakeFile struct {
	size int64
}

func (f fakeFile) Size() int64 { return f.size }

func (f fakeFile) Close() error { return nil }

// fakeSource scripts the size returned by each successive Open call and
// records the subscription state. Once the script is exhausted the last
// size repeats, or openErr is returned if set.
type fakeSource struct {
	mu      sync.Mutex
	sizes   []int64
	openErr error
	growing bool // ignore the script; every sample is one byte larger
	calls   int

	watchErr error
	onBatch  func(Batch)
	unsubbed bool
}

func (s *fakeSource) Watch(path string, recursive bool, onBatch func(Batch)) (func(), error) {
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	s.mu.Lock()
	s.onBatch = onBatch
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.unsubbed = true
		s.mu.Unlock()
	}, nil
}

func (s *fakeSource) Open(path string) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.growing {
		return fakeFile{int64(s.calls)}, nil
	}

	i := s.calls - 1
	if i >= len(s.sizes) {
		if s.openErr != nil {
			return nil, s.openErr
		}
		if len(s.sizes) == 0 {
			return nil, errors.New("no size scripted")
		}
		i = len(s.sizes) - 1
	}
	return fakeFile{s.sizes[i]}, nil
}

func (s *fakeSource) deliver(batch Batch) {
	s.mu.Lock()
	onBatch := s.onBatch
	s.mu.Unlock()
	onBatch(batch)
}

func (s *fakeSource) unsubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubbed
}

// collector gathers emitted events.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, src *fakeSource, opts Options) (*Session, *collector) {
	t.Helper()

	c := &collector{}
	sess, err := NewSession(src, opts, c.emit, testLogger())
	require.NoError(t, err)
	t.Cleanup(sess.Stop)
	return sess, c
}
