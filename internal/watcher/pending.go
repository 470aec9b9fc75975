package watcher

import "sync"

// PendingSet tracks filenames that have a stability monitor in flight.
// It is the de-duplication guard preventing two monitors for one name.
// The key is the leaf filename, not the full path, matching the
// notification source's reporting granularity.
type PendingSet struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewPendingSet creates an empty pending set.
func NewPendingSet() *PendingSet {
	return &PendingSet{names: make(map[string]struct{})}
}

// Contains reports whether name is being tracked.
func (p *PendingSet) Contains(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.names[name]
	return ok
}

// Add marks name as tracked. Adding a present name is a no-op.
func (p *PendingSet) Add(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names[name] = struct{}{}
}

// Remove releases name from tracking.
func (p *PendingSet) Remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.names, name)
}

// Clear releases every tracked name. Used at session teardown.
func (p *PendingSet) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.names)
}

// Len returns the number of tracked names.
func (p *PendingSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.names)
}
