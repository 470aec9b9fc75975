package watcher

import (
	"fmt"
	"time"
)

const (
	defaultWaitDuration     = 5 * time.Second
	defaultMaxWatchDuration = time.Hour
)

// Options configures a watch session.
type Options struct {
	// Path is the directory to watch.
	Path string
	// Recursive includes subdirectories.
	Recursive bool
	// Kind is the event kind the session emits; other kinds are dropped.
	Kind EventKind
	// WaitForCompletion holds created events until the file's size stops
	// changing between two consecutive polls. Only meaningful when Kind
	// is created.
	WaitForCompletion bool
	// WaitDuration is the size-poll interval for stability tracking.
	WaitDuration time.Duration
	// MaxWatchDuration bounds how long a single file may be tracked
	// before it is given up on with no emission. Negative disables the
	// bound, restoring an indefinite poll.
	MaxWatchDuration time.Duration
}

// DefaultOptions returns options watching path for created events with
// stability tracking on.
func DefaultOptions(path string) Options {
	return Options{
		Path:              path,
		Kind:              KindCreated,
		WaitForCompletion: true,
	}
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.Kind == "" {
		o.Kind = KindCreated
	}
	if o.WaitDuration == 0 {
		o.WaitDuration = defaultWaitDuration
	}
	if o.MaxWatchDuration == 0 {
		o.MaxWatchDuration = defaultMaxWatchDuration
	}
}

// validate checks options after defaults are applied.
func (o *Options) validate() error {
	if o.Path == "" {
		return fmt.Errorf("watch path is required")
	}
	switch o.Kind {
	case KindCreated, KindDeleted, KindUpdated:
	default:
		return fmt.Errorf("unknown event kind %q", o.Kind)
	}
	if o.WaitDuration < 0 {
		return fmt.Errorf("wait duration must be positive, got %s", o.WaitDuration)
	}
	return nil
}
