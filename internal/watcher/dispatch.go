package watcher

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher routes raw change records to immediate emission or stability
// tracking. One dispatcher serves one session; monitors it spawns live
// under the session's context and wait group so teardown can cancel and
// drain them.
type Dispatcher struct {
	src     Source
	pending *PendingSet
	opts    Options
	emit    func(Event)
	logger  *slog.Logger

	ctx context.Context
	wg  *sync.WaitGroup
}

// Dispatch processes one notification batch. Records are handled
// independently; it never blocks on stability polling, so the source can
// deliver the next batch immediately.
func (d *Dispatcher) Dispatch(batch Batch) {
	if len(batch.Data) == 0 {
		// Malformed or empty delivery. Skip the whole batch.
		return
	}
	for _, rec := range batch.Data {
		d.dispatchOne(rec)
	}
}

func (d *Dispatcher) dispatchOne(rec RawChange) {
	// A misbehaving sink must not take down the rest of the batch.
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic dispatching change", "filename", rec.Filename, "panic", r)
		}
	}()

	kind, ok := Classify(rec.Action)
	if !ok {
		return
	}
	if kind != d.opts.Kind {
		return
	}
	if d.pending.Contains(rec.Filename) {
		// A monitor is already handling this name.
		return
	}

	if kind == KindCreated && d.opts.WaitForCompletion {
		d.pending.Add(rec.Filename)
		m := &monitor{
			src:      d.src,
			pending:  d.pending,
			logger:   d.logger,
			emit:     d.emit,
			filename: rec.Filename,
			path:     joinPath(d.opts.Path, rec.Filename),
			interval: d.opts.WaitDuration,
			maxWait:  d.opts.MaxWatchDuration,
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			m.run(d.ctx)
		}()
		return
	}

	d.emit(Event{
		Event:    kind,
		Filename: rec.Filename,
		Path:     joinPath(d.opts.Path, rec.Filename),
	})
}
