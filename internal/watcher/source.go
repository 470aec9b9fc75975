package watcher

// Source is the filesystem-session collaborator a watch session consumes.
// Establishing and authenticating the underlying connection is the
// implementation's concern; the core only subscribes and reads sizes.
type Source interface {
	// Watch subscribes to change notifications under path. onBatch may be
	// invoked at any time, possibly while work from a previous batch is
	// still outstanding. The returned function cancels the subscription
	// and releases the underlying resource.
	Watch(path string, recursive bool, onBatch func(Batch)) (unsubscribe func(), err error)

	// Open opens the file at path for a size read. Open failures are
	// ordinary filesystem errors (vanished, locked, access denied).
	Open(path string) (File, error)
}

// File is an open handle that reports its current size. Callers must
// close it on every path out of a poll tick.
type File interface {
	Size() int64
	Close() error
}
