package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"sharewatch/internal/watcher"
)

// Local adapts a local or mounted directory tree to the watcher.Source
// interface using fsnotify. Remote-share sessions plug in the same way
// through their own Source implementation.
type Local struct {
	logger *slog.Logger
}

// NewLocal creates a local filesystem source.
func NewLocal(logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{logger: logger}
}

// actionNames mirror the names notification sources attach to raw codes.
var actionNames = map[int]string{
	watcher.ActionAdded:    "added",
	watcher.ActionRemoved:  "removed",
	watcher.ActionModified: "modified",
	watcher.ActionRenamed:  "renamed",
	watcher.ActionPerm:     "permissions",
}

// Watch subscribes to change notifications under dir. Each fsnotify
// event is delivered as a single-record batch.
func (l *Local) Watch(dir string, recursive bool, onBatch func(watcher.Batch)) (func(), error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat watch path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path is not a directory: %s", dir)
	}

	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	if recursive {
		if err := addDirsRecursive(fsW, dir); err != nil {
			fsW.Close()
			return nil, err
		}
	} else if err := fsW.Add(dir); err != nil {
		fsW.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	cancel := make(chan struct{})
	go l.loop(fsW, recursive, onBatch, cancel)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(cancel)
			fsW.Close()
		})
	}, nil
}

// loop translates fsnotify events into raw change batches.
func (l *Local) loop(fsW *fsnotify.Watcher, recursive bool, onBatch func(watcher.Batch), cancel chan struct{}) {
	for {
		select {
		case <-cancel:
			return

		case event, ok := <-fsW.Events:
			if !ok {
				return
			}

			// Newly created subdirectories join the watch.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if recursive {
						fsW.Add(event.Name)
					}
					continue
				}
			}

			rec, ok := translate(event)
			if !ok {
				continue
			}
			onBatch(watcher.Batch{Data: []watcher.RawChange{rec}})

		case err, ok := <-fsW.Errors:
			if !ok {
				return
			}
			l.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// translate maps an fsnotify op to a raw change record. Renames and
// permission changes carry codes the classifier intentionally drops.
func translate(event fsnotify.Event) (watcher.RawChange, bool) {
	var code int
	switch {
	case event.Has(fsnotify.Create):
		code = watcher.ActionAdded
	case event.Has(fsnotify.Remove):
		code = watcher.ActionRemoved
	case event.Has(fsnotify.Write):
		code = watcher.ActionModified
	case event.Has(fsnotify.Rename):
		code = watcher.ActionRenamed
	case event.Has(fsnotify.Chmod):
		code = watcher.ActionPerm
	default:
		return watcher.RawChange{}, false
	}

	return watcher.RawChange{
		Action:     code,
		ActionName: actionNames[code],
		Filename:   filepath.Base(event.Name),
		Meta:       map[string]any{"fullPath": event.Name},
	}, true
}

// Open opens the file at path for a size read.
func (l *Local) Open(path string) (watcher.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &localFile{f: f, size: info.Size()}, nil
}

type localFile struct {
	f    *os.File
	size int64
}

func (lf *localFile) Size() int64 { return lf.size }

func (lf *localFile) Close() error { return lf.f.Close() }

// addDirsRecursive adds a directory and its subdirectories to an
// fsnotify watcher.
func addDirsRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip inaccessible paths.
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(path)
	})
}
