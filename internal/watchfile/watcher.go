// Package watchfile watches the connection file for removal or rename,
// giving the watch-mode multiplexer loop a fatal-termination trigger
// independent of the shell/iopub sockets: Jupyter kernels typically unlink
// their connection file on shutdown, and a sidecar attached to a dead
// kernel should not wait out its next socket read to discover that.
package watchfile

import (
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Watcher notifies Gone when the connection file it watches disappears.
type Watcher struct {
	fsw  *fsnotify.Watcher
	gone chan struct{}
}

// Watch starts watching path (the connection file). Callers should select
// on Gone() alongside their other event sources and treat a signal there as
// a fatal, kernel-is-gone condition.
func Watch(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithMessage(err, "creating connection file watcher")
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, errors.WithMessagef(err, "watching connection file %s", path)
	}

	w := &Watcher{fsw: fsw, gone: make(chan struct{})}
	go w.run(path)
	return w, nil
}

func (w *Watcher) run(path string) {
	defer close(w.gone)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				klog.Warningf("connection file %s was removed or renamed; kernel is presumed gone", path)
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			klog.Warningf("connection file watcher error for %s: %v", path, err)
		}
	}
}

// Gone is closed once the connection file has been removed or renamed, or
// the watcher itself failed and can no longer observe it.
func (w *Watcher) Gone() <-chan struct{} {
	return w.gone
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
