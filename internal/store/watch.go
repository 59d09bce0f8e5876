package store

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports keys of a Dir store that were written by anyone,
// including other processes.
type Watcher struct {
	dir *Dir
	fs  *fsnotify.Watcher

	keys   chan string
	errors chan error

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Watch starts watching every directory below the store root. Directories
// created later are added as they appear.
func (d *Dir) Watch() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	err = filepath.WalkDir(d.root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			return fsw.Add(p)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", d.root, err)
	}

	w := &Watcher{
		dir:    d,
		fs:     fsw,
		keys:   make(chan string, 64),
		errors: make(chan error, 8),
		done:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Keys delivers the key of every written value.
func (w *Watcher) Keys() <-chan string {
	return w.keys
}

func (w *Watcher) Errors() <-chan error {
	return w.errors
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			info, err := os.Stat(ev.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if err := w.fs.Add(ev.Name); err != nil {
					w.report(err)
				}
				continue
			}
			if key, ok := w.dir.key(ev.Name); ok {
				select {
				case w.keys <- key:
				case <-w.done:
					return
				}
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}
