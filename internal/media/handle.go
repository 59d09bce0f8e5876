// Package media manages the external playback surfaces that video nodes are
// shown through. The engine commands handles; it never decodes media itself.
package media

import (
	"errors"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

// Handle is a controllable playback surface for one resource path. Play and
// Pause are idempotent.
type Handle interface {
	Play() error
	Pause()
	Paused() bool
	SetOffset(ms int)
	Offset() int
	// Frame returns the most recent decoded frame, or nil before the first one.
	Frame() image.Image
	// OnMetadata registers fn to receive the resource duration once known.
	OnMetadata(fn func(durationMs int))
	Close() error
}

// Opener creates a handle for a resource path.
type Opener func(path string) (Handle, error)

// Options configures DefaultOpener.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	DPI         int
	Logger      *slog.Logger
}

// DefaultOpener returns still handles for images and PDFs and ffmpeg-backed
// stream handles for everything else.
func DefaultOpener(opts Options) Opener {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	if opts.DPI <= 0 {
		opts.DPI = 72
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return func(path string) (Handle, error) {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".png", ".jpg", ".jpeg":
			return NewImageHandle(path), nil
		case ".pdf":
			return NewPDFHandle(path, opts.DPI), nil
		default:
			return NewStreamHandle(path, opts), nil
		}
	}
}

// Registry maps resource paths to live handles. It is shared by the editor,
// which opens handles, and the drawer, which starts and stops them.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Register stores h under path and returns the handle it replaced, if any.
func (r *Registry) Register(path string, h Handle) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.handles[path]
	r.handles[path] = h
	return prev
}

// Get returns the handle registered for path.
func (r *Registry) Get(path string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[path]
	return h, ok
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// PauseAll pauses every registered handle.
func (r *Registry) PauseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handles {
		h.Pause()
	}
}

// Close closes and forgets all handles.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for path, h := range r.handles {
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.handles, path)
	}
	return errors.Join(errs...)
}
