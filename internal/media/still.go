package media

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// StillHandle presents a single decoded picture. It has a play state so the
// drawer can treat it like any other handle, but no duration.
type StillHandle struct {
	load func() (image.Image, error)

	mu       sync.Mutex
	img      image.Image
	loadErr  error
	loaded   bool
	playing  bool
	offsetMs int
}

// NewImageHandle shows a PNG or JPEG file.
func NewImageHandle(path string) *StillHandle {
	return &StillHandle{load: func() (image.Image, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		return img, err
	}}
}

// NewPDFHandle shows the first page of a PDF rendered at dpi.
func NewPDFHandle(path string, dpi int) *StillHandle {
	return &StillHandle{load: func() (image.Image, error) {
		doc, err := fitz.New(path)
		if err != nil {
			return nil, err
		}
		defer doc.Close()
		return doc.ImageDPI(0, float64(dpi))
	}}
}

// NewStaticHandle wraps an in-memory image.
func NewStaticHandle(img image.Image) *StillHandle {
	return &StillHandle{img: img, loaded: true}
}

func (h *StillHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ensureLoadedLocked(); err != nil {
		return err
	}
	h.playing = true
	return nil
}

func (h *StillHandle) ensureLoadedLocked() error {
	if !h.loaded {
		h.img, h.loadErr = h.load()
		h.loaded = true
	}
	return h.loadErr
}

func (h *StillHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
}

func (h *StillHandle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.playing
}

func (h *StillHandle) SetOffset(ms int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.offsetMs = ms
}

func (h *StillHandle) Offset() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offsetMs
}

func (h *StillHandle) Frame() image.Image {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ensureLoadedLocked() != nil {
		return nil
	}
	return h.img
}

// OnMetadata never fires: a still has no duration of its own.
func (h *StillHandle) OnMetadata(func(int)) {}

func (h *StillHandle) Close() error {
	h.Pause()
	return nil
}
