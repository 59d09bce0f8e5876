package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// StreamHandle plays a video resource by running ffmpeg in real time and
// keeping the most recent decoded RGBA frame.
type StreamHandle struct {
	path   string
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	info      Info
	infoReady bool
	listeners []func(int)

	offsetMs  int
	playing   bool
	startedAt time.Time
	cancel    context.CancelFunc
	frame     *image.RGBA

	probeCtx    context.Context
	probeCancel context.CancelFunc
}

// NewStreamHandle starts probing the resource right away; metadata
// listeners fire when the probe returns.
func NewStreamHandle(path string, opts Options) *StreamHandle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &StreamHandle{
		path:        path,
		opts:        opts,
		logger:      opts.Logger.With("path", path),
		probeCtx:    ctx,
		probeCancel: cancel,
	}
	go h.loadMetadata()
	return h
}

func (h *StreamHandle) loadMetadata() {
	info, err := Probe(h.probeCtx, h.opts.FFprobePath, h.path)
	if err != nil {
		h.logger.Warn("metadata probe failed", "err", err)
		return
	}

	h.mu.Lock()
	h.info = info
	h.infoReady = true
	listeners := h.listeners
	h.listeners = nil
	h.mu.Unlock()

	if info.DurationMs <= 0 {
		return
	}
	for _, fn := range listeners {
		fn(info.DurationMs)
	}
}

func (h *StreamHandle) OnMetadata(fn func(durationMs int)) {
	h.mu.Lock()
	if !h.infoReady {
		h.listeners = append(h.listeners, fn)
		h.mu.Unlock()
		return
	}
	d := h.info.DurationMs
	h.mu.Unlock()
	if d > 0 {
		go fn(d)
	}
}

func (h *StreamHandle) Paused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.playing
}

func (h *StreamHandle) SetOffset(ms int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ms < 0 {
		ms = 0
	}
	h.offsetMs = ms
	if h.playing {
		h.startedAt = time.Now()
	}
}

func (h *StreamHandle) Offset() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentOffsetLocked()
}

func (h *StreamHandle) currentOffsetLocked() int {
	if !h.playing {
		return h.offsetMs
	}
	return h.offsetMs + int(time.Since(h.startedAt).Milliseconds())
}

func (h *StreamHandle) Frame() image.Image {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.frame == nil {
		return nil
	}
	return h.frame
}

// Play starts decoding from the current offset. Dimensions are probed
// synchronously if the background probe has not finished yet.
func (h *StreamHandle) Play() error {
	h.mu.Lock()
	if h.playing {
		h.mu.Unlock()
		return nil
	}
	ready := h.infoReady
	h.mu.Unlock()

	if !ready {
		info, err := Probe(context.Background(), h.opts.FFprobePath, h.path)
		if err != nil {
			return err
		}
		h.mu.Lock()
		h.info = info
		h.infoReady = true
		h.mu.Unlock()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.playing {
		return nil
	}
	if h.info.Width <= 0 || h.info.Height <= 0 {
		return fmt.Errorf("%s: no video stream", h.path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, h.opts.FFmpegPath,
		"-v", "error",
		"-re",
		"-ss", fmt.Sprintf("%.3f", float64(h.offsetMs)/1000),
		"-i", h.path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	h.playing = true
	h.startedAt = time.Now()
	h.cancel = cancel
	go h.readFrames(cmd, stdout, h.info.Width, h.info.Height)
	return nil
}

func (h *StreamHandle) readFrames(cmd *exec.Cmd, r io.Reader, w, ht int) {
	rect := image.Rect(0, 0, w, ht)
	buf := make([]byte, w*ht*4)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			break
		}
		frame := image.NewRGBA(rect)
		copy(frame.Pix, buf)
		h.mu.Lock()
		h.frame = frame
		h.mu.Unlock()
	}
	if err := cmd.Wait(); err != nil && !isKilled(err) {
		h.logger.Debug("ffmpeg exited", "err", err)
	}
}

func isKilled(err error) bool {
	exitErr, ok := err.(*exec.ExitError)
	return ok && !exitErr.Exited()
}

func (h *StreamHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.playing {
		return
	}
	h.offsetMs = h.currentOffsetLocked()
	h.playing = false
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

func (h *StreamHandle) Close() error {
	h.Pause()
	h.probeCancel()
	return nil
}
