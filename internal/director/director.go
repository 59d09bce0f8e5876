// Package director drives playback: it owns the virtual clock, the
// play/pause state machine and the frame loop that ticks the drawer and the
// talker.
package director

import (
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/scaffoldhero/internal/drawer"
	"github.com/ivlev/scaffoldhero/internal/editor"
	"github.com/ivlev/scaffoldhero/internal/node"
	"github.com/ivlev/scaffoldhero/internal/render"
	"github.com/ivlev/scaffoldhero/internal/talker"
)

// DefaultMsPerFrame is the frame period when none is configured.
const DefaultMsPerFrame = 16

// State of the playback state machine.
type State int

const (
	Idle State = iota
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Source provides what playback needs from the editor.
type Source interface {
	Snapshot() (editor.Snapshot, error)
}

// Director plays one container at a time. All state is guarded by mu;
// observers are called without it.
type Director struct {
	// MsPerFrame is the frame period and the clock step. Set it before the
	// first Play.
	MsPerFrame int
	// Clock schedules frames. WallClock by default.
	Clock Clock

	surface render.Surface
	handles drawer.Handles
	drawer  *drawer.Drawer
	talker  *talker.Talker
	logger  *slog.Logger

	mu        sync.Mutex
	state     State
	timeMs    int
	endMs     int
	gen       uint64
	timer     Timer
	observers []func(timeMs int)
}

// NewDirector creates an idle director that draws on surface and speaks
// through tk.
func NewDirector(surface render.Surface, handles drawer.Handles, tk *talker.Talker, logger *slog.Logger) *Director {
	if logger == nil {
		logger = slog.Default()
	}
	return &Director{
		MsPerFrame: DefaultMsPerFrame,
		Clock:      WallClock{},
		surface:    surface,
		handles:    handles,
		drawer:     drawer.New(),
		talker:     tk,
		logger:     logger,
	}
}

// State returns the current playback state.
func (d *Director) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// TimeMs returns the virtual clock.
func (d *Director) TimeMs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timeMs
}

// SnapshotFrame copies the last drawn frame. ok is false when the surface
// is not backed by an image.
func (d *Director) SnapshotFrame() (frame *image.RGBA, ok bool) {
	img, ok := d.surface.(interface{ Image() *image.RGBA })
	if !ok {
		return nil, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	src := img.Image()
	frame = image.NewRGBA(src.Rect)
	copy(frame.Pix, src.Pix)
	return frame, true
}

// OnChange registers fn to receive the clock after every frame and on
// pause.
func (d *Director) OnChange(fn func(timeMs int)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, fn)
}

func (d *Director) notify(timeMs int) {
	d.mu.Lock()
	obs := make([]func(int), len(d.observers))
	copy(obs, d.observers)
	d.mu.Unlock()

	for _, fn := range obs {
		fn(timeMs)
	}
}

// Play starts playback of c from startMs. The first frame runs before Play
// returns. Play does nothing while already playing. c must not be mutated
// during playback; pass a snapshot.
func (d *Director) Play(c *node.Container, startMs int) {
	d.mu.Lock()
	if d.state == Playing {
		d.mu.Unlock()
		return
	}
	d.state = Playing
	d.gen++
	gen := d.gen
	d.timeMs = startMs
	d.endMs = c.EndMs
	d.drawer.Setup(c, startMs)
	d.talker.Setup(c, startMs)
	d.mu.Unlock()

	d.logger.Debug("play", "container", c.IDNum, "startMs", startMs, "endMs", c.EndMs)
	d.frame(gen, startMs)
}

// Pause stops the frame loop and in-flight speech and pauses video
// handles. Observers receive the time playback stopped at.
func (d *Director) Pause() {
	d.mu.Lock()
	if d.state != Playing {
		d.mu.Unlock()
		return
	}
	d.stopLocked()
	d.talker.Cancel()
	timeMs := d.timeMs
	d.mu.Unlock()

	d.logger.Debug("pause", "timeMs", timeMs)
	d.notify(timeMs)
}

func (d *Director) stopLocked() {
	d.state = Idle
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.drawer.Halt(d.handles)
}

// TogglePlayPause pauses when playing. Otherwise it plays the opened
// container from the cursor, or from zero when the cursor is within one
// frame of the end.
func (d *Director) TogglePlayPause(src Source) error {
	if d.State() == Playing {
		d.Pause()
		return nil
	}

	snap, err := src.Snapshot()
	if err != nil {
		return err
	}
	startMs := snap.Cursor.TimeMs
	if startMs+d.MsPerFrame >= snap.Container.EndMs {
		startMs = 0
	}
	d.Play(snap.Container, startMs)
	return nil
}

// Seek restarts playback of the opened container at timeMs.
func (d *Director) Seek(src Source, timeMs int) error {
	snap, err := src.Snapshot()
	if err != nil {
		return err
	}
	d.Pause()
	d.Play(snap.Container, max(timeMs, 0))
	return nil
}

func (d *Director) frame(gen uint64, timeMs int) {
	d.mu.Lock()
	if d.state != Playing || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timeMs = timeMs

	d.surface.Clear()
	if err := d.drawer.Tick(timeMs, d.surface, d.handles); err != nil {
		d.logger.Error("draw frame", "timeMs", timeMs, "err", err)
	}
	d.talker.Tick(timeMs)

	next := timeMs + d.MsPerFrame
	if next > d.endMs {
		d.stopLocked()
		d.logger.Debug("reached end", "timeMs", timeMs)
	} else {
		d.timer = d.Clock.AfterFunc(time.Duration(d.MsPerFrame)*time.Millisecond, func() {
			d.frame(gen, next)
		})
	}
	d.mu.Unlock()

	d.notify(timeMs)
}
