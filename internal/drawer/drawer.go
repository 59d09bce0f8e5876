// Package drawer decides, frame by frame, which text overlay or video clip
// is on screen, and starts and stops the video handles behind them.
package drawer

import (
	"errors"
	"fmt"

	"github.com/ivlev/scaffoldhero/internal/media"
	"github.com/ivlev/scaffoldhero/internal/node"
	"github.com/ivlev/scaffoldhero/internal/render"
	"github.com/ivlev/scaffoldhero/internal/schedule"
)

// ErrMissingHandle is returned when a video node is due on screen but no
// playback handle was registered for its path.
var ErrMissingHandle = errors.New("missing playback handle")

// Handles resolves a resource path to its playback handle.
type Handles interface {
	Get(path string) (media.Handle, bool)
}

// Drawer walks a one-shot schedule of text and video nodes. Text and video
// share one schedule so track layering stays in a single order.
type Drawer struct {
	entries []schedule.Entry[node.Node]
	idx     int
}

func New() *Drawer {
	return &Drawer{idx: -1}
}

// Setup compiles the schedule for c and skips every entry that starts
// before atMs, so playback from the middle does not replay them.
func (d *Drawer) Setup(c *node.Container, atMs int) {
	d.entries = schedule.OneShot(schedule.Drawables(c.NestedNodes()))
	d.idx = schedule.LastBefore(d.entries, atMs)
}

// Index returns the current entry index, -1 before the first entry.
func (d *Drawer) Index() int {
	return d.idx
}

// Current returns the nodes of the current entry.
func (d *Drawer) Current() []node.Node {
	if d.idx < 0 || d.idx >= len(d.entries) {
		return nil
	}
	return d.entries[d.idx].Nodes
}

// Tick advances at most one entry, then presents the current one. Entries
// closer together than the tick period can be skipped.
func (d *Drawer) Tick(nowMs int, surface render.Surface, handles Handles) error {
	if d.idx+1 < len(d.entries) && d.entries[d.idx+1].StartMs <= nowMs {
		d.idx++
		if d.idx > 0 {
			stopVideos(d.entries[d.idx-1].Nodes, handles)
		}
	}

	var errs []error
	for _, n := range d.Current() {
		switch v := n.(type) {
		case *node.VisualText:
			surface.DrawText(v.Text, render.DefaultTextStyle)
		case *node.VideoFile:
			if err := presentVideo(v, nowMs, surface, handles); err != nil {
				errs = append(errs, err)
			}
		default:
			errs = append(errs, fmt.Errorf("node %d: %s is not drawable", n.Attr().IDNum, n.Attr().NodeType))
		}
	}
	return errors.Join(errs...)
}

func presentVideo(v *node.VideoFile, nowMs int, surface render.Surface, handles Handles) error {
	h, ok := handles.Get(v.FilePath)
	if !ok {
		return fmt.Errorf("%w: %s (node %d)", ErrMissingHandle, v.FilePath, v.IDNum)
	}
	if h.Paused() {
		h.SetOffset(v.SourceOffsetMs(nowMs))
		if err := h.Play(); err != nil {
			return fmt.Errorf("play %s: %w", v.FilePath, err)
		}
	}
	surface.DrawFrame(h.Frame())
	return nil
}

// Halt pauses the handles of the current entry. Used when playback stops.
func (d *Drawer) Halt(handles Handles) {
	stopVideos(d.Current(), handles)
}

func stopVideos(nodes []node.Node, handles Handles) {
	for _, n := range nodes {
		v, ok := n.(*node.VideoFile)
		if !ok {
			continue
		}
		if h, ok := handles.Get(v.FilePath); ok && !h.Paused() {
			h.Pause()
		}
	}
}
