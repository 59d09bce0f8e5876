// Package editor owns the document being edited: it allocates node ids,
// places new nodes at the cursor, keeps container bounds consistent and
// tells observers about every change.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/ivlev/scaffoldhero/internal/media"
	"github.com/ivlev/scaffoldhero/internal/node"
	"github.com/ivlev/scaffoldhero/internal/speech"
)

// SeekStepMs is how far one seek command moves the cursor.
const SeekStepMs = 1_000

// Options wires the editor to its collaborators. Every field is optional.
type Options struct {
	// Prober measures speech durations for new speech nodes. It should not
	// be the engine used for playback, so that pausing playback does not
	// cancel a measurement.
	Prober speech.Engine
	// Opener creates playback handles for new video nodes.
	Opener media.Opener
	// Handles is shared with the drawer. A new registry is made when nil.
	Handles *media.Registry
	Logger  *slog.Logger
}

// Snapshot is a deep copy of the opened container and the cursor, safe to
// hand to playback while editing continues.
type Snapshot struct {
	Container *node.Container
	Cursor    Cursor
}

// Editor serializes all mutations of a Document. Observers run after the
// lock is released, in registration order.
type Editor struct {
	mu     sync.Mutex
	doc    *Document
	opened *node.Container

	prober  speech.Engine
	opener  media.Opener
	handles *media.Registry
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	probes map[int]*durationProbe
	wg     sync.WaitGroup

	observers []func()
}

// New takes ownership of doc. Handles are opened for video nodes already
// in the document.
func New(doc *Document, opts Options) *Editor {
	if opts.Handles == nil {
		opts.Handles = media.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Editor{
		doc:     doc,
		prober:  opts.Prober,
		opener:  opts.Opener,
		handles: opts.Handles,
		logger:  opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
		probes:  make(map[int]*durationProbe),
	}

	doc.fixUp()
	for _, c := range doc.Project.Containers {
		for _, v := range node.Filter[*node.VideoFile](c.NestedNodes()) {
			e.ensureHandle(v.FilePath)
		}
	}
	return e
}

// Handles returns the registry shared with playback.
func (e *Editor) Handles() *media.Registry {
	return e.handles
}

// ProjectID returns the id the document is saved under.
func (e *Editor) ProjectID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Project.ID
}

// OnChange registers fn to run after every mutation.
func (e *Editor) OnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

func (e *Editor) notify() {
	e.mu.Lock()
	obs := make([]func(), len(e.observers))
	copy(obs, e.observers)
	e.mu.Unlock()

	for _, fn := range obs {
		fn()
	}
}

// Close cancels pending duration probes and waits for them to finish.
func (e *Editor) Close() {
	e.cancel()
	e.wg.Wait()
}

func (e *Editor) openedLocked() (*node.Container, error) {
	if e.opened != nil && e.opened.IDNum == e.doc.OpenedContainerID && e.doc.container(e.opened.IDNum) == e.opened {
		return e.opened, nil
	}
	c := e.doc.container(e.doc.OpenedContainerID)
	if c == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, e.doc.OpenedContainerID)
	}
	e.opened = c
	return c, nil
}

// OpenedContainer returns a copy of the container being edited.
func (e *Editor) OpenedContainer() (*node.Container, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.openedLocked()
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// Snapshot copies the opened container and the cursor.
func (e *Editor) Snapshot() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.openedLocked()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Container: c.Clone(), Cursor: e.doc.Cursor}, nil
}

// Document returns a deep copy of the whole document.
func (e *Editor) Document() *Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.clone()
}

// Cursor returns the current cursor.
func (e *Editor) Cursor() Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Cursor
}

// insert places n at the cursor with a fresh id and the default duration.
func (e *Editor) insert(n node.Node) (int, error) {
	e.mu.Lock()
	c, err := e.openedLocked()
	if err != nil {
		e.mu.Unlock()
		return 0, err
	}
	a := n.Attr()
	a.IDNum = e.doc.nextID()
	a.TrackIdx = e.doc.Cursor.TrackIdx
	a.StartMs = e.doc.Cursor.TimeMs
	a.EndMs = a.StartMs + node.DefaultDurationMs
	c.AddNode(n)
	e.doc.fixUp()
	id := a.IDNum
	e.mu.Unlock()

	e.notify()
	return id, nil
}

// InsertSpeechNode adds a spoken cue at the cursor and starts measuring how
// long it takes to speak. The node keeps the default duration until the
// measurement arrives.
func (e *Editor) InsertSpeechNode(text string) (int, error) {
	n := node.NewAudioSpeech(text)
	u := speech.UtteranceFor(n)
	id, err := e.insert(n)
	if err != nil {
		return 0, err
	}
	e.startProbe(id, u)
	return id, nil
}

// InsertTextNode adds a text overlay at the cursor.
func (e *Editor) InsertTextNode(text string) (int, error) {
	return e.insert(node.NewVisualText(text))
}

// InsertVideoNode adds a clip of path at the cursor. An empty path uses
// node.DefaultVideoPath. The clip is resized to the resource duration once
// the playback handle reports it.
func (e *Editor) InsertVideoNode(path string) (int, error) {
	n := node.NewVideoFile(path)
	filePath := n.FilePath
	id, err := e.insert(n)
	if err != nil {
		return 0, err
	}
	if h := e.ensureHandle(filePath); h != nil {
		h.OnMetadata(func(durationMs int) { e.applyVideoDuration(id, durationMs) })
	}
	return id, nil
}

func (e *Editor) ensureHandle(path string) media.Handle {
	if h, ok := e.handles.Get(path); ok {
		return h
	}
	if e.opener == nil {
		return nil
	}
	h, err := e.opener(path)
	if err != nil {
		e.logger.Warn("open playback handle", "path", path, "err", err)
		return nil
	}
	e.handles.Register(path, h)
	return h
}

func (e *Editor) applyVideoDuration(id, durationMs int) {
	e.mu.Lock()
	v, ok := e.doc.find(id).(*node.VideoFile)
	if !ok {
		e.mu.Unlock()
		return
	}
	v.EndMs = v.StartMs + durationMs
	e.doc.fixUp()
	e.mu.Unlock()

	e.notify()
}

// durationProbe is one pending measurement. Ids are reused after removal,
// so a probe only owns probes[id] while the entry is its own pointer.
type durationProbe struct {
	cancel context.CancelFunc
}

func (e *Editor) startProbe(id int, u speech.Utterance) {
	if e.prober == nil {
		return
	}
	ctx, cancel := context.WithCancel(e.ctx)
	p := &durationProbe{cancel: cancel}
	e.mu.Lock()
	e.probes[id] = p
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()

		d, err := speech.MeasureDuration(ctx, e.prober, u)

		e.mu.Lock()
		if e.probes[id] == p {
			delete(e.probes, id)
		}
		if ctx.Err() != nil {
			e.mu.Unlock()
			return
		}
		if err != nil {
			e.mu.Unlock()
			e.logger.Warn("measure speech duration", "node", id, "err", err)
			return
		}
		n, ok := e.doc.find(id).(*node.AudioSpeech)
		if !ok {
			e.mu.Unlock()
			return
		}
		n.EndMs = n.StartMs + int(math.Ceil(float64(d.Microseconds())/1000))
		e.doc.fixUp()
		e.mu.Unlock()

		e.notify()
	}()
}

// RemoveNode deletes a node from any container of the project and cancels
// its pending duration probe. Container bounds are not shrunk.
func (e *Editor) RemoveNode(id int) error {
	e.mu.Lock()
	var removed bool
	for _, c := range e.doc.Project.Containers {
		if _, ok := c.RemoveNode(id); ok {
			removed = true
			break
		}
	}
	if !removed {
		e.mu.Unlock()
		return fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
	}
	if p, ok := e.probes[id]; ok {
		p.cancel()
		delete(e.probes, id)
	}
	e.mu.Unlock()

	e.notify()
	return nil
}

// AddContainer appends an empty top-level container and returns its id.
// The opened container does not change.
func (e *Editor) AddContainer() int {
	e.mu.Lock()
	c := node.NewContainer()
	c.IDNum = e.doc.nextID()
	e.doc.Project.Containers = append(e.doc.Project.Containers, c)
	id := c.IDNum
	e.mu.Unlock()

	e.notify()
	return id
}

// ContainerIDs lists the top-level containers in project order.
func (e *Editor) ContainerIDs() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]int, 0, len(e.doc.Project.Containers))
	for _, c := range e.doc.Project.Containers {
		ids = append(ids, c.IDNum)
	}
	return ids
}

// OpenContainer switches editing to the top-level container id.
func (e *Editor) OpenContainer(id int) error {
	e.mu.Lock()
	c := e.doc.container(id)
	if c == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	e.doc.OpenedContainerID = id
	e.opened = c
	e.mu.Unlock()

	e.notify()
	return nil
}

func (e *Editor) moveCursor(fn func(c *Cursor)) {
	e.mu.Lock()
	fn(&e.doc.Cursor)
	e.doc.fixUp()
	e.mu.Unlock()

	e.notify()
}

// SetCursorTimeMs moves the cursor to timeMs. Playback uses this to report
// where it paused.
func (e *Editor) SetCursorTimeMs(timeMs int) {
	e.moveCursor(func(c *Cursor) { c.TimeMs = max(timeMs, 0) })
}

// SeekBy moves the cursor in time; it stops at zero.
func (e *Editor) SeekBy(deltaMs int) {
	e.moveCursor(func(c *Cursor) { c.TimeMs = max(c.TimeMs+deltaMs, 0) })
}

// MoveTrackUp selects the previous track; it stops at track zero.
func (e *Editor) MoveTrackUp() {
	e.moveCursor(func(c *Cursor) {
		if c.TrackIdx > 0 {
			c.TrackIdx--
		}
	})
}

// MoveTrackDown selects the next track. There is no upper bound.
func (e *Editor) MoveTrackDown() {
	e.moveCursor(func(c *Cursor) { c.TrackIdx++ })
}
