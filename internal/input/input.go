// Package input maps named commands onto editor and playback operations.
// Key bindings and line parsing belong to the caller.
package input

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ivlev/scaffoldhero/internal/director"
	"github.com/ivlev/scaffoldhero/internal/editor"
)

var (
	// ErrUnknownCommand is returned for names that are not registered.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage indicates missing or malformed command arguments.
	ErrUsage = errors.New("invalid arguments")
)

// Command names.
const (
	InsertSpeech    = "insert-speech"
	InsertText      = "insert-text"
	InsertVideo     = "insert-video"
	MoveLeft        = "move-left"
	MoveRight       = "move-right"
	MoveUp          = "move-up"
	MoveDown        = "move-down"
	TogglePlayPause = "toggle-play-pause"
	Save            = "save"
	Remove          = "remove"
	Open            = "open"
	AddContainer    = "add-container"
	Seek            = "seek"
)

// Editor is the part of *editor.Editor that commands use.
type Editor interface {
	director.Source
	InsertSpeechNode(text string) (int, error)
	InsertTextNode(text string) (int, error)
	InsertVideoNode(path string) (int, error)
	RemoveNode(id int) error
	AddContainer() int
	OpenContainer(id int) error
	MoveTrackUp()
	MoveTrackDown()
	SeekBy(deltaMs int)
}

// Player is the part of *director.Director that commands use.
type Player interface {
	TogglePlayPause(src director.Source) error
	Seek(src director.Source, timeMs int) error
}

type handler func(ctx context.Context, args []string) error

// Dispatcher runs commands by name.
type Dispatcher struct {
	editor   Editor
	player   Player
	save     func(ctx context.Context) error
	handlers map[string]handler
}

// NewDispatcher wires the command table. save persists the document and
// may be nil, in which case the save command fails.
func NewDispatcher(ed Editor, player Player, save func(ctx context.Context) error) *Dispatcher {
	d := &Dispatcher{editor: ed, player: player, save: save}
	d.handlers = map[string]handler{
		InsertSpeech:    d.textInsert(ed.InsertSpeechNode),
		InsertText:      d.textInsert(ed.InsertTextNode),
		InsertVideo:     d.insertVideo,
		MoveLeft:        func(context.Context, []string) error { ed.MoveTrackUp(); return nil },
		MoveRight:       func(context.Context, []string) error { ed.MoveTrackDown(); return nil },
		MoveUp:          func(context.Context, []string) error { ed.SeekBy(-editor.SeekStepMs); return nil },
		MoveDown:        func(context.Context, []string) error { ed.SeekBy(editor.SeekStepMs); return nil },
		TogglePlayPause: func(context.Context, []string) error { return player.TogglePlayPause(ed) },
		Save:            d.doSave,
		Remove:          d.withID(ed.RemoveNode),
		Open:            d.withID(ed.OpenContainer),
		AddContainer:    d.addContainer,
		Seek:            d.seek,
	}
	return d
}

// Commands lists the registered names, sorted.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for n := range d.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the named command.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args []string) error {
	h, ok := d.handlers[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return h(ctx, args)
}

// textInsert joins the arguments into the node text. Empty text means the
// user declined and nothing is inserted.
func (d *Dispatcher) textInsert(insert func(string) (int, error)) handler {
	return func(_ context.Context, args []string) error {
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" {
			return nil
		}
		_, err := insert(text)
		return err
	}
}

func (d *Dispatcher) insertVideo(_ context.Context, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	_, err := d.editor.InsertVideoNode(path)
	return err
}

func (d *Dispatcher) doSave(ctx context.Context, _ []string) error {
	if d.save == nil {
		return errors.New("no store configured")
	}
	return d.save(ctx)
}

func (d *Dispatcher) addContainer(context.Context, []string) error {
	d.editor.AddContainer()
	return nil
}

func (d *Dispatcher) withID(fn func(int) error) handler {
	return func(_ context.Context, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("%w: want one node id", ErrUsage)
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		return fn(id)
	}
}

func (d *Dispatcher) seek(_ context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: want a time in ms", ErrUsage)
	}
	ms, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return d.player.Seek(d.editor, ms)
}
