package input

import (
	"context"
	"errors"
	"testing"

	"github.com/ivlev/scaffoldhero/internal/director"
	"github.com/ivlev/scaffoldhero/internal/editor"
	"github.com/ivlev/scaffoldhero/internal/node"
)

type fakePlayer struct {
	toggles int
	seeks   []int
}

func (p *fakePlayer) TogglePlayPause(director.Source) error { p.toggles++; return nil }

func (p *fakePlayer) Seek(_ director.Source, ms int) error {
	p.seeks = append(p.seeks, ms)
	return nil
}

func setup() (*Dispatcher, *editor.Editor, *fakePlayer, *int) {
	ed := editor.New(editor.NewDocument("p"), editor.Options{})
	player := &fakePlayer{}
	saves := new(int)
	d := NewDispatcher(ed, player, func(context.Context) error { *saves++; return nil })
	return d, ed, player, saves
}

func run(t *testing.T, d *Dispatcher, name string, args ...string) {
	t.Helper()
	if err := d.Dispatch(context.Background(), name, args); err != nil {
		t.Fatalf("%s %v: %v", name, args, err)
	}
}

func TestInsertCommands(t *testing.T) {
	d, ed, _, _ := setup()

	run(t, d, InsertSpeech, "hello", "world")
	run(t, d, InsertText, "caption")
	run(t, d, InsertVideo, "clip.mov")
	run(t, d, InsertText)
	run(t, d, InsertSpeech, "  ")

	c, err := ed.OpenedContainer()
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3 (empty text is declined)", len(c.Nodes))
	}
	if s, ok := c.Find(1).(*node.AudioSpeech); !ok || s.Text != "hello world" {
		t.Errorf("speech node = %+v", c.Find(1))
	}
	if v, ok := c.Find(3).(*node.VideoFile); !ok || v.FilePath != "clip.mov" {
		t.Errorf("video node = %+v", c.Find(3))
	}
}

func TestMoveCommands(t *testing.T) {
	d, ed, _, _ := setup()

	run(t, d, MoveRight)
	run(t, d, MoveRight)
	run(t, d, MoveLeft)
	run(t, d, MoveDown)
	run(t, d, MoveDown)
	run(t, d, MoveUp)

	if got := ed.Cursor(); got != (editor.Cursor{TimeMs: 1000, TrackIdx: 1}) {
		t.Errorf("cursor = %+v", got)
	}
}

func TestPlaybackAndSave(t *testing.T) {
	d, _, player, saves := setup()

	run(t, d, TogglePlayPause)
	run(t, d, Seek, "1500")
	run(t, d, Save)

	if player.toggles != 1 || len(player.seeks) != 1 || player.seeks[0] != 1500 {
		t.Errorf("player = %+v", player)
	}
	if *saves != 1 {
		t.Errorf("saves = %d", *saves)
	}
}

func TestRemoveAndOpen(t *testing.T) {
	d, ed, _, _ := setup()
	run(t, d, InsertText, "x")
	run(t, d, Remove, "1")
	// Removing the largest id frees it again.
	run(t, d, AddContainer)
	run(t, d, Open, "1")

	c, _ := ed.OpenedContainer()
	if c.IDNum != 1 {
		t.Errorf("opened container = %d, want 1", c.IDNum)
	}
	if err := d.Dispatch(context.Background(), Remove, []string{"99"}); !errors.Is(err, editor.ErrNodeNotFound) {
		t.Errorf("remove 99 = %v", err)
	}
}

func TestDispatchErrors(t *testing.T) {
	d, _, _, _ := setup()
	ctx := context.Background()

	if err := d.Dispatch(ctx, "fly", nil); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("fly = %v", err)
	}
	for _, args := range [][]string{nil, {"abc"}, {"1", "2"}} {
		if err := d.Dispatch(ctx, Seek, args); !errors.Is(err, ErrUsage) {
			t.Errorf("seek %v = %v", args, err)
		}
	}

	noSave := NewDispatcher(editor.New(editor.NewDocument("p"), editor.Options{}), &fakePlayer{}, nil)
	if err := noSave.Dispatch(ctx, Save, nil); err == nil {
		t.Error("save without a store succeeded")
	}
}

func TestCommandsListed(t *testing.T) {
	d, _, _, _ := setup()
	names := d.Commands()
	if len(names) != 13 {
		t.Errorf("commands = %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("not sorted: %v", names)
		}
	}
}
