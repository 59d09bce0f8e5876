package director

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/scaffoldhero/internal/editor"
	"github.com/ivlev/scaffoldhero/internal/media"
	"github.com/ivlev/scaffoldhero/internal/node"
	"github.com/ivlev/scaffoldhero/internal/render"
	"github.com/ivlev/scaffoldhero/internal/speech"
	"github.com/ivlev/scaffoldhero/internal/talker"
)

// manualClock fires timers only when the test advances it.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due timers in order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	end := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at < c.timers[j].at })
		var due *manualTimer
		for i, t := range c.timers {
			if t.at <= end {
				due = t
				c.timers = append(c.timers[:i], c.timers[i+1:]...)
				break
			}
		}
		if due == nil {
			c.now = end
			c.mu.Unlock()
			return
		}
		c.now = due.at
		c.mu.Unlock()
		if !due.stopped {
			due.f()
		}
	}
}

func (c *manualClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type fixture struct {
	dir   *Director
	clock *manualClock
	log   *render.CommandLog
	voice *speech.Recorder
	ticks []int
}

func newFixture() *fixture {
	f := &fixture{clock: &manualClock{}, log: &render.CommandLog{}, voice: &speech.Recorder{}}
	f.dir = NewDirector(f.log, media.NewRegistry(), talker.New(f.voice, nil, nil), nil)
	f.dir.Clock = f.clock
	f.dir.OnChange(func(ms int) { f.ticks = append(f.ticks, ms) })
	return f
}

// fakeSource returns a fixed container and cursor.
type fakeSource struct {
	c      *node.Container
	cursor int
}

func (s fakeSource) Snapshot() (editor.Snapshot, error) {
	return editor.Snapshot{Container: s.c.Clone(), Cursor: editor.Cursor{TimeMs: s.cursor}}, nil
}

func container(endMs int) *node.Container {
	c := node.NewContainer()
	c.EndMs = endMs
	return c
}

func TestTogglePlayPauseStartPoint(t *testing.T) {
	tests := []struct {
		cursor int
		want   int
	}{
		{1990, 0},
		{2000, 0},
		{1984, 0},
		{1983, 1983},
		{500, 500},
		{0, 0},
	}
	for _, tt := range tests {
		f := newFixture()
		if err := f.dir.TogglePlayPause(fakeSource{c: container(2000), cursor: tt.cursor}); err != nil {
			t.Fatal(err)
		}
		if f.dir.State() != Playing {
			t.Fatalf("cursor %d: state = %s, want playing", tt.cursor, f.dir.State())
		}
		if len(f.ticks) != 1 || f.ticks[0] != tt.want {
			t.Errorf("cursor %d: first frame at %v, want %d", tt.cursor, f.ticks, tt.want)
		}
	}
}

func TestFrameLoopAdvancesClock(t *testing.T) {
	f := newFixture()
	f.dir.Play(container(100), 0)

	f.clock.Advance(48 * time.Millisecond)
	want := []int{0, 16, 32, 48}
	if len(f.ticks) != len(want) {
		t.Fatalf("ticks = %v, want %v", f.ticks, want)
	}
	for i := range want {
		if f.ticks[i] != want[i] {
			t.Fatalf("ticks = %v, want %v", f.ticks, want)
		}
	}
	if f.dir.TimeMs() != 48 {
		t.Errorf("TimeMs = %d, want 48", f.dir.TimeMs())
	}
}

func TestNaturalEndReturnsToIdle(t *testing.T) {
	f := newFixture()
	f.dir.Play(container(40), 0)
	f.clock.Advance(time.Second)

	if f.dir.State() != Idle {
		t.Fatalf("state = %s after end, want idle", f.dir.State())
	}
	// 0, 16, 32; 48 would pass the end.
	if last := f.ticks[len(f.ticks)-1]; last != 32 || len(f.ticks) != 3 {
		t.Errorf("ticks = %v", f.ticks)
	}
	if f.clock.pending() != 0 {
		t.Error("timer still pending after end")
	}

	// Idle again, so toggling starts a new run rather than pausing.
	src := fakeSource{c: container(40), cursor: 32}
	if err := f.dir.TogglePlayPause(src); err != nil {
		t.Fatal(err)
	}
	if f.dir.State() != Playing || f.ticks[len(f.ticks)-1] != 0 {
		t.Errorf("restart: state %s, ticks %v", f.dir.State(), f.ticks)
	}
}

func TestPauseCancelsSpeechAndStopsTicks(t *testing.T) {
	f := newFixture()
	c := container(5000)
	s := node.NewAudioSpeech("hello")
	s.IDNum, s.StartMs, s.EndMs = 1, 32, 1000
	c.AddNode(s)

	f.dir.Play(c, 0)
	f.clock.Advance(32 * time.Millisecond)
	if n := len(f.voice.Utterances()); n != 1 {
		t.Fatalf("spoke %d utterances before pause, want 1", n)
	}

	src := fakeSource{c: c}
	if err := f.dir.TogglePlayPause(src); err != nil {
		t.Fatal(err)
	}
	if f.dir.State() != Idle {
		t.Fatalf("state = %s, want idle", f.dir.State())
	}
	if f.voice.Cancels() != 1 {
		t.Errorf("CancelAll called %d times, want 1", f.voice.Cancels())
	}
	if last := f.ticks[len(f.ticks)-1]; last != 32 {
		t.Errorf("pause reported %d, want 32", last)
	}

	n := len(f.ticks)
	f.clock.Advance(time.Second)
	if len(f.ticks) != n {
		t.Errorf("ticks continued after pause: %v", f.ticks[n:])
	}

	// Pausing again is a no-op.
	f.dir.Pause()
	if f.voice.Cancels() != 1 || len(f.ticks) != n {
		t.Error("second Pause had effects")
	}
}

func TestPlayWhilePlayingIsNoop(t *testing.T) {
	f := newFixture()
	f.dir.Play(container(1000), 100)
	f.dir.Play(container(1000), 700)

	if len(f.ticks) != 1 || f.ticks[0] != 100 {
		t.Errorf("ticks = %v, want [100]", f.ticks)
	}
}

func TestStaleTimerAfterRestart(t *testing.T) {
	f := newFixture()
	f.dir.Play(container(1000), 0)
	f.dir.Pause()
	f.dir.Play(container(1000), 500)

	f.clock.Advance(16 * time.Millisecond)
	// 0 (play), 0 (pause), 500 (play), 516 (tick). No frame from the first run.
	want := []int{0, 0, 500, 516}
	if len(f.ticks) != len(want) {
		t.Fatalf("ticks = %v, want %v", f.ticks, want)
	}
	for i := range want {
		if f.ticks[i] != want[i] {
			t.Fatalf("ticks = %v, want %v", f.ticks, want)
		}
	}
}

func TestFrameClearsThenDraws(t *testing.T) {
	f := newFixture()
	c := container(1000)
	txt := node.NewVisualText("caption")
	txt.IDNum, txt.StartMs, txt.EndMs = 1, 0, 500
	c.AddNode(txt)

	f.dir.Play(c, 0)
	cmds := f.log.Commands
	if len(cmds) != 2 || cmds[0].Op != render.OpClear || cmds[1].Op != render.OpDrawText || cmds[1].Text != "caption" {
		t.Errorf("commands = %+v", cmds)
	}
}

func TestSeekRestartsAtTime(t *testing.T) {
	f := newFixture()
	src := fakeSource{c: container(3000)}
	f.dir.Play(src.c, 0)

	if err := f.dir.Seek(src, 1200); err != nil {
		t.Fatal(err)
	}
	if f.dir.State() != Playing || f.dir.TimeMs() != 1200 {
		t.Errorf("after Seek: %s at %d", f.dir.State(), f.dir.TimeMs())
	}
}

func TestSnapshotFrameIsACopy(t *testing.T) {
	canvas := render.NewCanvas(64, 32)
	clock := &manualClock{}
	d := NewDirector(canvas, media.NewRegistry(), talker.New(&speech.Recorder{}, nil, nil), nil)
	d.Clock = clock

	c := container(1000)
	txt := node.NewVisualText("caption")
	txt.IDNum, txt.StartMs, txt.EndMs = 1, 0, 500
	c.AddNode(txt)
	d.Play(c, 0)
	defer d.Pause()

	frame, ok := d.SnapshotFrame()
	if !ok {
		t.Fatal("canvas director has no frame")
	}
	if !hasAlpha(frame.Pix) {
		t.Fatal("first frame is blank, want the caption")
	}

	// The caption ends, so later frames clear the canvas.
	clock.Advance(512 * time.Millisecond)
	if hasAlpha(canvas.Image().Pix) {
		t.Fatal("canvas still shows the caption after it ended")
	}
	if !hasAlpha(frame.Pix) {
		t.Error("copied frame changed with the canvas")
	}
}

func TestSnapshotFrameWithoutImage(t *testing.T) {
	f := newFixture()
	if frame, ok := f.dir.SnapshotFrame(); ok || frame != nil {
		t.Errorf("SnapshotFrame on a command log = %v, %v", frame, ok)
	}
}

func hasAlpha(pix []uint8) bool {
	for i := 3; i < len(pix); i += 4 {
		if pix[i] != 0 {
			return true
		}
	}
	return false
}
