package engine

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/scaffoldhero/internal/config"
	"github.com/ivlev/scaffoldhero/internal/media"
	"github.com/ivlev/scaffoldhero/internal/node"
	"github.com/ivlev/scaffoldhero/internal/schedule"
	"github.com/ivlev/scaffoldhero/internal/video"
)

// collectEncoder counts frames and remembers which ones had ink on them.
type collectEncoder struct {
	frames int
	inked  []bool
	params video.StreamParams
	err    error
}

func (e *collectEncoder) EncodeStream(ctx context.Context, frames <-chan *image.RGBA, release func(*image.RGBA), params video.StreamParams) error {
	e.params = params
	for f := range frames {
		e.frames++
		e.inked = append(e.inked, hasInk(f))
		release(f)
		if e.err != nil {
			return e.err
		}
	}
	return nil
}

func hasInk(img *image.RGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			return true
		}
	}
	return false
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Width, cfg.Height, cfg.FPS = 160, 90, 50
	return cfg
}

func textContainer() *node.Container {
	c := node.NewContainer()
	c.EndMs = 0
	txt := node.NewVisualText("hello")
	txt.IDNum, txt.StartMs, txt.EndMs = 1, 40, 60
	blank := node.NewVisualText("")
	blank.IDNum, blank.StartMs, blank.EndMs = 2, 60, 100
	s := node.NewAudioSpeech("narration")
	s.IDNum, s.StartMs, s.EndMs = 3, 0, 100
	c.AddNode(txt)
	c.AddNode(blank)
	c.AddNode(s)
	c.FixEndPoints()
	return c
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		fps   int
		endMs int
		want  int
	}{
		{50, 100, 6},
		{30, 1000, 31},
		{30, 0, 1},
		{2000, 3, 4},
	}
	for _, tt := range tests {
		cfg := testConfig()
		cfg.FPS = tt.fps
		r := NewRecorder(cfg, &collectEncoder{}, media.NewRegistry(), nil)
		c := node.NewContainer()
		c.EndMs = tt.endMs
		if got := r.FrameCount(c); got != tt.want {
			t.Errorf("fps %d, end %d: FrameCount = %d, want %d", tt.fps, tt.endMs, got, tt.want)
		}
	}
}

func TestRecordStreamsFramesAndWritesCueSheet(t *testing.T) {
	enc := &collectEncoder{}
	r := NewRecorder(testConfig(), enc, media.NewRegistry(), nil)
	out := filepath.Join(t.TempDir(), "exports", "demo.mp4")

	rep, err := r.Record(context.Background(), textContainer(), out)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("%s", rep.Summary("test"))

	// 0, 20, 40, 60, 80, 100
	if enc.frames != 6 || rep.Frames != 6 {
		t.Fatalf("encoded %d frames, report %d, want 6", enc.frames, rep.Frames)
	}
	wantInk := []bool{false, false, true, false, false, false}
	for i, ink := range enc.inked {
		if ink != wantInk[i] {
			t.Errorf("frame %d ink = %v, want %v", i, ink, wantInk[i])
		}
	}
	if enc.params.Width != 160 || enc.params.FPS != 50 || enc.params.Output != out {
		t.Errorf("params = %+v", enc.params)
	}

	sheet, err := schedule.ReadCueSheet(rep.CueSheet)
	if err != nil {
		t.Fatal(err)
	}
	if rep.CueSheet != strings.TrimSuffix(out, ".mp4")+".cues.yaml" {
		t.Errorf("cue sheet at %s", rep.CueSheet)
	}
	if sheet.EndMs != 100 || len(sheet.Speech) == 0 || len(sheet.Drawables) != 2 {
		t.Errorf("cue sheet = %+v", sheet)
	}
}

func TestRecordMissingHandleStillRecords(t *testing.T) {
	c := node.NewContainer()
	c.EndMs = 0
	v := node.NewVideoFile("data/absent.mov")
	v.IDNum, v.StartMs, v.EndMs = 1, 0, 40
	c.AddNode(v)
	c.FixEndPoints()

	enc := &collectEncoder{}
	r := NewRecorder(testConfig(), enc, media.NewRegistry(), nil)
	if _, err := r.Record(context.Background(), c, filepath.Join(t.TempDir(), "v.mp4")); err != nil {
		t.Fatal(err)
	}
	if enc.frames != 3 {
		t.Errorf("frames = %d, want 3", enc.frames)
	}
}

func TestRecordEncoderError(t *testing.T) {
	boom := errors.New("encoder crashed")
	enc := &collectEncoder{err: boom}
	c := node.NewContainer()
	c.EndMs = 10_000

	r := NewRecorder(testConfig(), enc, media.NewRegistry(), nil)
	out := filepath.Join(t.TempDir(), "x.mp4")
	_, err := r.Record(context.Background(), c, out)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if _, err := os.Stat(CueSheetPath(out)); !os.IsNotExist(err) {
		t.Error("cue sheet written for a failed recording")
	}
}

func TestAppendLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmark.log")
	rep := &Report{Output: "/tmp/a.mp4", Frames: 10}
	for i := 0; i < 2; i++ {
		if err := rep.AppendLog(path, "dev"); err != nil {
			t.Fatal(err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "Output: a.mp4"); n != 2 {
		t.Errorf("log has %d entries:\n%s", n, data)
	}
}
