package schedule

import (
	"path/filepath"
	"testing"

	"github.com/ivlev/scaffoldhero/internal/node"
)

func speech(id, track, start, end int) *node.AudioSpeech {
	n := node.NewAudioSpeech("s")
	n.IDNum = id
	n.TrackIdx = track
	n.StartMs = start
	n.EndMs = end
	return n
}

func TestOneShotOrdersByStart(t *testing.T) {
	var nodes []*node.AudioSpeech
	for i, s := range []int{500, 100, 300} {
		nodes = append(nodes, speech(i+1, 0, s, s+50))
	}

	entries := OneShot(nodes)
	want := []int{100, 300, 500}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.StartMs != want[i] {
			t.Errorf("entry %d starts at %d, want %d", i, e.StartMs, want[i])
		}
		if len(e.Nodes) != 1 || e.Nodes[0].StartMs != want[i] {
			t.Errorf("entry %d carries %v", i, e.Nodes)
		}
	}
}

func TestWindowBoundariesAndActiveSets(t *testing.T) {
	a := speech(1, 0, 0, 1000)
	b := speech(2, 1, 500, 1500)

	// B first in the input; the per-boundary order must still follow tracks.
	entries := Window([]*node.AudioSpeech{b, a})

	tests := []struct {
		at  int
		ids []int
	}{
		{0, []int{1}},
		{500, []int{1, 2}},
		{1000, []int{2}},
		{1500, []int{}},
	}
	if len(entries) != len(tests) {
		t.Fatalf("got %d boundaries, want %d", len(entries), len(tests))
	}
	for i, tt := range tests {
		e := entries[i]
		if e.StartMs != tt.at {
			t.Errorf("boundary %d = %d, want %d", i, e.StartMs, tt.at)
		}
		if len(e.Nodes) != len(tt.ids) {
			t.Errorf("at %d: %d active, want %d", tt.at, len(e.Nodes), len(tt.ids))
			continue
		}
		for j, id := range tt.ids {
			if e.Nodes[j].IDNum != id {
				t.Errorf("at %d: position %d is node %d, want %d", tt.at, j, e.Nodes[j].IDNum, id)
			}
		}
	}
}

func TestWindowEmpty(t *testing.T) {
	if got := Window[*node.AudioSpeech](nil); len(got) != 0 {
		t.Errorf("Window(nil) = %v", got)
	}
}

func TestLastBefore(t *testing.T) {
	entries := OneShot([]*node.AudioSpeech{speech(1, 0, 100, 0), speech(2, 0, 300, 0), speech(3, 0, 500, 0)})

	tests := []struct {
		at   int
		want int
	}{
		{0, -1},
		{100, -1},
		{101, 0},
		{500, 1},
		{600, 2},
	}
	for _, tt := range tests {
		if got := LastBefore(entries, tt.at); got != tt.want {
			t.Errorf("LastBefore(%d) = %d, want %d", tt.at, got, tt.want)
		}
	}
}

func TestCueSheetWriteRead(t *testing.T) {
	c := node.NewContainer()
	text := node.NewVisualText("title")
	text.IDNum = 1
	text.StartMs = 200
	c.AddNode(text)
	c.AddNode(speech(2, 0, 0, 1000))
	video := node.NewVideoFile("clip.mov")
	video.IDNum = 3
	c.AddNode(video)

	sheet := NewCueSheet(c)
	if len(sheet.Drawables) != 2 || sheet.Drawables[0].Nodes[0].Path != "clip.mov" {
		t.Fatalf("unexpected drawables: %+v", sheet.Drawables)
	}
	if len(sheet.Speech) != 2 {
		t.Fatalf("unexpected speech cues: %+v", sheet.Speech)
	}

	path := filepath.Join(t.TempDir(), "cues.yaml")
	if err := WriteCueSheet(sheet, path); err != nil {
		t.Fatalf("WriteCueSheet failed: %v", err)
	}
	read, err := ReadCueSheet(path)
	if err != nil {
		t.Fatalf("ReadCueSheet failed: %v", err)
	}
	if read.Version != "1.0" || len(read.Drawables) != 2 || read.Drawables[1].Nodes[0].Text != "title" {
		t.Errorf("read back %+v", read)
	}
}
