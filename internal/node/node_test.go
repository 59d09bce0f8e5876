package node

import (
	"encoding/json"
	"errors"
	"testing"
)

func leaf(id, track, start, end int) *VisualText {
	n := NewVisualText("t")
	n.IDNum = id
	n.TrackIdx = track
	n.StartMs = start
	n.EndMs = end
	return n
}

func TestAddNodeKeepsStartOrder(t *testing.T) {
	c := NewContainer()
	starts := []int{500, 100, 300, 100, 0, 300}
	for i, s := range starts {
		c.AddNode(leaf(i+1, 0, s, s+10))
	}

	for i := 1; i < len(c.Nodes); i++ {
		prev, curr := c.Nodes[i-1].Attr(), c.Nodes[i].Attr()
		if prev.StartMs > curr.StartMs {
			t.Fatalf("nodes out of order at %d: %d > %d", i, prev.StartMs, curr.StartMs)
		}
		if prev.StartMs == curr.StartMs && prev.IDNum > curr.IDNum {
			t.Errorf("tie at %d not stable: id %d before id %d", curr.StartMs, prev.IDNum, curr.IDNum)
		}
	}
}

func TestFixEndPointsPropagatesUpward(t *testing.T) {
	root := NewContainer()
	root.EndMs = 1000

	inner := NewContainer()
	inner.IDNum = 1
	inner.EndMs = 500
	inner.AddNode(leaf(2, 0, 0, 4000))
	root.AddNode(inner)
	root.AddNode(leaf(3, 1, 0, 1500))

	root.FixEndPoints()

	if inner.EndMs != 4000 {
		t.Errorf("inner EndMs = %d, want 4000", inner.EndMs)
	}
	if root.EndMs != 4000 {
		t.Errorf("root EndMs = %d, want 4000", root.EndMs)
	}
	for _, n := range root.Nodes {
		if n.Attr().EndMs > root.EndMs {
			t.Errorf("child %d ends after root", n.Attr().IDNum)
		}
	}
}

func TestFixEndPointsNeverShrinks(t *testing.T) {
	c := NewContainer()
	c.EndMs = 9000
	c.AddNode(leaf(1, 0, 0, 100))
	c.FixEndPoints()
	if c.EndMs != 9000 {
		t.Errorf("EndMs = %d, want 9000", c.EndMs)
	}
}

func TestNestedNodesPreorder(t *testing.T) {
	root := NewContainer()
	inner := NewContainer()
	inner.IDNum = 2
	inner.StartMs = 50
	inner.AddNode(leaf(3, 0, 60, 70))
	root.AddNode(leaf(1, 0, 0, 10))
	root.AddNode(inner)
	root.AddNode(leaf(4, 0, 100, 110))

	var ids []int
	for _, n := range root.NestedNodes() {
		ids = append(ids, n.Attr().IDNum)
	}
	want := []int{1, 2, 3, 4}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestRemoveNodeNested(t *testing.T) {
	root := NewContainer()
	inner := NewContainer()
	inner.IDNum = 1
	inner.AddNode(leaf(2, 0, 0, 10))
	inner.AddNode(leaf(3, 0, 5, 10))
	root.AddNode(inner)

	removed, ok := root.RemoveNode(2)
	if !ok || removed.Attr().IDNum != 2 {
		t.Fatalf("RemoveNode(2) = %v, %v", removed, ok)
	}
	if root.Find(2) != nil {
		t.Error("node 2 still reachable")
	}
	if len(inner.Nodes) != 1 || inner.Nodes[0].Attr().IDNum != 3 {
		t.Errorf("unexpected remaining children: %v", inner.Nodes)
	}
	if _, ok := root.RemoveNode(42); ok {
		t.Error("RemoveNode(42) reported success")
	}
}

func TestMaxIDAndClone(t *testing.T) {
	root := NewContainer()
	root.AddNode(leaf(7, 0, 0, 10))
	root.AddNode(leaf(3, 0, 0, 10))
	if got := root.MaxID(); got != 7 {
		t.Errorf("MaxID = %d, want 7", got)
	}

	cp := root.Clone()
	cp.Nodes[0].Attr().EndMs = 999
	if root.Nodes[0].Attr().EndMs == 999 {
		t.Error("Clone shares leaf nodes with the original")
	}
}

func TestCodecRoundTripKeepsVariants(t *testing.T) {
	root := NewContainer()
	speech := NewAudioSpeech("hello")
	speech.IDNum = 1
	video := NewVideoFile("clip.mov")
	video.IDNum = 2
	video.SourceStartMs = 1500
	root.AddNode(speech)
	root.AddNode(video)
	root.AddNode(leaf(3, 1, 0, 10))

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := DecodeContainer(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(got.Nodes) != 3 {
		t.Fatalf("decoded %d children, want 3", len(got.Nodes))
	}
	s, ok := got.Find(1).(*AudioSpeech)
	if !ok || s.Text != "hello" || s.VoiceOpt.Rate != 0.7 {
		t.Errorf("speech node decoded as %#v", got.Find(1))
	}
	v, ok := got.Find(2).(*VideoFile)
	if !ok || v.FilePath != "clip.mov" || v.SourceStartMs != 1500 {
		t.Errorf("video node decoded as %#v", got.Find(2))
	}
}

func TestDecodeUnknownVariant(t *testing.T) {
	_, err := Decode([]byte(`{"commonNodeAttr":{"nodeType":"Hologram","idNum":1}}`))
	if !errors.Is(err, ErrUnimplementedVariant) {
		t.Fatalf("err = %v, want ErrUnimplementedVariant", err)
	}

	_, err = DecodeContainer([]byte(`{"commonNodeAttr":{"nodeType":"Container"},"nodes":[{"commonNodeAttr":{"nodeType":"Hologram"}}]}`))
	if !errors.Is(err, ErrUnimplementedVariant) {
		t.Fatalf("nested err = %v, want ErrUnimplementedVariant", err)
	}
}

func TestSourceOffset(t *testing.T) {
	v := NewVideoFile("")
	v.StartMs = 1000
	v.SourceStartMs = 250
	if got := v.SourceOffsetMs(1600); got != 850 {
		t.Errorf("SourceOffsetMs(1600) = %d, want 850", got)
	}
	if v.FilePath != DefaultVideoPath {
		t.Errorf("FilePath = %q, want default", v.FilePath)
	}
}
