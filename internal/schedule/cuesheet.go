package schedule

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/scaffoldhero/internal/node"
)

// CueSheet is a readable dump of the schedules compiled for one container.
type CueSheet struct {
	Version   string `yaml:"version"`
	Container int    `yaml:"container"`
	EndMs     int    `yaml:"end_ms"`
	Drawables []Cue  `yaml:"drawables"`
	Speech    []Cue  `yaml:"speech"`
}

// Cue is one schedule entry.
type Cue struct {
	AtMs  int       `yaml:"at_ms"`
	Nodes []CueNode `yaml:"nodes"`
}

// CueNode identifies a node attached to a cue.
type CueNode struct {
	ID    int    `yaml:"id"`
	Kind  string `yaml:"kind"`
	Track int    `yaml:"track"`
	Text  string `yaml:"text,omitempty"`
	Path  string `yaml:"path,omitempty"`
}

// NewCueSheet compiles both schedules for c.
func NewCueSheet(c *node.Container) *CueSheet {
	nested := c.NestedNodes()
	return &CueSheet{
		Version:   "1.0",
		Container: c.IDNum,
		EndMs:     c.EndMs,
		Drawables: Describe(OneShot(Drawables(nested))),
		Speech:    Describe(Window(node.Filter[*node.AudioSpeech](nested))),
	}
}

// Drawables keeps the text and video leaves, in order.
func Drawables(nodes []node.Node) []node.Node {
	var res []node.Node
	for _, n := range nodes {
		switch n.(type) {
		case *node.VisualText, *node.VideoFile:
			res = append(res, n)
		}
	}
	return res
}

// Describe converts entries to cues.
func Describe[N node.Node](entries []Entry[N]) []Cue {
	cues := make([]Cue, 0, len(entries))
	for _, e := range entries {
		cue := Cue{AtMs: e.StartMs, Nodes: []CueNode{}}
		for _, n := range e.Nodes {
			cue.Nodes = append(cue.Nodes, describeNode(n))
		}
		cues = append(cues, cue)
	}
	return cues
}

func describeNode(n node.Node) CueNode {
	a := n.Attr()
	cn := CueNode{ID: a.IDNum, Kind: string(a.NodeType), Track: a.TrackIdx}
	switch v := n.(type) {
	case *node.AudioSpeech:
		cn.Text = v.Text
	case *node.VisualText:
		cn.Text = v.Text
	case *node.VideoFile:
		cn.Path = v.FilePath
	}
	return cn
}

// WriteCueSheet writes a cue sheet to a YAML file
func WriteCueSheet(sheet *CueSheet, path string) error {
	data, err := yaml.Marshal(sheet)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadCueSheet reads a cue sheet from a YAML file
func ReadCueSheet(path string) (*CueSheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sheet CueSheet
	if err := yaml.Unmarshal(data, &sheet); err != nil {
		return nil, err
	}

	return &sheet, nil
}
