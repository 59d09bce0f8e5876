// Package node models the time-ranged content of a composition: containers
// that own ordered children, and the leaf media nodes placed on their tracks.
package node

// NodeType is the variant tag carried by every node. It is what the
// persisted form uses to pick a decoder.
type NodeType string

const (
	TypeContainer   NodeType = "Container"
	TypeAudioSpeech NodeType = "AudioSpeech"
	TypeVisualText  NodeType = "VisualText"
	TypeVideoFile   NodeType = "VideoFile"
)

// DefaultDurationMs is the provisional length of a freshly created node.
const DefaultDurationMs = 2_000

// DefaultVideoPath is used when a video node is created without a path.
const DefaultVideoPath = "data/matchplay.mov"

// Node is the closed set {*Container, *AudioSpeech, *VisualText, *VideoFile}.
// The unexported method keeps other packages from adding variants, so a
// type switch with a default branch is exhaustive.
type Node interface {
	Attr() *CommonAttr
	node()
}

// CommonAttr is shared by all variants. Times are milliseconds from the
// container origin. EndMs >= StartMs is not enforced here.
type CommonAttr struct {
	NodeType NodeType `json:"nodeType"`
	IDNum    int      `json:"idNum"`
	Name     string   `json:"name"`
	TrackIdx int      `json:"trackIdx"`
	StartMs  int      `json:"startMs"`
	EndMs    int      `json:"endMs"`
}

// Attr returns the attribute block itself; it is promoted to every variant.
func (a *CommonAttr) Attr() *CommonAttr { return a }

// DurationMs returns EndMs - StartMs, which may be negative before fix-up.
func (a *CommonAttr) DurationMs() int { return a.EndMs - a.StartMs }

// Contains reports whether timeMs falls in the half-open interval
// [StartMs, EndMs).
func (a *CommonAttr) Contains(timeMs int) bool {
	return a.StartMs <= timeMs && timeMs < a.EndMs
}

func newAttr(t NodeType) CommonAttr {
	return CommonAttr{NodeType: t, EndMs: DefaultDurationMs}
}

// VoiceOpt configures speech synthesis for a speech node.
type VoiceOpt struct {
	Rate     float64 `json:"rate"`
	VoiceURI string  `json:"voiceURI"`
}

// DefaultVoiceOpt returns the voice settings new speech nodes start with.
func DefaultVoiceOpt() VoiceOpt {
	return VoiceOpt{Rate: 0.7}
}

// AudioSpeech is a spoken cue.
type AudioSpeech struct {
	CommonAttr `json:"commonNodeAttr"`
	Text       string   `json:"text"`
	VoiceOpt   VoiceOpt `json:"voiceOpt"`
}

func NewAudioSpeech(text string) *AudioSpeech {
	return &AudioSpeech{
		CommonAttr: newAttr(TypeAudioSpeech),
		Text:       text,
		VoiceOpt:   DefaultVoiceOpt(),
	}
}

func (*AudioSpeech) node() {}

// VisualText is a text overlay.
type VisualText struct {
	CommonAttr `json:"commonNodeAttr"`
	Text       string `json:"text"`
}

func NewVisualText(text string) *VisualText {
	return &VisualText{CommonAttr: newAttr(TypeVisualText), Text: text}
}

func (*VisualText) node() {}

// VideoFile is a clip of a media resource. SourceStartMs is the offset
// inside the resource where the clip begins, unrelated to the timeline
// StartMs of CommonAttr.
type VideoFile struct {
	CommonAttr    `json:"commonNodeAttr"`
	FilePath      string  `json:"filePath"`
	SourceStartMs int     `json:"startMs"`
	Rate          float64 `json:"rate"`
}

func NewVideoFile(path string) *VideoFile {
	if path == "" {
		path = DefaultVideoPath
	}
	return &VideoFile{CommonAttr: newAttr(TypeVideoFile), FilePath: path, Rate: 1}
}

func (*VideoFile) node() {}

// SourceOffsetMs maps a timeline instant to the offset inside the resource.
func (v *VideoFile) SourceOffsetMs(timeMs int) int {
	return (timeMs - v.StartMs) + v.SourceStartMs
}

// Filter returns the nodes that are of variant N, keeping their order.
func Filter[N Node](nodes []Node) []N {
	res := make([]N, 0, len(nodes))
	for _, n := range nodes {
		if v, ok := n.(N); ok {
			res = append(res, v)
		}
	}
	return res
}
