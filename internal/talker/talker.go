// Package talker fires speech requests for spoken cues as playback crosses
// their start boundaries.
package talker

import (
	"log/slog"

	"github.com/ivlev/scaffoldhero/internal/node"
	"github.com/ivlev/scaffoldhero/internal/schedule"
	"github.com/ivlev/scaffoldhero/internal/speech"
)

// Talker walks a window schedule of speech nodes. It is edge-triggered:
// each node is spoken once, at the boundary where it starts.
type Talker struct {
	engine speech.Engine
	voices *speech.VoiceCache
	logger *slog.Logger

	entries []schedule.Entry[*node.AudioSpeech]
	idx     int
}

// New creates a talker that speaks through engine. voices may be nil; when
// set, nodes without a voice use its default voice.
func New(engine speech.Engine, voices *speech.VoiceCache, logger *slog.Logger) *Talker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Talker{engine: engine, voices: voices, logger: logger, idx: -1}
}

// Setup compiles the schedule for c and moves past every boundary before
// atMs without speaking. Cues that started in the skipped range stay silent.
func (t *Talker) Setup(c *node.Container, atMs int) {
	t.entries = schedule.Window(node.Filter[*node.AudioSpeech](c.NestedNodes()))
	t.idx = schedule.LastBefore(t.entries, atMs)
}

// Index returns the current boundary index, -1 before the first one.
func (t *Talker) Index() int {
	return t.idx
}

// Tick crosses at most one boundary. When it does, every node that starts
// at that boundary is spoken, in track order.
func (t *Talker) Tick(nowMs int) {
	if t.idx+1 >= len(t.entries) || t.entries[t.idx+1].StartMs > nowMs {
		return
	}
	t.idx++
	entry := t.entries[t.idx]

	for _, n := range entry.Nodes {
		if n.StartMs != entry.StartMs {
			continue
		}
		if err := t.engine.Speak(t.utterance(n), speech.Callbacks{}); err != nil {
			t.logger.Warn("speech request failed", "node", n.IDNum, "err", err)
		}
	}
}

func (t *Talker) utterance(n *node.AudioSpeech) speech.Utterance {
	u := speech.UtteranceFor(n)
	if u.VoiceURI == "" && t.voices != nil {
		if v, ok := t.voices.Default(); ok {
			u.VoiceURI = v.URI
		}
	}
	return u
}

// Cancel stops in-flight speech.
func (t *Talker) Cancel() {
	t.engine.CancelAll()
}
