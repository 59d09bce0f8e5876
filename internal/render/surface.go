// Package render holds the 2-D drawing surface the playback engine paints
// into on every frame.
package render

import (
	"image"
	"image/color"
)

// TextStyle is the fixed presentation used for text overlays. Layout is not
// part of the engine contract; the values only need to be stable.
type TextStyle struct {
	SizePx      int
	BaselineTop bool
	Origin      image.Point
	Color       color.Color
}

// DefaultTextStyle: 48px, top baseline, anchored at the origin.
var DefaultTextStyle = TextStyle{
	SizePx:      48,
	BaselineTop: true,
	Origin:      image.Point{},
	Color:       color.White,
}

// Surface receives the per-frame command sequence: Clear, then any number of
// DrawText / DrawFrame calls.
type Surface interface {
	Clear()
	DrawText(text string, style TextStyle)
	DrawFrame(frame image.Image)
}

// Op names a recorded command.
type Op string

const (
	OpClear     Op = "clear"
	OpDrawText  Op = "draw-text"
	OpDrawFrame Op = "draw-frame"
)

// Command is one recorded surface call.
type Command struct {
	Op     Op
	Text   string
	Style  TextStyle
	Bounds image.Rectangle
}

// CommandLog is a Surface that only records what it was asked to do. It is
// used for headless playback and in tests.
type CommandLog struct {
	Commands []Command
}

func (l *CommandLog) Clear() {
	l.Commands = append(l.Commands, Command{Op: OpClear})
}

func (l *CommandLog) DrawText(text string, style TextStyle) {
	l.Commands = append(l.Commands, Command{Op: OpDrawText, Text: text, Style: style})
}

func (l *CommandLog) DrawFrame(frame image.Image) {
	var b image.Rectangle
	if frame != nil {
		b = frame.Bounds()
	}
	l.Commands = append(l.Commands, Command{Op: OpDrawFrame, Bounds: b})
}

// SinceLastClear returns the commands issued after the most recent Clear.
func (l *CommandLog) SinceLastClear() []Command {
	for i := len(l.Commands) - 1; i >= 0; i-- {
		if l.Commands[i].Op == OpClear {
			return l.Commands[i+1:]
		}
	}
	return l.Commands
}

// Reset drops the recorded commands.
func (l *CommandLog) Reset() {
	l.Commands = l.Commands[:0]
}
