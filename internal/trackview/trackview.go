// Package trackview draws the opened container as an SVG: one column per
// track, time running downwards, and the cursor as a bar.
package trackview

import (
	"fmt"
	"html"
	"io"
	"math"
	"strings"

	"github.com/ivlev/scaffoldhero/internal/editor"
	"github.com/ivlev/scaffoldhero/internal/node"
)

// View is a scrolling time window over the tracks. The window moves only
// when the cursor leaves it.
type View struct {
	StartMs   int
	WindowMs  int
	Width     int
	Height    int
	TrackSize int
	Padding   int
}

func NewView(windowMs, trackSize, padding int) *View {
	return &View{
		WindowMs:  windowMs,
		Width:     500,
		Height:    500,
		TrackSize: trackSize,
		Padding:   padding,
	}
}

// Zoom scales the window length; factors below 1 zoom in.
func (v *View) Zoom(factor float64) {
	v.WindowMs = max(int(math.Ceil(factor*float64(v.WindowMs))), 1)
}

// FollowCursor scrolls the window so that cursorMs is visible, keeping a
// tenth of the window as margin on the side it scrolled towards.
func (v *View) FollowCursor(cursorMs int) {
	margin := int(math.Ceil(float64(v.WindowMs) / 10))
	if cursorMs <= v.StartMs {
		v.StartMs = cursorMs - margin
	}
	if cursorMs >= v.StartMs+v.WindowMs {
		v.StartMs = cursorMs - v.WindowMs + margin
	}
}

// Pos maps a time to a vertical pixel position.
func (v *View) Pos(timeMs int) int {
	num := (timeMs - v.StartMs) * v.Height
	q := num / v.WindowMs
	// Division truncates toward zero, which is already the ceiling for
	// negative values.
	if num > 0 && num%v.WindowMs != 0 {
		q++
	}
	return q
}

func fill(n node.Node) string {
	switch n.(type) {
	case *node.AudioSpeech:
		return "#bee"
	case *node.VisualText:
		return "#ccc"
	case *node.VideoFile:
		return "#beb"
	case *node.Container:
		return "#eeb"
	default:
		return "white"
	}
}

func label(n node.Node) string {
	switch v := n.(type) {
	case *node.AudioSpeech:
		return v.Text
	case *node.VisualText:
		return v.Text
	case *node.VideoFile:
		return v.FilePath
	default:
		return fmt.Sprintf("#%d", n.Attr().IDNum)
	}
}

// Render follows the cursor, then writes the direct children of c and the
// cursor bar.
func (v *View) Render(w io.Writer, c *node.Container, cur editor.Cursor) error {
	v.FollowCursor(cur.TimeMs)

	var svg strings.Builder
	svg.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`+"\n", v.Width, v.Height))

	for _, n := range c.Nodes {
		a := n.Attr()
		x := a.TrackIdx*v.TrackSize + v.Padding
		y := v.Pos(a.StartMs)
		h := v.Pos(a.EndMs) - y
		svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" stroke="black" data-id="%d"/>`+"\n",
			x, y, v.TrackSize-2*v.Padding, h, fill(n), a.IDNum))
		svg.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-family="sans-serif" font-size="10">%s</text>`+"\n",
			x+2, y+12, html.EscapeString(label(n))))
	}

	svg.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="3" fill="blue" stroke="blue"/>`+"\n",
		cur.TrackIdx*v.TrackSize, v.Pos(cur.TimeMs), v.TrackSize))
	svg.WriteString("</svg>\n")

	_, err := io.WriteString(w, svg.String())
	return err
}
