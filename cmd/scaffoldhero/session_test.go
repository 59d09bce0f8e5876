package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/scaffoldhero/internal/config"
	"github.com/ivlev/scaffoldhero/internal/editor"
	"github.com/ivlev/scaffoldhero/internal/speech"
	"github.com/ivlev/scaffoldhero/internal/store"
)

func newTestSession(t *testing.T) (*session, *bytes.Buffer) {
	t.Helper()
	kv, err := store.OpenDir(filepath.Join(t.TempDir(), "kv"))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Width, cfg.Height = 64, 36
	voices := speech.NewVoiceCache("en-AU")
	voices.Set([]speech.Voice{{Name: "Karen", Lang: "en-AU", URI: "gmw/en-AU"}})

	ed := editor.New(editor.NewDocument("demo"), editor.Options{Prober: &speech.Recorder{}})
	var out bytes.Buffer
	s := newSession(cfg, kv, ed, &speech.Recorder{}, voices, nil, &out)
	t.Cleanup(s.Close)
	return s, &out
}

func TestREPLScript(t *testing.T) {
	s, out := newTestSession(t)
	script := strings.Join([]string{
		"insert-text Hello world",
		"move-down",
		"move-right",
		"insert-text second",
		"status",
		"save",
		"projects",
		"quit",
		"insert-text never",
	}, "\n")

	require.NoError(t, s.repl(context.Background(), strings.NewReader(script)))
	t.Logf("output:\n%s", out)

	c, err := s.editor.OpenedContainer()
	require.NoError(t, err)
	require.Len(t, c.Nodes, 2, "commands after quit must not run")
	assert.Equal(t, 1000, c.Nodes[1].Attr().StartMs)
	assert.Equal(t, 1, c.Nodes[1].Attr().TrackIdx)

	assert.Contains(t, out.String(), "Cursor: 1000 ms, track 1")
	assert.Contains(t, out.String(), "[*] Saved editors/demo")
	assert.Contains(t, out.String(), "* demo")
}

func TestHandleCommandErrors(t *testing.T) {
	s, out := newTestSession(t)
	ctx := context.Background()

	assert.True(t, s.handleCommand(ctx, "frobnicate"))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")

	assert.True(t, s.handleCommand(ctx, "remove x"))
	assert.Contains(t, out.String(), "[!] remove:")

	assert.True(t, s.handleCommand(ctx, "zoom sideways"))
	assert.Contains(t, out.String(), "[!] zoom:")

	assert.False(t, s.handleCommand(ctx, "EXIT"))
}

func TestZoom(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	start := s.view.WindowMs

	s.handleCommand(ctx, "zoom in")
	assert.Equal(t, 7500, s.view.WindowMs)
	s.handleCommand(ctx, "zoom out")
	assert.InDelta(t, start, s.view.WindowMs, 1)
}

func TestSVGAndShareFiles(t *testing.T) {
	s, out := newTestSession(t)
	ctx := context.Background()
	dir := t.TempDir()

	s.handleCommand(ctx, "insert-speech hi there")
	s.handleCommand(ctx, "svg")
	assert.Contains(t, out.String(), "<svg")

	svgPath := filepath.Join(dir, "view.svg")
	s.handleCommand(ctx, "svg "+svgPath)
	data, err := os.ReadFile(svgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hi there")

	qrPath := filepath.Join(dir, "share.png")
	s.handleCommand(ctx, "share "+qrPath)
	assert.Contains(t, out.String(), "project_id=demo")
	info, err := os.Stat(qrPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	framePath := filepath.Join(dir, "frame.png")
	s.handleCommand(ctx, "frame "+framePath)
	_, err = os.Stat(framePath)
	assert.NoError(t, err)
}

func TestVoicesListing(t *testing.T) {
	s, out := newTestSession(t)
	s.handleCommand(context.Background(), "voices")
	assert.Contains(t, out.String(), "* Karen (en-AU, gmw/en-AU)")
}

func TestDefaultQuality(t *testing.T) {
	assert.Equal(t, 75, defaultQuality("h264_videotoolbox"))
	assert.Equal(t, 28, defaultQuality("h264_nvenc"))
	assert.Equal(t, 23, defaultQuality("libx264"))
}
