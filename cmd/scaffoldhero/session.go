package main

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ivlev/scaffoldhero/internal/config"
	"github.com/ivlev/scaffoldhero/internal/director"
	"github.com/ivlev/scaffoldhero/internal/editor"
	"github.com/ivlev/scaffoldhero/internal/engine"
	"github.com/ivlev/scaffoldhero/internal/input"
	"github.com/ivlev/scaffoldhero/internal/render"
	"github.com/ivlev/scaffoldhero/internal/speech"
	"github.com/ivlev/scaffoldhero/internal/store"
	"github.com/ivlev/scaffoldhero/internal/system"
	"github.com/ivlev/scaffoldhero/internal/talker"
	"github.com/ivlev/scaffoldhero/internal/trackview"
	"github.com/ivlev/scaffoldhero/internal/urlstate"
	"github.com/ivlev/scaffoldhero/internal/video"
)

// zoomStep matches one zoom-in of the track view; zooming out divides by it.
const zoomStep = 0.75

// session is one opened project with playback attached.
type session struct {
	cfg    *config.Config
	kv     store.KV
	logger *slog.Logger
	out    io.Writer

	editor     *editor.Editor
	director   *director.Director
	canvas     *render.Canvas
	view       *trackview.View
	voices     *speech.VoiceCache
	dispatcher *input.Dispatcher
}

// newSession wires playback and commands around ed. speaker is the
// playback speech engine.
func newSession(cfg *config.Config, kv store.KV, ed *editor.Editor, speaker speech.Engine, voices *speech.VoiceCache, logger *slog.Logger, out io.Writer) *session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &session{
		cfg:    cfg,
		kv:     kv,
		logger: logger,
		out:    out,
		editor: ed,
		canvas: render.NewCanvas(cfg.Width, cfg.Height),
		voices: voices,
	}

	s.director = director.NewDirector(s.canvas, ed.Handles(), talker.New(speaker, voices, logger), logger)
	s.director.MsPerFrame = cfg.MsPerFrame
	s.director.OnChange(ed.SetCursorTimeMs)

	s.view = trackview.NewView(cfg.WindowMs, cfg.TrackSize, cfg.TrackPadding)
	s.view.Zoom(cfg.Zoom)

	s.dispatcher = input.NewDispatcher(ed, s.director, s.save)
	return s
}

func (s *session) save(ctx context.Context) error {
	if err := s.editor.Save(ctx, s.kv); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "[*] Saved %s\n", editor.Key(s.editor.ProjectID()))
	return nil
}

func (s *session) Close() {
	s.director.Pause()
	s.editor.Close()
	if err := s.editor.Handles().Close(); err != nil {
		s.logger.Warn("close handles", "err", err)
	}
}

// shareURL is the link that reopens this project.
func (s *session) shareURL() (string, error) {
	return urlstate.ProjectURL(s.cfg.ShareBaseURL, s.editor.ProjectID())
}

// writeSVG renders the opened container. The view follows the cursor.
func (s *session) writeSVG(w io.Writer) error {
	snap, err := s.editor.Snapshot()
	if err != nil {
		return err
	}
	return s.view.Render(w, snap.Container, snap.Cursor)
}

func (s *session) saveSVG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.writeSVG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// saveFrame writes the last played frame as a PNG. It is safe while
// playing.
func (s *session) saveFrame(path string) error {
	frame, ok := s.director.SnapshotFrame()
	if !ok {
		return fmt.Errorf("no frame to save")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// export records the opened container. An empty output gets a timestamped
// name under exports/.
func (s *session) export(ctx context.Context, output string) (*engine.Report, error) {
	if output == "" {
		output = system.TimestampedPath("exports", "export", ".mp4")
	}
	snap, err := s.editor.Snapshot()
	if err != nil {
		return nil, err
	}

	cfg := *s.cfg
	if cfg.VideoEncoder == "" {
		cfg.VideoEncoder = system.GetBestH264Encoder(cfg.FFmpegPath)
		if cfg.VideoEncoder != "libx264" {
			fmt.Fprintf(s.out, "[*] Hardware encoder found: %s\n", cfg.VideoEncoder)
		}
	}
	if cfg.Quality == 0 {
		cfg.Quality = defaultQuality(cfg.VideoEncoder)
	}

	rec := engine.NewRecorder(&cfg, &video.FFmpegEncoder{Binary: cfg.FFmpegPath}, s.editor.Handles(), s.logger)
	fmt.Fprintf(s.out, "[*] Recording container %d (%d ms, %d frames @ %d FPS)\n",
		snap.Container.IDNum, snap.Container.EndMs, rec.FrameCount(snap.Container), cfg.FPS)

	rep, err := rec.Record(ctx, snap.Container, output)
	if err != nil {
		return nil, err
	}
	if cfg.ShowStats {
		fmt.Fprint(s.out, rep.Summary(cfg.BuildVersion))
		if err := rep.AppendLog("benchmark.log", cfg.BuildVersion); err != nil {
			fmt.Fprintf(s.out, "[!] Could not write benchmark.log: %v\n", err)
		}
	}
	fmt.Fprintf(s.out, "[+++] Done: %s (cues: %s)\n", rep.Output, filepath.Base(rep.CueSheet))
	return rep, nil
}

func defaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}

func (s *session) printStatus() {
	cur := s.editor.Cursor()
	fmt.Fprintf(s.out, "Project: %s\n", s.editor.ProjectID())
	fmt.Fprintf(s.out, "Containers: %v (opened %d)\n", s.editor.ContainerIDs(), s.editor.Document().OpenedContainerID)
	fmt.Fprintf(s.out, "Cursor: %d ms, track %d\n", cur.TimeMs, cur.TrackIdx)
	fmt.Fprintf(s.out, "Playback: %s at %d ms\n", s.director.State(), s.director.TimeMs())

	c, err := s.editor.OpenedContainer()
	if err != nil {
		fmt.Fprintf(s.out, "Opened container: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Opened container ends at %d ms\n", c.EndMs)
	for _, n := range c.Nodes {
		a := n.Attr()
		fmt.Fprintf(s.out, "  #%d %-12s track %d [%d, %d)\n", a.IDNum, a.NodeType, a.TrackIdx, a.StartMs, a.EndMs)
	}
}

func (s *session) printVoices() {
	voices := s.voices.Voices()
	if len(voices) == 0 {
		fmt.Fprintln(s.out, "No voices loaded")
		return
	}
	def, _ := s.voices.Default()
	for _, v := range voices {
		mark := " "
		if v.URI == def.URI {
			mark = "*"
		}
		fmt.Fprintf(s.out, "%s %s (%s, %s)\n", mark, v.Name, v.Lang, v.URI)
	}
}
