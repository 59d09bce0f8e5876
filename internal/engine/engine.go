// Package engine records a container offline: the drawer is ticked on a
// virtual clock at the export frame rate and every frame is streamed to a
// video encoder.
package engine

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/scaffoldhero/internal/config"
	"github.com/ivlev/scaffoldhero/internal/drawer"
	"github.com/ivlev/scaffoldhero/internal/node"
	"github.com/ivlev/scaffoldhero/internal/render"
	"github.com/ivlev/scaffoldhero/internal/schedule"
	"github.com/ivlev/scaffoldhero/internal/system"
	"github.com/ivlev/scaffoldhero/internal/video"
)

// frameBuffer bounds how far rendering may run ahead of the encoder.
const frameBuffer = 8

// Recorder renders containers to video files.
type Recorder struct {
	Config  *config.Config
	Encoder video.Encoder
	Handles drawer.Handles

	pool   *render.FramePool
	logger *slog.Logger
}

func NewRecorder(cfg *config.Config, enc video.Encoder, handles drawer.Handles, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		Config:  cfg,
		Encoder: enc,
		Handles: handles,
		pool:    render.NewFramePool(),
		logger:  logger,
	}
}

// Report summarizes one recording.
type Report struct {
	Output       string
	CueSheet     string
	Frames       int
	Total        time.Duration
	Render       time.Duration
	EffectiveFPS float64
	Host         system.HostStats
}

// StepMs is the virtual clock step for the configured frame rate.
func (r *Recorder) StepMs() int {
	return max(1000/max(r.Config.FPS, 1), 1)
}

// FrameCount is the number of frames recorded for c: one per step from 0
// up to and including EndMs.
func (r *Recorder) FrameCount(c *node.Container) int {
	return c.EndMs/r.StepMs() + 1
}

// Record renders c to output and writes its cue sheet beside it. c must
// not be mutated while recording; pass a snapshot.
func (r *Recorder) Record(ctx context.Context, c *node.Container, output string) (*Report, error) {
	startTime := time.Now()
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	step := r.StepMs()
	total := r.FrameCount(c)
	params := video.StreamParams{
		Width:   r.Config.Width,
		Height:  r.Config.Height,
		FPS:     r.Config.FPS,
		Encoder: r.Config.VideoEncoder,
		Quality: r.Config.Quality,
		Output:  output,
	}
	r.logger.Info("record", "container", c.IDNum, "endMs", c.EndMs, "frames", total, "output", output)

	frames := make(chan *image.RGBA, frameBuffer)
	var renderTime time.Duration

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(frames)
		renderStart := time.Now()
		defer func() { renderTime = time.Since(renderStart) }()

		canvas := render.NewCanvas(r.Config.Width, r.Config.Height)
		d := drawer.New()
		d.Setup(c, 0)
		defer d.Halt(r.Handles)

		for i := 0; i < total; i++ {
			nowMs := i * step
			canvas.Clear()
			if err := d.Tick(nowMs, canvas, r.Handles); err != nil {
				r.logger.Warn("draw frame", "timeMs", nowMs, "err", err)
			}
			frame := r.pool.Snapshot(canvas.Image())
			select {
			case frames <- frame:
			case <-gctx.Done():
				r.pool.Put(frame)
				return gctx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		return r.Encoder.EncodeStream(gctx, frames, r.pool.Put, params)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("record %s: %w", output, err)
	}

	cuePath := CueSheetPath(output)
	if err := schedule.WriteCueSheet(schedule.NewCueSheet(c), cuePath); err != nil {
		return nil, fmt.Errorf("write cue sheet: %w", err)
	}

	elapsed := time.Since(startTime)
	report := &Report{
		Output:       output,
		CueSheet:     cuePath,
		Frames:       total,
		Total:        elapsed,
		Render:       renderTime,
		EffectiveFPS: float64(total) / max(elapsed.Seconds(), 1e-9),
	}
	if r.Config.ShowStats {
		report.Host = system.ReadHostStats()
	}
	return report, nil
}

// CueSheetPath is output with its extension replaced by .cues.yaml.
func CueSheetPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".cues.yaml"
}

// Summary is the console performance report.
func (rep *Report) Summary(build string) string {
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Frames: %d\n"+
			"Total Time: %.2fs\n"+
			"Rendering (CPU): %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"Host: %s\n"+
			"----------------------------\n",
		build, rep.Frames, rep.Total.Seconds(), rep.Render.Seconds(), rep.EffectiveFPS, rep.Host,
	)
}

// AppendLog adds a one-line entry to the benchmark log at path.
func (rep *Report) AppendLog(path, build string) error {
	entry := fmt.Sprintf("[%s] Build: %s | Output: %s | Frames: %d | Total: %.2fs | Render: %.2fs | FPS: %.2f\n",
		time.Now().Format("2006-01-02 15:04:05"),
		build,
		filepath.Base(rep.Output),
		rep.Frames,
		rep.Total.Seconds(),
		rep.Render.Seconds(),
		rep.EffectiveFPS,
	)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(entry)
	return err
}
