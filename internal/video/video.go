// Package video feeds rendered frames to ffmpeg.
package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strings"
)

// StreamParams describes one encoded output.
type StreamParams struct {
	Width   int
	Height  int
	FPS     int
	Encoder string
	Quality int
	Output  string
}

// Encoder turns a stream of frames into a video file.
type Encoder interface {
	// EncodeStream consumes frames until the channel closes. release, when
	// not nil, receives every frame once it has been written.
	EncodeStream(ctx context.Context, frames <-chan *image.RGBA, release func(*image.RGBA), params StreamParams) error
}

// FFmpegEncoder pipes raw RGBA frames into an ffmpeg process.
type FFmpegEncoder struct {
	// Binary is the ffmpeg executable. "ffmpeg" when empty.
	Binary string
}

func (e *FFmpegEncoder) binary() string {
	if e.Binary == "" {
		return "ffmpeg"
	}
	return e.Binary
}

func (e *FFmpegEncoder) EncodeStream(ctx context.Context, frames <-chan *image.RGBA, release func(*image.RGBA), params StreamParams) error {
	cmd := exec.CommandContext(ctx, e.binary(), buildArgs(params)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	var writeErr error
	for frame := range frames {
		if writeErr == nil {
			if err := writeRawRGBA(stdin, frame); err != nil {
				writeErr = fmt.Errorf("write raw error: %w", err)
			}
		}
		if release != nil {
			release(frame)
		}
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w, output: %s", err, strings.TrimSpace(out.String()))
	}
	return writeErr
}

func buildArgs(p StreamParams) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", fmt.Sprintf("%d", p.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", EncoderName(p.Encoder),
	}
	args = append(args, QualityArgs(p.Encoder, p.Quality)...)
	return append(args, p.Output)
}

// EncoderName falls back to libx264.
func EncoderName(name string) string {
	if name == "" {
		return "libx264"
	}
	return name
}

// QualityArgs maps quality onto the knob each encoder understands. A zero
// quality leaves the encoder default.
func QualityArgs(encoder string, quality int) []string {
	if quality <= 0 {
		return nil
	}
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox ignores -q:v on some versions, use a bitrate: 75 -> 7.5 Mbit/s.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default:
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}
