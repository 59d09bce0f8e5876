package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
)

// Info is what ffprobe reports about a resource.
type Info struct {
	DurationMs int
	Width      int
	Height     int
}

type probeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe runs ffprobe on path.
func Probe(ctx context.Context, ffprobe, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (Info, error) {
	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var info Info
	if len(po.Streams) > 0 {
		info.Width = po.Streams[0].Width
		info.Height = po.Streams[0].Height
	}
	if po.Format.Duration != "" {
		sec, err := strconv.ParseFloat(po.Format.Duration, 64)
		if err != nil {
			return Info{}, fmt.Errorf("parse duration %q: %w", po.Format.Duration, err)
		}
		info.DurationMs = int(math.Ceil(sec * 1000))
	}
	return info, nil
}
