// Package config holds the runtime settings of scaffoldhero. Settings come
// from defaults, then an optional YAML or TOML file, then command-line
// flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	StoreDriver string `yaml:"store_driver" toml:"store_driver"`
	StorePath   string `yaml:"store_path" toml:"store_path"`

	MsPerFrame int    `yaml:"ms_per_frame" toml:"ms_per_frame"`
	Width      int    `yaml:"width" toml:"width"`
	Height     int    `yaml:"height" toml:"height"`
	Preset     string `yaml:"preset" toml:"preset"`

	SpeechCommand string `yaml:"speech_command" toml:"speech_command"`
	VoiceLang     string `yaml:"voice_lang" toml:"voice_lang"`

	FFmpegPath  string `yaml:"ffmpeg_path" toml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path" toml:"ffprobe_path"`
	DPI         int    `yaml:"dpi" toml:"dpi"`

	FPS          int    `yaml:"fps" toml:"fps"`
	VideoEncoder string `yaml:"video_encoder" toml:"video_encoder"`
	Quality      int    `yaml:"quality" toml:"quality"`
	Workers      int    `yaml:"workers" toml:"workers"`
	ShowStats    bool   `yaml:"show_stats" toml:"show_stats"`

	LogLevel  string `yaml:"log_level" toml:"log_level"`
	LogFormat string `yaml:"log_format" toml:"log_format"`

	TrackSize    int     `yaml:"track_size" toml:"track_size"`
	TrackPadding int     `yaml:"track_padding" toml:"track_padding"`
	WindowMs     int     `yaml:"window_ms" toml:"window_ms"`
	Zoom         float64 `yaml:"zoom" toml:"zoom"`

	ShareBaseURL string `yaml:"share_base_url" toml:"share_base_url"`
	ProjectURL   string `yaml:"project_url" toml:"project_url"`

	BuildVersion string `yaml:"-" toml:"-"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		StoreDriver:   "sqlite",
		StorePath:     filepath.Join("data", "scaffoldhero.db"),
		MsPerFrame:    16,
		Width:         1280,
		Height:        720,
		SpeechCommand: "espeak-ng",
		VoiceLang:     "en-AU",
		FFmpegPath:    "ffmpeg",
		FFprobePath:   "ffprobe",
		DPI:           150,
		FPS:           30,
		Workers:       runtime.NumCPU(),
		LogLevel:      "info",
		LogFormat:     "text",
		TrackSize:     120,
		TrackPadding:  10,
		WindowMs:      10_000,
		Zoom:          1,
		ShareBaseURL:  "https://scaffoldhero.local/",
	}
}

// Load reads path over the defaults. The format follows the extension:
// .yaml/.yml or .toml. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return cfg, nil
}

// BindFlags registers a flag for every setting, using the current values
// as flag defaults so that only flags given on the command line override.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.StoreDriver, "store", c.StoreDriver, "Store driver: sqlite or dir")
	fs.StringVar(&c.StorePath, "store-path", c.StorePath, "SQLite file or store directory")
	fs.IntVar(&c.MsPerFrame, "ms-per-frame", c.MsPerFrame, "Playback frame period in ms")
	fs.IntVar(&c.Width, "width", c.Width, "Canvas width")
	fs.IntVar(&c.Height, "height", c.Height, "Canvas height")
	fs.StringVar(&c.Preset, "preset", c.Preset, "Canvas preset: 16:9, 9:16, 4:5")
	fs.StringVar(&c.SpeechCommand, "speech", c.SpeechCommand, "espeak-compatible speech command")
	fs.StringVar(&c.VoiceLang, "voice-lang", c.VoiceLang, "Language of the voices to offer")
	fs.StringVar(&c.FFmpegPath, "ffmpeg", c.FFmpegPath, "ffmpeg binary")
	fs.StringVar(&c.FFprobePath, "ffprobe", c.FFprobePath, "ffprobe binary")
	fs.IntVar(&c.DPI, "dpi", c.DPI, "DPI for PDF resources")
	fs.IntVar(&c.FPS, "fps", c.FPS, "Export FPS")
	fs.StringVar(&c.VideoEncoder, "encoder", c.VideoEncoder, "Export video encoder (empty: detect)")
	fs.IntVar(&c.Quality, "quality", c.Quality, "Export quality (0: encoder default)")
	fs.IntVar(&c.Workers, "workers", c.Workers, "Export render workers")
	fs.BoolVar(&c.ShowStats, "stats", c.ShowStats, "Print an export performance report")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "text or json")
	fs.IntVar(&c.TrackSize, "track-size", c.TrackSize, "Track view column width")
	fs.IntVar(&c.WindowMs, "window-ms", c.WindowMs, "Track view time window")
	fs.Float64Var(&c.Zoom, "zoom", c.Zoom, "Track view zoom")
	fs.StringVar(&c.ShareBaseURL, "share-base", c.ShareBaseURL, "Base URL for share links")
	fs.StringVar(&c.ProjectURL, "url", c.ProjectURL, "Editor URL; its #project_id= selects the project")
}

// ApplyPreset overrides the canvas size when a known preset is set.
func (c *Config) ApplyPreset() {
	switch c.Preset {
	case "16:9":
		c.Width, c.Height = 1280, 720
	case "9:16":
		c.Width, c.Height = 720, 1280
	case "4:5":
		c.Width, c.Height = 1080, 1350
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "sqlite", "dir":
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.StorePath == "" {
		return errors.New("store path is empty")
	}
	if c.MsPerFrame <= 0 {
		return fmt.Errorf("ms per frame must be positive, got %d", c.MsPerFrame)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid canvas size %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Zoom <= 0 {
		return fmt.Errorf("zoom must be positive, got %g", c.Zoom)
	}
	return nil
}

// Parse builds the configuration from args: the file named by -config,
// then the remaining flags. It returns the positional arguments.
func Parse(name string, args []string) (*Config, []string, error) {
	path := configPath(args)
	cfg, err := Load(path)
	if err != nil {
		return nil, nil, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", path, "YAML or TOML settings file")
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg.ApplyPreset()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, fs.Args(), nil
}

// configPath finds -config before the flag set exists.
func configPath(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if !strings.HasPrefix(a, "-") {
			continue
		}
		a = strings.TrimLeft(a, "-")
		if v, ok := strings.CutPrefix(a, "config="); ok {
			return v
		}
		if a == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
