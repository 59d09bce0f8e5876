// Package logging builds the structured logger shared by all components.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format is the output encoding of log records.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Config holds the logging configuration.
type Config struct {
	Level     slog.Level
	Format    Format
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultConfig logs info and above as text to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:     slog.LevelInfo,
		Format:    FormatText,
		Output:    os.Stderr,
		Component: "scaffoldhero",
	}
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// ParseFormat accepts text and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("invalid log format %q", s)
	}
}

// New creates a logger from cfg.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	var h slog.Handler
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(h)
	if cfg.Component != "" {
		logger = logger.With("component", cfg.Component)
	}
	return logger
}

// Setup builds a logger from level and format names and installs it as the
// slog default.
func Setup(level, format string) (*slog.Logger, error) {
	cfg := DefaultConfig()
	var err error
	if cfg.Level, err = ParseLevel(level); err != nil {
		return nil, err
	}
	if cfg.Format, err = ParseFormat(format); err != nil {
		return nil, err
	}
	logger := New(cfg)
	slog.SetDefault(logger)
	return logger, nil
}
