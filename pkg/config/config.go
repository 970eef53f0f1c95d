// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/mediaplay/pkg/player"
	"github.com/user/mediaplay/pkg/ports"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid value")

// Renderer kinds.
const (
	RendererSnapshot = "snapshot"
	RendererRawFile  = "rawfile"
	RendererNull     = "null"
)

// Audio output kinds.
const (
	AudioOto     = "oto"
	AudioPCMFile = "pcmfile"
	AudioNull    = "null"
)

// Config represents the full configuration for mediaplay.
type Config struct {
	FFmpegPath string  `yaml:"ffmpeg_path"`
	LogLevel   string  `yaml:"log_level"`
	Speed      float64 `yaml:"speed"`

	Video VideoConfig `yaml:"video"`
	Audio AudioConfig `yaml:"audio"`
}

// VideoConfig represents decoding and presentation settings.
type VideoConfig struct {
	Pace              bool    `yaml:"pace"`
	FallbackFrameRate float64 `yaml:"fallback_frame_rate"`
	MaxQueuedUnits    int     `yaml:"max_queued_units"`
	Width             int     `yaml:"width"`
	Height            int     `yaml:"height"`

	Renderer      string `yaml:"renderer"`
	SnapshotDir   string `yaml:"snapshot_dir"`
	SnapshotEvery int    `yaml:"snapshot_every"`
	OSD           bool   `yaml:"osd"`
	FontPath      string `yaml:"font_path"`
	Output        string `yaml:"output"`
}

// AudioConfig represents audio output settings.
type AudioConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
	Output     string `yaml:"output"`
	OutputPath string `yaml:"output_path"`
	BufferMs   int    `yaml:"buffer_ms"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Speed:    1.0,

		Video: VideoConfig{
			Pace:              true,
			FallbackFrameRate: 25,
			MaxQueuedUnits:    256,

			Renderer:      RendererSnapshot,
			SnapshotDir:   "./snapshots",
			SnapshotEvery: 25,
			OSD:           true,
		},

		Audio: AudioConfig{
			Enabled:    true,
			SampleRate: 48000,
			Channels:   2,
			Output:     AudioOto,
			BufferMs:   500,
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges and the combination of outputs and paths.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "quiet":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	if !(c.Speed > 0) || math.IsInf(c.Speed, 0) {
		return fmt.Errorf("%w: speed %v", ErrInvalid, c.Speed)
	}

	v := c.Video
	if v.FallbackFrameRate <= 0 {
		return fmt.Errorf("%w: video.fallback_frame_rate %v", ErrInvalid, v.FallbackFrameRate)
	}
	if v.MaxQueuedUnits < 0 {
		return fmt.Errorf("%w: video.max_queued_units %d", ErrInvalid, v.MaxQueuedUnits)
	}
	if v.Width < 0 || v.Height < 0 || (v.Width == 0) != (v.Height == 0) {
		return fmt.Errorf("%w: video size %dx%d", ErrInvalid, v.Width, v.Height)
	}
	switch v.Renderer {
	case RendererSnapshot:
		if v.SnapshotDir == "" {
			return fmt.Errorf("%w: video.snapshot_dir is required for the snapshot renderer", ErrInvalid)
		}
		if v.SnapshotEvery < 0 {
			return fmt.Errorf("%w: video.snapshot_every %d", ErrInvalid, v.SnapshotEvery)
		}
	case RendererRawFile:
		if v.Output == "" {
			return fmt.Errorf("%w: video.output is required for the rawfile renderer", ErrInvalid)
		}
	case RendererNull:
	default:
		return fmt.Errorf("%w: video.renderer %q", ErrInvalid, v.Renderer)
	}

	a := c.Audio
	if a.SampleRate < 0 {
		return fmt.Errorf("%w: audio.sample_rate %d", ErrInvalid, a.SampleRate)
	}
	if a.Channels < 0 || a.Channels > 8 {
		return fmt.Errorf("%w: audio.channels %d", ErrInvalid, a.Channels)
	}
	if a.BufferMs < 0 {
		return fmt.Errorf("%w: audio.buffer_ms %d", ErrInvalid, a.BufferMs)
	}
	switch a.Output {
	case AudioOto, AudioNull:
	case AudioPCMFile:
		if a.Enabled && a.OutputPath == "" {
			return fmt.Errorf("%w: audio.output_path is required for the pcmfile output", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: audio.output %q", ErrInvalid, a.Output)
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() ports.LogLevel {
	return ports.ParseLogLevel(c.LogLevel)
}

// ToPlayerConfig converts Config to player.Config.
func (c Config) ToPlayerConfig() player.Config {
	return player.Config{
		Speed: c.Speed,

		Pace:              c.Video.Pace,
		FallbackFrameRate: c.Video.FallbackFrameRate,
		Width:             c.Video.Width,
		Height:            c.Video.Height,
		MaxQueuedUnits:    c.Video.MaxQueuedUnits,

		AudioEnabled:    c.Audio.Enabled,
		AudioSampleRate: c.Audio.SampleRate,
		AudioChannels:   c.Audio.Channels,
		AudioBuffer:     time.Duration(c.Audio.BufferMs) * time.Millisecond,
	}
}
