package main

import (
	"fmt"

	"github.com/user/mediaplay/pkg/adapters/containerdetect"
	"github.com/user/mediaplay/pkg/adapters/ffmpegcodec"
	"github.com/user/mediaplay/pkg/adapters/linresampler"
	"github.com/user/mediaplay/pkg/adapters/nullsink"
	"github.com/user/mediaplay/pkg/adapters/osfilesystem"
	"github.com/user/mediaplay/pkg/adapters/otosink"
	"github.com/user/mediaplay/pkg/adapters/pcmfile"
	"github.com/user/mediaplay/pkg/adapters/rawfile"
	"github.com/user/mediaplay/pkg/adapters/snapshot"
	"github.com/user/mediaplay/pkg/config"
	"github.com/user/mediaplay/pkg/player"
	"github.com/user/mediaplay/pkg/ports"
)

// newController builds the controller and the renderer selected by cfg.
func newController(cfg config.Config, log ports.Logger) (*player.Controller, ports.Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	fs := osfilesystem.New()

	codecs, err := ffmpegcodec.NewFactory(ffmpegcodec.Options{
		FFmpegPath: cfg.FFmpegPath,
		Width:      cfg.Video.Width,
		Height:     cfg.Video.Height,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	var output ports.AudioOutput
	if cfg.Audio.Enabled {
		output = newAudioOutput(cfg, fs, log)
	}

	ctrl := player.New(
		containerdetect.NewOpener(),
		codecs,
		linresampler.NewFactory(),
		output,
		cfg.ToPlayerConfig(),
		log,
	)
	return ctrl, newRenderer(cfg, fs, log), nil
}

func newRenderer(cfg config.Config, fs ports.FileSystem, log ports.Logger) ports.Renderer {
	v := cfg.Video
	switch v.Renderer {
	case config.RendererRawFile:
		return rawfile.New(fs, v.Output, log)
	case config.RendererNull:
		return nullsink.NewRenderer()
	default:
		return snapshot.New(fs, snapshot.Options{
			Dir:      v.SnapshotDir,
			Every:    v.SnapshotEvery,
			OSD:      v.OSD,
			FontPath: v.FontPath,
		}, log)
	}
}

func newAudioOutput(cfg config.Config, fs ports.FileSystem, log ports.Logger) ports.AudioOutput {
	a := cfg.Audio
	switch a.Output {
	case config.AudioPCMFile:
		return pcmfile.New(fs, a.OutputPath, log)
	case config.AudioNull:
		return nullsink.NewAudioOutput()
	default:
		return otosink.New(otosink.Options{}, log)
	}
}

// describeRenderer names the output a renderer writes to.
func describeRenderer(cfg config.Config) string {
	switch cfg.Video.Renderer {
	case config.RendererRawFile:
		return cfg.Video.Output
	case config.RendererSnapshot:
		return fmt.Sprintf("%s (every %d frames)", cfg.Video.SnapshotDir, cfg.Video.SnapshotEvery)
	default:
		return cfg.Video.Renderer
	}
}
