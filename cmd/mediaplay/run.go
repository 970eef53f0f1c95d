package main

import (
	"os"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/mediaplay/pkg/adapters/osfilesystem"
	"github.com/user/mediaplay/pkg/config"
	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/summarizer"
)

func reportFlag() cli.Flag {
	return &cli.StringFlag{Name: "report", Category: l10n.T(categoryOutput), Usage: l10n.T("Write a Markdown summary of the session to this file.")}
}

// runSession plays uri to the end. Interactive sessions read transport
// commands from stdin.
func runSession(c *cli.Context, cfg config.Config, uri string, interactive bool) error {
	log := newLogger(cfg)
	ctx, cancel := signalContext(log)
	defer cancel()

	ctrl, renderer, err := newController(cfg, log)
	if err != nil {
		return err
	}
	log.Debug("Video output: %s", describeRenderer(cfg))

	started := time.Now()
	info, err := ctrl.Play(ctx, uri, renderer)
	if err != nil {
		return err
	}
	printInfo(os.Stdout, info)

	if interactive {
		go readCommands(os.Stdin, ctrl, os.Stdout)
	}

	err = ctrl.Wait(ctx)
	if ctx.Err() != nil {
		ctrl.Stop()
		err = nil
	}
	elapsed := time.Since(started)
	printStats(os.Stdout, ctrl.State(), ctrl.Stats())

	if path := c.String("report"); path != "" {
		summary := summarizer.NewBuilder().
			WithInput(uri, fileSize(uri)).
			WithMedia(info).
			WithSettings(reportSettings(cfg, info)).
			WithResult(ctrl.State().String(), elapsed, ctrl.Stats(), err).
			Build()
		w := summarizer.NewWriter(osfilesystem.New(), summarizer.NewMarkdownFormatter())
		if werr := w.Write(path, summary); werr != nil {
			log.Warn("Failed to write report: %s", werr)
		} else {
			log.Info("Report written to %s", path)
		}
	}
	return err
}

func reportSettings(cfg config.Config, info media.Info) summarizer.Settings {
	s := summarizer.Settings{
		Speed:    cfg.Speed,
		Pace:     cfg.Video.Pace,
		Renderer: cfg.Video.Renderer,
	}
	switch cfg.Video.Renderer {
	case config.RendererRawFile:
		s.VideoOutput = cfg.Video.Output
	case config.RendererSnapshot:
		s.VideoOutput = cfg.Video.SnapshotDir
	}
	if cfg.Audio.Enabled && info.HasAudio() {
		s.AudioOutput = cfg.Audio.Output
		s.SampleRate = cfg.Audio.SampleRate
		s.Channels = cfg.Audio.Channels
	}
	return s
}

func fileSize(path string) int64 {
	st, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return st.Size()
}
