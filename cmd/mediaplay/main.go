// Package main provides the CLI entry point for mediaplay.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/mediaplay/pkg/adapters/logger"
	"github.com/user/mediaplay/pkg/config"
	"github.com/user/mediaplay/pkg/ports"
)

var version = "dev"

const (
	categoryOutput = "Output"
	categoryVideo  = "Video"
	categoryAudio  = "Audio"
)

func main() {
	app := &cli.App{
		Name:    "mediaplay",
		Usage:   l10n.T("Play and decode MP4 and MPEG-TS media."),
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file.")},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: l10n.T("Log level (debug, info, warn, error).")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output.")},
			&cli.StringFlag{Name: "ffmpeg", Usage: l10n.T("Path to the ffmpeg binary.")},
		},
		Commands: []*cli.Command{
			playCommand(),
			decodeCommand(),
			probeCommand(),
			{
				Name:  "version",
				Usage: l10n.T("Show version information."),
				Action: func(c *cli.Context) error {
					fmt.Println(l10n.F("mediaplay (Go) version %s", version))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %v", err))
		os.Exit(1)
	}
}

// loadConfig reads --config when given and applies the global flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.Bool("quiet") {
		cfg.LogLevel = "quiet"
	}
	if c.IsSet("ffmpeg") {
		cfg.FFmpegPath = c.String("ffmpeg")
	}
	return cfg, nil
}

func newLogger(cfg config.Config) ports.Logger {
	if cfg.LogLevel == "quiet" {
		return logger.NewNoop()
	}
	return logger.NewConsole(cfg.Level())
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// requireURI returns the single positional argument.
func requireURI(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(l10n.T("Exactly one input file is required."), 2)
	}
	return c.Args().First(), nil
}
