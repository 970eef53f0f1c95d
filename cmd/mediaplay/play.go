package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/mediaplay/pkg/config"
	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/player"
	"github.com/user/mediaplay/pkg/session"
)

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     l10n.T("Play a media file. Type p, s <sec>, x <speed>, i or q on stdin."),
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "speed", Aliases: []string{"x"}, Usage: l10n.T("Initial playback speed.")},
			&cli.StringFlag{Name: "renderer", Aliases: []string{"r"}, Category: l10n.T(categoryVideo), Usage: l10n.T("Video renderer (snapshot, rawfile, null).")},
			&cli.StringFlag{Name: "snapshot-dir", Category: l10n.T(categoryVideo), Usage: l10n.T("Directory for PNG snapshots.")},
			&cli.IntFlag{Name: "every", Category: l10n.T(categoryVideo), Usage: l10n.T("Save one snapshot per this many frames.")},
			&cli.BoolFlag{Name: "no-osd", Category: l10n.T(categoryVideo), Usage: l10n.T("Do not draw frame number and time on snapshots.")},
			&cli.StringFlag{Name: "video-out", Aliases: []string{"o"}, Category: l10n.T(categoryOutput), Usage: l10n.T("Raw RGBA output file for the rawfile renderer.")},
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Category: l10n.T(categoryVideo), Usage: l10n.T("Presentation width (0 = stream size).")},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Category: l10n.T(categoryVideo), Usage: l10n.T("Presentation height (0 = stream size).")},
			&cli.StringFlag{Name: "audio", Aliases: []string{"a"}, Category: l10n.T(categoryAudio), Usage: l10n.T("Audio output (oto, pcmfile, null).")},
			&cli.StringFlag{Name: "audio-out", Category: l10n.T(categoryOutput), Usage: l10n.T("Raw PCM output file for the pcmfile output.")},
			&cli.BoolFlag{Name: "no-audio", Category: l10n.T(categoryAudio), Usage: l10n.T("Play video only.")},
			reportFlag(),
		},
		Action: runPlay,
	}
}

// applyPlayFlags overrides cfg with the flags the user set.
func applyPlayFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("speed") {
		cfg.Speed = c.Float64("speed")
	}
	if c.IsSet("renderer") {
		cfg.Video.Renderer = c.String("renderer")
	}
	if c.IsSet("snapshot-dir") {
		cfg.Video.SnapshotDir = c.String("snapshot-dir")
	}
	if c.IsSet("every") {
		cfg.Video.SnapshotEvery = c.Int("every")
	}
	if c.Bool("no-osd") {
		cfg.Video.OSD = false
	}
	if c.IsSet("video-out") {
		cfg.Video.Output = c.String("video-out")
	}
	if c.IsSet("width") {
		cfg.Video.Width = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.Video.Height = c.Int("height")
	}
	if c.IsSet("audio") {
		cfg.Audio.Output = c.String("audio")
	}
	if c.IsSet("audio-out") {
		cfg.Audio.OutputPath = c.String("audio-out")
	}
	if c.Bool("no-audio") {
		cfg.Audio.Enabled = false
	}
}

func runPlay(c *cli.Context) error {
	uri, err := requireURI(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyPlayFlags(c, &cfg)
	return runSession(c, cfg, uri, true)
}

// transport is the part of the controller driven from stdin.
type transport interface {
	Pause(paused bool)
	SetSpeed(v float64) error
	Speed() float64
	Seek(seconds float64) error
	Stop() error
	State() player.State
	Position() float64
	Duration() float64
	Progress() float64
	Stats() session.StatsSnapshot
}

// readCommands executes one transport command per input line until q or EOF.
func readCommands(r io.Reader, ctrl transport, out io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		quit, err := handleCommand(scanner.Text(), ctrl, out)
		if err != nil {
			fmt.Fprintln(out, l10n.F("Error: %v", err))
		}
		if quit {
			return
		}
	}
}

// handleCommand executes a single command line. It reports whether reading
// should end.
func handleCommand(line string, ctrl transport, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "p":
		ctrl.Pause(ctrl.State() != player.StatePaused)
		fmt.Fprintln(out, ctrl.State())
	case "s":
		v, err := numberArg(fields)
		if err != nil {
			return false, err
		}
		return false, ctrl.Seek(v)
	case "x":
		v, err := numberArg(fields)
		if err != nil {
			return false, err
		}
		return false, ctrl.SetSpeed(v)
	case "i":
		fmt.Fprintln(out, l10n.F("%s  %.3f / %.3f s (%.0f%%)  speed %.2fx",
			ctrl.State(), ctrl.Position(), ctrl.Duration(), ctrl.Progress()*100, ctrl.Speed()))
	case "q":
		return true, ctrl.Stop()
	default:
		return false, errors.New(l10n.F("unknown command %q", fields[0]))
	}
	return false, nil
}

func numberArg(fields []string) (float64, error) {
	if len(fields) != 2 {
		return 0, errors.New(l10n.F("%s needs one numeric argument", fields[0]))
	}
	return strconv.ParseFloat(fields[1], 64)
}

func printInfo(out io.Writer, info media.Info) {
	fmt.Fprintln(out, l10n.F("Video: %s %dx%d %.3f fps", info.VideoCodec, info.VideoWidth, info.VideoHeight, info.FrameRate))
	if info.HasAudio() {
		fmt.Fprintln(out, l10n.F("Audio: %s %d Hz %d channels", info.AudioCodec, info.AudioSampleRate, info.AudioChannels))
	}
	if info.Duration > 0 {
		fmt.Fprintln(out, l10n.F("Duration: %.3f s", media.Seconds(info.Duration)))
	}
}

func printStats(out io.Writer, state player.State, s session.StatsSnapshot) {
	fmt.Fprintln(out, l10n.F("Playback %s: %d frames presented, %d dropped, %d decode errors, %d PCM bytes",
		state, s.FramesPresented, s.FramesDropped, s.DecodeErrors, s.PCMBytes))
}
