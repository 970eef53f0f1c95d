package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/mediaplay/pkg/adapters/containerdetect"
	"github.com/user/mediaplay/pkg/config"
	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/ports"
)

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     l10n.T("Decode a media file to raw RGBA frames and raw PCM as fast as possible."),
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "video-out", Aliases: []string{"o"}, Required: true, Category: l10n.T(categoryOutput), Usage: l10n.T("Raw RGBA output file.")},
			&cli.StringFlag{Name: "audio-out", Category: l10n.T(categoryOutput), Usage: l10n.T("Raw S16LE PCM output file (omit to skip audio).")},
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Category: l10n.T(categoryVideo), Usage: l10n.T("Output width (0 = stream size).")},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Category: l10n.T(categoryVideo), Usage: l10n.T("Output height (0 = stream size).")},
			&cli.IntFlag{Name: "sample-rate", Category: l10n.T(categoryAudio), Usage: l10n.T("Output sample rate (0 = source rate).")},
			&cli.IntFlag{Name: "channels", Category: l10n.T(categoryAudio), Usage: l10n.T("Output channels (0 = source channels).")},
			reportFlag(),
		},
		Action: runDecode,
	}
}

// applyDecodeFlags turns cfg into an unpaced raw-file decode.
func applyDecodeFlags(c *cli.Context, cfg *config.Config) {
	cfg.Speed = 1.0
	cfg.Video.Pace = false
	cfg.Video.Renderer = config.RendererRawFile
	cfg.Video.Output = c.String("video-out")
	if c.IsSet("width") {
		cfg.Video.Width = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.Video.Height = c.Int("height")
	}

	cfg.Audio.Enabled = c.String("audio-out") != ""
	cfg.Audio.Output = config.AudioPCMFile
	cfg.Audio.OutputPath = c.String("audio-out")
	if c.IsSet("sample-rate") {
		cfg.Audio.SampleRate = c.Int("sample-rate")
	}
	if c.IsSet("channels") {
		cfg.Audio.Channels = c.Int("channels")
	}
}

func runDecode(c *cli.Context) error {
	uri, err := requireURI(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyDecodeFlags(c, &cfg)
	return runSession(c, cfg, uri, false)
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Print the streams of a media file."),
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			uri, err := requireURI(c)
			if err != nil {
				return err
			}
			return probe(os.Stdout, containerdetect.NewOpener(), uri)
		},
	}
}

func probe(out io.Writer, o ports.ContainerOpener, uri string) error {
	dm, err := o.Open(uri)
	if err != nil {
		return err
	}
	defer dm.Close()

	fmt.Fprintln(out, l10n.F("Input: %s", uri))
	if d := dm.Duration(); d > 0 {
		fmt.Fprintln(out, l10n.F("Duration: %.3f s", media.Seconds(d)))
	}
	for _, s := range dm.Streams() {
		fmt.Fprintln(out, describeStream(s))
	}
	return nil
}

func describeStream(s media.StreamDescriptor) string {
	switch s.Role {
	case media.RoleVideo:
		return l10n.F("  #%d %s %s %dx%d %.3f fps", s.Index, s.Role, s.Codec, s.Width, s.Height, s.FrameRate)
	case media.RoleAudio:
		return l10n.F("  #%d %s %s %d Hz %d channels", s.Index, s.Role, s.Codec, s.SampleRate, s.Channels)
	default:
		return l10n.F("  #%d %s %s", s.Index, s.Role, s.Codec)
	}
}
