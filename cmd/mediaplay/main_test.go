package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/user/mediaplay/pkg/adapters/logger"
	"github.com/user/mediaplay/pkg/adapters/nullsink"
	"github.com/user/mediaplay/pkg/adapters/pcmfile"
	"github.com/user/mediaplay/pkg/adapters/rawfile"
	"github.com/user/mediaplay/pkg/adapters/snapshot"
	"github.com/user/mediaplay/pkg/config"
	"github.com/user/mediaplay/pkg/mocks"
	"github.com/user/mediaplay/pkg/player"
	"github.com/user/mediaplay/pkg/ports"
	"github.com/user/mediaplay/pkg/session"
)

type fakeTransport struct {
	state  player.State
	speed  float64
	seeks  []float64
	stops  int
	seekFn func(float64) error
}

func (f *fakeTransport) Pause(paused bool) {
	if paused {
		f.state = player.StatePaused
	} else {
		f.state = player.StatePlaying
	}
}

func (f *fakeTransport) SetSpeed(v float64) error {
	if v <= 0 {
		return player.ErrInvalidArgument
	}
	f.speed = v
	return nil
}

func (f *fakeTransport) Speed() float64 { return f.speed }

func (f *fakeTransport) Seek(seconds float64) error {
	f.seeks = append(f.seeks, seconds)
	if f.seekFn != nil {
		return f.seekFn(seconds)
	}
	return nil
}

func (f *fakeTransport) Stop() error {
	f.stops++
	f.state = player.StateStopped
	return nil
}

func (f *fakeTransport) State() player.State          { return f.state }
func (f *fakeTransport) Position() float64            { return 1.5 }
func (f *fakeTransport) Duration() float64            { return 3 }
func (f *fakeTransport) Progress() float64            { return 0.5 }
func (f *fakeTransport) Stats() session.StatsSnapshot { return session.StatsSnapshot{} }

func TestHandleCommand(t *testing.T) {
	tr := &fakeTransport{state: player.StatePlaying, speed: 1}
	var out bytes.Buffer

	if quit, err := handleCommand("p", tr, &out); quit || err != nil {
		t.Fatalf("p: quit=%v err=%v", quit, err)
	}
	if tr.state != player.StatePaused {
		t.Errorf("expected paused, got %s", tr.state)
	}
	handleCommand("p", tr, &out)
	if tr.state != player.StatePlaying {
		t.Errorf("expected playing after second toggle, got %s", tr.state)
	}

	if _, err := handleCommand("s 2.5", tr, &out); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if len(tr.seeks) != 1 || tr.seeks[0] != 2.5 {
		t.Errorf("unexpected seeks %v", tr.seeks)
	}

	if _, err := handleCommand("x 2", tr, &out); err != nil || tr.speed != 2 {
		t.Errorf("speed: err=%v speed=%v", err, tr.speed)
	}
	if _, err := handleCommand("x 0", tr, &out); !errors.Is(err, player.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	out.Reset()
	handleCommand("i", tr, &out)
	if !strings.Contains(out.String(), "1.500 / 3.000") {
		t.Errorf("unexpected info line %q", out.String())
	}

	if quit, err := handleCommand("q", tr, &out); !quit || err != nil || tr.stops != 1 {
		t.Errorf("q: quit=%v err=%v stops=%d", quit, err, tr.stops)
	}
}

func TestHandleCommand_Errors(t *testing.T) {
	tr := &fakeTransport{state: player.StatePlaying, speed: 1}
	var out bytes.Buffer

	for _, line := range []string{"s", "s abc", "x 1 2", "z"} {
		if _, err := handleCommand(line, tr, &out); err == nil {
			t.Errorf("%q: expected error", line)
		}
	}
	if quit, err := handleCommand("   ", tr, &out); quit || err != nil {
		t.Errorf("blank line: quit=%v err=%v", quit, err)
	}
	if len(tr.seeks) != 0 {
		t.Errorf("invalid commands must not seek, got %v", tr.seeks)
	}
}

func TestReadCommands_StopsAtQuit(t *testing.T) {
	tr := &fakeTransport{state: player.StatePlaying, speed: 1}
	tr.seekFn = func(float64) error { return player.ErrInputDrained }
	var out bytes.Buffer

	readCommands(strings.NewReader("s 1\nq\ns 2\n"), tr, &out)

	if len(tr.seeks) != 1 || tr.stops != 1 {
		t.Errorf("expected one seek and one stop, got %v / %d", tr.seeks, tr.stops)
	}
	if !strings.Contains(out.String(), player.ErrInputDrained.Error()) {
		t.Errorf("expected seek error to be printed, got %q", out.String())
	}
}

func TestProbe(t *testing.T) {
	dm := mocks.NewDemuxer(50, 25, 10, true)
	opener := &mocks.ContainerOpener{
		OpenFunc: func(uri string) (ports.Demuxer, error) { return dm, nil },
	}
	var out bytes.Buffer

	if err := probe(&out, opener, "clip.mp4"); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	got := out.String()
	for _, want := range []string{"clip.mp4", "2.000 s", "h264 64x48 25.000 fps", "aac 48000 Hz 2 channels"} {
		if !strings.Contains(got, want) {
			t.Errorf("probe output missing %q:\n%s", want, got)
		}
	}
	if dm.Closes() != 1 {
		t.Errorf("expected demuxer to be closed once, got %d", dm.Closes())
	}

	if err := probe(&out, &mocks.ContainerOpener{}, "missing.mp4"); err == nil {
		t.Error("expected open error")
	}
}

func TestApplyDecodeFlags(t *testing.T) {
	cfg := config.Defaults()
	cmd := decodeCommand()
	cmd.Action = func(c *cli.Context) error {
		applyDecodeFlags(c, &cfg)
		return nil
	}
	app := &cli.App{Name: "mediaplay", Commands: []*cli.Command{cmd}}

	args := []string{"mediaplay", "decode", "-o", "frames.rgba", "--audio-out", "audio.pcm", "-W", "320", "-H", "180", "in.mp4"}
	if err := app.Run(args); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if cfg.Video.Pace || cfg.Video.Renderer != config.RendererRawFile || cfg.Video.Output != "frames.rgba" {
		t.Errorf("unexpected video config %+v", cfg.Video)
	}
	if cfg.Video.Width != 320 || cfg.Video.Height != 180 {
		t.Errorf("unexpected size %dx%d", cfg.Video.Width, cfg.Video.Height)
	}
	if !cfg.Audio.Enabled || cfg.Audio.Output != config.AudioPCMFile || cfg.Audio.OutputPath != "audio.pcm" {
		t.Errorf("unexpected audio config %+v", cfg.Audio)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("decode config should be valid: %v", err)
	}
}

func TestNewRendererAndOutput(t *testing.T) {
	fs := mocks.NewFileSystem()
	log := logger.NewNoop()
	cfg := config.Defaults()

	if _, ok := newRenderer(cfg, fs, log).(*snapshot.Renderer); !ok {
		t.Error("expected snapshot renderer by default")
	}
	cfg.Video.Renderer = config.RendererRawFile
	if _, ok := newRenderer(cfg, fs, log).(*rawfile.Renderer); !ok {
		t.Error("expected rawfile renderer")
	}
	cfg.Video.Renderer = config.RendererNull
	if _, ok := newRenderer(cfg, fs, log).(*nullsink.Renderer); !ok {
		t.Error("expected null renderer")
	}

	cfg.Audio.Output = config.AudioPCMFile
	if _, ok := newAudioOutput(cfg, fs, log).(*pcmfile.Output); !ok {
		t.Error("expected pcmfile output")
	}
	cfg.Audio.Output = config.AudioNull
	if _, ok := newAudioOutput(cfg, fs, log).(*nullsink.AudioOutput); !ok {
		t.Error("expected null output")
	}
}
