//go:build !linux || cgo

package otosink

import (
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/ports"
)

var (
	deviceMu     sync.Mutex
	device       *oto.Context
	deviceFormat media.AudioFormat
)

// openDevice returns the process-wide oto context, creating it on first use.
func openDevice(format media.AudioFormat, opts Options) (*oto.Context, error) {
	deviceMu.Lock()
	defer deviceMu.Unlock()

	if device != nil {
		if format != deviceFormat {
			return nil, ErrFormatChanged
		}
		return device, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   opts.bufferSize(),
	})
	if err != nil {
		return nil, err
	}
	<-ready
	device = ctx
	deviceFormat = format
	return ctx, nil
}

// Output implements ports.AudioOutput on the default audio device.
type Output struct {
	opts   Options
	logger ports.Logger

	mu     sync.Mutex
	player *oto.Player
}

// New creates a device output. The device is opened on Start.
func New(opts Options, logger ports.Logger) *Output {
	return &Output{opts: opts, logger: logger.WithComponent("oto")}
}

func (o *Output) Start(src ports.PCMSource) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		return ErrAlreadyStarted
	}

	format := src.Format()
	if err := validate(format); err != nil {
		return err
	}
	ctx, err := openDevice(format, o.opts)
	if err != nil {
		return err
	}

	o.player = ctx.NewPlayer(src)
	o.player.Play()
	o.logger.Info("Audio device started: %d Hz %d ch", format.SampleRate, format.Channels)
	return nil
}

func (o *Output) Pause(paused bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return
	}
	if paused {
		o.player.Pause()
	} else {
		o.player.Play()
	}
}

func (o *Output) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	p := o.player
	o.player = nil
	if err := p.Err(); err != nil {
		o.logger.Warn("Audio device error: %s", err.Error())
	}
	return p.Close()
}
