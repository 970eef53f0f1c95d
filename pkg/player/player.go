// Package player coordinates the stages of a playback session and exposes
// the transport controls: play, pause, speed, seek and stop.
package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/pipeline"
	"github.com/user/mediaplay/pkg/ports"
	"github.com/user/mediaplay/pkg/session"
	"github.com/user/mediaplay/pkg/stages/audio"
	"github.com/user/mediaplay/pkg/stages/demux"
	"github.com/user/mediaplay/pkg/stages/video"
)

var (
	// ErrOpen is returned by Play when the container, a decoder, the resampler
	// or the audio output cannot be opened.
	ErrOpen = errors.New("player: open failed")

	// ErrInvalidArgument is returned for a non-positive speed or a negative seek position.
	ErrInvalidArgument = errors.New("player: invalid argument")

	// ErrNoSession is returned when no session is active.
	ErrNoSession = errors.New("player: no active session")

	// ErrInputDrained is returned by Seek once the whole input has been read.
	ErrInputDrained = errors.New("player: input drained")
)

// Config contains all configuration for the controller.
type Config struct {
	// Speed is the initial playback rate multiplier.
	Speed float64

	// Video
	Pace              bool
	FallbackFrameRate float64
	Width             int // presentation size, 0 = stream size
	Height            int
	MaxQueuedUnits    int

	// Audio
	AudioEnabled    bool
	AudioSampleRate int // 0 = source rate
	AudioChannels   int // 0 = source channels
	AudioBuffer     time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Speed:             1.0,
		Pace:              true,
		FallbackFrameRate: 25,
		MaxQueuedUnits:    256,
		AudioEnabled:      true,
		AudioSampleRate:   48000,
		AudioChannels:     2,
		AudioBuffer:       500 * time.Millisecond,
	}
}

const (
	defaultWidth  = 640
	defaultHeight = 360
)

// Controller plays one session at a time. All methods are safe for
// concurrent use.
type Controller struct {
	opener     ports.ContainerOpener
	codecs     ports.CodecFactory
	resamplers ports.ResamplerFactory
	output     ports.AudioOutput
	config     Config
	logger     ports.Logger

	// speed persists across sessions.
	speed atomic.Uint64

	// playMu serializes Play so at most one session is ever running.
	playMu sync.Mutex

	mu     sync.Mutex
	active *playback
}

// New creates a controller. output may be nil to play video only.
func New(
	opener ports.ContainerOpener,
	codecs ports.CodecFactory,
	resamplers ports.ResamplerFactory,
	output ports.AudioOutput,
	config Config,
	logger ports.Logger,
) *Controller {
	c := &Controller{
		opener:     opener,
		codecs:     codecs,
		resamplers: resamplers,
		output:     output,
		config:     config,
		logger:     logger,
	}
	speed := config.Speed
	if !validSpeed(speed) {
		speed = 1.0
	}
	c.speed.Store(math.Float64bits(speed))
	return c
}

func validSpeed(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (c *Controller) current() *playback {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// =============================================================================
// Transport
// =============================================================================

// Play stops any active session, opens uri and starts playback on renderer.
// It returns once every stage is running. Concurrent calls are serialized:
// each one replaces the session started by the previous one.
func (c *Controller) Play(ctx context.Context, uri string, renderer ports.Renderer) (media.Info, error) {
	c.playMu.Lock()
	defer c.playMu.Unlock()

	if p := c.current(); p != nil {
		p.stop()
	}

	c.logger.Info("Opening %s", uri)
	p, err := c.open(uri, renderer)
	if err != nil {
		c.logger.Error("Failed to open %s: %s", uri, err)
		return media.Info{}, err
	}

	p.start(ctx)

	c.mu.Lock()
	c.active = p
	c.mu.Unlock()
	return p.info, nil
}

// Pause suspends or resumes the active session.
func (c *Controller) Pause(paused bool) {
	p := c.current()
	if p == nil || p.ended() {
		return
	}
	p.sess.SetPaused(paused)
	if p.output != nil {
		p.output.Pause(paused)
	}
	if paused {
		p.state.CompareAndSwap(int32(StatePlaying), int32(StatePaused))
		c.logger.Info("Paused")
	} else {
		p.state.CompareAndSwap(int32(StatePaused), int32(StatePlaying))
		c.logger.Info("Resumed")
	}
}

// SetSpeed sets the playback rate multiplier for the active and all later sessions.
func (c *Controller) SetSpeed(v float64) error {
	if !validSpeed(v) {
		return fmt.Errorf("%w: speed %v", ErrInvalidArgument, v)
	}
	c.speed.Store(math.Float64bits(v))
	if p := c.current(); p != nil {
		p.sess.SetSpeed(v)
	}
	c.logger.Info("Playback speed set to %.2fx", v)
	return nil
}

// Speed returns the playback rate multiplier.
func (c *Controller) Speed() float64 {
	return math.Float64frombits(c.speed.Load())
}

// Seek repositions the active session to the last keyframe at or before seconds.
func (c *Controller) Seek(seconds float64) error {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return fmt.Errorf("%w: position %v", ErrInvalidArgument, seconds)
	}
	p := c.current()
	if p == nil || p.sess.Stopped() {
		return ErrNoSession
	}

	c.logger.Info("Seeking to %.3f s", seconds)
	err := p.demux.Seek(context.Background(), media.FromSeconds(seconds))
	if errors.Is(err, demux.ErrFinished) {
		return ErrInputDrained
	}
	return err
}

// Stop ends the active session and waits until every stage has exited.
// Stopping a session that already ended is a no-op.
func (c *Controller) Stop() error {
	p := c.current()
	if p == nil {
		return ErrNoSession
	}
	if !p.ended() {
		c.logger.Info("Stopping playback")
	}
	p.stop()
	return nil
}

// Wait blocks until the active session ends and returns its error.
func (c *Controller) Wait(ctx context.Context) error {
	p := c.current()
	if p == nil {
		return ErrNoSession
	}
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// Queries
// =============================================================================

// Position returns the last demuxed video timestamp in seconds, -1 when unknown.
func (c *Controller) Position() float64 {
	p := c.current()
	if p == nil {
		return -1
	}
	pts, ok := p.sess.Position()
	if !ok {
		return -1
	}
	return media.Seconds(pts)
}

// Duration returns the container duration in seconds, 0 without a session.
func (c *Controller) Duration() float64 {
	p := c.current()
	if p == nil {
		return 0
	}
	return media.Seconds(p.info.Duration)
}

// Progress returns position / duration clamped to [0, 1].
func (c *Controller) Progress() float64 {
	d := c.Duration()
	pos := c.Position()
	if d <= 0 || pos < 0 {
		return 0
	}
	return math.Min(pos/d, 1)
}

// State returns the transport state.
func (c *Controller) State() State {
	p := c.current()
	if p == nil {
		return StateIdle
	}
	return State(p.state.Load())
}

// Stats returns a snapshot of the pipeline counters of the active session.
func (c *Controller) Stats() session.StatsSnapshot {
	p := c.current()
	if p == nil {
		return session.StatsSnapshot{}
	}
	return p.sess.Stats.Snapshot()
}

// Info returns the metadata of the active session.
func (c *Controller) Info() media.Info {
	p := c.current()
	if p == nil {
		return media.Info{}
	}
	return p.info
}

// =============================================================================
// Session setup
// =============================================================================

// open opens the container, the decoders, the resampler and the audio output.
// On failure everything opened so far is released.
func (c *Controller) open(uri string, renderer ports.Renderer) (p *playback, err error) {
	type closer struct {
		name  string
		close func() error
	}
	var closers []closer
	defer func() {
		if err == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].close(); cerr != nil {
				c.logger.Warn("Failed to close %s: %s", closers[i].name, cerr)
			}
		}
	}()

	dm, err := c.opener.Open(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, uri, err)
	}
	closers = append(closers, closer{"demuxer", dm.Close})

	vdesc, adesc, err := selectStreams(dm.Streams())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, uri, err)
	}

	vdec, err := c.codecs.OpenVideo(vdesc)
	if err != nil {
		return nil, fmt.Errorf("%w: video decoder: %v", ErrOpen, err)
	}
	closers = append(closers, closer{"video decoder", vdec.Close})

	frameRate := vdesc.FrameRate
	if frameRate <= 0 {
		frameRate = c.config.FallbackFrameRate
	}
	width, height := c.config.Width, c.config.Height
	if width <= 0 || height <= 0 {
		width, height = vdesc.Width, vdesc.Height
	}
	if width <= 0 || height <= 0 {
		width, height = defaultWidth, defaultHeight
	}

	info := media.Info{
		VideoWidth:  width,
		VideoHeight: height,
		Duration:    dm.Duration(),
		VideoCodec:  vdesc.Codec,
		FrameRate:   frameRate,
	}

	sess := session.New(c.Speed())
	log := c.logger.WithComponent(sess.ShortID())

	p = &playback{
		sess:  sess,
		video: pipeline.NewUnitQueue(),
		info:  info,
		done:  make(chan struct{}),
	}

	var adec ports.AudioDecoder
	var res ports.Resampler
	switch {
	case adesc == nil:
		log.Info("No audio stream")
	case c.output == nil || !c.config.AudioEnabled:
		log.Info("Audio output disabled")
	default:
		adec, err = c.codecs.OpenAudio(*adesc)
		if err != nil {
			return nil, fmt.Errorf("%w: audio decoder: %v", ErrOpen, err)
		}
		closers = append(closers, closer{"audio decoder", adec.Close})

		in := media.AudioFormat{SampleRate: adesc.SampleRate, Channels: adesc.Channels}
		out := media.AudioFormat{SampleRate: c.config.AudioSampleRate, Channels: c.config.AudioChannels}
		if out.SampleRate <= 0 {
			out.SampleRate = in.SampleRate
		}
		if out.Channels <= 0 {
			out.Channels = in.Channels
		}
		res, err = c.resamplers.Open(in, out)
		if err != nil {
			return nil, fmt.Errorf("%w: resampler: %v", ErrOpen, err)
		}
		closers = append(closers, closer{"resampler", res.Close})

		p.audio = pipeline.NewUnitQueue()
		p.pcm = pipeline.NewPCMQueue(out)
		if err = c.output.Start(p.pcm); err != nil {
			return nil, fmt.Errorf("%w: audio output: %v", ErrOpen, err)
		}
		p.output = c.output

		p.info.AudioCodec = adesc.Codec
		p.info.AudioSampleRate = out.SampleRate
		p.info.AudioChannels = out.Channels
		log.Info("Audio stream: %s, %d Hz, %d channels", adesc.Codec, in.SampleRate, in.Channels)
	}

	audioIndex := -1
	if p.audio != nil {
		audioIndex = adesc.Index
	}
	p.demux = demux.New(dm, p.video, p.audio, sess, demux.Config{
		VideoStream:    vdesc.Index,
		AudioStream:    audioIndex,
		MaxQueuedUnits: c.config.MaxQueuedUnits,
	}, log.WithComponent("demux"))

	p.stages = []pipeline.Stage{
		p.demux,
		video.New(p.video, vdec, renderer, sess, video.Config{
			Width:     width,
			Height:    height,
			FrameRate: frameRate,
			Pace:      c.config.Pace,
		}, log.WithComponent("video")),
	}
	if p.audio != nil {
		p.stages = append(p.stages, audio.New(p.audio, adec, res, p.pcm, sess, audio.Config{
			MaxBufferedBytes: bufferBytes(p.pcm.Format(), c.config.AudioBuffer),
		}, log.WithComponent("audio")))
	}

	p.logger = log
	log.Info("Playing %s (%dx%d %s, %.3f fps)", uri, width, height, vdesc.Codec, frameRate)
	return p, nil
}

// selectStreams returns the first video stream and the first audio stream, if any.
func selectStreams(streams []media.StreamDescriptor) (media.StreamDescriptor, *media.StreamDescriptor, error) {
	var vdesc *media.StreamDescriptor
	var adesc *media.StreamDescriptor
	for i := range streams {
		s := &streams[i]
		switch {
		case s.Role == media.RoleVideo && vdesc == nil:
			vdesc = s
		case s.Role == media.RoleAudio && adesc == nil:
			adesc = s
		}
	}
	if vdesc == nil {
		return media.StreamDescriptor{}, nil, errors.New("no video stream")
	}
	return *vdesc, adesc, nil
}

// bufferBytes converts a buffer duration into a PCM byte count.
func bufferBytes(f media.AudioFormat, d time.Duration) int {
	if d <= 0 {
		return 0
	}
	frames := int(d.Seconds() * float64(f.SampleRate))
	return frames * f.BytesPerFrame()
}
