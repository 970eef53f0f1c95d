// Package video provides the video decode/present stage.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/pipeline"
	"github.com/user/mediaplay/pkg/ports"
	"github.com/user/mediaplay/pkg/session"
)

// ErrRendererInit is returned by Run when the renderer cannot be initialized.
var ErrRendererInit = errors.New("video: renderer init failed")

// Config controls presentation.
type Config struct {
	// Width and Height of the presentation buffer.
	Width  int
	Height int

	// FrameRate is the nominal presentation rate used for pacing.
	FrameRate float64

	// Pace enables real-time pacing. When false frames are presented as fast
	// as they decode (batch mode).
	Pace bool

	// Scaler is used when decoded pictures differ from the buffer size.
	// Defaults to draw.ApproxBiLinear.
	Scaler draw.Scaler
}

// Stage pops video units, decodes them and presents every frame in order.
// It owns the decoder and the renderer and releases both when it exits.
type Stage struct {
	queue    *pipeline.UnitQueue
	decoder  ports.VideoDecoder
	renderer ports.Renderer
	sess     *session.Session
	config   Config
	logger   ports.Logger

	// buf is the single presentation buffer, overwritten for every frame.
	buf *image.RGBA
}

// New creates a video stage.
func New(
	queue *pipeline.UnitQueue,
	decoder ports.VideoDecoder,
	renderer ports.Renderer,
	sess *session.Session,
	config Config,
	logger ports.Logger,
) *Stage {
	if config.Scaler == nil {
		config.Scaler = draw.ApproxBiLinear
	}
	return &Stage{
		queue:    queue,
		decoder:  decoder,
		renderer: renderer,
		sess:     sess,
		config:   config,
		logger:   logger,
	}
}

// Run executes the decode/present loop until end of stream or stop.
func (s *Stage) Run(ctx context.Context) error {
	defer s.teardown()

	if err := s.renderer.Init(s.config.Width, s.config.Height); err != nil {
		return fmt.Errorf("%w: %v", ErrRendererInit, err)
	}
	s.logger.Debug("Renderer initialized: %dx%d", s.config.Width, s.config.Height)
	s.buf = image.NewRGBA(image.Rect(0, 0, s.config.Width, s.config.Height))

	var lastEpoch uint64
	for {
		unit, ok := s.queue.PopContext(ctx)
		if !ok {
			if s.sess.Stopped() || ctx.Err() != nil {
				return nil
			}
			// End of stream: present whatever the decoder still holds.
			frames, err := s.decoder.Decode(nil)
			if err != nil {
				s.logger.Warn("Failed to drain decoder: %s", err)
			}
			s.presentAll(ctx, frames, lastEpoch)
			s.logger.Info("Video stage finished: %d frames presented", s.sess.Stats.FramesPresented.Load())
			return nil
		}

		if unit.Flush {
			s.decoder.Flush()
			lastEpoch = unit.Epoch
			s.logger.Debug("Decoder flushed")
			continue
		}

		lastEpoch = unit.Epoch
		frames, err := s.decoder.Decode(unit)
		if err != nil {
			s.sess.Stats.DecodeErrors.Add(1)
			s.logger.Warn("Failed to decode unit at %.3f s: %s", unit.PTS.Seconds(), err)
			continue
		}
		if !s.presentAll(ctx, frames, unit.Epoch) {
			return nil
		}
	}
}

// presentAll presents frames in order. It returns false when the stage must exit.
func (s *Stage) presentAll(ctx context.Context, frames []media.VideoFrame, epoch uint64) bool {
	for _, frame := range frames {
		s.sess.Stats.FramesDecoded.Add(1)
		s.convert(frame.Image)

		if s.sess.Stopped() || ctx.Err() != nil {
			return false
		}
		if !s.sess.WaitWhilePaused() {
			return false
		}
		if epoch != s.sess.Epoch() {
			s.sess.Stats.FramesDropped.Add(1)
			continue
		}

		if s.config.Pace {
			if !s.sess.Sleep(ctx, s.sess.FrameDelay(s.config.FrameRate)) {
				return false
			}
		}

		if err := s.renderer.Present(s.buf, frame.PTS); err != nil {
			s.sess.Stats.PresentErrors.Add(1)
			s.logger.Warn("Failed to present frame at %.3f s: %s", frame.PTS.Seconds(), err)
			continue
		}
		s.sess.Stats.FramesPresented.Add(1)
	}
	return true
}

// convert writes img into the presentation buffer, scaling when sizes differ.
func (s *Stage) convert(img image.Image) {
	if img == nil {
		return
	}
	src := img.Bounds()
	dst := s.buf.Bounds()
	if src.Dx() == dst.Dx() && src.Dy() == dst.Dy() {
		draw.Copy(s.buf, image.Point{}, img, src, draw.Src, nil)
		return
	}
	s.config.Scaler.Scale(s.buf, dst, img, src, draw.Src, nil)
}

func (s *Stage) teardown() {
	if err := s.renderer.Release(); err != nil {
		s.logger.Warn("Failed to close %s: %s", "renderer", err)
	}
	if err := s.decoder.Close(); err != nil {
		s.logger.Warn("Failed to close %s: %s", "video decoder", err)
	}
}
