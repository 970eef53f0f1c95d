// Package demux provides the demux stage: it reads compressed units from a
// container and routes them to the per-stream queues.
package demux

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/pipeline"
	"github.com/user/mediaplay/pkg/ports"
	"github.com/user/mediaplay/pkg/session"
)

// ErrFinished is returned by Seek once the stage has exited.
var ErrFinished = errors.New("demux: input drained")

// Config controls stream selection and prefetch.
type Config struct {
	// VideoStream is the index of the routed video stream.
	VideoStream int
	// AudioStream is the index of the routed audio stream, -1 to discard audio.
	AudioStream int
	// MaxQueuedUnits pauses reading while both queues together hold at least
	// this many units. Zero disables the limit.
	MaxQueuedUnits int
}

type seekRequest struct {
	pos   time.Duration
	reply chan error
}

// Stage reads units from a Demuxer. It is the demuxer's single owner: every
// read, seek and the final Close happen on the stage goroutine.
type Stage struct {
	demuxer ports.Demuxer
	video   *pipeline.UnitQueue
	audio   *pipeline.UnitQueue
	sess    *session.Session
	config  Config
	logger  ports.Logger

	seeks chan seekRequest
	done  chan struct{}
}

// New creates a demux stage. audio may be nil when no audio stream is routed.
func New(
	demuxer ports.Demuxer,
	video, audio *pipeline.UnitQueue,
	sess *session.Session,
	config Config,
	logger ports.Logger,
) *Stage {
	if audio == nil {
		config.AudioStream = -1
	}
	return &Stage{
		demuxer: demuxer,
		video:   video,
		audio:   audio,
		sess:    sess,
		config:  config,
		logger:  logger,
		seeks:   make(chan seekRequest),
		done:    make(chan struct{}),
	}
}

// Done is closed when the stage has exited and released the demuxer.
func (s *Stage) Done() <-chan struct{} {
	return s.done
}

// Seek asks the stage goroutine to reposition the input. It returns after the
// queues have been flushed and flush markers pushed, or ErrFinished if the
// stage is no longer running.
func (s *Stage) Seek(ctx context.Context, pos time.Duration) error {
	req := seekRequest{pos: pos, reply: make(chan error, 1)}

	select {
	case s.seeks <- req:
	case <-s.done:
		return ErrFinished
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run reads until end of input, a read failure, stop or ctx cancellation.
// A read failure ends the stage without an error: consumers observe it as end of stream.
func (s *Stage) Run(ctx context.Context) error {
	defer s.finish()

	s.logger.Debug("Demux started")
	var units int

	for {
		select {
		case req := <-s.seeks:
			s.handleSeek(req)
		default:
		}

		if s.sess.Stopped() || ctx.Err() != nil {
			return nil
		}

		if s.throttled() {
			select {
			case req := <-s.seeks:
				s.handleSeek(req)
			case <-s.video.Taken():
			case <-s.audioTaken():
			case <-s.sess.Done():
			case <-ctx.Done():
			}
			continue
		}

		unit, err := s.demuxer.ReadUnit()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("End of input after %d units", units)
			} else {
				s.logger.Warn("Read failed: %s", err)
			}
			return nil
		}
		units++
		s.route(unit)
	}
}

func (s *Stage) throttled() bool {
	if s.config.MaxQueuedUnits <= 0 {
		return false
	}
	n := s.video.Len()
	if s.audio != nil {
		n += s.audio.Len()
	}
	return n >= s.config.MaxQueuedUnits
}

// audioTaken is nil, and so never ready, when no audio stream is routed.
func (s *Stage) audioTaken() <-chan struct{} {
	if s.audio == nil {
		return nil
	}
	return s.audio.Taken()
}

func (s *Stage) route(unit *media.Unit) {
	unit.Epoch = s.sess.Epoch()

	switch {
	case unit.Role == media.RoleVideo && unit.Stream == s.config.VideoStream:
		s.sess.SetPosition(unit.PTS)
		s.sess.Stats.VideoUnits.Add(1)
		s.video.Push(unit)
	case unit.Role == media.RoleAudio && unit.Stream == s.config.AudioStream:
		s.sess.Stats.AudioUnits.Add(1)
		s.audio.Push(unit)
	}
}

func (s *Stage) handleSeek(req seekRequest) {
	if err := s.demuxer.Seek(req.pos); err != nil {
		s.logger.Warn("Seek failed: %s", err)
		req.reply <- err
		return
	}

	epoch := s.sess.NextEpoch()
	dropped := s.video.Flush()
	s.video.Push(media.NewFlushUnit(media.RoleVideo, epoch))
	if s.audio != nil {
		dropped += s.audio.Flush()
		s.audio.Push(media.NewFlushUnit(media.RoleAudio, epoch))
	}
	s.sess.SetPosition(req.pos)
	s.sess.Stats.Seeks.Add(1)

	s.logger.Info("Seeked to %.3f s (epoch %d, %d units dropped)", req.pos.Seconds(), epoch, dropped)
	req.reply <- nil
}

// finish signals end of stream to both consumers and releases the demuxer.
func (s *Stage) finish() {
	s.video.SetFinished(true)
	if s.audio != nil {
		s.audio.SetFinished(true)
	}
	if err := s.demuxer.Close(); err != nil {
		s.logger.Warn("Failed to close %s: %s", "demuxer", err)
	}
	close(s.done)
}
