// Package audio provides the audio decode stage. It decodes audio units,
// resamples them to the output format and feeds the PCM queue.
package audio

import (
	"context"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/pipeline"
	"github.com/user/mediaplay/pkg/ports"
	"github.com/user/mediaplay/pkg/session"
)

// Config controls buffering toward the audio output.
type Config struct {
	// MaxBufferedBytes holds decoding while the PCM queue holds at least this
	// many bytes. Zero disables the limit.
	MaxBufferedBytes int
}

// Stage owns the audio decoder and the resampler.
type Stage struct {
	queue     *pipeline.UnitQueue
	decoder   ports.AudioDecoder
	resampler ports.Resampler
	pcm       *pipeline.PCMQueue
	sess      *session.Session
	config    Config
	logger    ports.Logger
}

// New creates an audio stage.
func New(
	queue *pipeline.UnitQueue,
	decoder ports.AudioDecoder,
	resampler ports.Resampler,
	pcm *pipeline.PCMQueue,
	sess *session.Session,
	config Config,
	logger ports.Logger,
) *Stage {
	return &Stage{
		queue:     queue,
		decoder:   decoder,
		resampler: resampler,
		pcm:       pcm,
		sess:      sess,
		config:    config,
		logger:    logger,
	}
}

// Run decodes until the audio queue reports end of stream or the session stops.
func (s *Stage) Run(ctx context.Context) error {
	defer s.teardown()

	for {
		unit, ok := s.queue.PopContext(ctx)
		if !ok {
			break
		}
		if s.sess.Stopped() {
			return nil
		}

		if unit.Flush {
			s.decoder.Flush()
			s.resampler.Reset()
			s.pcm.Flush()
			continue
		}

		frames, err := s.decoder.Decode(unit)
		if err != nil {
			s.sess.Stats.DecodeErrors.Add(1)
			s.logger.Warn("Failed to decode unit at %.3f s: %s", unit.PTS.Seconds(), err)
			continue
		}
		if !s.emit(ctx, frames, unit.Epoch) {
			return nil
		}
	}

	if s.sess.Stopped() || ctx.Err() != nil {
		return nil
	}
	frames, err := s.decoder.Decode(nil)
	if err != nil {
		s.logger.Warn("Failed to drain decoder: %s", err)
	}
	s.emit(ctx, frames, s.sess.Epoch())
	s.logger.Info("Audio stage finished: %d bytes of PCM", s.sess.Stats.PCMBytes.Load())
	return nil
}

// emit resamples frames and pushes them to the PCM queue. It returns false
// when the stage must exit.
func (s *Stage) emit(ctx context.Context, frames []media.AudioFrame, epoch uint64) bool {
	for _, frame := range frames {
		if epoch != s.sess.Epoch() {
			continue
		}
		if !s.waitForRoom(ctx) {
			return false
		}

		buf, err := s.resampler.Convert(frame)
		if err != nil {
			s.logger.Warn("Failed to resample audio: %s", err)
			continue
		}
		s.sess.Stats.AudioFrames.Add(1)
		s.sess.Stats.PCMBytes.Add(int64(buf.Len()))
		s.pcm.Push(buf)
	}
	return true
}

func (s *Stage) waitForRoom(ctx context.Context) bool {
	if s.config.MaxBufferedBytes <= 0 {
		return !s.sess.Stopped()
	}
	for s.pcm.Buffered() >= s.config.MaxBufferedBytes {
		select {
		case <-s.pcm.Taken():
		case <-s.sess.Done():
			return false
		case <-ctx.Done():
			return false
		}
	}
	return !s.sess.Stopped()
}

func (s *Stage) teardown() {
	s.pcm.SetFinished(true)
	if err := s.resampler.Close(); err != nil {
		s.logger.Warn("Failed to close %s: %s", "resampler", err)
	}
	if err := s.decoder.Close(); err != nil {
		s.logger.Warn("Failed to close %s: %s", "audio decoder", err)
	}
}
