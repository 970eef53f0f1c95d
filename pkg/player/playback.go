package player

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/pipeline"
	"github.com/user/mediaplay/pkg/ports"
	"github.com/user/mediaplay/pkg/session"
	"github.com/user/mediaplay/pkg/stages/demux"
)

// State is the transport state of the controller.
type State int32

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateStopped
	StateCompleted
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// drainGrace is added to the play time of the queued audio when a finished
// session waits for the output to pull it.
const drainGrace = 500 * time.Millisecond

// playback is one running session: its stages, queues and audio output.
type playback struct {
	sess   *session.Session
	demux  *demux.Stage
	stages []pipeline.Stage
	video  *pipeline.UnitQueue
	audio  *pipeline.UnitQueue // nil without audio
	pcm    *pipeline.PCMQueue  // nil without audio
	output ports.AudioOutput   // nil without audio
	info   media.Info
	logger ports.Logger

	state    atomic.Int32
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	stopOnce sync.Once
}

// start runs every stage on an errgroup. When the group finishes the audio
// output is stopped and done is closed.
func (p *playback) start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for _, stage := range p.stages {
		stage := stage
		g.Go(func() error {
			return stage.Run(gctx)
		})
	}
	p.state.Store(int32(StatePlaying))

	go func() {
		err := g.Wait()
		if p.output != nil {
			p.drainAudio()
			if serr := p.output.Stop(); serr != nil {
				p.logger.Warn("Failed to close %s: %s", "audio output", serr)
			}
		}
		p.cancel()

		p.err = err
		if err != nil {
			p.logger.Error("Playback failed: %s", err)
		}
		if !p.sess.Stopped() {
			p.state.Store(int32(StateCompleted))
			p.logger.Info("Playback finished")
		} else {
			p.state.Store(int32(StateStopped))
		}
		close(p.done)
	}()
}

// drainAudio waits until the output has pulled the PCM that is still queued,
// so the end of the stream is heard. The wait is bounded by the play time of
// the queued audio plus drainGrace; Stop interrupts it.
func (p *playback) drainAudio() {
	f := p.pcm.Format()
	rate := f.SampleRate * f.BytesPerFrame()
	if rate <= 0 {
		return
	}
	wait := time.Duration(p.pcm.Buffered())*time.Second/time.Duration(rate) + drainGrace
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for p.pcm.Buffered() > 0 {
		select {
		case <-p.pcm.Taken():
		case <-p.sess.Done():
			return
		case <-timer.C:
			return
		}
	}
}

// stop sets the stop flag, unblocks every queue and waits for the session to end.
func (p *playback) stop() {
	p.stopOnce.Do(func() {
		p.sess.Stop()
		p.video.Flush()
		p.video.SetFinished(true)
		if p.audio != nil {
			p.audio.Flush()
			p.audio.SetFinished(true)
			p.pcm.Flush()
			p.pcm.SetFinished(true)
		}
		if p.cancel != nil {
			p.cancel()
		}
	})
	<-p.done
}

// ended reports whether the session has stopped or completed.
func (p *playback) ended() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
