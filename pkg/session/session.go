// Package session holds the transport state shared by the stages of one playback session.
//
// The controller writes the state; every stage reads it on each loop iteration.
// Flags are atomics so that readers never take a lock on the hot path. Pause
// waiting goes through a condition variable that is signalled on resume and on stop.
package session

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is the per-session transport state.
type Session struct {
	id string

	paused  atomic.Bool
	stopped atomic.Bool
	speed   atomic.Uint64 // math.Float64bits
	epoch   atomic.Uint64

	// position is the PTS of the most recently demuxed video unit, -1 when unknown.
	position atomic.Int64

	mu   sync.Mutex
	cond *sync.Cond
	done chan struct{}
	once sync.Once

	Stats Stats
}

// New creates a session with the given initial speed.
func New(speed float64) *Session {
	s := &Session{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		speed = 1.0
	}
	s.speed.Store(math.Float64bits(speed))
	s.position.Store(-1)
	return s
}

// ID returns the unique identifier of the session.
func (s *Session) ID() string {
	return s.id
}

// ShortID returns the first eight characters of the session id, for log prefixes.
func (s *Session) ShortID() string {
	if len(s.id) < 8 {
		return s.id
	}
	return s.id[:8]
}

// =============================================================================
// Pause / stop
// =============================================================================

// SetPaused sets the paused flag. Resuming wakes every stage waiting in WaitWhilePaused.
func (s *Session) SetPaused(paused bool) {
	s.mu.Lock()
	s.paused.Store(paused)
	s.mu.Unlock()
	if !paused {
		s.cond.Broadcast()
	}
}

// Paused reports the paused flag.
func (s *Session) Paused() bool {
	return s.paused.Load()
}

// Stop sets the stopped flag, closes Done and wakes paused waiters. Idempotent.
func (s *Session) Stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped.Store(true)
		close(s.done)
		s.mu.Unlock()
		s.cond.Broadcast()
	})
}

// Stopped reports the stopped flag.
func (s *Session) Stopped() bool {
	return s.stopped.Load()
}

// Done returns a channel that is closed when the session is stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// WaitWhilePaused blocks while the session is paused and not stopped.
// It returns false if the session was stopped.
func (s *Session) WaitWhilePaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.paused.Load() && !s.stopped.Load() {
		s.cond.Wait()
	}
	return !s.stopped.Load()
}

// Sleep waits for d, returning early when the session is stopped or ctx is done.
// It returns false if the wait was interrupted.
func (s *Session) Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return !s.Stopped()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return !s.Stopped()
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// =============================================================================
// Speed, epoch, position
// =============================================================================

// SetSpeed stores the playback rate multiplier. Callers validate v > 0.
func (s *Session) SetSpeed(v float64) {
	s.speed.Store(math.Float64bits(v))
}

// Speed returns the playback rate multiplier.
func (s *Session) Speed() float64 {
	return math.Float64frombits(s.speed.Load())
}

// NextEpoch advances the seek generation and returns the new value.
func (s *Session) NextEpoch() uint64 {
	return s.epoch.Add(1)
}

// Epoch returns the current seek generation.
func (s *Session) Epoch() uint64 {
	return s.epoch.Load()
}

// SetPosition records the timestamp of the most recently demuxed video unit.
func (s *Session) SetPosition(pts time.Duration) {
	s.position.Store(int64(pts))
}

// ResetPosition marks the position as unknown.
func (s *Session) ResetPosition() {
	s.position.Store(-1)
}

// Position returns the last recorded timestamp; ok is false when unknown.
func (s *Session) Position() (pts time.Duration, ok bool) {
	v := s.position.Load()
	if v < 0 {
		return 0, false
	}
	return time.Duration(v), true
}

// FrameDelay returns the presentation interval for one frame at the current speed.
// The speed is read once per call. A non-positive frame rate yields zero.
func (s *Session) FrameDelay(frameRate float64) time.Duration {
	return FrameDelay(frameRate, s.Speed())
}

// FrameDelay computes 1/frameRate/speed as a duration.
func FrameDelay(frameRate, speed float64) time.Duration {
	if frameRate <= 0 || speed <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / frameRate / speed)
}
