// Package nullsink provides outputs that accept and discard everything.
package nullsink

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/mediaplay/pkg/ports"
)

// Renderer is a no-op implementation of ports.Renderer.
// It only counts presented frames.
type Renderer struct {
	frames atomic.Int64
}

// NewRenderer creates a new null Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Init does nothing.
func (r *Renderer) Init(width, height int) error {
	return nil
}

// Present discards the frame.
func (r *Renderer) Present(frame *image.RGBA, pts time.Duration) error {
	r.frames.Add(1)
	return nil
}

// Release does nothing.
func (r *Renderer) Release() error {
	return nil
}

// Frames returns the number of discarded frames.
func (r *Renderer) Frames() int64 {
	return r.frames.Load()
}

// Ensure Renderer implements ports.Renderer
var _ ports.Renderer = (*Renderer)(nil)

// AudioOutput drains a PCM source as fast as it fills and discards the data.
// It keeps the audio stage from stalling on backpressure when no device is used.
type AudioOutput struct {
	bytes  atomic.Int64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAudioOutput creates a new null AudioOutput.
func NewAudioOutput() *AudioOutput {
	return &AudioOutput{}
}

// Start begins draining src.
func (o *AudioOutput) Start(src ports.PCMSource) error {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			buf, ok := src.Pop(ctx)
			if !ok {
				return
			}
			o.bytes.Add(int64(buf.Len()))
		}
	}()
	return nil
}

// Pause does nothing; discarding has no clock to suspend.
func (o *AudioOutput) Pause(paused bool) {}

// Stop waits for the source to finish.
func (o *AudioOutput) Stop() error {
	o.wg.Wait()
	if o.cancel != nil {
		o.cancel()
	}
	return nil
}

// Bytes returns the number of discarded PCM bytes.
func (o *AudioOutput) Bytes() int64 {
	return o.bytes.Load()
}

// Ensure AudioOutput implements ports.AudioOutput
var _ ports.AudioOutput = (*AudioOutput)(nil)
