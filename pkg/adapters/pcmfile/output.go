// Package pcmfile provides an audio output that writes raw S16LE PCM to a file.
package pcmfile

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/user/mediaplay/pkg/ports"
)

// Output implements ports.AudioOutput. It pops buffers from the source and
// appends them to the file until the source finishes.
type Output struct {
	fs     ports.FileSystem
	path   string
	logger ports.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	paused  bool
	stopped bool
	written int64
	err     error

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an output writing to path.
func New(fs ports.FileSystem, path string, logger ports.Logger) *Output {
	o := &Output{
		fs:     fs,
		path:   path,
		logger: logger.WithComponent("pcmfile"),
	}
	o.cond = sync.NewCond(&o.mu)
	return o
}

func (o *Output) Start(src ports.PCMSource) error {
	w, err := o.fs.Create(o.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", o.path, err)
	}
	f := src.Format()
	o.logger.Info("Writing %d Hz %d ch S16LE to %s", f.SampleRate, f.Channels, o.path)

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.done = make(chan struct{})
	go o.run(ctx, src, w)
	return nil
}

func (o *Output) run(ctx context.Context, src ports.PCMSource, w io.WriteCloser) {
	defer close(o.done)
	defer func() {
		if err := w.Close(); err != nil {
			o.setErr(err)
		}
	}()

	for {
		o.mu.Lock()
		for o.paused && !o.stopped {
			o.cond.Wait()
		}
		o.mu.Unlock()

		buf, ok := src.Pop(ctx)
		if !ok {
			return
		}
		n, err := w.Write(buf.Data)
		o.mu.Lock()
		o.written += int64(n)
		o.mu.Unlock()
		if err != nil {
			o.setErr(err)
			o.logger.Error("Failed to write PCM: %s", err.Error())
			return
		}
	}
}

func (o *Output) setErr(err error) {
	o.mu.Lock()
	if o.err == nil {
		o.err = err
	}
	o.mu.Unlock()
}

func (o *Output) Pause(paused bool) {
	o.mu.Lock()
	o.paused = paused
	o.mu.Unlock()
	o.cond.Broadcast()
}

// Stop releases a pause, waits until the source has finished and been
// written out, then closes the file.
func (o *Output) Stop() error {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()
	o.cond.Broadcast()

	if o.done == nil {
		return nil
	}
	<-o.done
	o.cancel()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.logger.Info("Wrote %d bytes of PCM", o.written)
	return o.err
}

// Written returns the number of bytes written so far.
func (o *Output) Written() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.written
}

// Ensure Output implements ports.AudioOutput
var _ ports.AudioOutput = (*Output)(nil)
