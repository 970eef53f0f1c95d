// Package otosink plays PCM on the default audio device through oto.
//
// The device pulls audio on its own goroutine by reading from the PCM source.
// Reads never block: an empty source yields silence.
package otosink

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/ports"
)

var (
	// ErrPlatformNotSupported is returned when the binary was built without
	// audio device support.
	ErrPlatformNotSupported = errors.New("otosink: audio device not supported on this platform")

	// ErrFormatChanged is returned when a session asks for a format other than
	// the one the device was opened with. The device can be opened only once
	// per process.
	ErrFormatChanged = errors.New("otosink: device already opened with another format")

	// ErrAlreadyStarted is returned by Start on a running output.
	ErrAlreadyStarted = errors.New("otosink: output already started")
)

// DefaultBufferSize is the device buffer length used when none is configured.
const DefaultBufferSize = 100 * time.Millisecond

// Options configures the device output.
type Options struct {
	// BufferSize is the device buffer length. Larger values trade latency for
	// resilience against scheduling hiccups.
	BufferSize time.Duration
}

func (o Options) bufferSize() time.Duration {
	if o.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return o.BufferSize
}

func validate(f media.AudioFormat) error {
	if f.SampleRate <= 0 || f.Channels <= 0 || f.Channels > 2 {
		return fmt.Errorf("otosink: unsupported format %d Hz %d ch", f.SampleRate, f.Channels)
	}
	return nil
}

// Ensure Output implements ports.AudioOutput
var _ ports.AudioOutput = (*Output)(nil)
