package ports

import (
	"context"
	"io"

	"github.com/user/mediaplay/pkg/media"
)

// PCMSource is the pull side of the PCM queue.
type PCMSource interface {
	// Reader fills p completely, padding with silence. It never blocks.
	io.Reader

	// Pull returns exactly maxBytes bytes, padding with silence.
	Pull(maxBytes int) media.PCMBuffer

	// Pop blocks for the next queued buffer without padding; ok is false once
	// the producer has finished and the queue is drained.
	Pop(ctx context.Context) (buf media.PCMBuffer, ok bool)

	// Format returns the PCM format of the source.
	Format() media.AudioFormat
}

// AudioOutput consumes PCM from a source on its own schedule.
type AudioOutput interface {
	// Start begins pulling from src.
	Start(src PCMSource) error

	// Pause suspends or resumes pulling.
	Pause(paused bool)

	// Stop ends pulling and releases the output. Stop waits until the output
	// no longer touches src.
	Stop() error
}
