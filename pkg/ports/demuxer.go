package ports

import (
	"time"

	"github.com/user/mediaplay/pkg/media"
)

// Demuxer splits a container into compressed units.
// A Demuxer is owned by a single goroutine; its methods are not safe for concurrent use.
type Demuxer interface {
	// Streams returns the elementary streams of the container.
	Streams() []media.StreamDescriptor

	// Duration returns the container duration, 0 if unknown.
	Duration() time.Duration

	// ReadUnit returns the next unit in file order.
	// It returns io.EOF at the end of the input.
	ReadUnit() (*media.Unit, error)

	// Seek repositions the reader so that the next unit is the last video
	// keyframe at or before pos.
	Seek(pos time.Duration) error

	// Close releases the underlying input.
	Close() error
}

// ContainerOpener opens a container by URI (a local path).
type ContainerOpener interface {
	Open(uri string) (Demuxer, error)
}
