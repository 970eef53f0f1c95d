package ports

import (
	"image"
	"time"
)

// Renderer presents decoded pictures.
// All methods are called from the video stage goroutine.
type Renderer interface {
	// Init prepares the renderer for pictures of the given size.
	Init(width, height int) error

	// Present shows one picture. The picture buffer is reused by the caller
	// after Present returns and must not be retained.
	Present(frame *image.RGBA, pts time.Duration) error

	// Release frees renderer resources.
	Release() error
}
