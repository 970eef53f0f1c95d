// Package rawfile provides a renderer that appends every presented picture to
// a file as packed RGBA rows.
package rawfile

import (
	"fmt"
	"image"
	"io"
	"time"

	"github.com/user/mediaplay/pkg/ports"
)

// Renderer implements ports.Renderer by writing raw RGBA frames.
// The output has no header; each frame is width*height*4 bytes.
type Renderer struct {
	fs     ports.FileSystem
	path   string
	logger ports.Logger

	w             io.WriteCloser
	width, height int
	frames        int
	bytes         int64
}

// New creates a renderer writing to path.
func New(fs ports.FileSystem, path string, logger ports.Logger) *Renderer {
	return &Renderer{
		fs:     fs,
		path:   path,
		logger: logger.WithComponent("rawfile"),
	}
}

func (r *Renderer) Init(width, height int) error {
	w, err := r.fs.Create(r.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", r.path, err)
	}
	r.w = w
	r.width, r.height = width, height
	r.frames = 0
	r.bytes = 0
	r.logger.Info("Writing %dx%d RGBA frames to %s", width, height, r.path)
	return nil
}

func (r *Renderer) Present(frame *image.RGBA, pts time.Duration) error {
	if r.w == nil {
		return fmt.Errorf("renderer not initialized")
	}
	b := frame.Bounds()
	if b.Dx() != r.width || b.Dy() != r.height {
		return fmt.Errorf("frame size %dx%d does not match %dx%d", b.Dx(), b.Dy(), r.width, r.height)
	}

	row := r.width * 4
	if frame.Stride == row && b.Min == (image.Point{}) {
		if _, err := r.w.Write(frame.Pix[:row*r.height]); err != nil {
			return err
		}
	} else {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := frame.PixOffset(b.Min.X, y)
			if _, err := r.w.Write(frame.Pix[off : off+row]); err != nil {
				return err
			}
		}
	}
	r.frames++
	r.bytes += int64(row * r.height)
	return nil
}

func (r *Renderer) Release() error {
	if r.w == nil {
		return nil
	}
	err := r.w.Close()
	r.w = nil
	r.logger.Info("Wrote %d frames (%d bytes)", r.frames, r.bytes)
	return err
}

// Frames returns the number of frames written.
func (r *Renderer) Frames() int {
	return r.frames
}

// Ensure Renderer implements ports.Renderer
var _ ports.Renderer = (*Renderer)(nil)
