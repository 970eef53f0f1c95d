// Package snapshot provides a renderer that saves presented pictures as PNG
// files, with an on-screen display of the frame number and timestamp.
package snapshot

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/mediaplay/pkg/ports"
)

// Options configures the snapshot renderer.
type Options struct {
	// Dir is the output directory for snapshots.
	Dir string

	// Every saves one snapshot per this many presented frames (1 = all).
	Every int

	// Width and Height scale snapshots. Zero keeps the presented size.
	Width  int
	Height int

	// OSD draws the frame number and timestamp onto each snapshot.
	OSD bool

	// FontPath is an optional TrueType font for the OSD.
	FontPath string
	FontSize float64
}

// Renderer implements ports.Renderer by writing PNG snapshots.
type Renderer struct {
	fs     ports.FileSystem
	opts   Options
	logger ports.Logger

	dc      *gg.Context
	scaled  *image.RGBA
	frames  int
	saved   int
	written []string
}

// New creates a new snapshot Renderer.
func New(fs ports.FileSystem, opts Options, logger ports.Logger) *Renderer {
	if opts.Every <= 0 {
		opts.Every = 1
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 14
	}
	return &Renderer{
		fs:     fs,
		opts:   opts,
		logger: logger.WithComponent("snapshot"),
	}
}

func (r *Renderer) Init(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid picture size %dx%d", width, height)
	}
	if err := r.fs.MkdirAll(r.opts.Dir); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	w, h := width, height
	if r.opts.Width > 0 && r.opts.Height > 0 {
		w, h = r.opts.Width, r.opts.Height
	}
	if w != width || h != height {
		r.scaled = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	r.dc = gg.NewContext(w, h)
	if r.opts.OSD && r.opts.FontPath != "" {
		if err := r.dc.LoadFontFace(r.opts.FontPath, r.opts.FontSize); err != nil {
			r.logger.Warn("Failed to load font %s: %s", r.opts.FontPath, err.Error())
		}
	}
	r.frames = 0
	r.saved = 0
	return nil
}

func (r *Renderer) Present(frame *image.RGBA, pts time.Duration) error {
	if r.dc == nil {
		return fmt.Errorf("renderer not initialized")
	}
	index := r.frames
	r.frames++
	if index%r.opts.Every != 0 {
		return nil
	}

	var src image.Image = frame
	if r.scaled != nil {
		draw.CatmullRom.Scale(r.scaled, r.scaled.Bounds(), frame, frame.Bounds(), draw.Src, nil)
		src = r.scaled
	}

	r.dc.SetColor(color.Black)
	r.dc.Clear()
	r.dc.DrawImage(src, 0, 0)
	if r.opts.OSD {
		r.drawOSD(index, pts)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, r.dc.Image()); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	path := filepath.Join(r.opts.Dir, fmt.Sprintf("frame-%06d.png", index))
	if err := r.fs.WriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	r.saved++
	r.written = append(r.written, path)
	return nil
}

func (r *Renderer) drawOSD(index int, pts time.Duration) {
	text := fmt.Sprintf("#%d  %.3fs", index, pts.Seconds())
	tw, th := r.dc.MeasureString(text)

	r.dc.SetColor(color.RGBA{0, 0, 0, 160})
	r.dc.DrawRectangle(4, 4, tw+12, th+10)
	r.dc.Fill()

	r.dc.SetColor(color.White)
	r.dc.DrawStringAnchored(text, 10, 9+th/2, 0, 0.5)
}

func (r *Renderer) Release() error {
	if r.dc != nil {
		r.logger.Info("Saved %d snapshots of %d frames to %s", r.saved, r.frames, r.opts.Dir)
	}
	r.dc = nil
	r.scaled = nil
	return nil
}

// Saved returns the paths of the written snapshots.
func (r *Renderer) Saved() []string {
	return append([]string(nil), r.written...)
}

// Ensure Renderer implements ports.Renderer
var _ ports.Renderer = (*Renderer)(nil)
