package ffmpegcodec

import (
	"container/heap"
	"fmt"
	"image"
	"time"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/ports"
)

// VideoDecoder decodes Annex B H.264/H.265 into YCbCr pictures.
// ffmpeg emits pictures in presentation order, so output timestamps are taken
// from a min-heap of the input timestamps.
type VideoDecoder struct {
	ffmpegPath    string
	format        string
	width, height int

	proc   *process
	pts    ptsHeap
	closed bool
}

func newVideoDecoder(ffmpegPath, format string, width, height int) *VideoDecoder {
	return &VideoDecoder{
		ffmpegPath: ffmpegPath,
		format:     format,
		width:      width,
		height:     height,
	}
}

func (d *VideoDecoder) frameSize() int {
	cw, ch := (d.width+1)/2, (d.height+1)/2
	return d.width*d.height + 2*cw*ch
}

func (d *VideoDecoder) start() error {
	args := append(inputArgs(d.format),
		"-an",
		"-fps_mode", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p",
		"-s", fmt.Sprintf("%dx%d", d.width, d.height),
		"pipe:1",
	)
	proc, err := startProcess(d.ffmpegPath, args, readFull(d.frameSize()))
	if err != nil {
		return err
	}
	d.proc = proc
	return nil
}

// Decode feeds one unit and returns the pictures ffmpeg has produced so far.
// A nil unit closes the input and returns every remaining picture.
func (d *VideoDecoder) Decode(unit *media.Unit) ([]media.VideoFrame, error) {
	if d.closed {
		return nil, ErrClosed
	}

	if unit == nil {
		if d.proc == nil {
			return nil, nil
		}
		chunks, err := d.proc.finish()
		d.proc = nil
		frames := d.frames(chunks)
		d.pts = d.pts[:0]
		return frames, err
	}

	if d.proc == nil {
		if err := d.start(); err != nil {
			return nil, err
		}
	}

	heap.Push(&d.pts, unit.PTS)
	if err := d.proc.write(unit.Data); err != nil {
		d.proc.kill()
		d.proc = nil
		d.pts = d.pts[:0]
		return nil, err
	}
	return d.frames(d.proc.ready()), nil
}

func (d *VideoDecoder) frames(chunks [][]byte) []media.VideoFrame {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]media.VideoFrame, 0, len(chunks))
	for _, c := range chunks {
		var pts time.Duration
		if d.pts.Len() > 0 {
			pts = heap.Pop(&d.pts).(time.Duration)
		}
		out = append(out, media.VideoFrame{Image: d.picture(c), PTS: pts})
	}
	return out
}

// picture wraps a yuv420p frame without copying.
func (d *VideoDecoder) picture(buf []byte) *image.YCbCr {
	cw, ch := (d.width+1)/2, (d.height+1)/2
	ySize := d.width * d.height
	cSize := cw * ch
	return &image.YCbCr{
		Y:              buf[:ySize],
		Cb:             buf[ySize : ySize+cSize],
		Cr:             buf[ySize+cSize : ySize+2*cSize],
		YStride:        d.width,
		CStride:        cw,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, d.width, d.height),
	}
}

// Flush discards buffered pictures. The process restarts on the next unit.
func (d *VideoDecoder) Flush() {
	if d.proc != nil {
		d.proc.kill()
		d.proc = nil
	}
	d.pts = d.pts[:0]
}

func (d *VideoDecoder) Close() error {
	d.Flush()
	d.closed = true
	return nil
}

var _ ports.VideoDecoder = (*VideoDecoder)(nil)

// ptsHeap is a min-heap of presentation timestamps.
type ptsHeap []time.Duration

func (h ptsHeap) Len() int           { return len(h) }
func (h ptsHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h ptsHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *ptsHeap) Push(x any) {
	*h = append(*h, x.(time.Duration))
}

func (h *ptsHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
