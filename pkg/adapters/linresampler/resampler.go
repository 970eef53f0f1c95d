// Package linresampler converts decoded float32 audio to interleaved S16LE
// with linear-interpolation rate conversion and simple channel mapping.
package linresampler

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/ports"
)

// ErrFormatMismatch is returned when a frame does not match the input format.
var ErrFormatMismatch = errors.New("linresampler: frame format does not match input")

// Resampler implements ports.Resampler. State is carried across Convert calls
// so consecutive blocks join without discontinuities.
type Resampler struct {
	in, out media.AudioFormat
	step    float64

	// pos is the position of the next output sample in input frames,
	// relative to the start of the next block. -1 addresses prev.
	pos     float64
	prev    []float32
	hasPrev bool
}

// New creates a resampler. Zero fields of out take the input value.
func New(in, out media.AudioFormat) (*Resampler, error) {
	if in.SampleRate <= 0 || in.Channels <= 0 {
		return nil, fmt.Errorf("linresampler: invalid input format %+v", in)
	}
	if out.SampleRate <= 0 {
		out.SampleRate = in.SampleRate
	}
	if out.Channels <= 0 {
		out.Channels = in.Channels
	}
	return &Resampler{
		in:   in,
		out:  out,
		step: float64(in.SampleRate) / float64(out.SampleRate),
		prev: make([]float32, in.Channels),
	}, nil
}

// Output returns the output format.
func (r *Resampler) Output() media.AudioFormat {
	return r.out
}

func (r *Resampler) Convert(frame media.AudioFrame) (media.PCMBuffer, error) {
	if frame.Format != r.in {
		return media.PCMBuffer{}, fmt.Errorf("%w: got %+v, want %+v", ErrFormatMismatch, frame.Format, r.in)
	}
	n := frame.Frames()
	if n == 0 {
		return media.PCMBuffer{Format: r.out, PTS: frame.PTS}, nil
	}

	var resampled []float32
	if r.in.SampleRate == r.out.SampleRate {
		resampled = frame.Samples[:n*r.in.Channels]
	} else {
		resampled = r.interpolate(frame.Samples, n)
	}
	copy(r.prev, frame.Samples[(n-1)*r.in.Channels:n*r.in.Channels])
	r.hasPrev = true

	return media.PCMBuffer{
		Format: r.out,
		Data:   r.encode(resampled),
		PTS:    frame.PTS,
	}, nil
}

func (r *Resampler) interpolate(samples []float32, n int) []float32 {
	ch := r.in.Channels
	at := func(i, c int) float32 {
		if i < 0 {
			return r.prev[c]
		}
		return samples[i*ch+c]
	}

	if !r.hasPrev && r.pos < 0 {
		r.pos = 0
	}
	est := int(float64(n)/r.step) + 2
	out := make([]float32, 0, est*ch)
	for r.pos < float64(n-1) {
		i := int(math.Floor(r.pos))
		frac := float32(r.pos - float64(i))
		for c := 0; c < ch; c++ {
			s0, s1 := at(i, c), at(i+1, c)
			out = append(out, s0+(s1-s0)*frac)
		}
		r.pos += r.step
	}
	r.pos -= float64(n)
	return out
}

// encode maps channels and writes S16LE.
func (r *Resampler) encode(samples []float32) []byte {
	inCh, outCh := r.in.Channels, r.out.Channels
	frames := len(samples) / inCh
	data := make([]byte, frames*outCh*2)

	for f := 0; f < frames; f++ {
		src := samples[f*inCh : (f+1)*inCh]
		for c := 0; c < outCh; c++ {
			var v float32
			switch {
			case outCh == inCh:
				v = src[c]
			case outCh == 1:
				for _, s := range src {
					v += s
				}
				v /= float32(inCh)
			default:
				v = src[c%inCh]
			}
			binary.LittleEndian.PutUint16(data[(f*outCh+c)*2:], uint16(toS16(v)))
		}
	}
	return data
}

func toS16(v float32) int16 {
	switch {
	case v >= 1:
		return math.MaxInt16
	case v <= -1:
		return -math.MaxInt16
	}
	return int16(v * math.MaxInt16)
}

func (r *Resampler) Reset() {
	r.pos = 0
	r.hasPrev = false
	clear(r.prev)
}

func (r *Resampler) Close() error {
	return nil
}

var _ ports.Resampler = (*Resampler)(nil)

// Factory implements ports.ResamplerFactory.
type Factory struct{}

// NewFactory creates a new Factory.
func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Open(in, out media.AudioFormat) (ports.Resampler, error) {
	r, err := New(in, out)
	if err != nil {
		return nil, err
	}
	return r, nil
}

var _ ports.ResamplerFactory = (*Factory)(nil)
