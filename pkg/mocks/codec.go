package mocks

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/ports"
)

// ErrDecode is returned by mock decoders for units listed in FailPTS.
var ErrDecode = errors.New("mocks: decode failed")

// DecoderStats counts calls on a mock decoder.
type DecoderStats struct {
	mu      sync.Mutex
	Decodes int
	Drains  int
	Flushes int
	Closes  int
}

func (s *DecoderStats) add(f func()) {
	s.mu.Lock()
	f()
	s.mu.Unlock()
}

// Snapshot returns decode, drain, flush and close counts.
func (s *DecoderStats) Snapshot() (decodes, drains, flushes, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Decodes, s.Drains, s.Flushes, s.Closes
}

// VideoDecoder is a mock implementation of ports.VideoDecoder.
// Each unit yields one solid-color frame with the unit's PTS. With Delay > 0
// the decoder holds back that many frames and releases them on drain.
type VideoDecoder struct {
	DecoderStats

	Width, Height int
	Delay         int
	FailPTS       map[time.Duration]bool
	DecodeFunc    func(unit *media.Unit) ([]media.VideoFrame, error)
	CloseErr      error

	pending []media.VideoFrame
}

func (m *VideoDecoder) Decode(unit *media.Unit) ([]media.VideoFrame, error) {
	if unit == nil {
		m.add(func() { m.Drains++ })
		out := m.pending
		m.pending = nil
		return out, nil
	}
	m.add(func() { m.Decodes++ })
	if m.DecodeFunc != nil {
		return m.DecodeFunc(unit)
	}
	if m.FailPTS[unit.PTS] {
		return nil, ErrDecode
	}

	img := image.NewYCbCr(image.Rect(0, 0, m.Width, m.Height), image.YCbCrSubsampleRatio420)
	for i := range img.Y {
		img.Y[i] = byte(unit.PTS / time.Millisecond)
	}
	m.pending = append(m.pending, media.VideoFrame{Image: img, PTS: unit.PTS})
	if len(m.pending) <= m.Delay {
		return nil, nil
	}
	out := m.pending[:len(m.pending)-m.Delay]
	m.pending = append([]media.VideoFrame(nil), m.pending[len(m.pending)-m.Delay:]...)
	return out, nil
}

func (m *VideoDecoder) Flush() {
	m.add(func() { m.Flushes++ })
	m.pending = nil
}

func (m *VideoDecoder) Close() error {
	m.add(func() { m.Closes++ })
	return m.CloseErr
}

var _ ports.VideoDecoder = (*VideoDecoder)(nil)

// AudioDecoder is a mock implementation of ports.AudioDecoder.
// Each unit yields FrameSamples sample frames of a constant value.
type AudioDecoder struct {
	DecoderStats

	Format       media.AudioFormat
	FrameSamples int
	Value        float32
	FailPTS      map[time.Duration]bool
	DecodeFunc   func(unit *media.Unit) ([]media.AudioFrame, error)
}

func (m *AudioDecoder) Decode(unit *media.Unit) ([]media.AudioFrame, error) {
	if unit == nil {
		m.add(func() { m.Drains++ })
		return nil, nil
	}
	m.add(func() { m.Decodes++ })
	if m.DecodeFunc != nil {
		return m.DecodeFunc(unit)
	}
	if m.FailPTS[unit.PTS] {
		return nil, ErrDecode
	}
	samples := make([]float32, m.FrameSamples*m.Format.Channels)
	for i := range samples {
		samples[i] = m.Value
	}
	return []media.AudioFrame{{Format: m.Format, Samples: samples, PTS: unit.PTS}}, nil
}

func (m *AudioDecoder) Flush() {
	m.add(func() { m.Flushes++ })
}

func (m *AudioDecoder) Close() error {
	m.add(func() { m.Closes++ })
	return nil
}

var _ ports.AudioDecoder = (*AudioDecoder)(nil)

// CodecFactory is a mock implementation of ports.CodecFactory.
// It hands out the configured decoders, creating defaults when nil.
type CodecFactory struct {
	Video *VideoDecoder
	Audio *AudioDecoder

	OpenVideoErr error
	OpenAudioErr error
}

func (m *CodecFactory) OpenVideo(desc media.StreamDescriptor) (ports.VideoDecoder, error) {
	if m.OpenVideoErr != nil {
		return nil, m.OpenVideoErr
	}
	if m.Video == nil {
		m.Video = &VideoDecoder{Width: desc.Width, Height: desc.Height}
	}
	return m.Video, nil
}

func (m *CodecFactory) OpenAudio(desc media.StreamDescriptor) (ports.AudioDecoder, error) {
	if m.OpenAudioErr != nil {
		return nil, m.OpenAudioErr
	}
	if m.Audio == nil {
		m.Audio = &AudioDecoder{
			Format:       media.AudioFormat{SampleRate: desc.SampleRate, Channels: desc.Channels},
			FrameSamples: 1024,
			Value:        0.5,
		}
	}
	return m.Audio, nil
}

var _ ports.CodecFactory = (*CodecFactory)(nil)

// SolidFrame returns an RGBA image filled with c, for renderer tests.
func SolidFrame(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}
