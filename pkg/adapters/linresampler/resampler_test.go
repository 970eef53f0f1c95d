package linresampler

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/user/mediaplay/pkg/media"
)

func s16(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return out
}

func constFrame(format media.AudioFormat, frames int, v float32) media.AudioFrame {
	samples := make([]float32, frames*format.Channels)
	for i := range samples {
		samples[i] = v
	}
	return media.AudioFrame{Format: format, Samples: samples}
}

func TestConvert_SameRatePassesThrough(t *testing.T) {
	f := media.AudioFormat{SampleRate: 48000, Channels: 2}
	r, err := New(f, media.AudioFormat{})
	if err != nil {
		t.Fatal(err)
	}

	buf, err := r.Convert(media.AudioFrame{Format: f, Samples: []float32{0, 0.5, -0.5, 1.5}})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	got := s16(buf.Data)
	want := []int16{0, 16383, -16383, math.MaxInt16}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
	if buf.Format != f {
		t.Errorf("expected output format %+v, got %+v", f, buf.Format)
	}
}

func TestConvert_DownsampleLength(t *testing.T) {
	in := media.AudioFormat{SampleRate: 48000, Channels: 1}
	out := media.AudioFormat{SampleRate: 24000, Channels: 1}
	r, _ := New(in, out)

	total := 0
	for i := 0; i < 10; i++ {
		buf, err := r.Convert(constFrame(in, 480, 0.25))
		if err != nil {
			t.Fatal(err)
		}
		total += buf.Len() / 2
	}
	// 4800 input frames at half rate.
	if total < 2399 || total > 2401 {
		t.Errorf("expected about 2400 output frames, got %d", total)
	}
}

func TestConvert_UpsampleInterpolatesAcrossBlocks(t *testing.T) {
	in := media.AudioFormat{SampleRate: 1000, Channels: 1}
	out := media.AudioFormat{SampleRate: 2000, Channels: 1}
	r, _ := New(in, out)

	// A ramp split into two blocks must come out as one continuous ramp.
	var got []int16
	for _, block := range [][]float32{{0, 0.1, 0.2}, {0.3, 0.4}} {
		buf, err := r.Convert(media.AudioFrame{Format: in, Samples: block})
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, s16(buf.Data)...)
	}

	if len(got) < 7 {
		t.Fatalf("expected at least 7 samples, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		step := int(got[i]) - int(got[i-1])
		if step < 1500 || step > 1800 {
			t.Errorf("discontinuity at %d: %d -> %d", i, got[i-1], got[i])
		}
	}
}

func TestConvert_ChannelMapping(t *testing.T) {
	stereo := media.AudioFormat{SampleRate: 8000, Channels: 2}
	mono := media.AudioFormat{SampleRate: 8000, Channels: 1}

	down, _ := New(stereo, mono)
	buf, _ := down.Convert(media.AudioFrame{Format: stereo, Samples: []float32{0.5, -0.5, 1, 0}})
	if got := s16(buf.Data); len(got) != 2 || got[0] != 0 || got[1] != 16383 {
		t.Errorf("stereo to mono: got %v", got)
	}

	up, _ := New(mono, stereo)
	buf, _ = up.Convert(media.AudioFrame{Format: mono, Samples: []float32{0.5}})
	if got := s16(buf.Data); len(got) != 2 || got[0] != got[1] {
		t.Errorf("mono to stereo: got %v", got)
	}
}

func TestConvert_FormatMismatch(t *testing.T) {
	r, _ := New(media.AudioFormat{SampleRate: 44100, Channels: 2}, media.AudioFormat{})
	_, err := r.Convert(constFrame(media.AudioFormat{SampleRate: 48000, Channels: 2}, 10, 0))
	if !errors.Is(err, ErrFormatMismatch) {
		t.Errorf("expected ErrFormatMismatch, got %v", err)
	}
}

func TestNew_InvalidInput(t *testing.T) {
	if _, err := New(media.AudioFormat{}, media.AudioFormat{}); err == nil {
		t.Error("expected error for empty input format")
	}
	if _, err := NewFactory().Open(media.AudioFormat{SampleRate: 48000}, media.AudioFormat{}); err == nil {
		t.Error("expected error for zero channels")
	}
}

func TestReset_DropsCarriedState(t *testing.T) {
	in := media.AudioFormat{SampleRate: 1000, Channels: 1}
	r, _ := New(in, media.AudioFormat{SampleRate: 3000, Channels: 1})
	r.Convert(constFrame(in, 5, 1))
	r.Reset()

	buf, _ := r.Convert(constFrame(in, 5, 0))
	for i, v := range s16(buf.Data) {
		if v != 0 {
			t.Fatalf("sample %d: expected silence after reset, got %d", i, v)
		}
	}
}
