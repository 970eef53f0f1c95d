package ffmpegcodec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/ports"
)

// audioChunkFrames is the number of sample frames per output chunk.
const audioChunkFrames = 1024

// AudioDecoder decodes raw AAC access units into float32 samples at the
// stream's native rate and channel count.
type AudioDecoder struct {
	ffmpegPath string
	config     mpeg4audio.AudioSpecificConfig
	format     media.AudioFormat

	proc    *process
	basePTS time.Duration
	samples int64 // sample frames emitted since basePTS
	closed  bool
}

func newAudioDecoder(ffmpegPath string, desc media.StreamDescriptor) (*AudioDecoder, error) {
	var config mpeg4audio.AudioSpecificConfig
	if len(desc.CodecPrivate) == 0 || config.Unmarshal(desc.CodecPrivate) != nil {
		config = mpeg4audio.AudioSpecificConfig{
			Type:         mpeg4audio.ObjectTypeAACLC,
			SampleRate:   desc.SampleRate,
			ChannelCount: desc.Channels,
		}
	}
	if config.SampleRate <= 0 || config.ChannelCount <= 0 {
		return nil, fmt.Errorf("%w: aac stream without sample rate or channels", ErrUnsupportedCodec)
	}

	return &AudioDecoder{
		ffmpegPath: ffmpegPath,
		config:     config,
		format:     media.AudioFormat{SampleRate: config.SampleRate, Channels: config.ChannelCount},
	}, nil
}

// Format returns the decoded sample format.
func (d *AudioDecoder) Format() media.AudioFormat {
	return d.format
}

func (d *AudioDecoder) start(pts time.Duration) error {
	args := append(inputArgs("aac"),
		"-vn",
		"-f", "f32le",
		"-ac", strconv.Itoa(d.format.Channels),
		"-ar", strconv.Itoa(d.format.SampleRate),
		"pipe:1",
	)
	align := d.format.Channels * 4
	proc, err := startProcess(d.ffmpegPath, args, readAligned(audioChunkFrames*align, align))
	if err != nil {
		return err
	}
	d.proc = proc
	d.basePTS = pts
	d.samples = 0
	return nil
}

// Decode wraps the unit in an ADTS header and feeds it to ffmpeg.
// A nil unit closes the input and returns the remaining samples.
func (d *AudioDecoder) Decode(unit *media.Unit) ([]media.AudioFrame, error) {
	if d.closed {
		return nil, ErrClosed
	}

	if unit == nil {
		if d.proc == nil {
			return nil, nil
		}
		chunks, err := d.proc.finish()
		d.proc = nil
		return d.frames(chunks), err
	}

	if d.proc == nil {
		if err := d.start(unit.PTS); err != nil {
			return nil, err
		}
	}

	pkt, err := mpeg4audio.ADTSPackets{{
		Type:         d.config.Type,
		SampleRate:   d.config.SampleRate,
		ChannelCount: d.config.ChannelCount,
		AU:           unit.Data,
	}}.Marshal()
	if err != nil {
		return nil, fmt.Errorf("wrap adts: %w", err)
	}
	if err := d.proc.write(pkt); err != nil {
		d.proc.kill()
		d.proc = nil
		return nil, err
	}
	return d.frames(d.proc.ready()), nil
}

func (d *AudioDecoder) frames(chunks [][]byte) []media.AudioFrame {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]media.AudioFrame, 0, len(chunks))
	for _, c := range chunks {
		samples := make([]float32, len(c)/4)
		for i := range samples {
			samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(c[4*i:]))
		}
		pts := d.basePTS + time.Duration(d.samples)*time.Second/time.Duration(d.format.SampleRate)
		d.samples += int64(len(samples) / d.format.Channels)
		out = append(out, media.AudioFrame{Format: d.format, Samples: samples, PTS: pts})
	}
	return out
}

// Flush discards buffered audio. The process restarts on the next unit.
func (d *AudioDecoder) Flush() {
	if d.proc != nil {
		d.proc.kill()
		d.proc = nil
	}
}

func (d *AudioDecoder) Close() error {
	d.Flush()
	d.closed = true
	return nil
}

var _ ports.AudioDecoder = (*AudioDecoder)(nil)
