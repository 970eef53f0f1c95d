// Package media defines the data model shared by every stage of the playback pipeline.
package media

import (
	"image"
	"time"
)

// =============================================================================
// Streams
// =============================================================================

// Role identifies which elementary stream a unit or descriptor belongs to.
type Role int

const (
	RoleVideo Role = iota
	RoleAudio
)

// String returns the string representation of the role.
func (r Role) String() string {
	switch r {
	case RoleVideo:
		return "video"
	case RoleAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// StreamDescriptor describes one elementary stream of a container.
// Descriptors are immutable once returned by a demuxer.
type StreamDescriptor struct {
	Index int
	Role  Role
	Codec string // "h264", "hevc", "aac", ...

	// Video
	Width     int
	Height    int
	FrameRate float64 // frames per second, 0 if unknown

	// Audio
	SampleRate int
	Channels   int

	// TimeBase is the number of ticks per second of the stream's native timestamps.
	TimeBase uint32

	// CodecPrivate holds out-of-band decoder configuration:
	// Annex B SPS/PPS for H.264, AudioSpecificConfig for AAC.
	CodecPrivate []byte
}

// =============================================================================
// Compressed units
// =============================================================================

// Unit is one compressed access unit read from the container.
// Video payloads are Annex B; AAC payloads are raw access units.
type Unit struct {
	Role     Role
	Stream   int // StreamDescriptor.Index
	Data     []byte
	PTS      time.Duration
	Keyframe bool

	// Epoch is the seek generation the unit was read in.
	Epoch uint64

	// Flush marks a control unit pushed after a seek. It carries no data;
	// the consuming stage resets its decoder and adopts Epoch.
	Flush bool
}

// NewFlushUnit returns a flush marker for the given role and epoch.
func NewFlushUnit(role Role, epoch uint64) *Unit {
	return &Unit{Role: role, Epoch: epoch, Flush: true}
}

// =============================================================================
// Decoded frames
// =============================================================================

// VideoFrame is a decoded picture.
type VideoFrame struct {
	Image image.Image
	PTS   time.Duration
}

// AudioFormat describes interleaved PCM.
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// BytesPerFrame returns the size of one S16LE sample frame (all channels).
func (f AudioFormat) BytesPerFrame() int {
	return f.Channels * 2
}

// AudioFrame is a block of decoded interleaved float32 samples in [-1, 1].
type AudioFrame struct {
	Format  AudioFormat
	Samples []float32
	PTS     time.Duration
}

// Frames returns the number of sample frames in the block.
func (f AudioFrame) Frames() int {
	if f.Format.Channels <= 0 {
		return 0
	}
	return len(f.Samples) / f.Format.Channels
}

// PCMBuffer is an owned block of interleaved signed 16-bit little-endian samples.
type PCMBuffer struct {
	Format AudioFormat
	Data   []byte
	PTS    time.Duration
}

// Len returns the size of the buffer in bytes.
func (b PCMBuffer) Len() int {
	return len(b.Data)
}

// =============================================================================
// Session metadata
// =============================================================================

// Info is the stream metadata reported when playback starts.
type Info struct {
	VideoWidth  int
	VideoHeight int
	Duration    time.Duration
	VideoCodec  string
	FrameRate   float64

	AudioSampleRate int
	AudioChannels   int
	AudioCodec      string
}

// HasAudio reports whether the session carries an audio stream.
func (i Info) HasAudio() bool {
	return i.AudioCodec != ""
}

// Seconds converts a duration into fractional seconds.
func Seconds(d time.Duration) float64 {
	return d.Seconds()
}

// FromSeconds converts fractional seconds into a duration.
func FromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// TicksToDuration converts a timestamp in the given time base into a duration.
func TicksToDuration(ticks int64, timeBase uint32) time.Duration {
	if timeBase == 0 {
		return 0
	}
	sec := ticks / int64(timeBase)
	rem := ticks % int64(timeBase)
	return time.Duration(sec)*time.Second + time.Duration(rem)*time.Second/time.Duration(timeBase)
}
