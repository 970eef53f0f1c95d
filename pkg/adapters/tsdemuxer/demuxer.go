// Package tsdemuxer reads H.264, H.265 and AAC streams from MPEG-TS files
// using the mediacommon reader.
package tsdemuxer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h265"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/ports"
)

// ErrNoTracks is returned when the stream has no supported video track.
var ErrNoTracks = errors.New("tsdemuxer: no supported video track")

// clockRate is the MPEG-TS timestamp rate.
const clockRate = 90000

// aacFrameSamples is the number of samples in one AAC access unit.
const aacFrameSamples = 1024

type pendingUnit struct {
	unit  *media.Unit
	ticks int64
}

// Demuxer implements ports.Demuxer for MPEG-TS input. The file is scanned
// once when opened to find the duration and the keyframe positions; seeking
// rewinds the input and discards units up to the target keyframe.
type Demuxer struct {
	src io.ReadSeeker
	cl  io.Closer

	reader  *mpegts.Reader
	pending []pendingUnit
	streams []media.StreamDescriptor

	duration  time.Duration
	base      int64
	keyframes []int64 // video keyframe ticks relative to base

	skipping bool
	skipTo   int64

	decodeErrors int
}

// Open opens and scans an MPEG-TS file.
func Open(path string) (*Demuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	d, err := NewFromReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.cl = f
	return d, nil
}

// NewFromReader scans an MPEG-TS stream read from r.
func NewFromReader(r io.ReadSeeker) (*Demuxer, error) {
	d := &Demuxer{src: r}
	if err := d.scan(); err != nil {
		return nil, err
	}
	if err := d.restart(); err != nil {
		return nil, err
	}
	return d, nil
}

// scan reads the whole input once to describe it.
func (d *Demuxer) scan() error {
	if err := d.restart(); err != nil {
		return err
	}

	videoIdx := -1
	var first, last, videoFirst, videoLast int64
	var haveFirst bool
	var videoCount int
	var keyframes []int64
	for i, s := range d.streams {
		if s.Role == media.RoleVideo {
			videoIdx = i
		}
	}
	if videoIdx < 0 {
		return ErrNoTracks
	}

	for {
		p, err := d.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if !haveFirst || p.ticks < first {
			first = p.ticks
		}
		if !haveFirst || p.ticks > last {
			last = p.ticks
		}
		haveFirst = true

		if p.unit.Role != media.RoleVideo {
			continue
		}
		if videoCount == 0 || p.ticks < videoFirst {
			videoFirst = p.ticks
		}
		if videoCount == 0 || p.ticks > videoLast {
			videoLast = p.ticks
		}
		videoCount++
		if p.unit.Keyframe {
			keyframes = append(keyframes, p.ticks)
		}
		if d.streams[videoIdx].Width == 0 && p.unit.Keyframe {
			d.describeVideo(videoIdx, p.unit.Data)
		}
	}
	if videoCount == 0 {
		return ErrNoTracks
	}

	d.base = first
	for i := range keyframes {
		keyframes[i] -= first
	}
	sort.Slice(keyframes, func(i, j int) bool { return keyframes[i] < keyframes[j] })
	d.keyframes = keyframes

	span := videoLast - videoFirst
	if videoCount > 1 && span > 0 {
		fps := float64(videoCount-1) * clockRate / float64(span)
		d.streams[videoIdx].FrameRate = fps
		// The last frame is displayed for one frame interval.
		last += int64(clockRate / fps)
	}
	d.duration = media.TicksToDuration(last-first, clockRate)
	return nil
}

// describeVideo fills in the picture size from the SPS of a keyframe.
func (d *Demuxer) describeVideo(idx int, annexB []byte) {
	var au h264.AnnexB
	if err := au.Unmarshal(annexB); err != nil {
		return
	}
	desc := &d.streams[idx]
	for _, nalu := range au {
		if len(nalu) == 0 {
			continue
		}
		switch desc.Codec {
		case "h264":
			if h264.NALUType(nalu[0]&0x1F) != h264.NALUTypeSPS {
				continue
			}
			var sps h264.SPS
			if err := sps.Unmarshal(nalu); err != nil {
				continue
			}
			desc.Width, desc.Height = sps.Width(), sps.Height()
			return
		case "hevc":
			if h265.NALUType((nalu[0]>>1)&0x3F) != h265.NALUType_SPS_NUT {
				continue
			}
			var sps h265.SPS
			if err := sps.Unmarshal(nalu); err != nil {
				continue
			}
			desc.Width, desc.Height = sps.Width(), sps.Height()
			return
		}
	}
}

// restart rewinds the input and sets up a fresh reader.
func (d *Demuxer) restart() error {
	if _, err := d.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	d.pending = d.pending[:0]

	r := &mpegts.Reader{R: bufio.NewReaderSize(d.src, 188*1024)}
	if err := r.Initialize(); err != nil {
		return fmt.Errorf("initialize mpegts reader: %w", err)
	}
	r.OnDecodeError(func(error) {
		d.decodeErrors++
	})

	streams := make([]media.StreamDescriptor, 0, 2)
	var haveVideo, haveAudio bool
	for _, track := range r.Tracks() {
		switch codec := track.Codec.(type) {
		case *mpegts.CodecH264:
			if haveVideo {
				continue
			}
			haveVideo = true
			idx := len(streams)
			streams = append(streams, media.StreamDescriptor{Index: idx, Role: media.RoleVideo, Codec: "h264", TimeBase: clockRate})
			r.OnDataH264(track, func(pts, _ int64, au [][]byte) error {
				return d.pushVideo(idx, pts, au, h264.IsRandomAccess(au))
			})

		case *mpegts.CodecH265:
			if haveVideo {
				continue
			}
			haveVideo = true
			idx := len(streams)
			streams = append(streams, media.StreamDescriptor{Index: idx, Role: media.RoleVideo, Codec: "hevc", TimeBase: clockRate})
			r.OnDataH265(track, func(pts, _ int64, au [][]byte) error {
				return d.pushVideo(idx, pts, au, h265.IsRandomAccess(au))
			})

		case *mpegts.CodecMPEG4Audio:
			if haveAudio {
				continue
			}
			haveAudio = true
			idx := len(streams)
			private, err := codec.Config.Marshal()
			if err != nil {
				private = nil
			}
			rate := codec.Config.SampleRate
			streams = append(streams, media.StreamDescriptor{
				Index:        idx,
				Role:         media.RoleAudio,
				Codec:        "aac",
				SampleRate:   rate,
				Channels:     codec.Config.ChannelCount,
				TimeBase:     clockRate,
				CodecPrivate: private,
			})
			r.OnDataMPEG4Audio(track, func(pts int64, aus [][]byte) error {
				return d.pushAudio(idx, rate, pts, aus)
			})
		}
	}

	if d.streams == nil {
		d.streams = streams
	}
	d.reader = r
	return nil
}

func (d *Demuxer) pushVideo(idx int, pts int64, au [][]byte, key bool) error {
	if len(au) == 0 {
		return nil
	}
	data, err := h264.AnnexB(au).Marshal()
	if err != nil || len(data) == 0 {
		return nil
	}
	d.pending = append(d.pending, pendingUnit{
		unit:  &media.Unit{Role: media.RoleVideo, Stream: idx, Data: data, Keyframe: key},
		ticks: pts,
	})
	return nil
}

func (d *Demuxer) pushAudio(idx, rate int, pts int64, aus [][]byte) error {
	if rate <= 0 {
		rate = 48000
	}
	step := int64(aacFrameSamples * clockRate / rate)
	for _, au := range aus {
		if len(au) == 0 {
			continue
		}
		d.pending = append(d.pending, pendingUnit{
			unit:  &media.Unit{Role: media.RoleAudio, Stream: idx, Data: au, Keyframe: true},
			ticks: pts,
		})
		pts += step
	}
	return nil
}

// next returns the next unit with raw timestamps.
func (d *Demuxer) next() (pendingUnit, error) {
	for len(d.pending) == 0 {
		if err := d.reader.Read(); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return pendingUnit{}, io.EOF
			}
			return pendingUnit{}, err
		}
	}
	p := d.pending[0]
	d.pending = d.pending[1:]
	return p, nil
}

// =============================================================================
// ports.Demuxer
// =============================================================================

func (d *Demuxer) Streams() []media.StreamDescriptor {
	return d.streams
}

func (d *Demuxer) Duration() time.Duration {
	return d.duration
}

func (d *Demuxer) ReadUnit() (*media.Unit, error) {
	for {
		p, err := d.next()
		if err != nil {
			return nil, err
		}
		rel := p.ticks - d.base
		if d.skipping {
			if p.unit.Role != media.RoleVideo || !p.unit.Keyframe || rel < d.skipTo {
				continue
			}
			d.skipping = false
		}
		p.unit.PTS = media.TicksToDuration(max(rel, 0), clockRate)
		return p.unit, nil
	}
}

// Seek rewinds the input and skips to the last video keyframe at or before pos.
func (d *Demuxer) Seek(pos time.Duration) error {
	if pos < 0 {
		return fmt.Errorf("tsdemuxer: negative seek position %v", pos)
	}
	target := int64(pos / time.Microsecond * clockRate / 1000000)
	i := sort.Search(len(d.keyframes), func(i int) bool { return d.keyframes[i] > target })

	if err := d.restart(); err != nil {
		return err
	}
	d.skipping = i > 0
	if i > 0 {
		d.skipTo = d.keyframes[i-1]
	}
	return nil
}

// DecodeErrors returns the number of packets the reader could not decode.
func (d *Demuxer) DecodeErrors() int {
	return d.decodeErrors
}

func (d *Demuxer) Close() error {
	if d.cl == nil {
		return nil
	}
	err := d.cl.Close()
	d.cl = nil
	return err
}

var _ ports.Demuxer = (*Demuxer)(nil)
