// Package mp4demuxer reads H.264 video and AAC audio from MP4 files using mp4ff.
package mp4demuxer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/ports"
)

var (
	// ErrNoTracks is returned when the file has no supported video track.
	ErrNoTracks = errors.New("mp4demuxer: no supported video track")

	// ErrNoMoov is returned when the file has no movie box.
	ErrNoMoov = errors.New("mp4demuxer: no moov box found")
)

// sample locates one access unit in the file.
type sample struct {
	stream int
	offset int64
	size   uint32
	data   []byte // fragmented files carry the payload inline
	dts    time.Duration
	pts    time.Duration
	key    bool
}

// track holds per-stream state collected while indexing.
type track struct {
	desc   media.StreamDescriptor
	params [][]byte // SPS and PPS prepended to keyframes
}

// Demuxer implements ports.Demuxer for MP4 files.
type Demuxer struct {
	r        io.ReaderAt
	closer   io.Closer
	tracks   []track
	streams  []media.StreamDescriptor
	duration time.Duration
	samples  []sample
	next     int
}

// Open opens and indexes an MP4 file.
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
	d.closer = f
	return d, nil
}

// NewFromReader indexes an MP4 read from r. The reader must stay valid until Close.
func NewFromReader(r io.ReadSeeker) (*Demuxer, error) {
	mp4File, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	d := &Demuxer{}
	if ra, ok := r.(io.ReaderAt); ok {
		d.r = ra
	} else {
		d.r = &seekReaderAt{r: r}
	}

	if mp4File.IsFragmented() {
		err = d.indexFragmented(mp4File)
	} else {
		err = d.indexProgressive(mp4File)
	}
	if err != nil {
		return nil, err
	}

	hasVideo := false
	for _, t := range d.tracks {
		d.streams = append(d.streams, t.desc)
		if t.desc.Role == media.RoleVideo {
			hasVideo = true
		}
	}
	if !hasVideo {
		return nil, ErrNoTracks
	}

	// Interleave streams in decode order, keeping file order for equal times.
	slices.SortStableFunc(d.samples, func(a, b sample) int {
		switch {
		case a.dts < b.dts:
			return -1
		case a.dts > b.dts:
			return 1
		}
		return 0
	})
	return d, nil
}

// =============================================================================
// Indexing
// =============================================================================

func (d *Demuxer) indexProgressive(f *mp4.File) error {
	if f.Moov == nil {
		return ErrNoMoov
	}
	if f.Moov.Mvhd != nil && f.Moov.Mvhd.Timescale > 0 {
		d.duration = media.TicksToDuration(int64(f.Moov.Mvhd.Duration), f.Moov.Mvhd.Timescale)
	}

	for _, trak := range f.Moov.Traks {
		t, ok := describeTrack(trak, len(d.tracks))
		if !ok {
			continue
		}
		stbl := trak.Mdia.Minf.Stbl
		if stbl.Stsz == nil {
			continue
		}

		count := stbl.Stsz.SampleNumber
		if t.desc.Role == media.RoleVideo && d.duration > 0 && count > 0 {
			t.desc.FrameRate = float64(count) / d.duration.Seconds()
		}

		syncSamples := make(map[uint32]bool)
		if stbl.Stss != nil {
			for _, nr := range stbl.Stss.SampleNumber {
				syncSamples[nr] = true
			}
		}

		for nr := uint32(1); nr <= count; nr++ {
			offset, err := sampleOffset(stbl, nr)
			if err != nil {
				return fmt.Errorf("locate sample %d: %w", nr, err)
			}
			var decodeTime uint64
			if stbl.Stts != nil {
				decodeTime, _ = stbl.Stts.GetDecodeTime(nr)
			}
			presTime := int64(decodeTime)
			if stbl.Ctts != nil {
				presTime += int64(stbl.Ctts.GetCompositionTimeOffset(nr))
			}

			d.samples = append(d.samples, sample{
				stream: t.desc.Index,
				offset: offset,
				size:   stbl.Stsz.GetSampleSize(int(nr)),
				dts:    media.TicksToDuration(int64(decodeTime), t.desc.TimeBase),
				pts:    media.TicksToDuration(presTime, t.desc.TimeBase),
				key:    t.desc.Role == media.RoleAudio || syncSamples[nr] || len(syncSamples) == 0,
			})
		}
		d.tracks = append(d.tracks, t)
	}
	return nil
}

// indexFragmented reads the video track of a fragmented file. Samples are
// held in memory since mp4ff decodes the media data of every fragment.
func (d *Demuxer) indexFragmented(f *mp4.File) error {
	if f.Init == nil || f.Init.Moov == nil {
		return ErrNoMoov
	}

	var (
		videoTrackID uint32
		trex         *mp4.TrexBox
		t            track
		found        bool
	)
	for _, trak := range f.Init.Moov.Traks {
		tr, ok := describeTrack(trak, 0)
		if !ok || tr.desc.Role != media.RoleVideo {
			continue
		}
		t, found = tr, true
		videoTrackID = trak.Tkhd.TrackID
		break
	}
	if !found {
		return ErrNoTracks
	}
	if f.Init.Moov.Mvex != nil {
		for _, tx := range f.Init.Moov.Mvex.Trexs {
			if tx.TrackID == videoTrackID {
				trex = tx
				break
			}
		}
	}

	var end time.Duration
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != videoTrackID {
					continue
				}
				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return fmt.Errorf("get samples: %w", err)
				}
				for _, s := range samples {
					dts := media.TicksToDuration(int64(s.DecodeTime), t.desc.TimeBase)
					d.samples = append(d.samples, sample{
						stream: t.desc.Index,
						data:   s.Data,
						size:   uint32(len(s.Data)),
						dts:    dts,
						pts:    media.TicksToDuration(int64(s.DecodeTime)+int64(s.CompositionTimeOffset), t.desc.TimeBase),
						key:    s.Flags == mp4.SyncSampleFlags,
					})
					end = dts + media.TicksToDuration(int64(s.Dur), t.desc.TimeBase)
				}
			}
		}
	}
	if len(d.samples) > 0 {
		d.samples[0].key = true
	}

	d.duration = end
	if end > 0 {
		t.desc.FrameRate = float64(len(d.samples)) / end.Seconds()
	}
	d.tracks = append(d.tracks, t)
	return nil
}

// describeTrack builds a descriptor for supported H.264 and AAC tracks.
func describeTrack(trak *mp4.TrakBox, index int) (track, bool) {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Mdhd == nil {
		return track{}, false
	}
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return track{}, false
	}
	timescale := trak.Mdia.Mdhd.Timescale

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch entry := child.(type) {
		case *mp4.VisualSampleEntryBox:
			if trak.Mdia.Hdlr.HandlerType != "vide" || entry.AvcC == nil {
				continue
			}
			var params [][]byte
			params = append(params, entry.AvcC.SPSnalus...)
			params = append(params, entry.AvcC.PPSnalus...)
			private, err := h264.AnnexB(params).Marshal()
			if err != nil {
				private = nil
			}
			return track{
				desc: media.StreamDescriptor{
					Index:        index,
					Role:         media.RoleVideo,
					Codec:        "h264",
					Width:        int(entry.Width),
					Height:       int(entry.Height),
					TimeBase:     timescale,
					CodecPrivate: private,
				},
				params: params,
			}, true

		case *mp4.AudioSampleEntryBox:
			if trak.Mdia.Hdlr.HandlerType != "soun" || entry.Type() != "mp4a" {
				continue
			}
			rate := int(entry.SampleRate)
			if rate == 0 {
				rate = int(timescale)
			}
			config := mpeg4audio.AudioSpecificConfig{
				Type:         mpeg4audio.ObjectTypeAACLC,
				SampleRate:   rate,
				ChannelCount: int(entry.ChannelCount),
			}
			private, err := config.Marshal()
			if err != nil {
				private = nil
			}
			return track{
				desc: media.StreamDescriptor{
					Index:        index,
					Role:         media.RoleAudio,
					Codec:        "aac",
					SampleRate:   rate,
					Channels:     int(entry.ChannelCount),
					TimeBase:     timescale,
					CodecPrivate: private,
				},
			}, true
		}
	}
	return track{}, false
}

// sampleOffset returns the file offset of a sample in a progressive file.
func sampleOffset(stbl *mp4.StblBox, sampleNr uint32) (int64, error) {
	if stbl.Stsc == nil || stbl.Stsz == nil {
		return 0, fmt.Errorf("missing stsc or stsz box")
	}

	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
	if err != nil {
		return 0, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	switch {
	case stbl.Stco != nil:
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk nr out of range")
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return 0, fmt.Errorf("no stco or co64 box")
	}

	offset := chunkOffset
	for s := uint32(firstSampleInChunk); s < sampleNr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}
	return int64(offset), nil
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

// ReadUnit returns the next sample. Video payloads are converted to Annex B
// with SPS/PPS prepended on keyframes.
func (d *Demuxer) ReadUnit() (*media.Unit, error) {
	if d.next >= len(d.samples) {
		return nil, io.EOF
	}
	s := d.samples[d.next]
	d.next++

	data := s.data
	if data == nil {
		data = make([]byte, s.size)
		if _, err := d.r.ReadAt(data, s.offset); err != nil {
			return nil, fmt.Errorf("read sample: %w", err)
		}
	}

	t := d.tracks[s.stream]
	unit := &media.Unit{
		Role:     t.desc.Role,
		Stream:   s.stream,
		PTS:      s.pts,
		Keyframe: s.key,
	}

	if t.desc.Role == media.RoleVideo {
		var au h264.AVCC
		if err := au.Unmarshal(data); err != nil {
			return nil, fmt.Errorf("unmarshal avcc: %w", err)
		}
		if s.key && len(t.params) > 0 {
			au = append(append(h264.AVCC{}, t.params...), au...)
		}
		annexB, err := h264.AnnexB(au).Marshal()
		if err != nil {
			return nil, fmt.Errorf("marshal annex b: %w", err)
		}
		data = annexB
	}
	unit.Data = data
	return unit, nil
}

// Seek moves to the last video keyframe at or before pos, or to the first
// sample when no keyframe precedes pos.
func (d *Demuxer) Seek(pos time.Duration) error {
	if pos < 0 {
		return fmt.Errorf("mp4demuxer: negative seek position %v", pos)
	}
	target := 0
	for i, s := range d.samples {
		if d.tracks[s.stream].desc.Role != media.RoleVideo || !s.key {
			continue
		}
		if s.pts > pos {
			break
		}
		target = i
	}
	d.next = target
	return nil
}

func (d *Demuxer) Close() error {
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

var _ ports.Demuxer = (*Demuxer)(nil)

// seekReaderAt adapts an io.ReadSeeker for positional reads from one goroutine.
type seekReaderAt struct {
	r io.ReadSeeker
}

func (s *seekReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if _, err := s.r.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(s.r, p)
}
