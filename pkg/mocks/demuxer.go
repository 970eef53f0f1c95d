package mocks

import (
	"io"
	"sync"
	"time"

	"github.com/user/mediaplay/pkg/media"
	"github.com/user/mediaplay/pkg/ports"
)

// Demuxer is a mock implementation of ports.Demuxer serving a fixed list of units.
type Demuxer struct {
	mu sync.Mutex

	StreamList []media.StreamDescriptor
	Length     time.Duration
	Units      []*media.Unit

	// ReadDelay is slept before every ReadUnit.
	ReadDelay time.Duration

	ReadUnitFunc func() (*media.Unit, error)
	SeekFunc     func(pos time.Duration) error
	CloseFunc    func() error

	pos        int
	ReadCalls  int
	SeekCalls  []time.Duration
	CloseCalls int
}

// NewDemuxer creates a demuxer with one video stream (index 0) and, when
// audio is true, one audio stream (index 1). Video units are generated at
// the given frame rate; every keyInterval-th unit is a keyframe. Audio units
// are interleaved one per video unit.
func NewDemuxer(frames int, frameRate float64, keyInterval int, audio bool) *Demuxer {
	d := &Demuxer{
		StreamList: []media.StreamDescriptor{{
			Index: 0, Role: media.RoleVideo, Codec: "h264",
			Width: 64, Height: 48, FrameRate: frameRate, TimeBase: 90000,
		}},
	}
	if audio {
		d.StreamList = append(d.StreamList, media.StreamDescriptor{
			Index: 1, Role: media.RoleAudio, Codec: "aac",
			SampleRate: 48000, Channels: 2, TimeBase: 48000,
		})
	}

	step := time.Duration(float64(time.Second) / frameRate)
	for i := 0; i < frames; i++ {
		pts := time.Duration(i) * step
		d.Units = append(d.Units, &media.Unit{
			Role:     media.RoleVideo,
			Stream:   0,
			Data:     []byte{byte(i)},
			PTS:      pts,
			Keyframe: keyInterval <= 1 || i%keyInterval == 0,
		})
		if audio {
			d.Units = append(d.Units, &media.Unit{
				Role:     media.RoleAudio,
				Stream:   1,
				Data:     []byte{byte(i)},
				PTS:      pts,
				Keyframe: true,
			})
		}
	}
	d.Length = time.Duration(frames) * step
	return d
}

func (m *Demuxer) Streams() []media.StreamDescriptor {
	return m.StreamList
}

func (m *Demuxer) Duration() time.Duration {
	return m.Length
}

func (m *Demuxer) ReadUnit() (*media.Unit, error) {
	if m.ReadDelay > 0 {
		time.Sleep(m.ReadDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls++

	if m.ReadUnitFunc != nil {
		return m.ReadUnitFunc()
	}
	if m.pos >= len(m.Units) {
		return nil, io.EOF
	}
	u := *m.Units[m.pos]
	m.pos++
	return &u, nil
}

// Seek moves to the last video keyframe at or before pos.
func (m *Demuxer) Seek(pos time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SeekCalls = append(m.SeekCalls, pos)

	if m.SeekFunc != nil {
		return m.SeekFunc(pos)
	}
	target := 0
	for i, u := range m.Units {
		if u.Role != media.RoleVideo || !u.Keyframe {
			continue
		}
		if u.PTS > pos {
			break
		}
		target = i
	}
	m.pos = target
	return nil
}

func (m *Demuxer) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Closes returns the number of Close calls.
func (m *Demuxer) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CloseCalls
}

// Reads returns the number of ReadUnit calls.
func (m *Demuxer) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ReadCalls
}

// Seeks returns a copy of the positions passed to Seek.
func (m *Demuxer) Seeks() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.SeekCalls...)
}

var _ ports.Demuxer = (*Demuxer)(nil)

// ContainerOpener is a mock implementation of ports.ContainerOpener.
type ContainerOpener struct {
	OpenFunc func(uri string) (ports.Demuxer, error)
	Opened   []string
	mu       sync.Mutex
}

func (m *ContainerOpener) Open(uri string) (ports.Demuxer, error) {
	m.mu.Lock()
	m.Opened = append(m.Opened, uri)
	m.mu.Unlock()
	if m.OpenFunc != nil {
		return m.OpenFunc(uri)
	}
	return nil, io.ErrUnexpectedEOF
}

var _ ports.ContainerOpener = (*ContainerOpener)(nil)
